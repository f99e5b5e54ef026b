package selection

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/carteira/internal/contracts"
)

// Scoring is the full AHP-Gaussiano breakdown of one sector
type Scoring struct {
	Tickers    []string                    // ticker order used for every column below
	Original   []contracts.IndicatorValues // raw values
	Normalized [contracts.NumIndicators][]float64
	Factors    contracts.IndicatorValues // Gaussian factor = std / mean
	Weights    contracts.IndicatorValues // factors normalized to sum 1
	Weighted   []contracts.IndicatorValues
	Scores     []float64 // ranking_(%)
}

// ScoreSector ranks one sector with AHP-Gaussiano and keeps the top K rows
func ScoreSector(table contracts.IndicatorTable, topK int) (contracts.RankedTable, error) {
	if topK < 1 {
		return contracts.RankedTable{}, contracts.InvalidInputError("top_k", "must be >= 1, got %d", topK)
	}
	s, err := ScoreSectorDetailed(table)
	if err != nil {
		return contracts.RankedTable{}, err
	}
	return s.Top(topK), nil
}

// ScoreSectorDetailed runs the seven AHP-Gaussiano steps and returns every intermediate
func ScoreSectorDetailed(table contracts.IndicatorTable) (*Scoring, error) {
	for _, ind := range contracts.Indicators {
		if table.ColumnIndex(ind) < 0 {
			return nil, contracts.ConfigurationError("columns", "missing indicator column %q", ind.String())
		}
	}
	if table.Len() == 0 {
		return nil, contracts.InvalidInputError("table", "empty indicator table")
	}

	// ⭐ 행 순서 고정 (ticker 오름차순) → 입력 순열과 무관하게 동일 결과
	order := make([]int, table.Len())
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return table.Rows[order[a]].Ticker < table.Rows[order[b]].Ticker
	})

	n := len(order)
	s := &Scoring{
		Tickers:  make([]string, n),
		Original: make([]contracts.IndicatorValues, n),
		Weighted: make([]contracts.IndicatorValues, n),
		Scores:   make([]float64, n),
	}

	for i, idx := range order {
		row := table.Rows[idx]
		if i > 0 && row.Ticker == s.Tickers[i-1] {
			return nil, contracts.InvalidInputError("ticker", "duplicate ticker %q", row.Ticker)
		}
		if len(row.Values) != len(table.Columns) {
			return nil, contracts.InvalidInputError("values", "%s has %d values for %d columns", row.Ticker, len(row.Values), len(table.Columns))
		}
		if !row.IsFinite() {
			return nil, contracts.InvalidInputError("values", "%s has a non-finite indicator", row.Ticker)
		}
		values, _ := table.Values(idx)
		for _, ind := range contracts.Indicators {
			if ind.IsCost() && values[ind] <= 0 {
				return nil, contracts.InvalidInputError(ind.String(), "%s: %v must be > 0", row.Ticker, values[ind])
			}
		}
		s.Tickers[i] = row.Ticker
		s.Original[i] = values
	}

	// 1~2. 비용 지표 역수 변환 후 열 합계로 정규화
	for _, ind := range contracts.Indicators {
		col := make([]float64, n)
		for i := range s.Original {
			v := s.Original[i][ind]
			if ind.IsCost() {
				v = 1 / v
			}
			col[i] = v
		}
		sum := floats.Sum(col)
		if sum == 0 || math.IsInf(sum, 0) {
			return nil, contracts.DegeneracyError(ind.String(), "column sum is %v", sum)
		}
		floats.Scale(1/sum, col)
		s.Normalized[ind] = col
	}

	// 3. Gaussian factor = 표본 표준편차(n-1) / 평균
	if n > 1 {
		for _, ind := range contracts.Indicators {
			col := s.Normalized[ind]
			if constant(col) {
				continue
			}
			mean, std := stat.MeanStdDev(col, nil)
			if mean == 0 {
				return nil, contracts.DegeneracyError(ind.String(), "normalized column has zero mean")
			}
			s.Factors[ind] = std / mean
		}
	}

	// 4. factor 정규화 → 기준 가중치
	total := floats.Sum(s.Factors[:])
	switch {
	case allZero(s.Factors[:]) && n > 1:
		return nil, contracts.DegeneracyError("factors", "all %d rows share identical indicators, no criterion discriminates", n)
	case allZero(s.Factors[:]):
		// 단일 종목 섹터: 비교 대상이 없어 분산 0 → 균등 가중 (점수는 항상 100)
		for _, ind := range contracts.Indicators {
			s.Weights[ind] = 1.0 / contracts.NumIndicators
		}
	case total == 0 || math.IsNaN(total) || math.IsInf(total, 0):
		return nil, contracts.DegeneracyError("factors", "dispersion factors sum to %v", total)
	default:
		for _, ind := range contracts.Indicators {
			s.Weights[ind] = s.Factors[ind] / total
		}
	}

	// 5~6. 가중 합산 × 100
	for i := range s.Tickers {
		score := 0.0
		for _, ind := range contracts.Indicators {
			w := s.Normalized[ind][i] * s.Weights[ind]
			s.Weighted[i][ind] = w
			score += w
		}
		s.Scores[i] = score * 100
	}

	return s, nil
}

// Top sorts by score descending (ties by ticker) and keeps the first k rows
func (s *Scoring) Top(k int) contracts.RankedTable {
	order := make([]int, len(s.Tickers))
	for i := range order {
		order[i] = i
	}
	// 7. 점수 내림차순, 동점은 ticker 오름차순 (order가 이미 ticker순)
	sort.SliceStable(order, func(a, b int) bool {
		return s.Scores[order[a]] > s.Scores[order[b]]
	})

	n := k
	if n > len(order) {
		n = len(order)
	}
	if n < 0 {
		n = 0
	}

	rows := make([]contracts.RankedRow, n)
	for r := 0; r < n; r++ {
		i := order[r]
		rows[r] = contracts.RankedRow{
			Ticker:   s.Tickers[i],
			Rank:     r + 1,
			Weighted: s.Weighted[i],
			Original: s.Original[i],
			Score:    s.Scores[i],
		}
	}

	return contracts.RankedTable{TopK: k, Rows: rows}
}

func constant(col []float64) bool {
	for _, v := range col[1:] {
		if v != col[0] {
			return false
		}
	}
	return true
}

func allZero(xs []float64) bool {
	for _, v := range xs {
		if v != 0 {
			return false
		}
	}
	return true
}
