package marketdata

import (
	"math"
	"sort"

	"github.com/wonny/carteira/internal/contracts"
)

// QualityConfig holds price coverage thresholds
type QualityConfig struct {
	MinCoverage     float64 `yaml:"min_coverage"`      // 0.9: 종목별 가격 존재 비율
	MinCompleteRows int     `yaml:"min_complete_rows"` // 2: 수익률 계산 최소 행
}

// DefaultQualityConfig returns the thresholds used by the pipeline
func DefaultQualityConfig() QualityConfig {
	return QualityConfig{
		MinCoverage:     0.9,
		MinCompleteRows: 2,
	}
}

// QualityReport summarizes how much of a price table is usable
type QualityReport struct {
	Rows         int                `json:"rows"`
	CompleteRows int                `json:"complete_rows"`
	Coverage     map[string]float64 `json:"coverage"`
	LowCoverage  []string           `json:"low_coverage"`
	Passed       bool               `json:"passed"`
}

// CheckQuality measures per-instrument coverage of a price table
// ⭐ SSOT: 가격 데이터 → optimizer 품질 검증
func CheckQuality(table contracts.PriceTable, config QualityConfig) QualityReport {
	report := QualityReport{
		Rows:     table.NumRows(),
		Coverage: make(map[string]float64, table.NumCols()),
	}

	present := make([]int, table.NumCols())
	for i, row := range table.Prices {
		if table.IsComplete(i) {
			report.CompleteRows++
		}
		for j, v := range row {
			if !math.IsNaN(v) {
				present[j]++
			}
		}
	}

	for j, ticker := range table.Tickers {
		coverage := 0.0
		if report.Rows > 0 {
			coverage = float64(present[j]) / float64(report.Rows)
		}
		report.Coverage[ticker] = coverage
		if coverage < config.MinCoverage {
			report.LowCoverage = append(report.LowCoverage, ticker)
		}
	}
	sort.Strings(report.LowCoverage)

	report.Passed = len(report.LowCoverage) == 0 && report.CompleteRows >= config.MinCompleteRows
	return report
}
