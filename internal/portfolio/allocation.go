package portfolio

import (
	"sort"
	"time"

	"github.com/wonny/carteira/internal/contracts"
)

// Position is one instrument's share of the optimized portfolio
type Position struct {
	Ticker string  `json:"ticker"`
	Sector string  `json:"sector,omitempty"`
	Weight float64 `json:"weight"`
	Score  float64 `json:"score,omitempty"` // ranking_(%) if the ticker came from a ranking
}

// Allocation is the optimized portfolio with its selection context
// ⭐ SSOT: 최적화 결과 → 저장/API 전달
type Allocation struct {
	Date      time.Time  `json:"date"`
	Positions []Position `json:"positions"`
	Score     float64    `json:"score"`
}

// TotalWeight returns the sum of position weights
func (a *Allocation) TotalWeight() float64 {
	total := 0.0
	for _, p := range a.Positions {
		total += p.Weight
	}
	return total
}

// Get returns the position of a ticker
func (a *Allocation) Get(ticker string) (Position, bool) {
	for _, p := range a.Positions {
		if p.Ticker == ticker {
			return p, true
		}
	}
	return Position{}, false
}

// NewAllocation pairs optimizer weights with ranking context, largest weight first.
// ranked may be empty when prices were supplied directly.
func NewAllocation(date time.Time, result *Result, ranked contracts.RankedTable) *Allocation {
	byTicker := make(map[string]contracts.RankedRow, len(ranked.Rows))
	for _, r := range ranked.Rows {
		byTicker[r.Ticker] = r
	}

	a := &Allocation{
		Date:      date,
		Positions: make([]Position, len(result.Tickers)),
		Score:     result.Score,
	}
	for i, t := range result.Tickers {
		p := Position{Ticker: t, Weight: result.Weights[i]}
		if r, ok := byTicker[t]; ok {
			p.Sector = r.Sector
			p.Score = r.Score
		}
		a.Positions[i] = p
	}

	sort.SliceStable(a.Positions, func(i, j int) bool {
		return a.Positions[i].Weight > a.Positions[j].Weight
	})

	return a
}

// EqualWeights returns the 1/n benchmark vector
func EqualWeights(n int) contracts.WeightVector {
	w := make(contracts.WeightVector, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}
