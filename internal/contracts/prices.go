package contracts

import (
	"fmt"
	"math"
	"time"
)

// PriceTable is a dense date × instrument table of closing prices.
// Rows are in strictly ascending date order. Missing values are NaN.
type PriceTable struct {
	Dates   []time.Time `json:"dates"`
	Tickers []string    `json:"tickers"`
	Prices  [][]float64 `json:"prices"` // Prices[row][col]
}

// NumRows returns the number of dates
func (p PriceTable) NumRows() int {
	return len(p.Prices)
}

// NumCols returns the number of instruments
func (p PriceTable) NumCols() int {
	return len(p.Tickers)
}

// IsComplete reports whether every instrument has a price on the given row
func (p PriceTable) IsComplete(row int) bool {
	for _, v := range p.Prices[row] {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// Column returns a copy of one instrument's prices
func (p PriceTable) Column(col int) []float64 {
	out := make([]float64, len(p.Prices))
	for i, row := range p.Prices {
		out[i] = row[col]
	}
	return out
}

// Validate checks shape and ordering.
// Present prices must be positive and finite.
func (p PriceTable) Validate() error {
	if len(p.Tickers) == 0 {
		return InvalidInputError("tickers", "price table has no instruments")
	}
	if len(p.Dates) != len(p.Prices) {
		return InvalidInputError("dates", "got %d dates for %d price rows", len(p.Dates), len(p.Prices))
	}
	seen := make(map[string]bool, len(p.Tickers))
	for _, t := range p.Tickers {
		if seen[t] {
			return InvalidInputError("tickers", "duplicate ticker %q", t)
		}
		seen[t] = true
	}
	for i, row := range p.Prices {
		if len(row) != len(p.Tickers) {
			return InvalidInputError("prices", "row %d has %d values, want %d", i, len(row), len(p.Tickers))
		}
		if i > 0 && !p.Dates[i].After(p.Dates[i-1]) {
			return InvalidInputError("dates", "dates not strictly ascending at row %d", i)
		}
		for j, v := range row {
			if math.IsNaN(v) {
				continue
			}
			if math.IsInf(v, 0) || v <= 0 {
				return InvalidInputError("prices", "%s on %s: price %v must be positive", p.Tickers[j], p.Dates[i].Format("2006-01-02"), v)
			}
		}
	}
	return nil
}

// WeightVector is a point on the probability simplex, one weight per instrument
type WeightVector []float64

// Sum returns the total weight
func (w WeightVector) Sum() float64 {
	s := 0.0
	for _, v := range w {
		s += v
	}
	return s
}

// Validate checks non-negativity and |sum-1| <= tol
func (w WeightVector) Validate(tol float64) error {
	for i, v := range w {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: weight %d = %v outside [0,1]", ErrInvalidInput, i, v)
		}
	}
	if s := w.Sum(); math.Abs(s-1) > tol {
		return fmt.Errorf("%w: weights sum to %v", ErrInvalidInput, s)
	}
	return nil
}

// Clone returns a copy
func (w WeightVector) Clone() WeightVector {
	return append(WeightVector(nil), w...)
}

// PricePoint is one dated closing price
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is one instrument's price history as returned by a provider.
// Points may be unsorted and may contain gaps.
type PriceSeries struct {
	Ticker string       `json:"ticker"`
	Points []PricePoint `json:"points"`
}

// Len returns the number of points
func (s PriceSeries) Len() int {
	return len(s.Points)
}

// Tail returns a view of the last n rows (the whole table when n <= 0 or n >= rows)
func (p PriceTable) Tail(n int) PriceTable {
	if n <= 0 || n >= len(p.Prices) {
		return p
	}
	start := len(p.Prices) - n
	return PriceTable{
		Dates:   p.Dates[start:],
		Tickers: p.Tickers,
		Prices:  p.Prices[start:],
	}
}
