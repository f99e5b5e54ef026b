// Package marketdata assembles provider data into the tables the scoring engine
// and the weight optimizer consume.
package marketdata

import (
	"math"
	"sort"
	"time"

	"github.com/wonny/carteira/internal/contracts"
)

// FillPolicy decides what happens to dates where an instrument has no price
type FillPolicy string

const (
	// FillForward carries the last known price forward and drops leading rows
	// before every instrument has started trading
	FillForward FillPolicy = "forward"
	// FillNone leaves gaps as NaN (the optimizer then skips those rows)
	FillNone FillPolicy = "none"
)

// ParseFillPolicy maps a config value to a FillPolicy
func ParseFillPolicy(s string) (FillPolicy, error) {
	switch FillPolicy(s) {
	case FillForward, FillNone:
		return FillPolicy(s), nil
	case "":
		return FillForward, nil
	}
	return "", contracts.ConfigurationError("fill_policy", "unknown fill policy %q", s)
}

// BuildPriceTable aligns per-instrument series on the union of their dates.
// Column order follows the series order. Non-positive or non-finite closes count as missing.
func BuildPriceTable(series []contracts.PriceSeries, policy FillPolicy) (contracts.PriceTable, error) {
	if len(series) == 0 {
		return contracts.PriceTable{}, contracts.InvalidInputError("series", "no price series")
	}
	if policy != FillForward && policy != FillNone {
		return contracts.PriceTable{}, contracts.ConfigurationError("fill_policy", "unknown fill policy %q", policy)
	}

	tickers := make([]string, len(series))
	seen := make(map[string]bool, len(series))
	byDate := make(map[time.Time][]float64)

	for col, s := range series {
		if seen[s.Ticker] {
			return contracts.PriceTable{}, contracts.InvalidInputError("series", "duplicate ticker %q", s.Ticker)
		}
		seen[s.Ticker] = true
		tickers[col] = s.Ticker

		present := 0
		for _, p := range s.Points {
			if math.IsNaN(p.Close) || math.IsInf(p.Close, 0) || p.Close <= 0 {
				continue
			}
			day := truncateDay(p.Date)
			row, ok := byDate[day]
			if !ok {
				row = newMissingRow(len(series))
				byDate[day] = row
			}
			row[col] = p.Close // 같은 날짜 중복 시 마지막 값
			present++
		}
		if present == 0 {
			return contracts.PriceTable{}, contracts.InvalidInputError("series", "%s has no usable prices", s.Ticker)
		}
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	table := contracts.PriceTable{
		Dates:   dates,
		Tickers: tickers,
		Prices:  make([][]float64, len(dates)),
	}
	for i, d := range dates {
		table.Prices[i] = byDate[d]
	}

	if policy == FillForward {
		forwardFill(&table)
	}

	return table, nil
}

func newMissingRow(n int) []float64 {
	row := make([]float64, n)
	for i := range row {
		row[i] = math.NaN()
	}
	return row
}

// forwardFill carries prices forward, then drops rows until every column has started
func forwardFill(t *contracts.PriceTable) {
	for i := 1; i < len(t.Prices); i++ {
		for j, v := range t.Prices[i] {
			if math.IsNaN(v) {
				t.Prices[i][j] = t.Prices[i-1][j]
			}
		}
	}

	start := 0
	for start < len(t.Prices) && !t.IsComplete(start) {
		start++
	}
	t.Dates = t.Dates[start:]
	t.Prices = t.Prices[start:]
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
