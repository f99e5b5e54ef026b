package risk

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/carteira/internal/contracts"
)

// DailyReturns computes simple daily returns over complete rows.
// A return row is kept only if its price row and the previous price row
// are both complete; missing prices are never imputed here.
func DailyReturns(prices contracts.PriceTable) (*Returns, error) {
	if err := prices.Validate(); err != nil {
		return nil, err
	}
	if prices.NumRows() < 2 {
		return nil, contracts.InvalidInputError("prices", "need at least 2 rows, got %d", prices.NumRows())
	}

	out := &Returns{
		Tickers: append([]string(nil), prices.Tickers...),
		Values:  make([][]float64, 0, prices.NumRows()-1),
	}

	for t := 1; t < prices.NumRows(); t++ {
		if !prices.IsComplete(t) || !prices.IsComplete(t-1) {
			out.Dropped++
			continue
		}
		row := make([]float64, prices.NumCols())
		for j := range row {
			prev := prices.Prices[t-1][j]
			row[j] = (prices.Prices[t][j] - prev) / prev
		}
		out.Dates = append(out.Dates, prices.Dates[t])
		out.Values = append(out.Values, row)
	}

	if len(out.Values) == 0 {
		return nil, contracts.InvalidInputError("prices", "no pair of consecutive complete rows")
	}

	return out, nil
}

// MeanReturns returns the per-instrument mean of the daily returns
func (r *Returns) MeanReturns() []float64 {
	means := make([]float64, len(r.Tickers))
	for j := range means {
		means[j] = stat.Mean(r.Column(j), nil)
	}
	return means
}

// Portfolio returns the weighted daily return series
func (r *Returns) Portfolio(weights contracts.WeightVector) []float64 {
	out := make([]float64, len(r.Values))
	for i, row := range r.Values {
		out[i] = floats.Dot(row, weights)
	}
	return out
}
