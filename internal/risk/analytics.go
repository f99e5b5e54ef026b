package risk

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/carteira/internal/contracts"
)

// DefaultConfidence is the VaR confidence level reported by PortfolioStats
const DefaultConfidence = 0.95

// RiskReturn computes annualized return and risk per instrument
func RiskReturn(prices contracts.PriceTable) ([]InstrumentStats, error) {
	returns, err := DailyReturns(prices)
	if err != nil {
		return nil, err
	}

	out := make([]InstrumentStats, len(returns.Tickers))
	for j, ticker := range returns.Tickers {
		mean, std := meanStd(returns.Column(j))
		out[j] = InstrumentStats{
			Ticker:       ticker,
			AnnualReturn: mean * TradingDaysPerYear * 100,
			AnnualRisk:   std * math.Sqrt(TradingDaysPerYear) * 100,
		}
	}
	return out, nil
}

// Correlation computes Pearson correlation of price levels over complete rows
func Correlation(prices contracts.PriceTable) (CorrelationMatrix, error) {
	if err := prices.Validate(); err != nil {
		return CorrelationMatrix{}, err
	}

	cols := make([][]float64, prices.NumCols())
	samples := 0
	for i := 0; i < prices.NumRows(); i++ {
		if !prices.IsComplete(i) {
			continue
		}
		for j := range cols {
			cols[j] = append(cols[j], prices.Prices[i][j])
		}
		samples++
	}
	if samples < 2 {
		return CorrelationMatrix{}, contracts.InvalidInputError("prices", "need at least 2 complete rows, got %d", samples)
	}

	m := CorrelationMatrix{
		Tickers: append([]string(nil), prices.Tickers...),
		Values:  make([][]float64, len(cols)),
		Samples: samples,
	}
	for i := range cols {
		m.Values[i] = make([]float64, len(cols))
		m.Values[i][i] = 1
	}
	for i := range cols {
		for j := i + 1; j < len(cols); j++ {
			c := stat.Correlation(cols[i], cols[j], nil)
			if math.IsNaN(c) {
				c = 0 // 상수 시계열: 상관 정의 불가
			}
			m.Values[i][j] = c
			m.Values[j][i] = c
		}
	}
	return m, nil
}

// PortfolioStats computes annualized return/risk and VaR of a weighted portfolio
func PortfolioStats(prices contracts.PriceTable, weights contracts.WeightVector) (*PortfolioProfile, error) {
	if len(weights) != prices.NumCols() {
		return nil, contracts.InvalidInputError("weights", "got %d weights for %d instruments", len(weights), prices.NumCols())
	}
	if err := weights.Validate(1e-6); err != nil {
		return nil, err
	}

	returns, err := DailyReturns(prices)
	if err != nil {
		return nil, err
	}

	series := returns.Portfolio(weights)
	mean, std := meanStd(series)

	return &PortfolioProfile{
		AnnualReturn:  mean * TradingDaysPerYear * 100,
		AnnualRisk:    std * math.Sqrt(TradingDaysPerYear) * 100,
		MeanDaily:     mean,
		HistoricalVaR: CalculateVaR(series, DefaultConfidence),
		ParametricVaR: CalculateParametricVaR(mean, std, DefaultConfidence),
		Samples:       len(series),
	}, nil
}

// meanStd: 표본 표준편차 (n-1), 샘플 1개면 0
func meanStd(x []float64) (float64, float64) {
	if len(x) < 2 {
		return stat.Mean(x, nil), 0
	}
	return stat.MeanStdDev(x, nil)
}
