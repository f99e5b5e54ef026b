package risk

import "time"

// TradingDaysPerYear annualizes daily statistics
const TradingDaysPerYear = 252

// VaRConvention VaR 부호 규약
// ⭐ SSOT: Loss를 양수로 표현 (VaR=0.05 → 5% 손실 가능)
const VaRConvention = "loss_positive"

// Returns is a table of simple daily returns derived from a PriceTable.
// Row t holds (P[t] - P[t-1]) / P[t-1] for a pair of complete price rows.
type Returns struct {
	Dates   []time.Time `json:"dates"` // date of the later price of each pair
	Tickers []string    `json:"tickers"`
	Values  [][]float64 `json:"values"`  // Values[row][col]
	Dropped int         `json:"dropped"` // return rows skipped for missing prices
}

// Column returns a copy of one instrument's return series
func (r *Returns) Column(col int) []float64 {
	out := make([]float64, len(r.Values))
	for i, row := range r.Values {
		out[i] = row[col]
	}
	return out
}

// InstrumentStats is the annualized return/risk of one instrument
type InstrumentStats struct {
	Ticker       string  `json:"ticker"`
	AnnualReturn float64 `json:"annual_return_pct"` // mean × 252 × 100
	AnnualRisk   float64 `json:"annual_risk_pct"`   // sample std × √252 × 100
}

// CorrelationMatrix is a symmetric Pearson correlation matrix
type CorrelationMatrix struct {
	Tickers []string    `json:"tickers"`
	Values  [][]float64 `json:"values"`
	Samples int         `json:"samples"` // complete rows used
}

// Get returns the correlation between two tickers
func (m CorrelationMatrix) Get(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, t := range m.Tickers {
		if t == a {
			i = k
		}
		if t == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Values[i][j], true
}

// VaRResult VaR 계산 결과
// ⭐ SSOT: VaR/CVaR는 손실을 양수로 표현
type VaRResult struct {
	Confidence float64 `json:"confidence"` // 신뢰수준 (예: 0.95, 0.99)
	VaR        float64 `json:"var"`        // Value at Risk (손실, 양수)
	CVaR       float64 `json:"cvar"`       // Conditional VaR (Expected Shortfall, 양수)
}

// PortfolioProfile is the annualized profile of a weighted portfolio
type PortfolioProfile struct {
	AnnualReturn  float64   `json:"annual_return_pct"`
	AnnualRisk    float64   `json:"annual_risk_pct"`
	MeanDaily     float64   `json:"mean_daily_return"`
	HistoricalVaR VaRResult `json:"historical_var"`
	ParametricVaR VaRResult `json:"parametric_var"`
	Samples       int       `json:"samples"`
}
