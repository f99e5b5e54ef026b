package selection

import (
	"context"

	"github.com/wonny/carteira/internal/contracts"
	"github.com/wonny/carteira/pkg/logger"
)

// MaxDividendYield is the exclusive upper bound on div.yield (%) kept by default
const MaxDividendYield = 100.0

// Screener drops rows that violate the scoring preconditions
// ⭐ SSOT: 스크리닝 로직은 여기서만 (ScoreSector 입력 불변조건 보장)
type Screener struct {
	config ScreenerConfig
	logger *logger.Logger
}

// ScreenerConfig defines hard cut conditions
// SSOT: config/strategy.yaml screening
type ScreenerConfig struct {
	MaxDividendYield float64 // div.yield 상한 (미만만 통과)

	// Optional extra cuts (0 = 비활성)
	MaxPriceEarnings  float64 // p/l 상한
	MinReturnOnEquity float64 // roe 하한
}

// ScreeningResult is the passed table plus per-reason drop counts
type ScreeningResult struct {
	Passed     contracts.IndicatorTable
	Filtered   map[string]int // reason → count
	TotalInput int
}

// NewScreener creates a new screener
func NewScreener(config ScreenerConfig, logger *logger.Logger) *Screener {
	return &Screener{
		config: config,
		logger: logger,
	}
}

// Screen applies hard cut filters to an indicator table
func (s *Screener) Screen(ctx context.Context, table contracts.IndicatorTable) (*ScreeningResult, error) {
	for _, ind := range contracts.Indicators {
		if table.ColumnIndex(ind) < 0 {
			return nil, contracts.ConfigurationError("columns", "missing indicator column %q", ind.String())
		}
	}

	result := &ScreeningResult{
		Passed: contracts.IndicatorTable{
			Columns: append([]contracts.Indicator(nil), table.Columns...),
			Rows:    make([]contracts.IndicatorRow, 0, table.Len()),
		},
		Filtered:   make(map[string]int),
		TotalInput: table.Len(),
	}

	for i, row := range table.Rows {
		reason := s.checkConditions(table, i)
		if reason != "" {
			result.Filtered[reason]++
			continue
		}
		result.Passed.Rows = append(result.Passed.Rows, contracts.IndicatorRow{
			Ticker: row.Ticker,
			Values: append([]float64(nil), row.Values...),
		})
	}

	s.logger.WithFields(map[string]interface{}{
		"total_input":  result.TotalInput,
		"passed":       result.Passed.Len(),
		"filtered_out": result.TotalInput - result.Passed.Len(),
		"filters":      result.Filtered,
	}).Info("Screening completed")

	return result, nil
}

// checkConditions returns empty string if passed, otherwise the filter name
func (s *Screener) checkConditions(table contracts.IndicatorTable, row int) string {
	if len(table.Rows[row].Values) != len(table.Columns) {
		return "malformed"
	}
	if !table.Rows[row].IsFinite() {
		return "non_finite"
	}

	v, _ := table.Values(row)

	if v[contracts.PriceEarnings] <= 0 {
		return "p/l"
	}
	if v[contracts.PriceBook] <= 0 {
		return "p/vp"
	}
	if s.config.MaxDividendYield > 0 && v[contracts.DividendYield] >= s.config.MaxDividendYield {
		return "div.yield"
	}

	if s.config.MaxPriceEarnings > 0 && v[contracts.PriceEarnings] > s.config.MaxPriceEarnings {
		return "p/l_max"
	}
	if s.config.MinReturnOnEquity != 0 && v[contracts.ReturnOnEquity] < s.config.MinReturnOnEquity {
		return "roe_min"
	}

	return ""
}

// DefaultScreenerConfig returns default configuration
func DefaultScreenerConfig() ScreenerConfig {
	return ScreenerConfig{
		MaxDividendYield: MaxDividendYield,
	}
}
