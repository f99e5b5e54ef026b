package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carteira/internal/contracts"
	"github.com/wonny/carteira/internal/portfolio"
	"github.com/wonny/carteira/pkg/logger"
)

const pricesJSON = `{
  "dates": ["2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-08"],
  "tickers": ["A", "B"],
  "prices": [[10, 20], [11, 20], [12, 20], [13, 20], [14, 20]]
}`

func TestParseDate(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	now := time.Date(2024, 3, 6, 1, 0, 0, 0, time.UTC)
	d, err := parseDate("", loc, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, loc), d)

	d, err = parseDate("2024-01-15", loc, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, loc), d)

	_, err = parseDate("15/01/2024", loc, now)
	assert.Error(t, err)
}

func TestReadPriceTable(t *testing.T) {
	table, err := readPriceTable("-", strings.NewReader(pricesJSON))
	require.NoError(t, err)
	assert.Equal(t, 5, table.NumRows())
	assert.Equal(t, []string{"A", "B"}, table.Tickers)

	_, err = readPriceTable("-", strings.NewReader(`{"dates": [], "extra": 1}`))
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)

	_, err = readPriceTable("/nonexistent/prices.json", nil)
	assert.Error(t, err)
}

func TestOptimizePriceTable(t *testing.T) {
	table, err := readPriceTable("-", strings.NewReader(pricesJSON))
	require.NoError(t, err)

	out, err := optimizePriceTable(table, portfolio.Config{Iterations: 1000, StepSize: 0.05}, 42, logger.Nop())
	require.NoError(t, err)

	assert.Equal(t, uint64(42), out.Seed)
	assert.InDelta(t, 1.0, out.Result.Weights.Sum(), 1e-6)
	assert.Greater(t, out.Result.Weights[0], out.Result.Weights[1])
	assert.Equal(t, "A", out.Allocation.Positions[0].Ticker)
	assert.Len(t, out.Instruments, 2)
	assert.GreaterOrEqual(t, out.Portfolio.MeanDaily, out.EqualWeight.MeanDaily)
	assert.Equal(t, 5, out.Correlation.Samples)

	// same seed, same weights
	again, err := optimizePriceTable(table, portfolio.Config{Iterations: 1000, StepSize: 0.05}, 42, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, out.Result.Weights, again.Result.Weights)

	var buf bytes.Buffer
	printOptimization(&buf, out)
	assert.Contains(t, buf.String(), "Hill-Climb Weight Search")
	assert.Contains(t, buf.String(), "optimized")
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	printTable(&buf, []string{"a", "b"}, []int{3, 4}, [][]string{{"x", "y"}})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "a    b   ", lines[0])
	assert.Equal(t, strings.Repeat("─", 9), lines[1])
	assert.Equal(t, "x    y   ", lines[2])
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"rank", "optimize", "run", "latest", "api", "scheduler"} {
		assert.True(t, names[want], want)
	}
}

func TestPrintLatest(t *testing.T) {
	var buf bytes.Buffer
	printLatest(&buf, latestOutput{
		Optimization: &portfolio.OptimizationRun{
			Seed:       7,
			Iterations: 500,
			Allocation: &portfolio.Allocation{
				Positions: []portfolio.Position{{Ticker: "ITUB4", Sector: "bancos", Weight: 0.6}},
			},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "no ranking run stored")
	assert.Contains(t, out, "ITUB4")
	assert.Contains(t, out, "0.6000")
	assert.NotContains(t, out, "no optimization run stored")
}

func TestRunOptimize_RejectsIterationBudget(t *testing.T) {
	prev := optimizeIterations
	t.Cleanup(func() { optimizeIterations = prev })
	optimizeIterations = portfolio.MaxIterations + 1

	err := runOptimize(optimizeCmd, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)
}
