package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/carteira/internal/api/handlers"
	"github.com/wonny/carteira/internal/contracts"
	"github.com/wonny/carteira/internal/portfolio"
	"github.com/wonny/carteira/internal/risk"
	"github.com/wonny/carteira/pkg/config"
	"github.com/wonny/carteira/pkg/logger"
)

// optimizeCmd represents the optimize command
var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "가격 테이블로 hill-climb 가중치 탐색",
	Long: `가격 테이블(JSON)을 읽어 hill-climb 가중치 탐색과 위험/수익 통계를 출력합니다.
외부 데이터 소스나 DB는 사용하지 않습니다.

가격 파일 형식 (POST /api/optimize 의 prices 와 동일, null = 결측):
  {"dates": ["2024-01-02", ...], "tickers": ["WEGE3", ...], "prices": [[35.1, null], ...]}

Example:
  go run ./cmd/carteira optimize --prices prices.json --seed 42
  cat prices.json | go run ./cmd/carteira optimize --prices - --iterations 5000`,
	RunE: runOptimize,
}

var (
	optimizePrices     string
	optimizeIterations int
	optimizeStep       float64
	optimizeSeed       uint64
	optimizeJSON       bool
)

func init() {
	rootCmd.AddCommand(optimizeCmd)

	defaults := portfolio.DefaultConfig()
	optimizeCmd.Flags().StringVar(&optimizePrices, "prices", "", "price table JSON file ('-' = stdin)")
	optimizeCmd.Flags().IntVar(&optimizeIterations, "iterations", defaults.Iterations, "hill-climb iterations")
	optimizeCmd.Flags().Float64Var(&optimizeStep, "step", defaults.StepSize, "perturbation step size")
	optimizeCmd.Flags().Uint64Var(&optimizeSeed, "seed", 0, "random seed (기본: 시각 기반)")
	optimizeCmd.Flags().BoolVar(&optimizeJSON, "json", false, "print JSON")
	_ = optimizeCmd.MarkFlagRequired("prices")
}

// optimizeOutput is the JSON form of the optimize command
type optimizeOutput struct {
	Seed        uint64                 `json:"seed"`
	Result      *portfolio.Result      `json:"result"`
	Allocation  *portfolio.Allocation  `json:"allocation"`
	Instruments []risk.InstrumentStats `json:"instruments"`
	Portfolio   *risk.PortfolioProfile `json:"portfolio"`
	EqualWeight *risk.PortfolioProfile `json:"equal_weight"`
	Correlation risk.CorrelationMatrix `json:"correlation"`
}

func runOptimize(cmd *cobra.Command, args []string) error {
	config := portfolio.Config{Iterations: optimizeIterations, StepSize: optimizeStep}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	prices, err := readPriceTable(optimizePrices, cmd.InOrStdin())
	if err != nil {
		return err
	}

	seed := uint64(time.Now().UnixNano())
	if cmd.Flags().Changed("seed") {
		seed = optimizeSeed
	}
	log := logger.Nop()
	if verbose {
		log = logger.NewWithWriter(&config.Config{Env: "development", LogLevel: "debug", LogFormat: "console"}, cmd.ErrOrStderr())
	}

	out, err := optimizePriceTable(prices, config, seed, log)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if optimizeJSON {
		return printJSON(w, out)
	}
	printOptimization(w, out)
	return nil
}

// optimizePriceTable runs the weight search and risk statistics on one table
func optimizePriceTable(prices contracts.PriceTable, config portfolio.Config, seed uint64, log *logger.Logger) (*optimizeOutput, error) {
	result, err := portfolio.NewSeeded(config, seed, log).Optimize(prices)
	if err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}

	out := &optimizeOutput{
		Seed:       seed,
		Result:     result,
		Allocation: portfolio.NewAllocation(prices.Dates[len(prices.Dates)-1], result, contracts.RankedTable{}),
	}
	if out.Instruments, err = risk.RiskReturn(prices); err != nil {
		return nil, fmt.Errorf("risk/return: %w", err)
	}
	if out.Portfolio, err = risk.PortfolioStats(prices, result.Weights); err != nil {
		return nil, fmt.Errorf("portfolio stats: %w", err)
	}
	if out.EqualWeight, err = risk.PortfolioStats(prices, portfolio.EqualWeights(prices.NumCols())); err != nil {
		return nil, fmt.Errorf("equal-weight stats: %w", err)
	}
	if out.Correlation, err = risk.Correlation(prices); err != nil {
		return nil, fmt.Errorf("correlation: %w", err)
	}
	return out, nil
}

// readPriceTable reads a price table JSON file, or stdin for "-"
func readPriceTable(path string, stdin io.Reader) (contracts.PriceTable, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return contracts.PriceTable{}, fmt.Errorf("open prices: %w", err)
		}
		defer f.Close()
		r = f
	}

	var req handlers.PriceTableRequest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return contracts.PriceTable{}, fmt.Errorf("%w: decode prices: %v", contracts.ErrInvalidInput, err)
	}
	return req.ToPriceTable()
}

func printOptimization(w io.Writer, out *optimizeOutput) {
	printHeader(w, "Hill-Climb Weight Search")
	printKeyValue(w, "Seed", strconv.FormatUint(out.Seed, 10), 12)
	printKeyValue(w, "Iterations", strconv.Itoa(out.Result.Iterations), 12)
	printKeyValue(w, "Accepted", strconv.Itoa(out.Result.Accepted), 12)
	printKeyValue(w, "Return rows", strconv.Itoa(out.Result.ReturnRows), 12)
	if out.Result.Dropped > 0 {
		printWarning(w, fmt.Sprintf("%d return rows dropped for missing prices", out.Result.Dropped))
	}
	fmt.Fprintln(w)

	stats := make(map[string]risk.InstrumentStats, len(out.Instruments))
	for _, s := range out.Instruments {
		stats[s.Ticker] = s
	}
	rows := make([][]string, len(out.Allocation.Positions))
	for i, p := range out.Allocation.Positions {
		rows[i] = []string{
			p.Ticker,
			fmt.Sprintf("%.4f", p.Weight),
			pct(stats[p.Ticker].AnnualReturn),
			pct(stats[p.Ticker].AnnualRisk),
		}
	}
	printTable(w, []string{"ticker", "weight", "return/yr", "risk/yr"}, []int{8, 8, 10, 10}, rows)
	fmt.Fprintln(w)

	printTable(w, []string{"portfolio", "return/yr", "risk/yr", "VaR 95%"}, []int{12, 10, 10, 10}, [][]string{
		{"optimized", pct(out.Portfolio.AnnualReturn), pct(out.Portfolio.AnnualRisk), fmt.Sprintf("%.4f", out.Portfolio.HistoricalVaR.VaR)},
		{"equal", pct(out.EqualWeight.AnnualReturn), pct(out.EqualWeight.AnnualRisk), fmt.Sprintf("%.4f", out.EqualWeight.HistoricalVaR.VaR)},
	})
}
