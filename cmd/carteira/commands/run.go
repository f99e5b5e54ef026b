package commands

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/carteira/internal/brain"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "전체 파이프라인 실행",
	Long: `지표 수집부터 가중치 탐색까지 전체 파이프라인을 실행합니다.

collect → screen → rank → prices → optimize → risk → persist

Flags:
  --date       실행 날짜 (기본: 오늘, 전략 timezone 기준)
  --dry-run    DB 저장 생략

Example:
  go run ./cmd/carteira run
  go run ./cmd/carteira run --date 2024-03-01 --dry-run`,
	RunE: runPipeline,
}

var (
	runDate   string
	runDryRun bool
	runJSON   bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runDate, "date", "", "run date (YYYY-MM-DD, 기본: 오늘)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "skip persistence")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print JSON")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	date, err := parseDate(runDate, a.location, time.Now())
	if err != nil {
		return err
	}

	result, err := a.orchestrator.Run(ctx, brain.RunConfig{Date: date, DryRun: runDryRun})
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	w := cmd.OutOrStdout()
	if runJSON {
		return printJSON(w, result)
	}
	printRunResult(w, result)
	return nil
}

func printRunResult(w io.Writer, result *brain.RunResult) {
	printHeader(w, "Pipeline Run")
	printKeyValue(w, "Run ID", result.RunID.String(), 10)
	printKeyValue(w, "Date", result.Date.Format("2006-01-02"), 10)
	printKeyValue(w, "Duration", fmt.Sprintf("%.2fs", result.Duration.Seconds()), 10)
	printKeyValue(w, "Stages", strings.Join(result.CompletedStages, " → "), 10)
	printKeyValue(w, "Selected", strconv.Itoa(len(result.Ranking.Rows)), 10)
	printKeyValue(w, "Seed", strconv.FormatUint(result.Seed, 10), 10)
	if len(result.FailedTickers) > 0 {
		printWarning(w, "price fetch failed: "+strings.Join(result.FailedTickers, ", "))
	}
	if len(result.Quality.LowCoverage) > 0 {
		printWarning(w, "low price coverage: "+strings.Join(result.Quality.LowCoverage, ", "))
	}
	fmt.Fprintln(w)

	if result.Allocation != nil {
		rows := make([][]string, len(result.Allocation.Positions))
		for i, p := range result.Allocation.Positions {
			rows[i] = []string{p.Sector, p.Ticker, fmt.Sprintf("%.4f", p.Weight), fmt.Sprintf("%.2f", p.Score)}
		}
		printTable(w, []string{"sector", "ticker", "weight", "ranking_(%)"}, []int{18, 8, 8, 11}, rows)
		fmt.Fprintln(w)
	}

	if result.Portfolio != nil && result.EqualWeight != nil {
		printTable(w, []string{"portfolio", "return/yr", "risk/yr"}, []int{12, 10, 10}, [][]string{
			{"optimized", pct(result.Portfolio.AnnualReturn), pct(result.Portfolio.AnnualRisk)},
			{"equal", pct(result.EqualWeight.AnnualReturn), pct(result.EqualWeight.AnnualRisk)},
		})
		fmt.Fprintln(w)
	}

	windows := make([]int, 0, len(result.Correlations))
	for n := range result.Correlations {
		windows = append(windows, n)
	}
	sort.Ints(windows)
	for _, n := range windows {
		m := result.Correlations[n]
		fmt.Fprintf(w, "Correlation (%d rows)\n", m.Samples)
		rows := make([][]string, len(m.Tickers))
		widths := []int{8}
		for i, t := range m.Tickers {
			rows[i] = []string{t}
			for _, v := range m.Values[i] {
				rows[i] = append(rows[i], fmt.Sprintf("%.2f", v))
			}
			widths = append(widths, 8)
		}
		printTable(w, append([]string{""}, m.Tickers...), widths, rows)
		fmt.Fprintln(w)
	}

	printSuccess(w, "Pipeline run completed")
}
