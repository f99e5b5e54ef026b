package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/carteira/internal/portfolio"
	"github.com/wonny/carteira/internal/selection"
)

// latestCmd shows the most recent persisted pipeline outputs
var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "마지막으로 저장된 랭킹/최적화 결과 조회",
	Long: `DB에 저장된 가장 최근 랭킹 실행과 가중치 탐색 결과를 출력합니다.
DB_ENABLED=true 필요.

Example:
  go run ./cmd/carteira latest
  go run ./cmd/carteira latest --json`,
	RunE: runLatest,
}

var latestJSON bool

func init() {
	rootCmd.AddCommand(latestCmd)

	latestCmd.Flags().BoolVar(&latestJSON, "json", false, "print JSON")
}

type latestOutput struct {
	Ranking      *selection.RankingRun      `json:"ranking,omitempty"`
	Optimization *portfolio.OptimizationRun `json:"optimization,omitempty"`
}

func runLatest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if a.db == nil {
		return errors.New("latest requires a database (set DB_ENABLED=true)")
	}

	var out latestOutput
	out.Ranking, err = selection.NewRepository(a.db.Pool).LatestRankingRun(ctx)
	if err != nil && !errors.Is(err, selection.ErrNoRankingRun) {
		return err
	}
	out.Optimization, err = portfolio.NewRepository(a.db.Pool).LatestOptimization(ctx)
	if err != nil && !errors.Is(err, portfolio.ErrNoOptimizationRun) {
		return err
	}

	w := cmd.OutOrStdout()
	if latestJSON {
		return printJSON(w, out)
	}
	printLatest(w, out)
	return nil
}

func printLatest(w io.Writer, out latestOutput) {
	printHeader(w, "Latest Ranking")
	if out.Ranking == nil {
		printWarning(w, "no ranking run stored")
	} else {
		run := out.Ranking
		printKeyValue(w, "Run ID", run.ID.String(), 10)
		printKeyValue(w, "Date", run.RunDate.Format("2006-01-02"), 10)
		printKeyValue(w, "Config", run.ConfigHash, 10)
		printKeyValue(w, "Input", strconv.Itoa(run.TotalInput), 10)
		printKeyValue(w, "Selected", strconv.Itoa(len(run.Ranking.Rows)), 10)
		fmt.Fprintln(w)
		printRankedRows(w, run.Ranking, "original")
	}

	printHeader(w, "Latest Optimization")
	if out.Optimization == nil {
		printWarning(w, "no optimization run stored")
		return
	}
	opt := out.Optimization
	printKeyValue(w, "ID", opt.ID.String(), 10)
	printKeyValue(w, "Seed", strconv.FormatUint(opt.Seed, 10), 10)
	printKeyValue(w, "Iterations", strconv.Itoa(opt.Iterations), 10)
	printKeyValue(w, "Accepted", strconv.Itoa(opt.Accepted), 10)
	printKeyValue(w, "Score", fmt.Sprintf("%.6f", opt.Allocation.Score), 10)
	fmt.Fprintln(w)

	rows := make([][]string, len(opt.Allocation.Positions))
	for i, p := range opt.Allocation.Positions {
		rows[i] = []string{p.Sector, p.Ticker, fmt.Sprintf("%.4f", p.Weight)}
	}
	printTable(w, []string{"sector", "ticker", "weight"}, []int{18, 8, 8}, rows)
}
