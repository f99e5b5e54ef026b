package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/carteira/internal/brain"
	"github.com/wonny/carteira/internal/contracts"
	"github.com/wonny/carteira/internal/selection"
)

// rankCmd represents the rank command
var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "섹터별 AHP-Gaussiano 랭킹",
	Long: `Fundamentus 지표를 수집해 스크리닝 후 섹터별 top-K 랭킹을 출력합니다.
결과는 저장하지 않습니다.

Example:
  go run ./cmd/carteira rank
  go run ./cmd/carteira rank --sector bancos --sector energia
  go run ./cmd/carteira rank --view original --json`,
	RunE: runRank,
}

var (
	rankDate    string
	rankSectors []string
	rankView    string
	rankJSON    bool
)

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringVar(&rankDate, "date", "", "snapshot date (YYYY-MM-DD, 기본: 오늘)")
	rankCmd.Flags().StringSliceVar(&rankSectors, "sector", nil, "show only these sectors")
	rankCmd.Flags().StringVar(&rankView, "view", "normalized", "table view (normalized|original)")
	rankCmd.Flags().BoolVar(&rankJSON, "json", false, "print JSON")
}

func runRank(cmd *cobra.Command, args []string) error {
	if rankView != "normalized" && rankView != "original" {
		return fmt.Errorf("invalid --view %q (normalized|original)", rankView)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	date, err := parseDate(rankDate, a.location, time.Now())
	if err != nil {
		return err
	}

	result, err := a.orchestrator.Rank(ctx, date)
	if err != nil {
		return fmt.Errorf("rank: %w", err)
	}
	ranked := selection.FilterSectors(result.Ranking, rankSectors)

	out := cmd.OutOrStdout()
	if rankJSON {
		return printJSON(out, ranked)
	}
	printRanking(out, result, ranked, rankView)
	return nil
}

func printRanking(w io.Writer, result *brain.RunResult, ranked contracts.RankedTable, view string) {
	printHeader(w, "AHP-Gaussiano Ranking")
	printKeyValue(w, "Date", result.Date.Format("2006-01-02"), 10)
	printKeyValue(w, "Config", result.ConfigHash[:12], 10)
	printKeyValue(w, "Input", strconv.Itoa(result.Screening.TotalInput), 10)
	printKeyValue(w, "Top-K", strconv.Itoa(ranked.TopK), 10)
	for reason, n := range result.Screening.Filtered {
		printKeyValue(w, "Filtered", fmt.Sprintf("%s: %d", reason, n), 10)
	}
	if len(result.UnknownTickers) > 0 {
		printWarning(w, fmt.Sprintf("%d tickers without sector: %s", len(result.UnknownTickers), strings.Join(result.UnknownTickers, ", ")))
	}
	fmt.Fprintln(w)
	printRankedRows(w, ranked, view)
}

// printRankedRows prints one line per ranked instrument in the requested view
func printRankedRows(w io.Writer, ranked contracts.RankedTable, view string) {
	rows := selection.NormalizedView(ranked)
	format := "%.4f"
	if view == "original" {
		rows = selection.OriginalView(ranked)
		format = "%.2f"
	}

	columns := []string{"sector", "ticker"}
	widths := []int{18, 8}
	for _, ind := range contracts.Indicators {
		columns = append(columns, ind.String())
		widths = append(widths, 13)
	}
	columns = append(columns, "ranking_(%)")
	widths = append(widths, 11)

	table := make([][]string, len(rows))
	for i, r := range rows {
		line := []string{r.Sector, r.Ticker}
		for _, v := range r.Values {
			line = append(line, fmt.Sprintf(format, v))
		}
		table[i] = append(line, fmt.Sprintf("%.2f", r.Score))
	}
	printTable(w, columns, widths, table)
}
