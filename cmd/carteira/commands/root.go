package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	sectorsFile  string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "carteira",
	Short: "Carteira - B3 섹터별 종목 선정 + 가중치 탐색",
	Long: `Carteira Unified CLI

Fundamentus 지표로 섹터별 AHP-Gaussiano 랭킹을 만들고,
선정 종목의 가격 이력으로 hill-climb 가중치를 탐색합니다.

Usage:
  go run ./cmd/carteira [command]

Examples:
  go run ./cmd/carteira rank --sector bancos
  go run ./cmd/carteira optimize --prices prices.json --seed 42
  go run ./cmd/carteira run --dry-run
  go run ./cmd/carteira api
  go run ./cmd/carteira scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags (비어 있으면 환경변수 STRATEGY_FILE / SECTORS_FILE)
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML file")
	rootCmd.PersistentFlags().StringVar(&sectorsFile, "sectors", "", "sector mapping YAML file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
