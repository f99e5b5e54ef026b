package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/carteira/internal/api"
	"github.com/wonny/carteira/internal/api/handlers"
	"github.com/wonny/carteira/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health         - Health check (postgres, redis)
  GET  /api/ranking    - 섹터별 랭킹 (?date=YYYY-MM-DD&sector=...)
  POST /api/optimize   - 가격 테이블 → hill-climb 가중치
  POST /api/risk       - 가격 테이블 + 가중치 → 위험/수익, 상관관계
  GET  /metrics        - Prometheus metrics

Example:
  go run ./cmd/carteira api
  go run ./cmd/carteira api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	deps := api.RouterDeps{
		Health:    handlers.NewHealthHandler("carteira", a.pingers()),
		Portfolio: handlers.NewPortfolioHandler(a.optimizerConfig(), a.metrics, a.log),
		Metrics:   a.metrics,
	}
	if a.redis.Enabled() {
		deps.Ranking = handlers.NewRankingHandler(a.orchestrator, redis.NewCache(a.redis, "carteira"), a.location, a.metrics, a.log)
		deps.Limiter = redis.NewRateLimiter(a.redis, "carteira")
	} else {
		deps.Ranking = handlers.NewRankingHandler(a.orchestrator, nil, a.location, a.metrics, a.log)
	}

	router := api.NewRouter(deps, a.log)
	server := api.NewServer(api.DefaultServerConfig(a.cfg.Port), router, a.log)

	// Ctrl+C / SIGTERM → graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ready := make(chan string, 1)
	go func() {
		if addr, ok := <-ready; ok {
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Server running on %s\n", addr)
		}
	}()

	if err := server.Run(ctx, ready); err != nil {
		return fmt.Errorf("api server: %w", err)
	}
	a.log.Info("Server stopped")
	return nil
}
