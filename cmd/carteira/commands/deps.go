package commands

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/wonny/carteira/internal/api/handlers"
	"github.com/wonny/carteira/internal/brain"
	"github.com/wonny/carteira/internal/external/fundamentus"
	"github.com/wonny/carteira/internal/external/yahoo"
	"github.com/wonny/carteira/internal/marketdata"
	"github.com/wonny/carteira/internal/metrics"
	"github.com/wonny/carteira/internal/portfolio"
	"github.com/wonny/carteira/internal/sectors"
	"github.com/wonny/carteira/internal/selection"
	"github.com/wonny/carteira/internal/strategyconfig"
	"github.com/wonny/carteira/pkg/config"
	"github.com/wonny/carteira/pkg/database"
	"github.com/wonny/carteira/pkg/httputil"
	"github.com/wonny/carteira/pkg/logger"
	"github.com/wonny/carteira/pkg/redis"
)

// app holds the wired dependencies shared by every command
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	strategy *strategyconfig.Config
	location *time.Location
	metrics  *metrics.Registry

	db    *database.DB  // nil when DB_ENABLED=false
	redis *redis.Client // disabled client when REDIS_ENABLED=false

	collector    *marketdata.Collector
	orchestrator *brain.Orchestrator
}

// newApp loads configuration and wires storage, providers and the orchestrator
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if strategyFile != "" {
		cfg.StrategyFile = strategyFile
	}
	if sectorsFile != "" {
		cfg.SectorsFile = sectorsFile
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Strategy + sector mapping
	strategy, raw, err := strategyconfig.Load(cfg.StrategyFile)
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}
	snapshot, err := strategyconfig.NewDecisionSnapshot(strategy, raw)
	if err != nil {
		return nil, fmt.Errorf("snapshot strategy: %w", err)
	}
	log.WithFields(map[string]interface{}{
		"strategy_id": snapshot.StrategyID,
		"config_hash": snapshot.ConfigHash,
		"file":        cfg.StrategyFile,
	}).Debug("Strategy loaded")
	for _, w := range strategyconfig.Warn(strategy) {
		log.WithFields(map[string]interface{}{
			"code":    w.Code,
			"message": w.Message,
		}).Warn("Strategy config warning")
	}
	mapping, err := sectors.Load(cfg.SectorsFile)
	if err != nil {
		return nil, fmt.Errorf("load sectors: %w", err)
	}
	location := time.UTC
	if strategy.Meta.Timezone != "" {
		if location, err = time.LoadLocation(strategy.Meta.Timezone); err != nil {
			return nil, fmt.Errorf("load timezone: %w", err)
		}
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		strategy: strategy,
		location: location,
	}
	if cfg.MetricsEnabled {
		a.metrics = metrics.NewRegistry()
	}

	// 4. Storage (optional)
	if cfg.Database.Enabled {
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		applied, err := db.Migrate(ctx)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		a.db = db
		log.WithField("migrations_applied", applied).Info("Connected to database")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rc

	// 5. External providers
	fundamentusHTTP := httputil.New(log).
		WithRateLimit(cfg.Fundamentus.RequestsPerSec, 1).
		WithCircuitBreaker("fundamentus", 5, time.Minute)
	yahooHTTP := httputil.New(log).
		WithRateLimit(cfg.Yahoo.RequestsPerSec, 2).
		WithCircuitBreaker("yahoo", 10, time.Minute)

	indicators := fundamentus.NewClient(fundamentusHTTP, cfg.Fundamentus.BaseURL, log)
	var prices marketdata.PriceSource = yahoo.NewClient(yahooHTTP, cfg.Yahoo.BaseURL, log)
	if rc.Enabled() {
		prices = marketdata.NewCachedPriceSource(prices, redis.NewCache(rc, "carteira"), redis.TTLDaily, a.metrics, log)
	}

	// 6. Collector + orchestrator
	deps := brain.Dependencies{
		Sectors: mapping,
		Metrics: a.metrics,
	}
	var store marketdata.Store
	if a.db != nil {
		store = marketdata.NewRepository(a.db.Pool)
		deps.Rankings = selection.NewRepository(a.db.Pool)
		deps.Optimization = portfolio.NewRepository(a.db.Pool)
	}
	collectorConfig := marketdata.DefaultCollectorConfig()
	collectorConfig.Location = location
	a.collector = marketdata.NewCollector(indicators, prices, store, collectorConfig, log)
	deps.Collector = a.collector

	a.orchestrator, err = brain.NewOrchestrator(deps, strategy, log)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init orchestrator: %w", err)
	}

	return a, nil
}

// pingers returns the dependencies reported by /health
func (a *app) pingers() map[string]handlers.Pinger {
	deps := make(map[string]handlers.Pinger)
	if a.db != nil {
		deps["postgres"] = a.db
	}
	if a.redis != nil && a.redis.Enabled() {
		deps["redis"] = a.redis
	}
	return deps
}

// optimizerConfig returns the strategy's weight-search settings
func (a *app) optimizerConfig() portfolio.Config {
	return portfolio.Config{
		Iterations: a.strategy.Optimizer.Iterations,
		StepSize:   a.strategy.Optimizer.StepSize,
	}
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close redis")
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

// parseDate parses --date in the strategy timezone; empty means today
func parseDate(s string, loc *time.Location, now time.Time) (time.Time, error) {
	if s == "" {
		now = now.In(loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
	}
	d, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return d, nil
}
