package brain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/carteira/internal/contracts"
	"github.com/wonny/carteira/internal/marketdata"
	"github.com/wonny/carteira/internal/metrics"
	"github.com/wonny/carteira/internal/portfolio"
	"github.com/wonny/carteira/internal/risk"
	"github.com/wonny/carteira/internal/sectors"
	"github.com/wonny/carteira/internal/selection"
	"github.com/wonny/carteira/internal/strategyconfig"
	"github.com/wonny/carteira/pkg/logger"
)

// Pipeline stage names (logs, metrics, CompletedStages)
const (
	StageCollect  = "collect"
	StageScreen   = "screen"
	StageRank     = "rank"
	StagePrices   = "prices"
	StageOptimize = "optimize"
	StageRisk     = "risk"
	StagePersist  = "persist"
)

// RankingStore persists ranking runs (selection.Repository)
type RankingStore interface {
	SaveRankingRun(ctx context.Context, run *selection.RankingRun) error
}

// OptimizationStore persists optimizer runs (portfolio.Repository)
type OptimizationStore interface {
	SaveOptimization(ctx context.Context, run *portfolio.OptimizationRun) error
}

// Dependencies groups the collaborators of the orchestrator.
// Stores and Metrics are optional.
type Dependencies struct {
	Collector    *marketdata.Collector
	Sectors      *sectors.Mapping
	Rankings     RankingStore
	Optimization OptimizationStore
	Metrics      *metrics.Registry
}

// Orchestrator coordinates the ranking and weight-search pipeline
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	deps       Dependencies
	strategy   *strategyconfig.Config
	configHash string
	screener   *selection.Screener
	ranker     *selection.Ranker
	quality    marketdata.QualityConfig
	now        func() time.Time
	logger     *logger.Logger
}

// RunConfig holds configuration for a pipeline run
type RunConfig struct {
	Date     time.Time
	RunID    uuid.UUID // uuid.Nil → 새로 생성
	RankOnly bool      // stop after ranking
	DryRun   bool      // skip persistence
}

// RunResult holds the results of a pipeline run
type RunResult struct {
	RunID           uuid.UUID
	Date            time.Time
	ConfigHash      string
	Success         bool
	CompletedStages []string

	Screening      *selection.ScreeningResult
	UnknownTickers []string // passed screening but not in any sector
	Ranking        contracts.RankedTable

	FailedTickers []string // price fetch failed, excluded from the search
	Prices        contracts.PriceTable
	Quality       marketdata.QualityReport

	Seed         uint64
	Optimization *portfolio.Result
	Allocation   *portfolio.Allocation

	Instruments  []risk.InstrumentStats
	Correlations map[int]risk.CorrelationMatrix // window (rows) → matrix
	Portfolio    *risk.PortfolioProfile
	EqualWeight  *risk.PortfolioProfile

	Duration time.Duration
}

// NewOrchestrator creates a new orchestrator for one validated strategy config
func NewOrchestrator(deps Dependencies, strategy *strategyconfig.Config, log *logger.Logger) (*Orchestrator, error) {
	if deps.Collector == nil || deps.Sectors == nil {
		return nil, contracts.ConfigurationError("dependencies", "collector and sector mapping are required")
	}
	if err := strategyconfig.Validate(strategy); err != nil {
		return nil, err
	}
	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return nil, fmt.Errorf("hash strategy config: %w", err)
	}

	for _, name := range strategy.Ranking.Sectors {
		if !deps.Sectors.Has(name) {
			return nil, contracts.ConfigurationError("ranking.sectors", "unknown sector %q", name)
		}
	}

	return &Orchestrator{
		deps:       deps,
		strategy:   strategy,
		configHash: hash,
		screener: selection.NewScreener(selection.ScreenerConfig{
			MaxDividendYield:  strategy.Screening.DivYieldMaxPct,
			MaxPriceEarnings:  strategy.Screening.PLMax,
			MinReturnOnEquity: strategy.Screening.ROEMin,
		}, log),
		ranker: selection.NewRanker(selection.RankerConfig{
			MaxConcurrency: strategy.Ranking.MaxConcurrency,
		}, log),
		quality: marketdata.DefaultQualityConfig(),
		now:     time.Now,
		logger:  log.Component("orchestrator"),
	}, nil
}

// ConfigHash returns the hash of the strategy config this orchestrator runs
func (o *Orchestrator) ConfigHash() string {
	return o.configHash
}

// Run executes the pipeline.
// collect → screen → rank → prices → optimize → risk → persist
func (o *Orchestrator) Run(ctx context.Context, config RunConfig) (*RunResult, error) {
	startTime := o.now()

	if config.Date.IsZero() {
		config.Date = startTime
	}
	if config.RunID == uuid.Nil {
		config.RunID = uuid.New()
	}

	result := &RunResult{
		RunID:           config.RunID,
		Date:            config.Date,
		ConfigHash:      o.configHash,
		CompletedStages: make([]string, 0, 7),
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":      config.RunID.String(),
		"date":        config.Date.Format("2006-01-02"),
		"strategy_id": o.strategy.Meta.StrategyID,
		"config_hash": o.configHash,
		"rank_only":   config.RankOnly,
		"dry_run":     config.DryRun,
	}).Info("Starting pipeline run")

	stages := []struct {
		name string
		skip bool
		fn   func(context.Context, RunConfig, *RunResult) error
	}{
		{StageCollect, false, o.runCollectAndScreen},
		{StageRank, false, o.runRank},
		{StagePrices, config.RankOnly, o.runPrices},
		{StageOptimize, config.RankOnly, o.runOptimize},
		{StageRisk, config.RankOnly, o.runRisk},
		{StagePersist, config.DryRun, o.runPersist},
	}

	for _, stage := range stages {
		if stage.skip {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		start := time.Now()
		err := stage.fn(ctx, config, result)
		o.deps.Metrics.ObserveStep(stage.name, start, contracts.KindOf(err))
		if err != nil {
			o.logger.WithError(err).WithFields(map[string]interface{}{
				"run_id": config.RunID.String(),
				"stage":  stage.name,
				"kind":   contracts.KindOf(err),
			}).Error("Pipeline stage failed")
			return result, fmt.Errorf("%s failed: %w", stage.name, err)
		}
		result.CompletedStages = append(result.CompletedStages, stage.name)
	}

	result.Success = true
	result.Duration = o.now().Sub(startTime)

	o.logger.WithFields(map[string]interface{}{
		"run_id":   config.RunID.String(),
		"duration": result.Duration.Seconds(),
		"stages":   len(result.CompletedStages),
		"selected": result.Ranking.Len(),
	}).Info("Pipeline run completed successfully")

	return result, nil
}

// Rank runs the pipeline up to the ranking, without persistence
func (o *Orchestrator) Rank(ctx context.Context, date time.Time) (*RunResult, error) {
	return o.Run(ctx, RunConfig{Date: date, RankOnly: true, DryRun: true})
}

// runCollectAndScreen fetches fundamentals and drops rows outside the scoring domain
func (o *Orchestrator) runCollectAndScreen(ctx context.Context, config RunConfig, result *RunResult) error {
	table, err := o.deps.Collector.CollectIndicators(ctx, config.Date)
	if err != nil {
		return err
	}

	start := time.Now()
	screening, err := o.screener.Screen(ctx, table)
	o.deps.Metrics.ObserveStep(StageScreen, start, contracts.KindOf(err))
	if err != nil {
		return err
	}
	o.deps.Metrics.RecordScreening(screening.Filtered)
	result.Screening = screening
	return nil
}

// runRank partitions by sector, scores every sector and keeps the configured sectors
func (o *Orchestrator) runRank(ctx context.Context, config RunConfig, result *RunResult) error {
	partition, unknown := o.deps.Sectors.Partition(result.Screening.Passed)
	result.UnknownTickers = unknown
	if len(unknown) > 0 {
		o.logger.WithFields(map[string]interface{}{
			"count":   len(unknown),
			"sector":  sectors.Unknown,
			"example": unknown[0],
		}).Warn("Tickers without sector excluded from ranking")
	}

	ranked, err := o.ranker.RankAllSectors(ctx, partition, o.strategy.Ranking.TopK)
	if err != nil {
		return err
	}
	ranked = selection.FilterSectors(ranked, o.strategy.Ranking.Sectors)
	if ranked.Len() == 0 {
		return contracts.InvalidInputError("ranking", "no instrument selected")
	}

	o.deps.Metrics.RecordRanking(ranked.Len())
	result.Ranking = ranked
	return nil
}

// runPrices fetches history for the selection and aligns it into a price table
func (o *Orchestrator) runPrices(ctx context.Context, config RunConfig, result *RunResult) error {
	policy, err := marketdata.ParseFillPolicy(o.strategy.History.FillPolicy)
	if err != nil {
		return err
	}

	to := config.Date
	from := to.Add(-o.strategy.History.Lookback())
	collection, err := o.deps.Collector.CollectPrices(ctx, result.Ranking.Tickers(), from, to)
	if err != nil {
		return err
	}
	result.FailedTickers = collection.Failed()
	if len(result.FailedTickers) > 0 {
		o.logger.WithField("tickers", result.FailedTickers).Warn("Tickers without price history excluded from optimization")
	}
	if len(collection.Series) == 0 {
		return contracts.InvalidInputError("prices", "no price history for any selected instrument")
	}

	prices, err := marketdata.BuildPriceTable(collection.Series, policy)
	if err != nil {
		return err
	}
	result.Prices = prices
	result.Quality = marketdata.CheckQuality(prices, o.quality)

	if !result.Quality.Passed {
		o.logger.WithFields(map[string]interface{}{
			"rows":          result.Quality.Rows,
			"complete_rows": result.Quality.CompleteRows,
			"low_coverage":  result.Quality.LowCoverage,
		}).Warn("Price quality below threshold")
	}
	return nil
}

// runOptimize searches weights with an explicitly seeded random source
func (o *Orchestrator) runOptimize(ctx context.Context, config RunConfig, result *RunResult) error {
	seed := uint64(o.now().UnixNano())
	if o.strategy.Optimizer.Seed != nil {
		seed = *o.strategy.Optimizer.Seed
	}
	result.Seed = seed

	climber := portfolio.NewSeeded(portfolio.Config{
		Iterations: o.strategy.Optimizer.Iterations,
		StepSize:   o.strategy.Optimizer.StepSize,
	}, seed, o.logger)

	opt, err := climber.Optimize(result.Prices)
	if err != nil {
		return err
	}

	result.Optimization = opt
	result.Allocation = portfolio.NewAllocation(config.Date, opt, result.Ranking)
	o.deps.Metrics.RecordOptimization(opt.Accepted, opt.Score)

	o.logger.WithFields(map[string]interface{}{
		"seed":     seed,
		"score":    opt.Score,
		"accepted": opt.Accepted,
	}).Info("Weights optimized")
	return nil
}

// runRisk computes instrument and portfolio risk/return plus windowed correlations
func (o *Orchestrator) runRisk(ctx context.Context, config RunConfig, result *RunResult) error {
	instruments, err := risk.RiskReturn(result.Prices)
	if err != nil {
		return err
	}
	result.Instruments = instruments

	profile, err := risk.PortfolioStats(result.Prices, result.Optimization.Weights)
	if err != nil {
		return err
	}
	result.Portfolio = profile

	benchmark, err := risk.PortfolioStats(result.Prices, portfolio.EqualWeights(result.Prices.NumCols()))
	if err != nil {
		return err
	}
	result.EqualWeight = benchmark

	result.Correlations = make(map[int]risk.CorrelationMatrix, len(o.strategy.History.CorrelationWindows))
	for _, window := range o.strategy.History.CorrelationWindows {
		m, err := risk.Correlation(result.Prices.Tail(window))
		if err != nil {
			// 짧은 이력: 해당 구간만 생략
			o.logger.WithError(err).WithField("window", window).Warn("Correlation window skipped")
			continue
		}
		result.Correlations[window] = m
	}
	return nil
}

// runPersist stores the ranking and, when present, the optimization
func (o *Orchestrator) runPersist(ctx context.Context, config RunConfig, result *RunResult) error {
	if o.deps.Rankings != nil {
		run := &selection.RankingRun{
			ID:         result.RunID,
			RunDate:    config.Date,
			ConfigHash: o.configHash,
			TopK:       result.Ranking.TopK,
			Filtered:   result.Screening.Filtered,
			TotalInput: result.Screening.TotalInput,
			Ranking:    result.Ranking,
		}
		if err := o.deps.Rankings.SaveRankingRun(ctx, run); err != nil {
			return fmt.Errorf("save ranking: %w", err)
		}
	}

	if o.deps.Optimization != nil && result.Allocation != nil {
		run := &portfolio.OptimizationRun{
			ID:         uuid.New(),
			RunID:      result.RunID,
			Seed:       result.Seed,
			Iterations: result.Optimization.Iterations,
			StepSize:   o.strategy.Optimizer.StepSize,
			Accepted:   result.Optimization.Accepted,
			Allocation: result.Allocation,
		}
		if err := o.deps.Optimization.SaveOptimization(ctx, run); err != nil {
			return fmt.Errorf("save optimization: %w", err)
		}
	}
	return nil
}
