package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/carteira/internal/contracts"
	"github.com/wonny/carteira/pkg/logger"
)

// IndicatorSource provides the fundamentals table (fundamentus.Client)
type IndicatorSource interface {
	FetchIndicators(ctx context.Context) (contracts.IndicatorTable, error)
}

// PriceSource provides one instrument's price history (yahoo.Client)
type PriceSource interface {
	FetchPrices(ctx context.Context, ticker string, from, to time.Time) (contracts.PriceSeries, error)
}

// Store persists collected data (Repository); optional
type Store interface {
	SaveIndicators(ctx context.Context, date time.Time, table contracts.IndicatorTable) error
	SavePrices(ctx context.Context, series []contracts.PriceSeries) error
	LoadIndicators(ctx context.Context, date time.Time) (contracts.IndicatorTable, time.Time, error)
}

// CollectorConfig holds collector configuration
type CollectorConfig struct {
	Workers  int            // Number of concurrent price fetchers
	Location *time.Location // 스냅샷 날짜 경계 (nil = UTC)
}

// DefaultCollectorConfig returns the default worker count
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{Workers: 4}
}

// FetchResult represents the result of one price fetch
type FetchResult struct {
	Ticker     string
	PriceCount int
	Error      error
}

// PriceCollection is the outcome of CollectPrices.
// Series holds the successful fetches in request order.
type PriceCollection struct {
	Series  []contracts.PriceSeries
	Results []FetchResult
}

// Failed returns the tickers whose fetch failed
func (c PriceCollection) Failed() []string {
	var failed []string
	for _, r := range c.Results {
		if r.Error != nil {
			failed = append(failed, r.Ticker)
		}
	}
	return failed
}

// Collector orchestrates data collection from external sources
// ⭐ SSOT: 데이터 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	indicators IndicatorSource
	prices     PriceSource
	store      Store
	config     CollectorConfig
	now        func() time.Time
	logger     *logger.Logger
}

// NewCollector creates a new Collector; store may be nil
func NewCollector(indicators IndicatorSource, prices PriceSource, store Store, config CollectorConfig, log *logger.Logger) *Collector {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &Collector{
		indicators: indicators,
		prices:     prices,
		store:      store,
		config:     config,
		now:        time.Now,
		logger:     log.Component("collector"),
	}
}

// WithClock replaces the wall clock that separates live from historical dates
func (c *Collector) WithClock(now func() time.Time) *Collector {
	c.now = now
	return c
}

// calendarDay returns midnight of t's calendar day in the collector's location
func (c *Collector) calendarDay(t time.Time) time.Time {
	t = t.In(c.config.Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.config.Location)
}

// CollectIndicators returns the fundamentals table as of date.
// The live source only publishes the current table: dates before today are
// served from the store and never trigger a fetch or a write. A live fetch is
// stored under the day it was taken. When the source fails and a store is
// configured, the latest snapshot on or before today is served instead.
func (c *Collector) CollectIndicators(ctx context.Context, date time.Time) (contracts.IndicatorTable, error) {
	today := c.calendarDay(c.now())
	if c.calendarDay(date).Before(today) {
		return c.storedIndicators(ctx, c.calendarDay(date))
	}

	table, err := c.indicators.FetchIndicators(ctx)
	if err != nil {
		return c.fallbackIndicators(ctx, today, fmt.Errorf("fetch indicators: %w", err))
	}

	if c.store != nil {
		if err := c.store.SaveIndicators(ctx, today, table); err != nil {
			return contracts.IndicatorTable{}, fmt.Errorf("save indicators: %w", err)
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"date": today.Format("2006-01-02"),
		"rows": table.Len(),
	}).Info("Indicators collected")

	return table, nil
}

// storedIndicators serves a historical date from the latest snapshot on or before it
func (c *Collector) storedIndicators(ctx context.Context, date time.Time) (contracts.IndicatorTable, error) {
	day := date.Format("2006-01-02")
	if c.store == nil {
		return contracts.IndicatorTable{}, contracts.InvalidInputError("date", "%s is in the past and no snapshot store is configured", day)
	}

	table, snapshotDate, err := c.store.LoadIndicators(ctx, date)
	if errors.Is(err, ErrNoSnapshot) {
		return contracts.IndicatorTable{}, fmt.Errorf("date %s: %w: %w", day, contracts.ErrInvalidInput, err)
	}
	if err != nil {
		return contracts.IndicatorTable{}, fmt.Errorf("load indicators: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"date":          day,
		"snapshot_date": snapshotDate.Format("2006-01-02"),
		"rows":          table.Len(),
	}).Info("Indicators loaded from snapshot")
	return table, nil
}

func (c *Collector) fallbackIndicators(ctx context.Context, date time.Time, cause error) (contracts.IndicatorTable, error) {
	if c.store == nil || ctx.Err() != nil {
		return contracts.IndicatorTable{}, cause
	}
	table, snapshotDate, err := c.store.LoadIndicators(ctx, date)
	if err != nil {
		return contracts.IndicatorTable{}, errors.Join(cause, err)
	}

	c.logger.WithError(cause).WithFields(map[string]interface{}{
		"date":          date.Format("2006-01-02"),
		"snapshot_date": snapshotDate.Format("2006-01-02"),
		"rows":          table.Len(),
	}).Warn("Indicator source failed, using stored snapshot")
	return table, nil
}

// CollectPrices fetches price history for every ticker with a worker pool.
// Individual failures are reported in Results; a cancelled context aborts the collection.
func (c *Collector) CollectPrices(ctx context.Context, tickers []string, from, to time.Time) (*PriceCollection, error) {
	c.logger.WithFields(map[string]interface{}{
		"ticker_count": len(tickers),
		"from":         from.Format("2006-01-02"),
		"to":           to.Format("2006-01-02"),
		"workers":      c.config.Workers,
	}).Info("Starting price collection")

	type job struct {
		index  int
		ticker string
	}

	series := make([]contracts.PriceSeries, len(tickers))
	results := make([]FetchResult, len(tickers))

	jobCh := make(chan job, len(tickers))
	for i, t := range tickers {
		jobCh <- job{index: i, ticker: t}
	}
	close(jobCh)

	var wg sync.WaitGroup
	for w := 0; w < c.config.Workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range jobCh {
				// 각 worker는 자기 index 슬롯에만 기록
				results[j.index] = FetchResult{Ticker: j.ticker}
				if err := ctx.Err(); err != nil {
					results[j.index].Error = err
					continue
				}

				s, err := c.prices.FetchPrices(ctx, j.ticker, from, to)
				if err != nil {
					c.logger.WithError(err).WithFields(map[string]interface{}{
						"worker": workerID,
						"ticker": j.ticker,
					}).Error("Failed to fetch prices")
					results[j.index].Error = err
					continue
				}
				s.Ticker = j.ticker
				series[j.index] = s
				results[j.index].PriceCount = s.Len()
			}
		}(w)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &PriceCollection{Results: results}
	for i, r := range results {
		if r.Error == nil {
			out.Series = append(out.Series, series[i])
		}
	}

	if c.store != nil && len(out.Series) > 0 {
		if err := c.store.SavePrices(ctx, out.Series); err != nil {
			return nil, fmt.Errorf("save prices: %w", err)
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"success": len(out.Series),
		"failed":  len(tickers) - len(out.Series),
		"total":   len(tickers),
	}).Info("Price collection completed")

	return out, nil
}
