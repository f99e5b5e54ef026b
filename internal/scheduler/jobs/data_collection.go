package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/carteira/internal/contracts"
	"github.com/wonny/carteira/pkg/logger"
)

// IndicatorCollector fetches and stores one fundamentals snapshot (marketdata.Collector)
type IndicatorCollector interface {
	CollectIndicators(ctx context.Context, date time.Time) (contracts.IndicatorTable, error)
}

// DataCollectionJob stores the daily fundamentals snapshot
// ⭐ SSOT: 지표 스냅샷 수집 스케줄은 이 Job에서만
type DataCollectionJob struct {
	collector IndicatorCollector
	schedule  string
	location  *time.Location
	now       func() time.Time
	logger    *logger.Logger
}

// NewDataCollectionJob creates a new data collection job
func NewDataCollectionJob(collector IndicatorCollector, schedule string, location *time.Location, log *logger.Logger) *DataCollectionJob {
	if location == nil {
		location = time.UTC
	}
	return &DataCollectionJob{
		collector: collector,
		schedule:  schedule,
		location:  location,
		now:       time.Now,
		logger:    log,
	}
}

// Name returns the job name
func (j *DataCollectionJob) Name() string {
	return "data_collection"
}

// Schedule returns the cron schedule
func (j *DataCollectionJob) Schedule() string {
	return j.schedule
}

// Run fetches today's indicator table and saves it through the collector's store
func (j *DataCollectionJob) Run(ctx context.Context) error {
	date := today(j.now(), j.location)
	j.logger.WithField("date", date.Format("2006-01-02")).Info("Starting scheduled data collection")

	table, err := j.collector.CollectIndicators(ctx, date)
	if err != nil {
		return fmt.Errorf("collect indicators: %w", err)
	}

	j.logger.WithField("instruments", table.Len()).Info("Scheduled data collection completed successfully")
	return nil
}

// today returns local midnight of t in loc
func today(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
