package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/carteira/internal/brain"
	"github.com/wonny/carteira/pkg/logger"
)

// PipelineRunner runs the full pipeline (brain.Orchestrator)
type PipelineRunner interface {
	Run(ctx context.Context, config brain.RunConfig) (*brain.RunResult, error)
}

// RankingRefreshJob recomputes ranking and weights after the market closes
// ⭐ SSOT: 랭킹 갱신 스케줄은 이 Job에서만
type RankingRefreshJob struct {
	runner   PipelineRunner
	schedule string
	location *time.Location
	now      func() time.Time
	logger   *logger.Logger
}

// NewRankingRefreshJob creates a ranking refresh job on a cron schedule evaluated in location
func NewRankingRefreshJob(runner PipelineRunner, schedule string, location *time.Location, log *logger.Logger) *RankingRefreshJob {
	if location == nil {
		location = time.UTC
	}
	return &RankingRefreshJob{
		runner:   runner,
		schedule: schedule,
		location: location,
		now:      time.Now,
		logger:   log,
	}
}

// Name returns the job name
func (j *RankingRefreshJob) Name() string {
	return "ranking_refresh"
}

// Schedule returns the cron schedule
func (j *RankingRefreshJob) Schedule() string {
	return j.schedule
}

// Run executes the full pipeline for today and persists the result
func (j *RankingRefreshJob) Run(ctx context.Context) error {
	date := today(j.now(), j.location)
	j.logger.WithField("date", date.Format("2006-01-02")).Info("Starting scheduled ranking refresh")

	result, err := j.runner.Run(ctx, brain.RunConfig{Date: date})
	if err != nil {
		return fmt.Errorf("ranking refresh: %w", err)
	}

	fields := map[string]interface{}{
		"run_id":   result.RunID.String(),
		"selected": len(result.Ranking.Rows),
		"failed":   len(result.FailedTickers),
		"duration": result.Duration,
	}
	if result.Optimization != nil {
		fields["score"] = result.Optimization.Score
		fields["seed"] = result.Seed
	}
	j.logger.WithFields(fields).Info("Ranking refresh completed successfully")

	return nil
}
