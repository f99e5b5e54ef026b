package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carteira/internal/brain"
	"github.com/wonny/carteira/internal/contracts"
	"github.com/wonny/carteira/pkg/logger"
)

type fakeRunner struct {
	got brain.RunConfig
	err error
}

func (f *fakeRunner) Run(ctx context.Context, config brain.RunConfig) (*brain.RunResult, error) {
	f.got = config
	if f.err != nil {
		return nil, f.err
	}
	return &brain.RunResult{RunID: uuid.New(), Date: config.Date, Success: true}, nil
}

type fakeCollector struct {
	date time.Time
	err  error
}

func (f *fakeCollector) CollectIndicators(ctx context.Context, date time.Time) (contracts.IndicatorTable, error) {
	f.date = date
	if f.err != nil {
		return contracts.IndicatorTable{}, f.err
	}
	return contracts.NewIndicatorTable(map[string]contracts.IndicatorValues{"WEGE3": {}}), nil
}

func saoPaulo(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	return loc
}

func TestRankingRefreshJob(t *testing.T) {
	loc := saoPaulo(t)
	runner := &fakeRunner{}
	job := NewRankingRefreshJob(runner, "0 19 * * 1-5", loc, logger.Nop())
	// 01:30 UTC on the 6th is still the 5th in São Paulo (UTC-3)
	job.now = func() time.Time { return time.Date(2024, 3, 6, 1, 30, 0, 0, time.UTC) }

	assert.Equal(t, "ranking_refresh", job.Name())
	assert.Equal(t, "0 19 * * 1-5", job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, loc), runner.got.Date)
	assert.False(t, runner.got.RankOnly)
	assert.False(t, runner.got.DryRun)

	runner.err = contracts.InvalidInputError("ranking", "no instrument survived")
	err := job.Run(context.Background())
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)
}

func TestDataCollectionJob(t *testing.T) {
	collector := &fakeCollector{}
	job := NewDataCollectionJob(collector, "30 18 * * 1-5", nil, logger.Nop())
	job.now = func() time.Time { return time.Date(2024, 3, 6, 22, 0, 0, 0, time.UTC) }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), collector.date)

	collector.err = errors.New("fundamentus down")
	assert.ErrorContains(t, job.Run(context.Background()), "fundamentus down")
}
