package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoOptimizationRun is returned when nothing has been stored yet
var ErrNoOptimizationRun = errors.New("no optimization run found")

// OptimizationRun is one persisted weight search
type OptimizationRun struct {
	ID         uuid.UUID
	RunID      uuid.UUID // pipeline run (uuid.Nil for ad-hoc API calls)
	Seed       uint64
	Iterations int
	StepSize   float64
	Accepted   int
	Allocation *Allocation
	CreatedAt  time.Time
}

// Repository handles portfolio data persistence
// ⭐ SSOT: Portfolio 데이터 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new portfolio repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveOptimization stores the run header and its positions in one transaction
func (r *Repository) SaveOptimization(ctx context.Context, run *OptimizationRun) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// seed는 int64 컬럼에 비트 그대로 저장
	_, err = tx.Exec(ctx, `
		INSERT INTO portfolio.optimization_runs (
			optimization_id, run_id, alloc_date, seed, iterations, step_size, accepted, score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, run.ID, run.RunID, run.Allocation.Date, int64(run.Seed), run.Iterations, run.StepSize,
		run.Accepted, run.Allocation.Score)
	if err != nil {
		return fmt.Errorf("failed to insert optimization run: %w", err)
	}

	query := `
		INSERT INTO portfolio.positions (
			optimization_id, ticker, sector, weight, ranking_score
		) VALUES ($1, $2, $3, $4, $5)
	`
	for _, pos := range run.Allocation.Positions {
		if _, err := tx.Exec(ctx, query, run.ID, pos.Ticker, pos.Sector, pos.Weight, pos.Score); err != nil {
			return fmt.Errorf("failed to insert position %s: %w", pos.Ticker, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LatestOptimization loads the most recent optimization run
func (r *Repository) LatestOptimization(ctx context.Context) (*OptimizationRun, error) {
	run := OptimizationRun{Allocation: &Allocation{}}
	var seed int64

	err := r.pool.QueryRow(ctx, `
		SELECT optimization_id, run_id, alloc_date, seed, iterations, step_size, accepted, score, created_at
		FROM portfolio.optimization_runs
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&run.ID, &run.RunID, &run.Allocation.Date, &seed, &run.Iterations, &run.StepSize,
		&run.Accepted, &run.Allocation.Score, &run.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoOptimizationRun
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get optimization run: %w", err)
	}
	run.Seed = uint64(seed)

	rows, err := r.pool.Query(ctx, `
		SELECT ticker, sector, weight, ranking_score
		FROM portfolio.positions
		WHERE optimization_id = $1
		ORDER BY weight DESC
	`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pos Position
		if err := rows.Scan(&pos.Ticker, &pos.Sector, &pos.Weight, &pos.Score); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		run.Allocation.Positions = append(run.Allocation.Positions, pos)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &run, nil
}
