package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/carteira/internal/contracts"
)

// ErrNoRankingRun is returned when no ranking run has been stored yet
var ErrNoRankingRun = errors.New("no ranking run found")

// RankingRun is one persisted ranking with the screening stats that fed it
type RankingRun struct {
	ID         uuid.UUID
	RunDate    time.Time
	ConfigHash string
	TopK       int
	Filtered   map[string]int
	TotalInput int
	Ranking    contracts.RankedTable
	CreatedAt  time.Time
}

// Repository handles selection data persistence
// ⭐ SSOT: Selection 데이터 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new selection repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRankingRun stores the run header and every ranked row in one transaction
func (r *Repository) SaveRankingRun(ctx context.Context, run *RankingRun) error {
	filteredJSON, err := json.Marshal(run.Filtered)
	if err != nil {
		return fmt.Errorf("failed to marshal filtered: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO selection.ranking_runs (
			run_id, run_date, config_hash, top_k, filtered, total_input
		) VALUES ($1, $2, $3, $4, $5, $6)
	`, run.ID, run.RunDate, run.ConfigHash, run.TopK, filteredJSON, run.TotalInput)
	if err != nil {
		return fmt.Errorf("failed to insert ranking run: %w", err)
	}

	query := `
		INSERT INTO selection.ranking_rows (
			run_id, ticker, sector, rank, score, original, weighted
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, row := range run.Ranking.Rows {
		_, err := tx.Exec(ctx, query,
			run.ID, row.Ticker, row.Sector, row.Rank, row.Score,
			row.Original[:], row.Weighted[:],
		)
		if err != nil {
			return fmt.Errorf("failed to insert ranking row %s: %w", row.Ticker, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LatestRankingRun loads the most recent ranking run
func (r *Repository) LatestRankingRun(ctx context.Context) (*RankingRun, error) {
	var run RankingRun
	var filteredJSON []byte

	err := r.pool.QueryRow(ctx, `
		SELECT run_id, run_date, config_hash, top_k, filtered, total_input, created_at
		FROM selection.ranking_runs
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&run.ID, &run.RunDate, &run.ConfigHash, &run.TopK, &filteredJSON, &run.TotalInput, &run.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRankingRun
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ranking run: %w", err)
	}

	if err := json.Unmarshal(filteredJSON, &run.Filtered); err != nil {
		return nil, fmt.Errorf("failed to unmarshal filtered: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT ticker, sector, rank, score, original, weighted
		FROM selection.ranking_rows
		WHERE run_id = $1
		ORDER BY id ASC
	`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranking rows: %w", err)
	}
	defer rows.Close()

	run.Ranking = contracts.RankedTable{TopK: run.TopK, Rows: make([]contracts.RankedRow, 0)}
	for rows.Next() {
		var row contracts.RankedRow
		var original, weighted []float64
		if err := rows.Scan(&row.Ticker, &row.Sector, &row.Rank, &row.Score, &original, &weighted); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		copy(row.Original[:], original)
		copy(row.Weighted[:], weighted)
		run.Ranking.Rows = append(run.Ranking.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &run, nil
}
