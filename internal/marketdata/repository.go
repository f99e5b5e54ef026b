package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/carteira/internal/contracts"
)

// ErrNoSnapshot is returned when no indicator snapshot exists for the requested date
var ErrNoSnapshot = errors.New("no indicator snapshot found")

// Repository stores indicator snapshots and daily prices
// ⭐ SSOT: 시장 데이터 저장소는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new market data repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveIndicators upserts one dated snapshot of the fundamentals table
func (r *Repository) SaveIndicators(ctx context.Context, date time.Time, table contracts.IndicatorTable) error {
	query := `
		INSERT INTO data.indicator_snapshots (
			snapshot_date, ticker, p_l, p_vp, div_yield, revenue_growth_5y, net_margin, roe
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (snapshot_date, ticker) DO UPDATE SET
			p_l = EXCLUDED.p_l,
			p_vp = EXCLUDED.p_vp,
			div_yield = EXCLUDED.div_yield,
			revenue_growth_5y = EXCLUDED.revenue_growth_5y,
			net_margin = EXCLUDED.net_margin,
			roe = EXCLUDED.roe
	`

	batch := &pgx.Batch{}
	for i, row := range table.Rows {
		v, ok := table.Values(i)
		if !ok {
			return contracts.ConfigurationError("columns", "row %s is missing indicator columns", row.Ticker)
		}
		batch.Queue(query, truncateDay(date), row.Ticker,
			v[contracts.PriceEarnings], v[contracts.PriceBook], v[contracts.DividendYield],
			v[contracts.RevenueGrowth5Y], v[contracts.NetMargin], v[contracts.ReturnOnEquity],
		)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save indicators: %w", err)
	}
	return nil
}

// LoadIndicators loads the latest snapshot taken on or before date
func (r *Repository) LoadIndicators(ctx context.Context, date time.Time) (contracts.IndicatorTable, time.Time, error) {
	var latest *time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT MAX(snapshot_date) FROM data.indicator_snapshots WHERE snapshot_date <= $1
	`, truncateDay(date)).Scan(&latest)
	if err != nil {
		return contracts.IndicatorTable{}, time.Time{}, fmt.Errorf("failed to get snapshot date: %w", err)
	}
	// MAX()는 행이 없으면 NULL
	if latest == nil {
		return contracts.IndicatorTable{}, time.Time{}, ErrNoSnapshot
	}
	snapshotDate := *latest

	rows, err := r.pool.Query(ctx, `
		SELECT ticker, p_l, p_vp, div_yield, revenue_growth_5y, net_margin, roe
		FROM data.indicator_snapshots
		WHERE snapshot_date = $1
	`, snapshotDate)
	if err != nil {
		return contracts.IndicatorTable{}, time.Time{}, fmt.Errorf("failed to query indicators: %w", err)
	}
	defer rows.Close()

	values := make(map[string]contracts.IndicatorValues)
	for rows.Next() {
		var ticker string
		var v contracts.IndicatorValues
		if err := rows.Scan(&ticker,
			&v[contracts.PriceEarnings], &v[contracts.PriceBook], &v[contracts.DividendYield],
			&v[contracts.RevenueGrowth5Y], &v[contracts.NetMargin], &v[contracts.ReturnOnEquity],
		); err != nil {
			return contracts.IndicatorTable{}, time.Time{}, fmt.Errorf("failed to scan indicators: %w", err)
		}
		values[ticker] = v
	}
	if err := rows.Err(); err != nil {
		return contracts.IndicatorTable{}, time.Time{}, fmt.Errorf("error iterating rows: %w", err)
	}

	return contracts.NewIndicatorTable(values), snapshotDate, nil
}

// SavePrices upserts daily closes for every series
func (r *Repository) SavePrices(ctx context.Context, series []contracts.PriceSeries) error {
	query := `
		INSERT INTO data.daily_prices (ticker, trade_date, close_price)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticker, trade_date) DO UPDATE SET
			close_price = EXCLUDED.close_price
	`

	batch := &pgx.Batch{}
	for _, s := range series {
		for _, p := range s.Points {
			batch.Queue(query, s.Ticker, truncateDay(p.Date), p.Close)
		}
	}
	if batch.Len() == 0 {
		return nil
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save prices: %w", err)
	}
	return nil
}

// LoadPrices loads stored closes for tickers in [from, to], one series per ticker in request order
func (r *Repository) LoadPrices(ctx context.Context, tickers []string, from, to time.Time) ([]contracts.PriceSeries, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ticker, trade_date, close_price
		FROM data.daily_prices
		WHERE ticker = ANY($1) AND trade_date BETWEEN $2 AND $3
		ORDER BY ticker, trade_date ASC
	`, tickers, truncateDay(from), truncateDay(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	points := make(map[string][]contracts.PricePoint, len(tickers))
	for rows.Next() {
		var ticker string
		var p contracts.PricePoint
		if err := rows.Scan(&ticker, &p.Date, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		points[ticker] = append(points[ticker], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	out := make([]contracts.PriceSeries, len(tickers))
	for i, t := range tickers {
		out[i] = contracts.PriceSeries{Ticker: t, Points: points[t]}
	}
	return out, nil
}

// FetchPrices serves stored history through the PriceSource interface (offline runs)
func (r *Repository) FetchPrices(ctx context.Context, ticker string, from, to time.Time) (contracts.PriceSeries, error) {
	series, err := r.LoadPrices(ctx, []string{ticker}, from, to)
	if err != nil {
		return contracts.PriceSeries{}, err
	}
	if series[0].Len() == 0 {
		return contracts.PriceSeries{}, fmt.Errorf("no stored prices for %s", ticker)
	}
	return series[0], nil
}
