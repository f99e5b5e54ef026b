package selection

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/carteira/internal/contracts"
	"github.com/wonny/carteira/pkg/logger"
)

// Ranker scores every sector independently and concatenates the top K of each
// ⭐ SSOT: 섹터별 랭킹 로직은 여기서만
type Ranker struct {
	config RankerConfig
	logger *logger.Logger
}

// RankerConfig controls sector fan-out
type RankerConfig struct {
	MaxConcurrency int // 동시에 점수를 계산할 섹터 수 (0 = 제한 없음)
}

// DefaultRankerConfig returns default ranker configuration
func DefaultRankerConfig() RankerConfig {
	return RankerConfig{
		MaxConcurrency: 4,
	}
}

// NewRanker creates a new ranker
func NewRanker(config RankerConfig, logger *logger.Logger) *Ranker {
	return &Ranker{
		config: config,
		logger: logger,
	}
}

// RankAllSectors applies ScoreSector to every sector and concatenates the
// results in partition order. Empty sectors contribute nothing.
func (r *Ranker) RankAllSectors(ctx context.Context, partition contracts.SectorPartition, topK int) (contracts.RankedTable, error) {
	if topK < 1 {
		return contracts.RankedTable{}, contracts.InvalidInputError("top_k", "must be >= 1, got %d", topK)
	}

	start := time.Now()
	results := make([]contracts.RankedTable, len(partition))

	g, gctx := errgroup.WithContext(ctx)
	if r.config.MaxConcurrency > 0 {
		g.SetLimit(r.config.MaxConcurrency)
	}

	for i, sector := range partition {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if sector.Table.Len() == 0 {
				// 빈 섹터도 열 구성은 검증
				for _, ind := range contracts.Indicators {
					if sector.Table.ColumnIndex(ind) < 0 {
						return fmt.Errorf("sector %s: %w", sector.Sector,
							contracts.ConfigurationError("columns", "missing indicator column %q", ind.String()))
					}
				}
				return nil
			}

			ranked, err := ScoreSector(sector.Table, topK)
			if err != nil {
				return fmt.Errorf("sector %s: %w", sector.Sector, err)
			}
			for j := range ranked.Rows {
				ranked.Rows[j].Sector = sector.Sector
			}
			results[i] = ranked
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		r.logger.WithError(err).Error("Sector ranking failed")
		return contracts.RankedTable{}, err
	}

	out := contracts.RankedTable{TopK: topK, Rows: make([]contracts.RankedRow, 0, len(partition)*topK)}
	for _, res := range results {
		out.Rows = append(out.Rows, res.Rows...)
	}

	fields := map[string]interface{}{
		"sectors":     len(partition),
		"input_rows":  partition.Total(),
		"selected":    out.Len(),
		"top_k":       topK,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if out.Len() > 0 {
		fields["top_ticker"] = out.Rows[0].Ticker
		fields["top_score"] = out.Rows[0].Score
	}
	r.logger.WithFields(fields).Info("Ranking completed")

	return out, nil
}

// ViewRow is one line of a presentation table
type ViewRow struct {
	Ticker string                    `json:"ticker"`
	Sector string                    `json:"sector"`
	Values contracts.IndicatorValues `json:"values"`
	Score  float64                   `json:"score"`
}

// NormalizedView presents the weighted, normalized columns with score and sector.
// Rows are stably sorted by sector.
func NormalizedView(t contracts.RankedTable) []ViewRow {
	return view(t, func(r contracts.RankedRow) contracts.IndicatorValues { return r.Weighted })
}

// OriginalView presents the raw indicator values with score and sector.
// Rows are stably sorted by sector.
func OriginalView(t contracts.RankedTable) []ViewRow {
	return view(t, func(r contracts.RankedRow) contracts.IndicatorValues { return r.Original })
}

func view(t contracts.RankedTable, values func(contracts.RankedRow) contracts.IndicatorValues) []ViewRow {
	rows := make([]ViewRow, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = ViewRow{Ticker: r.Ticker, Sector: r.Sector, Values: values(r), Score: r.Score}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Sector < rows[j].Sector
	})
	return rows
}

// FilterSectors keeps only rows of the given sectors; no sectors means keep all
func FilterSectors(t contracts.RankedTable, sectors []string) contracts.RankedTable {
	if len(sectors) == 0 {
		return t.Clone()
	}
	keep := make(map[string]bool, len(sectors))
	for _, s := range sectors {
		keep[s] = true
	}
	out := contracts.RankedTable{TopK: t.TopK, Rows: make([]contracts.RankedRow, 0, len(t.Rows))}
	for _, r := range t.Rows {
		if keep[r.Sector] {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}
