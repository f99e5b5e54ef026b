package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wonny/carteira/internal/brain"
	"github.com/wonny/carteira/internal/contracts"
	"github.com/wonny/carteira/internal/metrics"
	"github.com/wonny/carteira/internal/selection"
	"github.com/wonny/carteira/pkg/logger"
	"github.com/wonny/carteira/pkg/redis"
)

// RankingService runs the ranking part of the pipeline (brain.Orchestrator)
type RankingService interface {
	Rank(ctx context.Context, date time.Time) (*brain.RunResult, error)
	ConfigHash() string
}

// Cache is the JSON cache for ranking responses (redis.Cache)
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// RankingResponse is the body of GET /api/ranking
type RankingResponse struct {
	Date           string                `json:"date"`
	ConfigHash     string                `json:"config_hash"`
	TopK           int                   `json:"top_k"`
	TotalInput     int                   `json:"total_input"`
	Filtered       map[string]int        `json:"filtered"`
	UnknownTickers []string              `json:"unknown_tickers"`
	Rows           []contracts.RankedRow `json:"rows"`
	Normalized     []selection.ViewRow   `json:"normalized"`
	Original       []selection.ViewRow   `json:"original"`
}

// RankingHandler handles ranking API endpoints
// ⭐ SSOT: 랭킹 API 핸들러는 이 구조체에서만
type RankingHandler struct {
	service  RankingService
	cache    Cache
	group    singleflight.Group
	location *time.Location
	metrics  *metrics.Registry
	logger   *logger.Logger
}

// NewRankingHandler creates a new ranking handler; cache and m may be nil
func NewRankingHandler(service RankingService, cache Cache, location *time.Location, m *metrics.Registry, log *logger.Logger) *RankingHandler {
	if location == nil {
		location = time.UTC
	}
	return &RankingHandler{
		service:  service,
		cache:    cache,
		location: location,
		metrics:  m,
		logger:   log,
	}
}

// GetRanking returns the sector top-K ranking for a date
// GET /api/ranking?date=YYYY-MM-DD&sector=bancos
func (h *RankingHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date := time.Now().In(h.location)
	if s := r.URL.Query().Get("date"); s != "" {
		parsed, err := time.ParseInLocation("2006-01-02", s, h.location)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid date (expected YYYY-MM-DD)")
			return
		}
		date = parsed
	}
	day := date.Format("2006-01-02")
	key := redis.RankingKey(h.service.ConfigHash(), day)

	// 동일 요청 동시 수신 시 1회만 계산
	v, err, shared := h.group.Do(key, func() (interface{}, error) {
		return h.load(context.WithoutCancel(ctx), key, date)
	})
	if err != nil {
		h.logger.WithError(err).WithField("date", day).Error("Failed to rank")
		respondDomainError(w, err)
		return
	}

	resp := *v.(*RankingResponse)
	if sectors := r.URL.Query()["sector"]; len(sectors) > 0 {
		filtered := selection.FilterSectors(contracts.RankedTable{TopK: resp.TopK, Rows: resp.Rows}, sectors)
		resp.Rows = filtered.Rows
		resp.Normalized = selection.NormalizedView(filtered)
		resp.Original = selection.OriginalView(filtered)
	}

	h.logger.WithFields(map[string]interface{}{
		"date":   day,
		"rows":   len(resp.Rows),
		"shared": shared,
	}).Debug("Ranking served")

	respondJSON(w, http.StatusOK, resp)
}

// load reads the ranking from cache or computes and caches it
func (h *RankingHandler) load(ctx context.Context, key string, date time.Time) (*RankingResponse, error) {
	if h.cache != nil {
		var cached RankingResponse
		found, err := h.cache.Get(ctx, key, &cached)
		if err != nil {
			h.logger.WithError(err).Warn("Ranking cache read failed")
		}
		h.metrics.RecordCache("ranking", found)
		if found {
			return &cached, nil
		}
	}

	result, err := h.service.Rank(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}

	resp := &RankingResponse{
		Date:           date.Format("2006-01-02"),
		ConfigHash:     result.ConfigHash,
		TopK:           result.Ranking.TopK,
		TotalInput:     result.Screening.TotalInput,
		Filtered:       result.Screening.Filtered,
		UnknownTickers: result.UnknownTickers,
		Rows:           result.Ranking.Rows,
		Normalized:     selection.NormalizedView(result.Ranking),
		Original:       selection.OriginalView(result.Ranking),
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, key, resp, redis.TTLLong); err != nil {
			h.logger.WithError(err).Warn("Ranking cache write failed")
		}
	}
	return resp, nil
}
