package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carteira/internal/api/handlers"
	"github.com/wonny/carteira/internal/brain"
	"github.com/wonny/carteira/internal/contracts"
	"github.com/wonny/carteira/internal/metrics"
	"github.com/wonny/carteira/internal/portfolio"
	"github.com/wonny/carteira/internal/selection"
	"github.com/wonny/carteira/pkg/logger"
)

type fakeRanking struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (f *fakeRanking) Rank(ctx context.Context, date time.Time) (*brain.RunResult, error) {
	f.calls.Add(1)
	time.Sleep(f.delay)
	if f.err != nil {
		return nil, f.err
	}
	return &brain.RunResult{
		Date:       date,
		ConfigHash: "abc",
		Screening: &selection.ScreeningResult{
			Filtered:   map[string]int{"p/l": 2},
			TotalInput: 10,
		},
		Ranking: contracts.RankedTable{TopK: 1, Rows: []contracts.RankedRow{
			{Ticker: "ITUB4", Sector: "bancos", Rank: 1, Score: 40},
			{Ticker: "PETR4", Sector: "petroleo", Rank: 1, Score: 55},
		}},
	}, nil
}

func (f *fakeRanking) ConfigHash() string { return "abc" }

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *mapCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (m *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = b
	return nil
}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

func newTestRouter(ranking handlers.RankingService, cache handlers.Cache) http.Handler {
	log := logger.Nop()
	m := metrics.NewRegistry()
	return NewRouter(RouterDeps{
		Health:    handlers.NewHealthHandler("carteira", nil),
		Ranking:   handlers.NewRankingHandler(ranking, cache, time.UTC, m, log),
		Portfolio: handlers.NewPortfolioHandler(portfolio.Config{Iterations: 200, StepSize: 0.05}, m, log),
		Metrics:   m,
	}, log)
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func f(v float64) *float64 { return &v }

func risingTable() handlers.PriceTableRequest {
	return handlers.PriceTableRequest{
		Dates:   []string{"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-08"},
		Tickers: []string{"A", "B"},
		Prices: [][]*float64{
			{f(10), f(10)},
			{f(11), f(10)},
			{f(12), f(10)},
			{f(13), f(10)},
			{f(14), f(10)},
		},
	}
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestRouter(&fakeRanking{}, nil), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	degraded := NewRouter(RouterDeps{
		Health:    handlers.NewHealthHandler("carteira", map[string]handlers.Pinger{"postgres": failingPinger{}}),
		Ranking:   handlers.NewRankingHandler(&fakeRanking{}, nil, nil, nil, logger.Nop()),
		Portfolio: handlers.NewPortfolioHandler(portfolio.DefaultConfig(), nil, logger.Nop()),
	}, logger.Nop())
	rec = do(t, degraded, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestGetRanking(t *testing.T) {
	service := &fakeRanking{}
	cache := &mapCache{data: make(map[string][]byte)}
	router := newTestRouter(service, cache)

	rec := do(t, router, http.MethodGet, "/api/ranking?date=2024-03-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.RankingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2024-03-01", resp.Date)
	assert.Equal(t, 10, resp.TotalInput)
	assert.Len(t, resp.Rows, 2)
	assert.Len(t, resp.Original, 2)

	// cached
	rec = do(t, router, http.MethodGet, "/api/ranking?date=2024-03-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), service.calls.Load())
	assert.Contains(t, cache.data, "ranking:abc:2024-03-01")

	// sector filter applies on top of the cached ranking
	rec = do(t, router, http.MethodGet, "/api/ranking?date=2024-03-01&sector=petroleo", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "PETR4", resp.Rows[0].Ticker)
}

func TestGetRanking_Singleflight(t *testing.T) {
	service := &fakeRanking{delay: 50 * time.Millisecond}
	router := newTestRouter(service, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := do(t, router, http.MethodGet, "/api/ranking?date=2024-03-01", nil)
			assert.Equal(t, http.StatusOK, rec.Code)
		}()
	}
	wg.Wait()

	assert.Less(t, service.calls.Load(), int32(5))
}

func TestGetRanking_Errors(t *testing.T) {
	router := newTestRouter(&fakeRanking{}, nil)
	rec := do(t, router, http.MethodGet, "/api/ranking?date=01/03/2024", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	router = newTestRouter(&fakeRanking{err: contracts.ConfigurationError("columns", "missing p/l")}, nil)
	rec = do(t, router, http.MethodGet, "/api/ranking", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"configuration"`)

	router = newTestRouter(&fakeRanking{err: errors.New("scrape failed")}, nil)
	rec = do(t, router, http.MethodGet, "/api/ranking", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "scrape failed")
}

func TestOptimize(t *testing.T) {
	router := newTestRouter(&fakeRanking{}, nil)

	seed := uint64(7)
	rec := do(t, router, http.MethodPost, "/api/optimize", handlers.OptimizeRequest{
		Prices: risingTable(),
		Seed:   &seed,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handlers.OptimizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(7), resp.Seed)
	require.Len(t, resp.Result.Weights, 2)
	assert.InDelta(t, 1.0, resp.Result.Weights.Sum(), 1e-6)
	assert.Greater(t, resp.Result.Weights[0], resp.Result.Weights[1])
	assert.Equal(t, "A", resp.Allocation.Positions[0].Ticker)
}

func TestOptimize_Errors(t *testing.T) {
	router := newTestRouter(&fakeRanking{}, nil)

	negative, huge := -1, portfolio.MaxIterations+1
	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"negative iterations", handlers.OptimizeRequest{Prices: risingTable(), Iterations: &negative}, http.StatusBadRequest},
		{"iterations over limit", handlers.OptimizeRequest{Prices: risingTable(), Iterations: &huge}, http.StatusBadRequest},
		{"bad date", handlers.OptimizeRequest{Prices: handlers.PriceTableRequest{
			Dates: []string{"x"}, Tickers: []string{"A"}, Prices: [][]*float64{{f(1)}},
		}}, http.StatusBadRequest},
		{"single row", handlers.OptimizeRequest{Prices: handlers.PriceTableRequest{
			Dates: []string{"2024-01-02"}, Tickers: []string{"A"}, Prices: [][]*float64{{f(1)}},
		}}, http.StatusBadRequest},
		{"unknown field", map[string]interface{}{"prices": risingTable(), "temperature": 1}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/optimize", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRisk(t *testing.T) {
	router := newTestRouter(&fakeRanking{}, nil)

	rec := do(t, router, http.MethodPost, "/api/risk", handlers.RiskRequest{
		Prices:  risingTable(),
		Weights: []float64{0.5, 0.5},
		Windows: []int{5, 3},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handlers.RiskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Instruments, 2)
	assert.Contains(t, resp.Correlations, 5)
	assert.Contains(t, resp.Correlations, 3)
	assert.Equal(t, 4, resp.Portfolio.Samples)

	rec = do(t, router, http.MethodPost, "/api/risk", handlers.RiskRequest{
		Prices:  risingTable(),
		Weights: []float64{0.9, 0.9},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotFoundAndMetrics(t *testing.T) {
	router := newTestRouter(&fakeRanking{}, nil)

	rec := do(t, router, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	do(t, router, http.MethodGet, "/health", nil)
	rec = do(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `carteira_http_requests_total{method="GET",route="/health",status="200"} 1`))
}
