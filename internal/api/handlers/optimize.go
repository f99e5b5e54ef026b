package handlers

import (
	"net/http"
	"time"

	"github.com/wonny/carteira/internal/contracts"
	"github.com/wonny/carteira/internal/metrics"
	"github.com/wonny/carteira/internal/portfolio"
	"github.com/wonny/carteira/internal/risk"
	"github.com/wonny/carteira/pkg/logger"
)

// OptimizeRequest is the body of POST /api/optimize
type OptimizeRequest struct {
	Prices     PriceTableRequest `json:"prices"`
	Iterations *int              `json:"iterations,omitempty"`
	StepSize   *float64          `json:"step_size,omitempty"`
	Seed       *uint64           `json:"seed,omitempty"` // 생략 시 시각 기반 시드 (응답에 기록)
}

// OptimizeResponse is the body of a successful POST /api/optimize
type OptimizeResponse struct {
	Seed       uint64                `json:"seed"`
	Result     *portfolio.Result     `json:"result"`
	Allocation *portfolio.Allocation `json:"allocation"`
}

// RiskRequest is the body of POST /api/risk
type RiskRequest struct {
	Prices  PriceTableRequest `json:"prices"`
	Weights []float64         `json:"weights,omitempty"` // 생략 시 동일 비중
	Windows []int             `json:"windows,omitempty"` // correlation windows in rows
}

// RiskResponse is the body of a successful POST /api/risk
type RiskResponse struct {
	Instruments  []risk.InstrumentStats         `json:"instruments"`
	Portfolio    *risk.PortfolioProfile         `json:"portfolio"`
	Correlations map[int]risk.CorrelationMatrix `json:"correlations"`
}

// PortfolioHandler handles weight search and risk endpoints
// ⭐ SSOT: 포트폴리오 API 핸들러는 이 구조체에서만
type PortfolioHandler struct {
	defaults portfolio.Config
	metrics  *metrics.Registry
	now      func() time.Time
	logger   *logger.Logger
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(defaults portfolio.Config, m *metrics.Registry, log *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		defaults: defaults,
		metrics:  m,
		now:      time.Now,
		logger:   log,
	}
}

// Optimize runs the hill-climb weight search on a posted price table
// POST /api/optimize
func (h *PortfolioHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDomainError(w, err)
		return
	}

	config := h.defaults
	if req.Iterations != nil {
		config.Iterations = *req.Iterations
	}
	if req.StepSize != nil {
		config.StepSize = *req.StepSize
	}
	// 가격 테이블 파싱 전에 탐색 예산부터 거름
	if err := config.Validate(); err != nil {
		respondDomainError(w, err)
		return
	}

	prices, err := req.Prices.ToPriceTable()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	seed := uint64(h.now().UnixNano())
	if req.Seed != nil {
		seed = *req.Seed
	}

	start := time.Now()
	result, err := portfolio.NewSeeded(config, seed, h.logger).Optimize(prices)
	h.metrics.ObserveStep("api_optimize", start, contracts.KindOf(err))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	h.metrics.RecordOptimization(result.Accepted, result.Score)

	respondJSON(w, http.StatusOK, OptimizeResponse{
		Seed:       seed,
		Result:     result,
		Allocation: portfolio.NewAllocation(prices.Dates[len(prices.Dates)-1], result, contracts.RankedTable{}),
	})
}

// Risk computes risk/return statistics for a posted price table
// POST /api/risk
func (h *PortfolioHandler) Risk(w http.ResponseWriter, r *http.Request) {
	var req RiskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDomainError(w, err)
		return
	}

	prices, err := req.Prices.ToPriceTable()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	weights := contracts.WeightVector(req.Weights)
	if len(weights) == 0 {
		weights = portfolio.EqualWeights(prices.NumCols())
	}

	instruments, err := risk.RiskReturn(prices)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	profile, err := risk.PortfolioStats(prices, weights)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	windows := req.Windows
	if len(windows) == 0 {
		windows = []int{prices.NumRows()}
	}
	correlations := make(map[int]risk.CorrelationMatrix, len(windows))
	for _, n := range windows {
		if n < 2 {
			respondDomainError(w, contracts.InvalidInputError("windows", "window %d must be >= 2", n))
			return
		}
		m, err := risk.Correlation(prices.Tail(n))
		if err != nil {
			respondDomainError(w, err)
			return
		}
		correlations[n] = m
	}

	respondJSON(w, http.StatusOK, RiskResponse{
		Instruments:  instruments,
		Portfolio:    profile,
		Correlations: correlations,
	})
}
