package portfolio

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/wonny/carteira/internal/contracts"
	"github.com/wonny/carteira/internal/risk"
	"github.com/wonny/carteira/pkg/logger"
)

// MaxIterations bounds the search budget accepted from callers (API, CLI, strategy file)
const MaxIterations = 1_000_000

// Config defines hill-climb search parameters
type Config struct {
	Iterations int     // 탐색 스텝 수 (0 = 초기 벡터 그대로 반환)
	StepSize   float64 // 이웃 생성 시 한 좌표에 더하는 U(-step, +step)의 폭
}

// DefaultConfig returns default search configuration
func DefaultConfig() Config {
	return Config{
		Iterations: 1000,
		StepSize:   0.05,
	}
}

// Validate checks search parameters
func (c Config) Validate() error {
	if c.Iterations < 0 || c.Iterations > MaxIterations {
		return contracts.InvalidInputError("iterations", "must be in [0, %d], got %d", MaxIterations, c.Iterations)
	}
	if !(c.StepSize > 0) || math.IsInf(c.StepSize, 0) {
		return contracts.InvalidInputError("step_size", "must be > 0, got %v", c.StepSize)
	}
	return nil
}

// Result is the outcome of one search
type Result struct {
	Tickers    []string               `json:"tickers"`
	Weights    contracts.WeightVector `json:"weights"`
	Score      float64                `json:"score"` // mean daily return of the weighted portfolio
	Initial    contracts.WeightVector `json:"initial"`
	Iterations int                    `json:"iterations"`
	Accepted   int                    `json:"accepted"` // strictly improving moves
	Trace      []float64              `json:"trace"`    // incumbent score after each step
	ReturnRows int                    `json:"return_rows"`
	Dropped    int                    `json:"dropped_rows"`
}

// HillClimber searches the weight simplex for the best historical mean daily return.
// It owns its random source and is not safe for concurrent use.
// ⭐ SSOT: 가중치 탐색 로직은 여기서만
type HillClimber struct {
	config Config
	rng    *rand.Rand
	logger *logger.Logger
}

// NewHillClimber creates a hill climber drawing from rng
func NewHillClimber(config Config, rng *rand.Rand, logger *logger.Logger) *HillClimber {
	return &HillClimber{
		config: config,
		rng:    rng,
		logger: logger,
	}
}

// NewSeeded creates a hill climber with a deterministic PCG source
func NewSeeded(config Config, seed uint64, logger *logger.Logger) *HillClimber {
	return NewHillClimber(config, NewRand(seed), logger)
}

// NewRand returns the PCG source used for a given seed
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Optimize runs INIT → SEARCHING → DONE on a price table
func (h *HillClimber) Optimize(prices contracts.PriceTable) (*Result, error) {
	if err := h.config.Validate(); err != nil {
		return nil, err
	}
	if prices.NumCols() == 0 {
		return nil, contracts.InvalidInputError("prices", "price table has no instruments")
	}

	returns, err := risk.DailyReturns(prices)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	means := returns.MeanReturns()
	objective := func(w contracts.WeightVector) float64 {
		return floats.Dot(means, w)
	}

	// INIT
	best := h.initialWeights(prices.NumCols())
	bestScore := objective(best)

	result := &Result{
		Tickers:    append([]string(nil), prices.Tickers...),
		Initial:    best.Clone(),
		Iterations: h.config.Iterations,
		Trace:      make([]float64, 0, h.config.Iterations),
		ReturnRows: len(returns.Values),
		Dropped:    returns.Dropped,
	}

	// SEARCHING: 엄격한 개선만 수용
	for i := 0; i < h.config.Iterations; i++ {
		if neighbor, ok := h.neighbor(best); ok {
			if score := objective(neighbor); score > bestScore {
				best, bestScore = neighbor, score
				result.Accepted++
			}
		}
		result.Trace = append(result.Trace, bestScore)
	}

	// DONE
	result.Weights = best
	result.Score = bestScore

	h.logger.WithFields(map[string]interface{}{
		"instruments": prices.NumCols(),
		"return_rows": result.ReturnRows,
		"dropped":     result.Dropped,
		"iterations":  result.Iterations,
		"accepted":    result.Accepted,
		"score":       result.Score,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Weight optimization completed")

	return result, nil
}

// initialWeights draws n uniform values and normalizes them to sum 1
func (h *HillClimber) initialWeights(n int) contracts.WeightVector {
	w := make(contracts.WeightVector, n)
	for {
		for i := range w {
			w[i] = h.rng.Float64()
		}
		if sum := floats.Sum(w); sum > 0 {
			floats.Scale(1/sum, w)
			return w
		}
	}
}

// neighbor perturbs one coordinate, clamps to [0,1] and renormalizes.
// Returns false if the perturbed vector sums to zero.
func (h *HillClimber) neighbor(w contracts.WeightVector) (contracts.WeightVector, bool) {
	n := w.Clone()
	idx := h.rng.IntN(len(n))
	n[idx] += (2*h.rng.Float64() - 1) * h.config.StepSize

	for i, v := range n {
		n[i] = math.Min(1, math.Max(0, v))
	}

	sum := floats.Sum(n)
	if sum == 0 {
		return nil, false
	}
	floats.Scale(1/sum, n)
	return n, true
}
