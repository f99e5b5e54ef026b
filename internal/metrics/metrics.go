// Package metrics exposes Prometheus metrics for the ranking and optimization pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "carteira"

// Registry holds every metric of the service on its own prometheus.Registry
// ⭐ SSOT: 메트릭 정의는 여기서만
type Registry struct {
	reg *prometheus.Registry

	// Pipeline step metrics
	StepDuration *prometheus.HistogramVec
	StepErrors   *prometheus.CounterVec

	// Scoring
	RankedInstruments prometheus.Gauge
	FilteredRows      *prometheus.CounterVec

	// Optimizer
	OptimizerRuns     prometheus.Counter
	OptimizerAccepted prometheus.Counter
	OptimizerScore    prometheus.Gauge

	// Cache
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// HTTP
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with all metrics registered
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of each pipeline step in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"step", "result"},
		),

		StepErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "step_errors_total",
				Help:      "Total number of pipeline step failures by error kind",
			},
			[]string{"step", "kind"},
		),

		RankedInstruments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ranked_instruments",
				Help:      "Number of instruments selected by the latest ranking",
			},
		),

		FilteredRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "screening_filtered_total",
				Help:      "Rows removed by screening, by reason",
			},
			[]string{"reason"},
		),

		OptimizerRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "optimizer_runs_total",
				Help:      "Total number of hill-climb runs",
			},
		),

		OptimizerAccepted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "optimizer_accepted_moves_total",
				Help:      "Total number of accepted hill-climb moves",
			},
		),

		OptimizerScore: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "optimizer_score",
				Help:      "Objective value (mean daily return) of the latest allocation",
			},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits by cache type",
			},
			[]string{"cache_type"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses by cache type",
			},
			[]string{"cache_type"},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by route and status",
			},
			[]string{"route", "method", "status"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.StepDuration,
		r.StepErrors,
		r.RankedInstruments,
		r.FilteredRows,
		r.OptimizerRuns,
		r.OptimizerAccepted,
		r.OptimizerScore,
		r.CacheHits,
		r.CacheMisses,
		r.HTTPRequests,
		r.HTTPDuration,
	)

	return r
}

// ObserveStep records a step duration; kind labels the failure ("" on success)
func (r *Registry) ObserveStep(step string, start time.Time, kind string) {
	if r == nil {
		return
	}
	result := "success"
	if kind != "" {
		result = "error"
		r.StepErrors.WithLabelValues(step, kind).Inc()
	}
	r.StepDuration.WithLabelValues(step, result).Observe(time.Since(start).Seconds())
}

// RecordScreening adds the per-reason filter counts of one screening pass
func (r *Registry) RecordScreening(filtered map[string]int) {
	if r == nil {
		return
	}
	for reason, n := range filtered {
		r.FilteredRows.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordRanking sets the size of the latest selection
func (r *Registry) RecordRanking(selected int) {
	if r == nil {
		return
	}
	r.RankedInstruments.Set(float64(selected))
}

// RecordOptimization records one hill-climb outcome
func (r *Registry) RecordOptimization(accepted int, score float64) {
	if r == nil {
		return
	}
	r.OptimizerRuns.Inc()
	r.OptimizerAccepted.Add(float64(accepted))
	r.OptimizerScore.Set(score)
}

// RecordCache counts a cache lookup
func (r *Registry) RecordCache(cacheType string, hit bool) {
	if r == nil {
		return
	}
	if hit {
		r.CacheHits.WithLabelValues(cacheType).Inc()
		return
	}
	r.CacheMisses.WithLabelValues(cacheType).Inc()
}

// Handler serves the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
