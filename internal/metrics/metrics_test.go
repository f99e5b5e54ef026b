package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStep(t *testing.T) {
	r := NewRegistry()

	r.ObserveStep("rank", time.Now(), "")
	r.ObserveStep("rank", time.Now(), "invalid_input")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.StepErrors.WithLabelValues("rank", "invalid_input")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.StepDuration))
}

func TestRecordOptimization(t *testing.T) {
	r := NewRegistry()

	r.RecordOptimization(12, 0.0031)
	r.RecordOptimization(3, 0.0042)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.OptimizerRuns))
	assert.Equal(t, 15.0, testutil.ToFloat64(r.OptimizerAccepted))
	assert.Equal(t, 0.0042, testutil.ToFloat64(r.OptimizerScore))
}

func TestRecordScreeningAndCache(t *testing.T) {
	r := NewRegistry()

	r.RecordScreening(map[string]int{"p/l": 4, "div.yield": 1})
	r.RecordCache("ranking", true)
	r.RecordCache("ranking", false)
	r.RecordCache("ranking", false)

	assert.Equal(t, 4.0, testutil.ToFloat64(r.FilteredRows.WithLabelValues("p/l")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.CacheHits.WithLabelValues("ranking")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.CacheMisses.WithLabelValues("ranking")))
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.ObserveStep("rank", time.Now(), "x")
		r.RecordOptimization(1, 1)
		r.RecordScreening(map[string]int{"p/l": 1})
		r.RecordCache("ranking", true)
		r.RecordRanking(3)
	})
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.RecordOptimization(1, 0.5)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "carteira_optimizer_runs_total 1"))
}
