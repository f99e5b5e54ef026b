package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is a dependency whose liveness is reported by /health
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service and dependency status
type HealthHandler struct {
	service string
	deps    map[string]Pinger
}

// NewHealthHandler creates a health handler; deps may be empty
func NewHealthHandler(service string, deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{service: service, deps: deps}
}

// Health returns 200 when every dependency answers, 503 otherwise
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.deps))
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	respondJSON(w, status, map[string]interface{}{
		"status":  overall,
		"service": h.service,
		"checks":  checks,
	})
}
