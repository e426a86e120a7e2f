package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Check is one readiness probe, typically a backend ping.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	logger *zap.Logger
	checks []Check
}

// NewHealthHandler creates a HealthHandler over a fixed set of checks.
func NewHealthHandler(logger *zap.Logger, checks ...Check) *HealthHandler {
	return &HealthHandler{
		logger: logger.With(zap.String("component", "health_handler")),
		checks: checks,
	}
}

// HealthStatus is the probe response body.
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HandleHealthz reports liveness only.
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// HandleReady runs the registered backend checks.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Checks:    make(map[string]string, len(h.checks)),
	}

	healthy := true
	for _, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			healthy = false
			status.Checks[c.Name] = "fail"
			h.logger.Warn("readiness check failed",
				zap.String("check", c.Name),
				zap.Error(err),
			)
			continue
		}
		status.Checks[c.Name] = "pass"
	}

	if !healthy {
		status.Status = "unhealthy"
		WriteJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	WriteJSON(w, http.StatusOK, status)
}
