package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HealthCheck is one named readiness probe.
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthStatus is the health endpoint payload.
type HealthStatus struct {
	OK        bool                   `json:"ok"`
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is one probe's outcome.
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// HealthHandler answers liveness and readiness queries.
type HealthHandler struct {
	logger  *zap.Logger
	version string
	checks  []HealthCheck
	mu      sync.RWMutex
}

// NewHealthHandler creates a health handler reporting the given version.
func NewHealthHandler(version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		logger:  logger.With(zap.String("component", "health_handler")),
		version: version,
	}
}

// RegisterCheck adds a readiness probe.
func (h *HealthHandler) RegisterCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// HandleHealth runs all registered probes and reports aggregate status.
// With no failing probe the service is healthy; any failure degrades it.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := make([]HealthCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	status := HealthStatus{
		OK:        true,
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}
	if len(checks) > 0 {
		status.Checks = make(map[string]CheckResult, len(checks))
	}

	for _, check := range checks {
		start := time.Now()
		err := check.Check(r.Context())
		result := CheckResult{
			Status:  "pass",
			Latency: time.Since(start).String(),
		}
		if err != nil {
			result.Status = "fail"
			result.Message = err.Error()
			status.Status = "degraded"
			h.logger.Warn("health check failed",
				zap.String("check", check.Name()),
				zap.Error(err))
		}
		status.Checks[check.Name()] = result
	}

	WriteJSON(w, http.StatusOK, status)
}

// HandleRoot is the liveness greeting on the service root.
func HandleRoot(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"service": "peppo-video-backend",
		"status":  "running",
	})
}
