package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"rossmann/pkg/logger"
)

// Checker reports the health of one dependency.
type Checker interface {
	Health(ctx context.Context) error
}

// CheckFunc adapts a function to Checker
type CheckFunc func(ctx context.Context) error

// Health implements Checker
func (f CheckFunc) Health(ctx context.Context) error { return f(ctx) }

// Check is a named dependency probe. Required checks gate readiness; the rest
// only degrade the detailed health report.
type Check struct {
	Name     string
	Checker  Checker
	Required bool
}

// Handler provides health check endpoints
type Handler struct {
	log         *logger.Logger
	checks      []Check
	startTime   time.Time
	serviceName string
	version     string
}

// New creates a new health check handler
func New(log *logger.Logger, serviceName, version string, checks ...Check) *Handler {
	sort.SliceStable(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })
	return &Handler{
		log:         log.With("component", "health"),
		checks:      checks,
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string                     `json:"status"` // "healthy", "degraded", "unhealthy"
	Service   string                     `json:"service"`
	Version   string                     `json:"version"`
	Uptime    string                     `json:"uptime"`
	Timestamp string                     `json:"timestamp"`
	Checks    map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// HandleLiveness returns 200 OK if service is running
// Used by Kubernetes liveness probe
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
	})
}

// HandleReadiness checks if the required dependencies answer
// Used by Kubernetes readiness probe
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks, healthy, _ := h.run(ctx, true)

	status := h.status(checks)
	statusCode := http.StatusOK
	if !healthy {
		status.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
		h.log.Warnw("Readiness check failed", "checks", checks)
	}

	writeJSON(w, statusCode, status)
}

// HandleHealth returns detailed health status (includes all checks)
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	checks, requiredHealthy, healthyCount := h.run(ctx, false)

	status := h.status(checks)
	statusCode := http.StatusOK

	if !requiredHealthy {
		status.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	} else if healthyCount < len(checks) {
		status.Status = "degraded"
		statusCode = http.StatusOK // Still return 200 for degraded
	}

	writeJSON(w, statusCode, status)
}

func (h *Handler) run(ctx context.Context, requiredOnly bool) (map[string]ComponentHealth, bool, int) {
	results := make(map[string]ComponentHealth, len(h.checks))
	requiredHealthy := true
	healthyCount := 0

	for _, c := range h.checks {
		if requiredOnly && !c.Required {
			continue
		}
		res := h.check(ctx, c)
		results[c.Name] = res
		if res.Status == "healthy" {
			healthyCount++
		} else if c.Required {
			requiredHealthy = false
		}
	}

	return results, requiredHealthy, healthyCount
}

func (h *Handler) check(ctx context.Context, c Check) ComponentHealth {
	start := time.Now()
	err := c.Checker.Health(ctx)
	elapsed := time.Since(start)

	if err != nil {
		h.log.Errorw("Health check failed", "component", c.Name, "error", err, "elapsed", elapsed)
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: elapsed.String(),
			Error:        err.Error(),
		}
	}

	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: elapsed.String(),
	}
}

func (h *Handler) status(checks map[string]ComponentHealth) HealthStatus {
	return HealthStatus{
		Status:    "healthy",
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    checks,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
