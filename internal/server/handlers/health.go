package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Checker reports whether one dependency of the service is usable.
type Checker interface {
	CheckHealth(ctx context.Context) error
}

// HealthResponse is the body returned by the health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// HealthManager runs registered checkers and renders an overall status.
type HealthManager struct {
	mu       sync.RWMutex
	version  string
	checkers map[string]Checker
	timeout  time.Duration
}

func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		version:  version,
		checkers: make(map[string]Checker),
		timeout:  2 * time.Second,
	}
}

func (m *HealthManager) RegisterChecker(name string, c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[name] = c
}

// HealthHandler probes every registered checker. A failing checker yields
// 503 with per-check detail; a timed-out checker degrades the status but
// keeps the endpoint at 200.
func (m *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	checkers := make(map[string]Checker, len(m.checkers))
	for name, c := range m.checkers {
		checkers[name] = c
	}
	m.mu.RUnlock()

	results := make(map[string]string, len(checkers))
	for name, c := range checkers {
		results[name] = m.probe(r.Context(), c)
	}

	status := m.determineOverallStatus(results)
	w.Header().Set("Content-Type", "application/json")

	if status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    "SERVICE_UNAVAILABLE",
				"message": "one or more health checks failed",
				"details": map[string]any{"checks": results},
			},
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status:  status,
		Version: m.version,
		Checks:  results,
	})
}

func (m *HealthManager) probe(ctx context.Context, c Checker) string {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.CheckHealth(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			return "unhealthy"
		}
		return "healthy"
	case <-ctx.Done():
		return "timeout"
	}
}

func (m *HealthManager) determineOverallStatus(results map[string]string) string {
	status := "healthy"
	for _, r := range results {
		switch r {
		case "unhealthy":
			return "unhealthy"
		case "timeout":
			status = "degraded"
		}
	}
	return status
}
