package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// ComponentHealth represents the health of a single component
type ComponentHealth struct {
	Status      Status                 `json:"status"`
	Message     string                 `json:"message,omitempty"`
	LastChecked time.Time              `json:"last_checked"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Check is a health check function for one component
type Check func(ctx context.Context) ComponentHealth

// Checker manages health checks for all components
type Checker struct {
	mu         sync.RWMutex
	components map[string]Check
	timeout    time.Duration
}

// NewChecker creates a new health checker
func NewChecker(timeout time.Duration) *Checker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		components: make(map[string]Check),
		timeout:    timeout,
	}
}

// Register registers a health check for a component
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components[name] = check
}

// Check runs all health checks and returns per-component results
func (c *Checker) Check(ctx context.Context) map[string]ComponentHealth {
	c.mu.RLock()
	components := make(map[string]Check, len(c.components))
	for name, check := range c.components {
		components[name] = check
	}
	c.mu.RUnlock()

	results := make(map[string]ComponentHealth, len(components))
	for name, check := range components {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		result := check(checkCtx)
		cancel()
		result.LastChecked = time.Now()
		results[name] = result
	}

	return results
}

// Overall reduces per-component results to a single status: unhealthy if any
// component is unhealthy, degraded if any is degraded, healthy otherwise.
func Overall(results map[string]ComponentHealth) Status {
	status := StatusHealthy
	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// Handler serves the aggregate health state as JSON. Unhealthy maps to 503.
func (c *Checker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		results := c.Check(r.Context())
		overall := Overall(results)

		w.Header().Set("Content-Type", "application/json")
		if overall == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(struct {
			Status     Status                     `json:"status"`
			Components map[string]ComponentHealth `json:"components"`
		}{
			Status:     overall,
			Components: results,
		})
	})
}
