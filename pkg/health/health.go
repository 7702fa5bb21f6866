package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// DefaultCheckTimeout bounds each registered check.
const DefaultCheckTimeout = 2 * time.Second

type CheckFunc func(ctx context.Context) error

type Checker struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	timeout time.Duration
}

func NewChecker() *Checker {
	return &Checker{
		checks:  make(map[string]CheckFunc),
		timeout: DefaultCheckTimeout,
	}
}

func (c *Checker) Register(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

type CheckResult struct {
	Status  Status            `json:"status"`
	Details map[string]string `json:"details,omitempty"`
}

// Check runs every registered check concurrently, each under its own timeout.
func (c *Checker) Check(ctx context.Context) CheckResult {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, fn := range c.checks {
		checks[name] = fn
	}
	timeout := c.timeout
	c.mu.RUnlock()

	result := CheckResult{
		Status:  StatusHealthy,
		Details: make(map[string]string, len(checks)),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check CheckFunc) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			err := check(cctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Status = StatusUnhealthy
				result.Details[name] = err.Error()
			} else {
				result.Details[name] = "ok"
			}
		}(name, check)
	}
	wg.Wait()

	return result
}

func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}

func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := c.Check(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if result.Status == StatusHealthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(result)
	}
}
