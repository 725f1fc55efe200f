package health

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// CheckFunc is a function that performs a health check for a component.
// It returns nil if the component is healthy, or an error describing the problem.
type CheckFunc func(ctx context.Context) error

// Check statuses.
const (
	StatusOK        = "ok"
	StatusUnhealthy = "unhealthy"
	StatusReady     = "ready"
	StatusDegraded  = "degraded"
)

// CheckResult represents the result of a single health check.
type CheckResult struct {
	// Status is "ok" or "unhealthy"
	Status string `json:"status"`

	// Critical marks checks that gate readiness
	Critical bool `json:"critical,omitempty"`

	// Message provides additional context (usually for unhealthy status)
	Message string `json:"message,omitempty"`

	// Duration is how long the check took
	Duration time.Duration `json:"duration_ms,omitempty"`
}

// HealthStatus represents the overall health status of the gateway.
type HealthStatus struct {
	// Status is "ok" for liveness and "ready", "degraded" or "unhealthy"
	// for readiness
	Status string `json:"status"`

	// Checks contains the status of individual components (for readiness)
	Checks map[string]CheckResult `json:"checks,omitempty"`

	// Timestamp is when the health check was performed
	Timestamp time.Time `json:"timestamp"`
}

// Ready reports whether the status allows serving traffic.
func (s HealthStatus) Ready() bool {
	return s.Status == StatusOK || s.Status == StatusReady || s.Status == StatusDegraded
}

type registeredCheck struct {
	fn       CheckFunc
	critical bool
}

// Checker manages readiness checks for gateway components.
//
// A failing critical check makes the gateway unhealthy; any other failing
// check only degrades it.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]registeredCheck

	// Timeout for individual checks
	checkTimeout time.Duration

	now func() time.Time
}

var (
	// ErrCheckTimeout is returned when a health check times out
	ErrCheckTimeout = errors.New("health check timeout")
)

// New creates a new health checker with the specified check timeout.
// If timeout is 0, defaults to 5 seconds per check.
func New(checkTimeout time.Duration) *Checker {
	if checkTimeout == 0 {
		checkTimeout = 5 * time.Second
	}

	return &Checker{
		checks:       make(map[string]registeredCheck),
		checkTimeout: checkTimeout,
		now:          time.Now,
	}
}

// RegisterCheck registers a non-critical check for a named component.
// If a check with the same name already exists, it will be replaced.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.register(name, check, false)
}

// RegisterCriticalCheck registers a check whose failure marks the gateway
// as not ready.
func (c *Checker) RegisterCriticalCheck(name string, check CheckFunc) {
	c.register(name, check, true)
}

func (c *Checker) register(name string, check CheckFunc, critical bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks[name] = registeredCheck{fn: check, critical: critical}
}

// UnregisterCheck removes a health check for a named component.
func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.checks, name)
}

// CheckLiveness reports that the process is running.
func (c *Checker) CheckLiveness(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusOK,
		Timestamp: c.now(),
	}
}

// CheckReadiness runs every registered check concurrently and aggregates
// the results.
func (c *Checker) CheckReadiness(ctx context.Context) HealthStatus {
	c.mu.RLock()
	checks := make(map[string]registeredCheck, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(checks))
	var resultMu sync.Mutex
	var g errgroup.Group

	for name, check := range checks {
		g.Go(func() error {
			result := c.runCheck(ctx, check.fn)
			result.Critical = check.critical

			resultMu.Lock()
			results[name] = result
			resultMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := StatusReady
	for _, result := range results {
		if result.Status != StatusUnhealthy {
			continue
		}
		if result.Critical {
			status = StatusUnhealthy
			break
		}
		status = StatusDegraded
	}

	return HealthStatus{
		Status:    status,
		Checks:    results,
		Timestamp: c.now(),
	}
}

// runCheck executes a single health check with timeout.
func (c *Checker) runCheck(ctx context.Context, check CheckFunc) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	start := time.Now()

	// Run check in goroutine to support timeout
	errChan := make(chan error, 1)
	go func() {
		errChan <- check(checkCtx)
	}()

	select {
	case err := <-errChan:
		duration := time.Since(start)
		if err != nil {
			return CheckResult{
				Status:   StatusUnhealthy,
				Message:  err.Error(),
				Duration: duration,
			}
		}
		return CheckResult{
			Status:   StatusOK,
			Duration: duration,
		}

	case <-checkCtx.Done():
		return CheckResult{
			Status:   StatusUnhealthy,
			Message:  ErrCheckTimeout.Error(),
			Duration: time.Since(start),
		}
	}
}

// ListChecks returns the sorted names of all registered health checks.
func (c *Checker) ListChecks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckCount returns the number of registered health checks.
func (c *Checker) CheckCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.checks)
}
