package observability

import (
	"context"
	"sync"
)

// HealthStatus represents the health state of a component or service.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health describes the health of an individual component.
type Health struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// ServiceHealth is the body of the /health endpoint.
type ServiceHealth struct {
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

// HealthChecker is implemented by components that can report their health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) Health
}

// CheckFunc adapts a function to HealthChecker.
type CheckFunc func(ctx context.Context) Health

// CheckHealth calls f.
func (f CheckFunc) CheckHealth(ctx context.Context) Health { return f(ctx) }

// severity orders statuses from best to worst.
var severity = map[HealthStatus]int{HealthStatusUp: 0, HealthStatusDegraded: 1, HealthStatusDown: 2}

// Collect runs the checkers concurrently and reports them in the order
// given. The service takes the worst component status; nil checkers are
// skipped.
func Collect(ctx context.Context, service, version string, checkers ...HealthChecker) *ServiceHealth {
	results := make([]*Health, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		if c == nil {
			continue
		}
		wg.Go(func() {
			h := c.CheckHealth(ctx)
			results[i] = &h
		})
	}
	wg.Wait()

	sh := &ServiceHealth{Service: service, Version: version, Status: HealthStatusUp}
	for _, h := range results {
		if h == nil {
			continue
		}
		sh.Components = append(sh.Components, *h)
		if severity[h.Status] > severity[sh.Status] {
			sh.Status = h.Status
		}
	}
	return sh
}
