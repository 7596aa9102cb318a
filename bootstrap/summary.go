package bootstrap

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/kbukum/phrame/component"
	"github.com/kbukum/phrame/observability"
)

// ProviderInfo is one configured AI provider in the summary.
type ProviderInfo struct {
	Name   string
	Roles  string
	Status string
}

// RouteInfo is one registered HTTP route.
type RouteInfo struct {
	Method  string
	Path    string
	Handler string
}

// Summary tracks what a process started and prints it once it is ready.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	providers       []ProviderInfo
	routes          []RouteInfo
}

// NewSummary creates a new startup summary.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackProvider records a provider and what it is used for.
func (s *Summary) TrackProvider(name, roles, status string) {
	s.providers = append(s.providers, ProviderInfo{Name: name, Roles: roles, Status: status})
}

// TrackRoute records an HTTP route.
func (s *Summary) TrackRoute(method, path, handler string) {
	s.routes = append(s.routes, RouteInfo{Method: method, Path: path, Handler: handler})
}

// Display writes the summary, including live health from registry.
func (s *Summary) Display(ctx context.Context, w io.Writer, registry *component.Registry) {
	fmt.Fprintf(w, "\n%s %s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())

	if registry != nil {
		descs := registry.Descriptions()
		fmt.Fprintf(w, "\nComponents\n")
		if len(descs) == 0 {
			fmt.Fprintf(w, "   └── none registered\n")
		}
		for i, d := range descs {
			details := d.Details
			if d.Port > 0 {
				details = fmt.Sprintf("%s (:%d)", details, d.Port)
			}
			fmt.Fprintf(w, "   %s [%s] %s: %s\n", treePrefix(i, len(descs)), d.Type, d.Name, details)
		}
	}

	if len(s.providers) > 0 {
		fmt.Fprintf(w, "\nProviders\n")
		for i, p := range s.providers {
			fmt.Fprintf(w, "   %s %s %s (%s)\n", treePrefix(i, len(s.providers)), statusIcon(p.Status), p.Name, p.Roles)
		}
	}

	if len(s.routes) > 0 {
		fmt.Fprintf(w, "\nRoutes (%d)\n", len(s.routes))
		for i, r := range s.routes {
			fmt.Fprintf(w, "   %s %-7s %s → %s\n", treePrefix(i, len(s.routes)), r.Method, r.Path, r.Handler)
		}
	}

	if registry != nil {
		checkers := registry.Checkers()
		if len(checkers) > 0 {
			fmt.Fprintf(w, "\nHealth\n")
			for i, c := range checkers {
				h := c.CheckHealth(ctx)
				msg := ""
				if h.Message != "" {
					msg = " (" + h.Message + ")"
				}
				fmt.Fprintf(w, "   %s %s %s: %s%s\n", treePrefix(i, len(checkers)), healthIcon(h.Status), h.Name, h.Status, msg)
			}
		}
	}
	fmt.Fprintln(w)
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func statusIcon(status string) string {
	switch status {
	case "active", "enabled", "healthy":
		return "✅"
	case "disabled":
		return "⏸️"
	case "error", "failed":
		return "❌"
	default:
		return "⚠️"
	}
}

func healthIcon(status observability.HealthStatus) string {
	switch status {
	case observability.HealthStatusUp:
		return "✅"
	case observability.HealthStatusDegraded:
		return "⚠️"
	case observability.HealthStatusDown:
		return "❌"
	default:
		return "❓"
	}
}
