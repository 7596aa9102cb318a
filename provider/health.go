package provider

import (
	"fmt"
	"time"
)

// Status represents the health status of a provider.
type Status int

const (
	// StatusHealthy indicates the provider accepted our credentials.
	StatusHealthy Status = iota
	// StatusDegraded indicates the provider answered unexpectedly.
	StatusDegraded
	// StatusUnavailable indicates the provider cannot handle requests.
	StatusUnavailable
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a name written by MarshalText.
func (s *Status) UnmarshalText(b []byte) error {
	for _, v := range []Status{StatusHealthy, StatusDegraded, StatusUnavailable} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown provider status %q", b)
}

// HealthStatus is the outcome of a provider self test.
type HealthStatus struct {
	Provider  Name           `json:"provider"`
	Status    Status         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CheckedAt time.Time      `json:"checked_at"`
}

// OK reports whether the provider is healthy.
func (h HealthStatus) OK() bool {
	return h.Status == StatusHealthy
}

// Healthy builds a healthy status.
func Healthy(p Name, msg string) HealthStatus {
	return HealthStatus{Provider: p, Status: StatusHealthy, Message: msg, CheckedAt: time.Now()}
}

// Degraded builds a status for a provider that answered with something
// other than the expected payload. details is logged redacted.
func Degraded(p Name, msg string, details map[string]any) HealthStatus {
	return HealthStatus{Provider: p, Status: StatusDegraded, Message: msg, Details: details, CheckedAt: time.Now()}
}

// Unavailable builds a status for a failed self test.
func Unavailable(p Name, msg string) HealthStatus {
	return HealthStatus{Provider: p, Status: StatusUnavailable, Message: msg, CheckedAt: time.Now()}
}
