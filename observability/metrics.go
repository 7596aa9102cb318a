package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics are the instruments phrame records: HTTP requests, provider
// calls, generation cycles and saved images. A nil *Metrics records nothing.
type Metrics struct {
	requests        metric.Int64Counter
	requestDuration metric.Float64Histogram
	inFlight        metric.Int64UpDownCounter
	calls           metric.Int64Counter
	callDuration    metric.Float64Histogram
	failures        metric.Int64Counter
	cycles          metric.Int64Counter
	cycleDuration   metric.Float64Histogram
	images          metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	counter := func(dst *metric.Int64Counter, name, desc string) {
		if err == nil {
			*dst, err = meter.Int64Counter(name, metric.WithDescription(desc))
			err = wrapInstrument(name, err)
		}
	}
	seconds := func(dst *metric.Float64Histogram, name, desc string) {
		if err == nil {
			*dst, err = meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
			err = wrapInstrument(name, err)
		}
	}

	counter(&m.requests, "phrame.http.requests", "HTTP requests by route and status class")
	seconds(&m.requestDuration, "phrame.http.duration", "HTTP request duration")
	if err == nil {
		m.inFlight, err = meter.Int64UpDownCounter("phrame.http.in_flight", metric.WithDescription("HTTP requests being served"))
		err = wrapInstrument("phrame.http.in_flight", err)
	}
	counter(&m.calls, "phrame.provider.calls", "Provider calls by provider, operation and status")
	seconds(&m.callDuration, "phrame.provider.duration", "Provider call duration")
	counter(&m.failures, "phrame.errors", "Errors by kind and source")
	counter(&m.cycles, "phrame.cycles", "Generation cycles by operation and status")
	seconds(&m.cycleDuration, "phrame.cycle.duration", "Generation cycle duration")
	counter(&m.images, "phrame.images", "Images saved by provider and style")
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func wrapInstrument(name string, err error) error {
	if err != nil {
		return fmt.Errorf("instrument %s: %w", name, err)
	}
	return nil
}

// RequestStarted counts a request as in flight.
func (m *Metrics) RequestStarted(ctx context.Context) {
	if m != nil {
		m.inFlight.Add(ctx, 1)
	}
}

// RequestDone records a finished request. status is the HTTP code.
func (m *Metrics) RequestDone(ctx context.Context, method, route string, status int, took time.Duration) {
	if m == nil {
		return
	}
	where := metric.WithAttributes(attribute.String("method", method), attribute.String("route", route))
	m.inFlight.Add(ctx, -1)
	m.requests.Add(ctx, 1, where, metric.WithAttributes(attribute.String("status", fmt.Sprintf("%dxx", status/100))))
	m.requestDuration.Record(ctx, took.Seconds(), where)
}

// ProviderCall records one call to a provider.
func (m *Metrics) ProviderCall(ctx context.Context, provider, operation string, err error, took time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("provider", provider), attribute.String("operation", operation)}
	m.callDuration.Record(ctx, took.Seconds(), metric.WithAttributes(attrs...))
	m.calls.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("status", status(err)))...))
	if err != nil {
		m.Failure(ctx, operation, provider)
	}
}

// Failure counts an error of kind raised by source.
func (m *Metrics) Failure(ctx context.Context, kind, source string) {
	if m != nil {
		m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind), attribute.String("source", source)))
	}
}

// CycleDone records a finished generation cycle.
func (m *Metrics) CycleDone(ctx context.Context, operation string, err error, took time.Duration) {
	if m == nil {
		return
	}
	op := attribute.String("operation", operation)
	m.cycles.Add(ctx, 1, metric.WithAttributes(op, attribute.String("status", status(err))))
	m.cycleDuration.Record(ctx, took.Seconds(), metric.WithAttributes(op))
}

// ImagesSaved counts n images saved for provider and style.
func (m *Metrics) ImagesSaved(ctx context.Context, provider, style string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.images.Add(ctx, int64(n), metric.WithAttributes(attribute.String("provider", provider), attribute.String("style", style)))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
