package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("Endpoint = %s", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("SampleRate = %f", cfg.SampleRate)
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("Interval = %v", cfg.Interval)
	}
	if err := (&Config{SampleRate: 1.5}).Validate(); err == nil {
		t.Error("expected error for sample rate above 1")
	}
}

func TestSetupDisabled(t *testing.T) {
	metrics, shutdown, err := Setup(context.Background(), Config{}, "phrame-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metrics == nil {
		t.Fatal("expected metrics even when export is disabled")
	}
	metrics.ImagesSaved(context.Background(), "openai", "cinematic", 2)
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestSetupRejectsBadSampleRate(t *testing.T) {
	if _, _, err := Setup(context.Background(), Config{SampleRate: -1}, "phrame-test"); err == nil {
		t.Error("expected error")
	}
}

// installTracer routes the global tracer provider to an in-memory exporter
// for the duration of the test.
func installTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[md.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					sums[md.Name] += int64(dp.Count)
				}
			}
		}
	}
	return sums
}

func TestMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	m.RequestStarted(ctx)
	m.RequestDone(ctx, "GET", "/api/state", 200, 10*time.Millisecond)
	m.ProviderCall(ctx, "dream", "generate_images", nil, 50*time.Millisecond)
	m.ProviderCall(ctx, "dream", "generate_images", errors.New("503"), time.Millisecond)
	m.ImagesSaved(ctx, "dream", "surreal", 0)
	m.ImagesSaved(ctx, "dream", "surreal", 3)
	m.CycleDone(ctx, SpanGenerateImages, nil, time.Second)

	got := collect(t, reader)
	want := map[string]int64{
		"phrame.http.requests":     1,
		"phrame.http.in_flight":    0,
		"phrame.provider.calls":    2,
		"phrame.provider.duration": 2,
		"phrame.errors":            1,
		"phrame.images":            3,
		"phrame.cycles":            1,
	}
	for name, n := range want {
		if got[name] != n {
			t.Errorf("%s = %d, want %d", name, got[name], n)
		}
	}
}

func TestMetrics_NilRecordsNothing(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RequestStarted(ctx)
	m.RequestDone(ctx, "GET", "/", 200, 0)
	m.ProviderCall(ctx, "openai", "summary", nil, 0)
	m.Failure(ctx, "x", "y")
	m.CycleDone(ctx, "c", nil, 0)
	m.ImagesSaved(ctx, "openai", "s", 1)
}

func TestOperation(t *testing.T) {
	exporter := installTracer(t)

	ctx, op := StartOperation(context.Background(), nil, SpanGenerateImages, "sum-1")
	if !SpanFromContext(ctx).SpanContext().IsValid() {
		t.Fatal("expected a span in the returned context")
	}
	op.End(ctx, 3, errors.New("partial"))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	attrs := map[string]any{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	if attrs[AttrImageCount] != int64(3) || attrs[AttrSummaryID] != "sum-1" {
		t.Errorf("attributes = %v", attrs)
	}
	if spans[0].Status.Code != codes.Error || len(spans[0].Events) == 0 {
		t.Errorf("status = %v, events = %d", spans[0].Status, len(spans[0].Events))
	}
	if op.Elapsed() <= 0 {
		t.Error("expected positive elapsed time")
	}
}

func TestSetSpanAttributeAndError(t *testing.T) {
	exporter := installTracer(t)

	ctx, span := StartSpan(context.Background(), "op")
	SetSpanAttribute(ctx, AttrProvider, "leonardoai")
	SetSpanAttribute(ctx, AttrImageCount, 2)
	SetSpanAttribute(ctx, "styles", []string{"a", "b"})
	SetSpanAttribute(ctx, "ignored", struct{}{})
	SetSpanError(ctx, errors.New("boom"))
	SetSpanError(ctx, nil)
	span.End()

	got := exporter.GetSpans()[0]
	if len(got.Attributes) != 3 {
		t.Errorf("expected 3 attributes, got %d", len(got.Attributes))
	}
	if len(got.Events) != 1 {
		t.Errorf("expected 1 error event, got %d", len(got.Events))
	}
}

func TestSetSpanAttributeNoSpan(t *testing.T) {
	SetSpanAttribute(context.Background(), "key", "value")
	SetSpanError(context.Background(), errors.New("ignored"))
	if SpanFromContext(context.Background()).SpanContext().IsValid() {
		t.Error("expected invalid span context")
	}
}

func TestSampler(t *testing.T) {
	for rate, want := range map[float64]string{1: "AlwaysOnSampler", 0: "AlwaysOffSampler", 0.5: "TraceIDRatioBased"} {
		if got := sampler(rate).Description(); !strings.Contains(got, want) {
			t.Errorf("sampler(%v) = %s, want %s", rate, got, want)
		}
	}
}

func TestCollect(t *testing.T) {
	up := CheckFunc(func(context.Context) Health { return Health{Name: "database", Status: HealthStatusUp} })
	degraded := CheckFunc(func(context.Context) Health { return Health{Name: "redis", Status: HealthStatusDegraded} })
	down := CheckFunc(func(context.Context) Health { return Health{Name: "storage", Status: HealthStatusDown} })

	tests := []struct {
		name     string
		checkers []HealthChecker
		want     HealthStatus
	}{
		{"no components", nil, HealthStatusUp},
		{"all up", []HealthChecker{up}, HealthStatusUp},
		{"degraded", []HealthChecker{up, degraded}, HealthStatusDegraded},
		{"down wins", []HealthChecker{down, degraded}, HealthStatusDown},
		{"nil skipped", []HealthChecker{nil, up}, HealthStatusUp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh := Collect(context.Background(), "phrame", "1.0.0", tt.checkers...)
			if sh.Status != tt.want {
				t.Errorf("status = %s, want %s", sh.Status, tt.want)
			}
		})
	}
}
