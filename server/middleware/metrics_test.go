package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/kbukum/phrame/observability"
	"github.com/kbukum/phrame/server/middleware"
)

func TestMetrics_RecordsRequests(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())
	m, err := observability.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}

	handler := middleware.Metrics(m)(okHandler(http.StatusAccepted))
	for _, path := range []string{"/api/transcripts/process", "/api/events"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", path, http.NoBody))
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	var requests int64
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != "phrame.http.requests" {
				continue
			}
			for _, dp := range md.Data.(metricdata.Sum[int64]).DataPoints {
				requests += dp.Value
			}
		}
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1 (event stream skipped)", requests)
	}
}

func TestMetrics_NilIsPassThrough(t *testing.T) {
	rr := httptest.NewRecorder()
	middleware.Metrics(nil)(okHandler(http.StatusTeapot)).ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))
	if rr.Code != http.StatusTeapot {
		t.Errorf("code = %d", rr.Code)
	}
}
