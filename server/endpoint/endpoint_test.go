package endpoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/phrame/observability"
)

func check(name string, status observability.HealthStatus) observability.HealthChecker {
	return observability.CheckFunc(func(context.Context) observability.Health {
		return observability.Health{Name: name, Status: status}
	})
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name       string
		checkers   []observability.HealthChecker
		wantCode   int
		wantStatus string
	}{
		{"no checkers", nil, http.StatusOK, "up"},
		{"all up", []observability.HealthChecker{check("database", observability.HealthStatusUp)}, http.StatusOK, "up"},
		{"degraded", []observability.HealthChecker{
			check("database", observability.HealthStatusUp),
			check("redis", observability.HealthStatusDegraded),
		}, http.StatusOK, "degraded"},
		{"down", []observability.HealthChecker{
			check("database", observability.HealthStatusDown),
			check("redis", observability.HealthStatusDegraded),
		}, http.StatusServiceUnavailable, "down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := gin.New()
			engine.GET("/health", Health("phrame", "dev", tt.checkers...))
			rr := httptest.NewRecorder()
			engine.ServeHTTP(rr, httptest.NewRequest("GET", "/health", http.NoBody))

			if rr.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rr.Code, tt.wantCode)
			}
			var body struct {
				Status     string                 `json:"status"`
				Components []observability.Health `json:"components"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tt.wantStatus)
			}
			if len(body.Components) != len(tt.checkers) {
				t.Errorf("components = %d, want %d", len(body.Components), len(tt.checkers))
			}
		})
	}
}

func TestLivenessAndInfo(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/alive", Liveness("phrame"))
	engine.GET("/info", Info("phrame"))

	for _, path := range []string{"/alive", "/info"} {
		rr := httptest.NewRecorder()
		engine.ServeHTTP(rr, httptest.NewRequest("GET", path, http.NoBody))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: code = %d", path, rr.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body["service"] != "phrame" {
			t.Errorf("%s: service = %v", path, body["service"])
		}
	}
}
