package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/phrame/logger"
)

// slowRequest marks requests worth a second look in the logs.
const slowRequest = 500 * time.Millisecond

// RequestLogger returns middleware that logs every request with method,
// path, status code and duration. Probe paths and the event stream are
// skipped.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isQuietPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, r)
			duration := time.Since(start)

			fields := map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.Status(),
				"bytes":       rec.bytes,
				"duration_ms": duration.Milliseconds(),
			}
			if id := r.Header.Get(RequestIDHeader); id != "" {
				fields["request_id"] = id
			}
			if duration > slowRequest {
				fields["slow"] = true
			}
			logByStatus(log, fields, rec.Status())
		})
	}
}

func isQuietPath(path string) bool {
	switch path {
	case "/health", "/alive", "/api/events":
		return true
	}
	return false
}

func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("request completed", fields)
	case status >= 400:
		log.Warn("request completed", fields)
	default:
		log.Debug("request completed", fields)
	}
}
