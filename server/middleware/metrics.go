package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/phrame/observability"
)

// Metrics records request counts and durations on m. A nil m records
// nothing. The event stream is skipped since it stays open for the life of
// the client.
func Metrics(m *observability.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/events" {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			m.RequestStarted(r.Context())
			rec := record(w)
			next.ServeHTTP(rec, r)
			m.RequestDone(r.Context(), r.Method, routeLabel(r.URL.Path), rec.Status(), time.Since(start))
		})
	}
}

// routeLabel keeps metric labels bounded: path segments holding digits,
// such as ids and image names, become ":id".
func routeLabel(path string) string {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segs {
		if strings.ContainsAny(s, "0123456789") {
			segs[i] = ":id"
		}
	}
	return "/" + strings.Join(segs, "/")
}
