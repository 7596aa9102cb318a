package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/kbukum/phrame/errors"
	"github.com/kbukum/phrame/resilience"
)

// RateLimitConfig configures per-client rate limiting.
type RateLimitConfig struct {
	// Rate is the sustained number of requests per second per key.
	Rate float64 `yaml:"rate" mapstructure:"rate"`
	// Burst is the number of requests a quiet key may send at once.
	Burst int `yaml:"burst" mapstructure:"burst"`
	// KeyFunc extracts the key from a request. Defaults to the client IP.
	KeyFunc func(*http.Request) string `yaml:"-" mapstructure:"-"`
}

// idleLimiter is how long an unused key keeps its bucket.
const idleLimiter = 10 * time.Minute

type keyedLimiter struct {
	limiter  *resilience.RateLimiter
	lastSeen time.Time
}

// RateLimit returns middleware that keeps one token bucket per key and
// answers 429 with a Retry-After header once a bucket is empty.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Rate <= 0 {
		cfg.Rate = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}

	var (
		mu       sync.Mutex
		limiters = make(map[string]*keyedLimiter)
	)
	get := func(key string, now time.Time) *resilience.RateLimiter {
		mu.Lock()
		defer mu.Unlock()
		for k, l := range limiters {
			if now.Sub(l.lastSeen) > idleLimiter {
				delete(limiters, k)
			}
		}
		l, ok := limiters[key]
		if !ok {
			l = &keyedLimiter{limiter: resilience.NewRateLimiter(resilience.RateLimiterConfig{
				Name:  "http:" + key,
				Rate:  cfg.Rate,
				Burst: cfg.Burst,
			})}
			limiters[key] = l
		}
		l.lastSeen = now
		return l.limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := get(cfg.KeyFunc(r), time.Now())
			if !l.Allow() {
				secs := max(1, int(math.Ceil(l.RetryAfter().Seconds())))
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(apperrors.RateLimited().Envelope())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the host part of the request's remote address.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
