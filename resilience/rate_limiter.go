package resilience

import (
	"sync"
	"time"
)

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	// Name identifies the bucket in logs.
	Name string
	// Rate is the number of tokens added per second.
	Rate float64
	// Burst is the bucket capacity. Defaults to Rate, at least 1.
	Burst int
}

// RateLimiter is a token bucket. A full bucket lets Burst requests through
// at once; after that requests are admitted at Rate per second.
type RateLimiter struct {
	cfg RateLimiterConfig
	now func() time.Time

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewRateLimiter creates a full bucket.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	return newRateLimiter(cfg, time.Now)
}

func newRateLimiter(cfg RateLimiterConfig, now func() time.Time) *RateLimiter {
	if cfg.Rate <= 0 {
		cfg.Rate = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = max(1, int(cfg.Rate))
	}
	return &RateLimiter{cfg: cfg, now: now, tokens: float64(cfg.Burst), last: now()}
}

// Name returns the configured name.
func (rl *RateLimiter) Name() string { return rl.cfg.Name }

// Allow takes a token if one is available.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}

// RetryAfter returns how long until the next token is available. It is
// zero when a token is available now.
func (rl *RateLimiter) RetryAfter() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	if rl.tokens >= 1 {
		return 0
	}
	return Seconds((1 - rl.tokens) / rl.cfg.Rate)
}

// Tokens returns the tokens currently in the bucket.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

func (rl *RateLimiter) refill() {
	now := rl.now()
	rl.tokens = min(float64(rl.cfg.Burst), rl.tokens+now.Sub(rl.last).Seconds()*rl.cfg.Rate)
	rl.last = now
}
