package resilience

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/kbukum/phrame/errors"
	"github.com/kbukum/phrame/logger"
)

// AttemptConfig configures the attempt handler shared by every provider
// operation.
type AttemptConfig struct {
	// MaxAttempts is the number of calls made before an operation is abandoned.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=0,lte=10"`
	// JitterMin and JitterMax bound the random backoff unit in seconds.
	JitterMin float64 `yaml:"jitter_min" mapstructure:"jitter_min" validate:"gte=0"`
	JitterMax float64 `yaml:"jitter_max" mapstructure:"jitter_max" validate:"gte=0"`
}

// DefaultAttemptConfig returns three attempts with a 1-5s jitter unit.
func DefaultAttemptConfig() AttemptConfig {
	return AttemptConfig{MaxAttempts: 3, JitterMin: 1, JitterMax: 5}
}

// ApplyDefaults fills zero values with the defaults.
func (c *AttemptConfig) ApplyDefaults() {
	d := DefaultAttemptConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.JitterMin == 0 && c.JitterMax == 0 {
		c.JitterMin, c.JitterMax = d.JitterMin, d.JitterMax
	}
}

// AttemptState is the counter of one retry-wrapped invocation.
type AttemptState struct {
	Attempt     int
	MaxAttempts int
}

// Exhausted reports whether the attempt counter passed the ceiling.
func (s AttemptState) Exhausted() bool {
	return s.Attempt > s.MaxAttempts
}

// Attempter runs operations with bounded attempts and jittered backoff.
// Failures are logged and absorbed; callers get (zero, false) once the
// ceiling is reached. An Attempter holds no per-call state and is safe for
// concurrent use.
type Attempter struct {
	cfg      AttemptConfig
	log      *logger.Logger
	describe func(error) string
	sleep    SleepFunc
	rnd      func() float64
}

// AttempterOption customizes an Attempter.
type AttempterOption func(*Attempter)

// WithSleep replaces the wait function. Tests use it to skip real sleeps.
func WithSleep(fn SleepFunc) AttempterOption {
	return func(a *Attempter) { a.sleep = fn }
}

// WithRand replaces the [0,1) random source used for jitter.
func WithRand(fn func() float64) AttempterOption {
	return func(a *Attempter) { a.rnd = fn }
}

// WithDescriber sets the function that renders errors for the failure log.
func WithDescriber(fn func(error) string) AttempterOption {
	return func(a *Attempter) { a.describe = fn }
}

// NewAttempter creates an Attempter. A nil logger discards output.
func NewAttempter(cfg AttemptConfig, log *logger.Logger, opts ...AttempterOption) *Attempter {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	a := &Attempter{
		cfg:      cfg,
		log:      log,
		describe: errors.Describe,
		sleep:    Sleep,
		rnd:      rand.Float64,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// For returns a copy that logs through log and describes errors with
// describe. Either argument may be nil to keep the current value.
func (a *Attempter) For(log *logger.Logger, describe func(error) string) *Attempter {
	cp := *a
	if log != nil {
		cp.log = log
	}
	if describe != nil {
		cp.describe = describe
	}
	return &cp
}

// Logger returns the logger the Attempter writes to.
func (a *Attempter) Logger() *logger.Logger {
	return a.log
}

// Config returns the effective configuration.
func (a *Attempter) Config() AttemptConfig {
	return a.cfg
}

// Jitter returns one jitter value in seconds from the configured range.
func (a *Attempter) Jitter() float64 {
	return jitterFrom(a.rnd, a.cfg.JitterMin, a.cfg.JitterMax)
}

// Backoff returns the wait before the given attempt number.
func (a *Attempter) Backoff(attempt int) time.Duration {
	return Seconds(a.Jitter() * float64(attempt))
}

// Pause sleeps a single jitter interval. It is used between styles and
// before upscale requests.
func (a *Attempter) Pause(ctx context.Context) error {
	return a.sleep(ctx, Seconds(a.Jitter()))
}

// Sleep waits for d using the configured sleep function.
func (a *Attempter) Sleep(ctx context.Context, d time.Duration) error {
	return a.sleep(ctx, d)
}

// Attempt calls fn until it succeeds or the attempt ceiling is passed.
//
// Each failure is logged with label and the described error, the counter
// is incremented and, unless exhausted, the call sleeps Backoff(attempt)
// before retrying. On exhaustion "<label> retries exhausted" is logged once
// and (zero, false) is returned. A cancelled context abandons the wait.
func Attempt[T any](ctx context.Context, a *Attempter, label string, fn func(context.Context) (T, error)) (T, bool) {
	var zero T
	state := AttemptState{Attempt: 1, MaxAttempts: a.cfg.MaxAttempts}
	for {
		a.log.Info(fmt.Sprintf("%s attempt: %d", label, state.Attempt))
		v, err := fn(ctx)
		if err == nil {
			return v, true
		}

		a.log.Error(fmt.Sprintf("%s: %s", label, a.describe(err)))
		state.Attempt++
		if state.Exhausted() {
			a.log.Warn(label + " retries exhausted")
			return zero, false
		}
		if err := a.sleep(ctx, a.Backoff(state.Attempt)); err != nil {
			a.log.Warn(fmt.Sprintf("%s abandoned: %s", label, errors.Describe(err)))
			return zero, false
		}
	}
}

// Wrap turns fn into a retry-wrapped function. Every call of the result
// starts its own counter, so concurrent calls share no state.
func Wrap[A, T any](a *Attempter, label string, fn func(context.Context, A) (T, error)) func(context.Context, A) (T, bool) {
	return func(ctx context.Context, arg A) (T, bool) {
		return Attempt(ctx, a, label, func(ctx context.Context) (T, error) {
			return fn(ctx, arg)
		})
	}
}

// Run is Attempt for operations that return only an error.
func Run(ctx context.Context, a *Attempter, label string, fn func(context.Context) error) bool {
	_, ok := Attempt(ctx, a, label, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return ok
}
