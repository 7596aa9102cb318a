package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Jitter returns a uniform random number of seconds in [lo, hi), rounded
// to two decimals.
func Jitter(lo, hi float64) float64 {
	return jitterFrom(rand.Float64, lo, hi)
}

func jitterFrom(rnd func() float64, lo, hi float64) float64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	return math.Round((rnd()*(hi-lo)+lo)*100) / 100
}

// Seconds converts a fractional number of seconds to a Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep blocks for d. It returns ctx.Err() if the context ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
