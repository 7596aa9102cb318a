// Package resilience implements the attempt handler every provider call and
// image download runs through.
//
// An operation is called up to MaxAttempts times (3 by default). After the
// n-th failure the handler sleeps Jitter(1, 5)·(n+1) seconds. Failures are
// absorbed: once the ceiling is passed the caller gets (zero, false) and a
// single "retries exhausted" warning is logged.
//
//	a := resilience.NewAttempter(resilience.DefaultAttemptConfig(), log)
//	summary, ok := resilience.Attempt(ctx, a, "summary", func(ctx context.Context) (string, error) {
//	    return client.Summarize(ctx, transcripts)
//	})
//
// The package also holds the guards around shared dependencies: a
// CircuitBreaker for the Redis event channel, a Bulkhead capping concurrent
// image saves and the token bucket RateLimiter behind the HTTP rate limit.
package resilience
