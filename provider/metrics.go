package provider

import (
	"context"
	"time"

	"github.com/kbukum/phrame/observability"
)

// WithMetrics counts and times each Execute as a generate_images call. It
// returns nil for nil metrics, which Chain skips.
func WithMetrics[I, O any](metrics *observability.Metrics) Middleware[I, O] {
	if metrics == nil {
		return nil
	}
	return intercept(func(ctx context.Context, inner RequestResponse[I, O], input I) (O, error) {
		start := time.Now()
		output, err := inner.Execute(ctx, input)
		metrics.ProviderCall(ctx, inner.Name(), "generate_images", err, time.Since(start))
		return output, err
	})
}
