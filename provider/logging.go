package provider

import (
	"context"
	"time"

	"github.com/kbukum/phrame/logger"
)

// WithLogging logs the duration and outcome of each Execute at debug level.
func WithLogging[I, O any](log *logger.Logger) Middleware[I, O] {
	return intercept(func(ctx context.Context, inner RequestResponse[I, O], input I) (O, error) {
		start := time.Now()
		output, err := inner.Execute(ctx, input)

		fields := logger.Outcome("execute", time.Since(start), err)
		fields[logger.FieldProvider] = inner.Name()
		if req, ok := any(input).(ImageRequest); ok {
			fields[logger.FieldStyle] = req.Style
		}
		msg := "provider execute ok"
		if err != nil {
			msg = "provider execute failed"
		}
		log.Debug(msg, fields)
		return output, err
	})
}
