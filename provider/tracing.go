package provider

import (
	"context"

	"github.com/kbukum/phrame/observability"
)

// WithTracing opens a span named "{serviceName}.{provider}" around each
// Execute and tags it with the request's style and summary.
func WithTracing[I, O any](serviceName string) Middleware[I, O] {
	return intercept(func(ctx context.Context, inner RequestResponse[I, O], input I) (O, error) {
		ctx, span := observability.StartSpan(ctx, serviceName+"."+inner.Name())
		defer span.End()

		observability.SetSpanAttribute(ctx, observability.AttrProvider, inner.Name())
		if req, ok := any(input).(ImageRequest); ok {
			observability.SetSpanAttribute(ctx, observability.AttrStyle, req.Style)
			observability.SetSpanAttribute(ctx, observability.AttrSummaryID, req.SummaryID)
		}
		output, err := inner.Execute(ctx, input)
		if err != nil {
			observability.SetSpanError(ctx, err)
		}
		if images, ok := any(output).([]GeneratedImage); ok {
			observability.SetSpanAttribute(ctx, observability.AttrImageCount, len(images))
		}
		return output, err
	})
}
