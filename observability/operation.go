package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Operation is one generation cycle seen by tracing and metrics.
type Operation struct {
	name    string
	start   time.Time
	span    trace.Span
	metrics *Metrics
}

// StartOperation opens a span named name for summaryID. metrics may be nil.
func StartOperation(ctx context.Context, metrics *Metrics, name, summaryID string) (context.Context, *Operation) {
	ctx, span := StartSpan(ctx, name)
	span.SetAttributes(keyValues(AttrOperation, name, AttrSummaryID, summaryID)...)
	return ctx, &Operation{name: name, start: time.Now(), span: span, metrics: metrics}
}

// End closes the span with the number of images produced and records the
// cycle. It is safe to call once.
func (op *Operation) End(ctx context.Context, images int, err error) {
	took := time.Since(op.start)
	op.span.SetAttributes(keyValues(AttrImageCount, images)...)
	SetSpanError(trace.ContextWithSpan(ctx, op.span), err)
	op.span.End()
	op.metrics.CycleDone(ctx, op.name, err, took)
}

// Elapsed returns the time since the operation started.
func (op *Operation) Elapsed() time.Duration { return time.Since(op.start) }

func keyValues(pairs ...any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(pairs)/2)
	for i := 1; i < len(pairs); i += 2 {
		key, _ := pairs[i-1].(string)
		if kv, ok := keyValue(key, pairs[i]); ok {
			out = append(out, kv)
		}
	}
	return out
}
