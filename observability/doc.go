// Package observability wires OpenTelemetry tracing and metrics for phrame.
//
// Setup installs OTLP HTTP exporters when enabled and always returns usable
// *Metrics; with export disabled the instruments are bound to the global
// no-op meter:
//
//	metrics, shutdown, err := observability.Setup(ctx, cfg.Observability, "phrame")
//	defer shutdown(ctx)
//
// A generation cycle is one Operation:
//
//	ctx, op := observability.StartOperation(ctx, metrics, observability.SpanGenerateImages, summaryID)
//	defer op.End(ctx, len(images), err)
//
// Collect aggregates component health for the /health endpoint.
package observability
