package provider

import "context"

// RequestResponse represents a provider that takes one input and returns
// one output. The middleware in this package wraps it.
type RequestResponse[I, O any] interface {
	Provider
	Execute(ctx context.Context, input I) (O, error)
}

// generatorRR exposes an ImageGenerator as a RequestResponse so the
// middleware chain can wrap single-style generation.
type generatorRR struct {
	gen ImageGenerator
}

// AsRequestResponse adapts gen to the RequestResponse contract.
func AsRequestResponse(gen ImageGenerator) RequestResponse[ImageRequest, []GeneratedImage] {
	return generatorRR{gen: gen}
}

func (g generatorRR) Name() string                         { return g.gen.Name() }
func (g generatorRR) IsAvailable(ctx context.Context) bool { return g.gen.IsAvailable(ctx) }

func (g generatorRR) Execute(ctx context.Context, req ImageRequest) ([]GeneratedImage, error) {
	return g.gen.GenerateImages(ctx, req)
}
