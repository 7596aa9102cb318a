package provider

import "context"

// Middleware transforms a RequestResponse provider by wrapping it.
type Middleware[I, O any] func(RequestResponse[I, O]) RequestResponse[I, O]

// Chain composes middlewares. The first is outermost:
// Chain(a, b, c)(p) is a(b(c(p))). Nil entries are skipped.
func Chain[I, O any](middlewares ...Middleware[I, O]) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		for i := len(middlewares) - 1; i >= 0; i-- {
			if middlewares[i] != nil {
				inner = middlewares[i](inner)
			}
		}
		return inner
	}
}

// around keeps the wrapped provider's Name and IsAvailable and replaces
// Execute with exec.
type around[I, O any] struct {
	RequestResponse[I, O]
	exec func(ctx context.Context, input I) (O, error)
}

func (a *around[I, O]) Execute(ctx context.Context, input I) (O, error) {
	return a.exec(ctx, input)
}

// intercept builds a Middleware from a function that receives the inner
// provider along with each call.
func intercept[I, O any](fn func(ctx context.Context, inner RequestResponse[I, O], input I) (O, error)) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &around[I, O]{
			RequestResponse: inner,
			exec: func(ctx context.Context, input I) (O, error) {
				return fn(ctx, inner, input)
			},
		}
	}
}
