package provider

import "context"

// Closeable is implemented by providers that hold resources requiring
// explicit cleanup, such as idle HTTP connections or a gateway session.
// Registry.Close calls it during shutdown.
type Closeable interface {
	Close(ctx context.Context) error
}
