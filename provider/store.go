package provider

import (
	"context"
	"time"
)

// Store is typed key-value persistence with optional expiry. It backs the
// runtime state and provider status caches; redis.TypedStore is the shared
// implementation and MemoryStore the in-process one.
//
// TTL of 0 means no expiration.
type Store[C any] interface {
	// Load retrieves a value. Returns (nil, nil) if the key doesn't exist.
	Load(ctx context.Context, key string) (*C, error)
	Save(ctx context.Context, key string, val *C, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
