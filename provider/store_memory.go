package provider

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Expired entries are dropped on Load.
type MemoryStore[C any] struct {
	mu    sync.Mutex
	items map[string]memEntry[C]
	now   func() time.Time
}

type memEntry[C any] struct {
	val       C
	expiresAt time.Time // zero means no expiration
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore[C any]() *MemoryStore[C] {
	return &MemoryStore[C]{
		items: make(map[string]memEntry[C]),
		now:   time.Now,
	}
}

// WithClock replaces the time source. Tests use it to expire entries.
func (s *MemoryStore[C]) WithClock(now func() time.Time) *MemoryStore[C] {
	s.now = now
	return s
}

// Load returns a copy of the stored value, or nil when missing or expired.
func (s *MemoryStore[C]) Load(_ context.Context, key string) (*C, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.items, key)
		return nil, nil
	}
	v := entry.val
	return &v, nil
}

// Save stores a copy of val.
func (s *MemoryStore[C]) Save(_ context.Context, key string, val *C, ttl time.Duration) error {
	if val == nil {
		return s.Delete(context.Background(), key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memEntry[C]{val: *val}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.items[key] = entry
	return nil
}

// Delete removes key.
func (s *MemoryStore[C]) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

var _ Store[any] = (*MemoryStore[any])(nil)
