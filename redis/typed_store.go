package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/phrame/provider"
)

// TypedStore keeps values of type C as JSON strings under a key prefix.
// Every phrame process pointed at the same Redis shares them, which is how
// the runtime switches and provider health survive restarts.
type TypedStore[C any] struct {
	client *Client
	prefix string
}

// NewTypedStore stores values under "prefix:key". An empty prefix uses
// bare keys.
func NewTypedStore[C any](client *Client, prefix string) *TypedStore[C] {
	return &TypedStore[C]{client: client, prefix: strings.TrimSuffix(prefix, ":")}
}

func (s *TypedStore[C]) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

// Load returns nil without error when the key is absent or expired.
func (s *TypedStore[C]) Load(ctx context.Context, k string) (*C, error) {
	raw, err := s.client.Get(ctx, s.key(k))
	switch {
	case stderrors.Is(err, goredis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("load %s: %w", s.key(k), err)
	}
	v := new(C)
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.key(k), err)
	}
	return v, nil
}

// Save replaces the value. ttl <= 0 keeps it until deleted.
func (s *TypedStore[C]) Save(ctx context.Context, k string, v *C, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.key(k), err)
	}
	if err := s.client.Set(ctx, s.key(k), raw, max(ttl, 0)); err != nil {
		return fmt.Errorf("save %s: %w", s.key(k), err)
	}
	return nil
}

// Delete removes the value. Deleting an absent key is not an error.
func (s *TypedStore[C]) Delete(ctx context.Context, k string) error {
	if err := s.client.Del(ctx, s.key(k)); err != nil {
		return fmt.Errorf("delete %s: %w", s.key(k), err)
	}
	return nil
}

var _ provider.Store[any] = (*TypedStore[any])(nil)
