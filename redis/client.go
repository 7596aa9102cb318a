package redis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/observability"
)

// Client is the subset of Redis phrame needs: string keys for the typed
// stores and one pub/sub channel for events.
type Client struct {
	rdb    *goredis.Client
	log    *logger.Logger
	cfg    Config
	closed atomic.Bool
}

// New builds a client without dialing. Ping checks reachability.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if !cfg.Enabled {
		return nil, errors.New("redis is disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redis config: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}

	opts := &goredis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	// Validate has already parsed these.
	opts.DialTimeout, _ = time.ParseDuration(cfg.DialTimeout)
	opts.ReadTimeout, _ = time.ParseDuration(cfg.ReadTimeout)
	opts.WriteTimeout, _ = time.ParseDuration(cfg.WriteTimeout)

	return &Client{rdb: goredis.NewClient(opts), log: log.WithComponent("redis"), cfg: cfg}, nil
}

// Config returns the configuration with defaults applied.
func (c *Client) Config() Config { return c.cfg }

// Ping round-trips a PING.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", c.cfg.Addr, err)
	}
	return nil
}

// Get returns goredis.Nil for a missing key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

// Set stores value under key. A zero ttl keeps it forever.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// Publish returns the number of subscribers that received message.
func (c *Client) Publish(ctx context.Context, channel string, message any) (int64, error) {
	return c.rdb.Publish(ctx, channel, message).Result()
}

// Subscribe opens a subscription the caller must close.
func (c *Client) Subscribe(ctx context.Context, channels ...string) *goredis.PubSub {
	return c.rdb.Subscribe(ctx, channels...)
}

// CheckHealth reports down when a PING does not answer within two seconds.
func (c *Client) CheckHealth(ctx context.Context) observability.Health {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	h := observability.Health{
		Name:    "redis",
		Status:  observability.HealthStatusUp,
		Details: map[string]string{"addr": c.cfg.Addr},
	}
	if err := c.Ping(ctx); err != nil {
		h.Status, h.Message = observability.HealthStatusDown, err.Error()
	}
	return h
}

// Close is idempotent and nil-safe.
func (c *Client) Close() error {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.log.Debug("closing connection pool")
	return c.rdb.Close()
}

var _ observability.HealthChecker = (*Client)(nil)
