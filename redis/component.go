package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/phrame/component"
	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/observability"
)

var (
	_ component.Component         = (*Component)(nil)
	_ component.Describable       = (*Component)(nil)
	_ observability.HealthChecker = (*Component)(nil)
)

// Component connects to Redis on Start and fails the start when the
// server does not answer a ping.
type Component struct {
	cfg Config
	log *logger.Logger

	mu     sync.RWMutex
	client *Client
}

// NewComponent creates a Redis component for the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log}
}

// Client returns the connected client, or nil before Start.
func (c *Component) Client() *Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

func (c *Component) Name() string { return "redis" }

func (c *Component) Start(ctx context.Context) error {
	client, err := New(c.cfg, c.log)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis start: %w", err)
	}
	c.mu.Lock()
	c.client = client
	c.mu.Unlock()
	return nil
}

func (c *Component) Stop(context.Context) error {
	return c.Client().Close()
}

func (c *Component) CheckHealth(ctx context.Context) observability.Health {
	client := c.Client()
	if client == nil {
		return observability.Health{Name: "redis", Status: observability.HealthStatusDown, Message: "not started"}
	}
	return client.CheckHealth(ctx)
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Redis",
		Type:    "redis",
		Details: fmt.Sprintf("%s db=%d channel=%s", c.cfg.Addr, c.cfg.DB, c.cfg.Channel),
	}
}
