package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/phrame/component"
	"github.com/kbukum/phrame/database/migration"
	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/observability"
)

var (
	_ component.Component         = (*Component)(nil)
	_ component.Describable       = (*Component)(nil)
	_ observability.HealthChecker = (*Component)(nil)
)

// Component opens the database on Start and brings the schema up to date,
// through GORM auto-migration when AutoMigrate is set and the versioned
// migrations otherwise.
type Component struct {
	cfg Config
	log *logger.Logger

	mu sync.RWMutex
	db *DB
}

// NewComponent creates a database component for the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log}
}

// DB returns the open database, or nil before Start.
func (c *Component) DB() *DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

func (c *Component) Name() string { return "database" }

func (c *Component) Start(ctx context.Context) error {
	db, err := Open(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}
	if c.cfg.AutoMigrate {
		err = db.AutoMigrate()
	} else {
		err = migration.Up(db.GormDB)
	}
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("database migrate: %w", err)
	}

	c.mu.Lock()
	c.db = db
	c.mu.Unlock()
	return nil
}

func (c *Component) Stop(context.Context) error {
	db := c.DB()
	if db == nil {
		return nil
	}
	return db.Close()
}

func (c *Component) CheckHealth(ctx context.Context) observability.Health {
	db := c.DB()
	if db == nil {
		return observability.Health{Name: "database", Status: observability.HealthStatusDown, Message: "not started"}
	}
	return db.CheckHealth(ctx)
}

func (c *Component) Describe() component.Description {
	return component.Description{Name: "SQLite", Type: "database", Details: c.cfg.DSN}
}
