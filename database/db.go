package database

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/observability"
	"github.com/kbukum/phrame/resilience"
)

// DB is the sqlite handle shared by the Store and the migrations.
type DB struct {
	GormDB *gorm.DB
	log    *logger.Logger
	closed atomic.Bool
}

// Open connects to sqlite, trying up to cfg.MaxRetries times with a linear
// backoff. It gives up early when ctx ends.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("database")

	slow, _ := time.ParseDuration(cfg.SlowQueryThreshold)
	gcfg := &gorm.Config{Logger: newGormLogger(log, slow, parseLogLevel(cfg.LogLevel))}

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.DSN, err)
		}
		db, err := connect(ctx, cfg, gcfg)
		if err == nil {
			log.Info("database open", logger.Fields("dsn", cfg.DSN, "attempt", attempt))
			return &DB{GormDB: db, log: log}, nil
		}
		lastErr = err
		if attempt == cfg.MaxRetries {
			break
		}
		wait := time.Duration(attempt) * time.Second
		log.Warn("database open failed", logger.Fields("attempt", attempt, logger.FieldError, err.Error(), "retry_in", wait.String()))
		if err := resilience.Sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.DSN, err)
		}
	}
	return nil, fmt.Errorf("open %s after %d attempts: %w", cfg.DSN, cfg.MaxRetries, lastErr)
}

func connect(ctx context.Context, cfg Config, gcfg *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.DSN), gcfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	if life, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
		sqlDB.SetConnMaxLifetime(life)
	}
	return db, nil
}

// Close releases the pool. Later calls are no-ops.
func (d *DB) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	d.log.Debug("closing database")
	return sqlDB.Close()
}

// WithContext returns a GORM session bound to ctx.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.GormDB.WithContext(ctx)
}

// AutoMigrate creates or alters the tables of Models.
func (d *DB) AutoMigrate() error {
	if err := d.GormDB.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// WithTransaction commits when fn returns nil and rolls back otherwise.
func (d *DB) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.GormDB.WithContext(ctx).Transaction(fn)
}

// CheckHealth pings with a two second budget and reports pool usage.
func (d *DB) CheckHealth(ctx context.Context) observability.Health {
	h := observability.Health{Name: "database", Status: observability.HealthStatusDown}
	if d.closed.Load() {
		h.Message = "closed"
		return h
	}
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		h.Message = err.Error()
		return h
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		h.Message = err.Error()
		return h
	}
	stats := sqlDB.Stats()
	h.Status = observability.HealthStatusUp
	h.Details = map[string]string{
		"open":   strconv.Itoa(stats.OpenConnections),
		"in_use": strconv.Itoa(stats.InUse),
		"idle":   strconv.Itoa(stats.Idle),
	}
	return h
}

var _ observability.HealthChecker = (*DB)(nil)
