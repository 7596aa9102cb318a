// Package migration applies the versioned phrame schema with
// golang-migrate. The SQL files are embedded and run through the sqlite3
// driver against the connection pool of an open GORM database.
//
//	db, _ := database.Open(ctx, cfg, log)
//	err := migration.Up(db.GormDB)
package migration

import (
	"embed"
	stderrors "errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed sql/*.sql
var files embed.FS

// Up runs all pending migrations. No pending migrations is not an error.
func Up(gormDB *gorm.DB) error {
	m, err := newMigrator(gormDB)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down rolls back every migration.
func Down(gormDB *gorm.DB) error {
	m, err := newMigrator(gormDB)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Steps runs n migrations; negative n rolls back.
func Steps(gormDB *gorm.DB, n int) error {
	m, err := newMigrator(gormDB)
	if err != nil {
		return err
	}
	if err := m.Steps(n); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate steps: %w", err)
	}
	return nil
}

// Version returns the applied version and dirty flag. ok is false when no
// migration was applied yet.
func Version(gormDB *gorm.DB) (version uint, dirty, ok bool, err error) {
	m, err := newMigrator(gormDB)
	if err != nil {
		return 0, false, false, err
	}
	version, dirty, err = m.Version()
	if stderrors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, err
	}
	return version, dirty, true, nil
}

// newMigrator builds a migrator over the shared sql.DB. Callers must not
// Close it; that would close the pool GORM uses.
func newMigrator(gormDB *gorm.DB) (*migrate.Migrate, error) {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	driver, err := sqlite3.WithInstance(sqlDB, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("create sqlite3 driver: %w", err)
	}
	source, err := iofs.New(files, "sql")
	if err != nil {
		return nil, fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}
