package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kbukum/phrame/database"
	"github.com/kbukum/phrame/database/migration"
	"github.com/kbukum/phrame/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back the database schema",
}

// withDatabase opens the configured database without migrating it.
func withDatabase(cmd *cobra.Command, fn func(ctx context.Context, db *database.DB) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logger.New(&cfg.Logging, cfg.Name)
	db, err := database.Open(cmd.Context(), cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return fn(cmd.Context(), db)
}

func printVersion(cmd *cobra.Command, db *database.DB) error {
	version, dirty, ok, err := migration.Version(db.GormDB)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch {
	case !ok:
		fmt.Fprintln(out, "no migration applied")
	case dirty:
		fmt.Fprintf(out, "version %d (dirty)\n", version)
	default:
		fmt.Fprintf(out, "version %d\n", version)
	}
	return nil
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDatabase(cmd, func(_ context.Context, db *database.DB) error {
			if err := migration.Up(db.GormDB); err != nil {
				return err
			}
			return printVersion(cmd, db)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDatabase(cmd, func(_ context.Context, db *database.DB) error {
			if err := migration.Down(db.GormDB); err != nil {
				return err
			}
			return printVersion(cmd, db)
		})
	},
}

var migrateStepsCmd = &cobra.Command{
	Use:   "steps <n>",
	Short: "Apply n migrations, or roll back when n is negative",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n == 0 {
			return fmt.Errorf("steps: want a non-zero integer, got %q", args[0])
		}
		return withDatabase(cmd, func(_ context.Context, db *database.DB) error {
			if err := migration.Steps(db.GormDB, n); err != nil {
				return err
			}
			return printVersion(cmd, db)
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDatabase(cmd, func(_ context.Context, db *database.DB) error {
			return printVersion(cmd, db)
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStepsCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}
