package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/hrm-access/db"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run the embedded db migrations for the configured driver",
	}
	migrateRollback bool
	migrateStatus   bool
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
	migrateCmd.Flags().BoolVarP(&migrateStatus, "status", "s", false, "to print the applied and pending migrations")
}

func runMigration(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}

	_, conn, err := initDB(cfg.Database, cfg.Env)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer conn.Close()

	driver := cfg.Database.Driver
	switch {
	case migrateStatus:
		return db.Status(ctx, conn, driver)
	case migrateRollback:
		if err := db.Down(ctx, conn, driver); err != nil {
			return fmt.Errorf("goose down: %w", err)
		}
	default:
		if err := db.Up(ctx, conn, driver); err != nil {
			return fmt.Errorf("goose up: %w", err)
		}
	}

	version, err := db.Version(ctx, conn, driver)
	if err != nil {
		return err
	}
	fmt.Printf("database schema at version %d\n", version)
	return nil
}
