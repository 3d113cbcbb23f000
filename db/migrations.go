// Package db embeds the goose migrations for each supported dialect.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/frahmantamala/hrm-access/internal"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

const TableName = "schema_migrations"

// Dialect maps a configured driver onto its goose dialect and migration dir.
func Dialect(driver string) (dialect, dir string, err error) {
	switch driver {
	case internal.DriverPostgres:
		return "postgres", "migrations/postgres", nil
	case internal.DriverSQLite:
		return "sqlite3", "migrations/sqlite", nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

func prepare(driver string) (string, error) {
	dialect, dir, err := Dialect(driver)
	if err != nil {
		return "", err
	}
	goose.SetBaseFS(migrations)
	goose.SetTableName(TableName)
	if err := goose.SetDialect(dialect); err != nil {
		return "", err
	}
	return dir, nil
}

// Up applies every pending migration.
func Up(ctx context.Context, conn *sql.DB, driver string) error {
	dir, err := prepare(driver)
	if err != nil {
		return err
	}
	return goose.UpContext(ctx, conn, dir)
}

// Down rolls back the latest migration.
func Down(ctx context.Context, conn *sql.DB, driver string) error {
	dir, err := prepare(driver)
	if err != nil {
		return err
	}
	return goose.DownContext(ctx, conn, dir)
}

func Status(ctx context.Context, conn *sql.DB, driver string) error {
	dir, err := prepare(driver)
	if err != nil {
		return err
	}
	return goose.StatusContext(ctx, conn, dir)
}

func Version(ctx context.Context, conn *sql.DB, driver string) (int64, error) {
	if _, err := prepare(driver); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, conn)
}
