package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

var ErrInvalidBackup = errors.New("invalid HRM database: missing required tables")

var requiredTables = []string{"users"}

// Restore replaces the sqlite database at dst with src. The previous file is
// kept next to dst with a .bak suffix. The server must not be running.
func Restore(ctx context.Context, src, dst string) (string, error) {
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("source database not found: %w", err)
	}
	if err := Validate(ctx, src); err != nil {
		return "", err
	}

	var previous string
	if _, err := os.Stat(dst); err == nil {
		previous = dst + ".bak"
		if err := copyFile(dst, previous); err != nil {
			return "", fmt.Errorf("failed to keep current database: %w", err)
		}
	}

	if err := copyFile(src, dst); err != nil {
		return "", fmt.Errorf("failed to restore database: %w", err)
	}
	return previous, nil
}

// Validate opens path read-only and checks it carries the account tables.
func Validate(ctx context.Context, path string) error {
	db, err := sqlx.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("invalid database file: %w", err)
	}
	defer db.Close()

	for _, table := range requiredTables {
		var n int
		err := db.GetContext(ctx, &n, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table)
		if err != nil {
			return fmt.Errorf("invalid database file: %w", err)
		}
		if n == 0 {
			return ErrInvalidBackup
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
