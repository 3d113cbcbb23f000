package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/frahmantamala/hrm-access/internal"
	"github.com/frahmantamala/hrm-access/internal/backup"
	"github.com/frahmantamala/hrm-access/internal/permission"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, inspect and restore database backups",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Snapshot the sqlite database into the backup directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOperator(cmd, func(ctx context.Context, app *App, session *permission.Session) error {
			b, err := app.Backups.Create(ctx, session)
			if err != nil {
				return err
			}
			fmt.Printf("Backup created: %s (%s)\n", b.Path, b.SizeFormatted)
			return nil
		})
	},
}

var backupInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show database size and record counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOperator(cmd, func(ctx context.Context, app *App, session *permission.Session) error {
			info, err := app.Backups.Info(ctx, session)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		})
	},
}

// restore works on files only; the server must be stopped, so no session is
// opened against the database being replaced.
var backupRestoreCmd = &cobra.Command{
	Use:   "restore <backup-file>",
	Short: "Replace the sqlite database with a backup file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configDir)
		if err != nil {
			return err
		}
		if cfg.Database.Driver != internal.DriverSQLite {
			return errors.New("restore is only supported for sqlite databases")
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		previous, err := backup.Restore(ctx, args[0], backup.SQLitePath(cfg.Database.Source))
		if err != nil {
			return err
		}
		if previous != "" {
			fmt.Printf("Previous database kept at %s\n", previous)
		}
		fmt.Println("Database restored; start the server to use it")
		return nil
	},
}

func init() {
	addOperatorFlags(backupCmd)
	backupCmd.AddCommand(backupCreateCmd, backupInfoCmd, backupRestoreCmd)
}
