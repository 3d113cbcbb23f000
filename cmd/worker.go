package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/hrm-access/internal/backup"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start long running workers that run outside the HTTP server.`,
}

var backupWorkerCmd = &cobra.Command{
	Use:   "backup",
	Short: "Run scheduled database backups",
	Long:  `Run database backups on the configured cron schedule until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startBackupWorker()
	},
}

var workerSchedule string

func init() {
	backupWorkerCmd.Flags().StringVar(&workerSchedule, "schedule", "", "cron expression overriding backup.schedule")
	workerCmd.AddCommand(backupWorkerCmd)
}

func startBackupWorker() error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	schedule := app.Config.Backup.Schedule
	if workerSchedule != "" {
		schedule = workerSchedule
	}

	scheduler, err := backup.NewScheduler(app.Backups, schedule, app.Logger)
	if err != nil {
		return err
	}
	scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	app.Logger.Info("Received signal, stopping backup worker...", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	scheduler.Stop(ctx)
	return nil
}
