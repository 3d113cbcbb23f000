package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/hrm-access/api"
	"github.com/frahmantamala/hrm-access/internal/account"
	"github.com/frahmantamala/hrm-access/internal/audit"
	"github.com/frahmantamala/hrm-access/internal/auth"
	"github.com/frahmantamala/hrm-access/internal/backup"
	"github.com/frahmantamala/hrm-access/internal/department"
	"github.com/frahmantamala/hrm-access/internal/transport"
	"github.com/frahmantamala/hrm-access/internal/transport/rest"
	"github.com/frahmantamala/hrm-access/internal/transport/swagger"
	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server serving accounts, sessions, audit logs and backups`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := startHTTPServer(); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func startHTTPServer() error {
	app, err := newApp()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer app.Close()

	if _, err := swagger.Load(context.Background(), api.OpenAPI); err != nil {
		return fmt.Errorf("invalid openapi document: %w", err)
	}

	router := chi.NewRouter()
	base := transport.NewBaseHandler(app.Logger)
	handlers := rest.Handlers{
		Auth:       auth.NewHandler(base, app.Auth),
		Account:    account.NewHandler(base, app.Accounts),
		Department: department.NewHandler(base, app.Departments),
		Audit:      audit.NewHandler(base, app.Audit),
		Backup:     backup.NewHandler(base, app.Backups),
		RBAC:       auth.NewRBACAuthorization(auth.NewPermissionChecker(), app.Logger),
	}
	rest.RegisterAllRoutes(router, app.SQL.DB, app.Config, api.OpenAPI, handlers, app.Logger)

	var scheduler *backup.Scheduler
	if app.Config.Backup.Enabled {
		scheduler, err = backup.NewScheduler(app.Backups, app.Config.Backup.Schedule, app.Logger)
		if err != nil {
			return err
		}
		scheduler.Start()
	}

	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: app.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       app.Config.Server.ReadTimeout,
		WriteTimeout:      app.Config.Server.WriteTimeout,
		IdleTimeout:       app.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		app.Logger.Info("Starting HTTP server", "address", addr, "driver", app.Config.Database.Driver)
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		app.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			app.Logger.Error("Server shutdown error", "error", err)
		}
		if scheduler != nil {
			scheduler.Stop(ctx)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed to start: %w", err)
		}
	}

	app.Logger.Info("Server stopped")
	return nil
}
