package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/hrm-access/internal"
	"github.com/frahmantamala/hrm-access/internal/account"
	accountPostgres "github.com/frahmantamala/hrm-access/internal/account/postgres"
	"github.com/frahmantamala/hrm-access/internal/audit"
	auditPostgres "github.com/frahmantamala/hrm-access/internal/audit/postgres"
	"github.com/frahmantamala/hrm-access/internal/auth"
	"github.com/frahmantamala/hrm-access/internal/backup"
	"github.com/frahmantamala/hrm-access/internal/core/events"
	"github.com/frahmantamala/hrm-access/internal/department"
	departmentPostgres "github.com/frahmantamala/hrm-access/internal/department/postgres"
	"github.com/frahmantamala/hrm-access/internal/export"
	"github.com/frahmantamala/hrm-access/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// App holds the wired services shared by the server and the CLI commands.
type App struct {
	Config      *internal.Config
	Logger      *slog.Logger
	Gorm        *gorm.DB
	SQL         *sqlx.DB
	Bus         *events.EventBus
	Repo        account.RepositoryAPI
	Accounts    *account.Service
	Auth        *auth.Service
	Audit       *audit.Service
	Departments *department.Service
	Backups     *backup.Service
}

func newApp() (*App, error) {
	cfg, err := loadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	gdb, sqlDB, err := initDB(cfg.Database, cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	read := sqlx.NewDb(sqlDB, cfg.Database.SQLDriverName())
	timeout := cfg.Database.QueryTimeout

	bus := events.NewEventBus(lg)
	repo := accountPostgres.NewAccountRepository(gdb)

	auditService := audit.NewService(auditPostgres.NewAuditRepository(gdb, read), lg, timeout)
	audit.NewEventHandler(auditService, lg).RegisterEventHandlers(bus)

	app := &App{
		Config: cfg,
		Logger: lg,
		Gorm:   gdb,
		SQL:    read,
		Bus:    bus,
		Repo:   repo,
		Accounts: account.NewService(repo, bus, export.NewWorkbook(), lg, account.Options{
			BCryptCost:   cfg.Security.BCryptCost,
			QueryTimeout: timeout,
		}),
		Auth: auth.NewService(
			repo,
			auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.AccessTokenDuration),
			bus,
			lg,
			timeout,
		),
		Audit:       auditService,
		Departments: department.NewService(departmentPostgres.NewDepartmentRepository(read), lg, timeout),
		Backups: backup.NewService(read, bus, lg, backup.Options{
			Driver:       cfg.Database.Driver,
			Source:       cfg.Database.Source,
			Dir:          cfg.Backup.Dir,
			QueryTimeout: timeout,
		}),
	}
	return app, nil
}

// Close drains pending events, then closes the database.
func (a *App) Close() {
	a.Bus.Wait()
	if err := a.SQL.Close(); err != nil {
		a.Logger.Error("database close error", "error", err)
	}
}

// initDB opens gorm on the configured driver and returns it with its pool.
func initDB(cfg internal.DatabaseConfig, env string) (*gorm.DB, *sql.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	}
	if env != "production" {
		gormCfg.Logger = gormLogger.Default.LogMode(gormLogger.Warn)
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case internal.DriverPostgres:
		conn, err := sql.Open(cfg.SQLDriverName(), cfg.GetDSN())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open pgx connection: %w", err)
		}
		dialector = postgres.New(postgres.Config{Conn: conn})
	case internal.DriverSQLite:
		dialector = sqlite.Open(cfg.GetDSN())
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	if cfg.Driver == internal.DriverSQLite {
		// sqlite serializes writers
		sqlDB.SetMaxOpenConns(1)
	}

	ctx, cancel := internal.WithTimeout(context.Background(), cfg.QueryTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return gdb, sqlDB, nil
}
