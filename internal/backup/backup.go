package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/hrm-access/internal"
	"github.com/frahmantamala/hrm-access/internal/core/events"
	"github.com/frahmantamala/hrm-access/internal/metrics"
	"github.com/frahmantamala/hrm-access/internal/permission"
	"github.com/jmoiron/sqlx"
)

const fileLayout = "20060102_150405"

type Backup struct {
	Path          string    `json:"path"`
	SizeBytes     int64     `json:"size_bytes"`
	SizeFormatted string    `json:"size_formatted"`
	CreatedAt     time.Time `json:"created_at"`
}

type Info struct {
	Driver        string `json:"driver"`
	Path          string `json:"path,omitempty"`
	SizeBytes     int64  `json:"size_bytes"`
	SizeFormatted string `json:"size_formatted"`
	UserCount     int64  `json:"user_count"`
	EmployeeCount int64  `json:"employee_count"`
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Options struct {
	Driver       string
	Source       string
	Dir          string
	QueryTimeout time.Duration
}

type Service struct {
	db        *sqlx.DB
	opts      Options
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(db *sqlx.DB, publisher Publisher, logger *slog.Logger, opts Options) *Service {
	if opts.Dir == "" {
		opts.Dir = "backups"
	}
	return &Service{
		db:        db,
		opts:      opts,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Create snapshots the database on behalf of session.
func (s *Service) Create(ctx context.Context, session *permission.Session) (*Backup, error) {
	if err := authorize(session); err != nil {
		return nil, err
	}
	actorID := session.UserID
	return s.create(ctx, &actorID, session.Username)
}

// CreateScheduled snapshots the database for the cron worker.
func (s *Service) CreateScheduled(ctx context.Context) (*Backup, error) {
	return s.create(ctx, nil, "system")
}

func (s *Service) create(ctx context.Context, actorID *int64, actor string) (b *Backup, err error) {
	started := time.Now()
	defer func() { metrics.RecordBackup(started, err) }()

	if s.opts.Driver != internal.DriverSQLite {
		return nil, internal.ErrBackupUnsupported
	}

	if err := os.MkdirAll(s.opts.Dir, 0o755); err != nil {
		return nil, internal.NewInternalError("failed to create backup directory", err)
	}

	createdAt := s.now()
	target := filepath.Join(s.opts.Dir, fmt.Sprintf("hrm_backup_%s.db", createdAt.Format(fileLayout)))
	if _, statErr := os.Stat(target); statErr == nil {
		return nil, internal.NewConflictError("a backup with this timestamp already exists", internal.ErrCodeValidationFailed)
	}

	vacuumCtx, cancel := context.WithTimeout(ctx, s.vacuumTimeout())
	defer cancel()
	if _, err := s.db.ExecContext(vacuumCtx, "VACUUM INTO ?", target); err != nil {
		s.logger.Error("backup failed", "target", target, "error", err)
		if internal.IsTimeout(err) {
			return nil, internal.NewTimeoutError("backup did not finish in time", err)
		}
		return nil, internal.NewPersistenceError(err)
	}

	stat, err := os.Stat(target)
	if err != nil {
		return nil, internal.NewInternalError("backup file missing after vacuum", err)
	}

	b = &Backup{
		Path:          target,
		SizeBytes:     stat.Size(),
		SizeFormatted: FormatFileSize(stat.Size()),
		CreatedAt:     createdAt,
	}
	s.logger.Info("database backup created", "path", target, "size", b.SizeFormatted, "actor", actor)
	s.publish(ctx, actorID, actor, b)
	return b, nil
}

// Info describes the live database.
func (s *Service) Info(ctx context.Context, session *permission.Session) (*Info, error) {
	if err := authorize(session); err != nil {
		return nil, err
	}

	ctx, cancel := internal.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()

	info := &Info{Driver: s.opts.Driver}
	switch s.opts.Driver {
	case internal.DriverSQLite:
		info.Path = SQLitePath(s.opts.Source)
		if stat, err := os.Stat(info.Path); err == nil {
			info.SizeBytes = stat.Size()
		}
	default:
		if err := s.db.GetContext(ctx, &info.SizeBytes, "SELECT pg_database_size(current_database())"); err != nil {
			s.logger.Warn("failed to read database size", "error", err)
		}
	}
	info.SizeFormatted = FormatFileSize(info.SizeBytes)

	if err := s.db.GetContext(ctx, &info.UserCount, "SELECT COUNT(*) FROM users"); err != nil {
		return nil, internal.NewPersistenceError(err)
	}
	// the employees table belongs to the wider HR schema and may be absent
	if err := s.db.GetContext(ctx, &info.EmployeeCount, "SELECT COUNT(*) FROM employees"); err != nil {
		s.logger.Debug("employee count unavailable", "error", err)
	}
	return info, nil
}

func (s *Service) vacuumTimeout() time.Duration {
	if s.opts.QueryTimeout <= 0 {
		return time.Minute
	}
	return 12 * s.opts.QueryTimeout
}

func (s *Service) publish(ctx context.Context, actorID *int64, actor string, b *Backup) {
	if s.publisher == nil {
		return
	}
	event := events.NewActivityEvent(events.EventTypeBackupCreated, actorID, actor, "database", filepath.Base(b.Path)).
		WithDetails(fmt.Sprintf("Database backup created: %s (%s)", b.Path, b.SizeFormatted))
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish backup event", "error", err)
	}
}

func authorize(session *permission.Session) error {
	if session == nil {
		return internal.ErrNotLoggedIn
	}
	allowed := permission.AuthorizeCapability(session, permission.ManageSettings)
	metrics.RecordAuthorization(string(permission.ManageSettings), allowed)
	if !allowed {
		return internal.ErrPermissionDenied.WithDetails(map[string]string{"capability": string(permission.ManageSettings)})
	}
	return nil
}

// SQLitePath strips the file: scheme and query options from a sqlite DSN.
func SQLitePath(source string) string {
	path := strings.TrimPrefix(source, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

// FormatFileSize renders a byte count with binary units and two decimals.
func FormatFileSize(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.2f GB", float64(bytes)/gb)
	case bytes >= mb:
		return fmt.Sprintf("%.2f MB", float64(bytes)/mb)
	case bytes >= kb:
		return fmt.Sprintf("%.2f KB", float64(bytes)/kb)
	default:
		return strconv.FormatInt(bytes, 10) + " bytes"
	}
}
