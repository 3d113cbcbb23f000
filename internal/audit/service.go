package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/hrm-access/internal"
	"github.com/frahmantamala/hrm-access/internal/account"
	"github.com/frahmantamala/hrm-access/internal/metrics"
	"github.com/frahmantamala/hrm-access/internal/permission"
)

type RepositoryAPI interface {
	Record(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) (*Result, error)
	Summary(ctx context.Context, now time.Time) (*Summary, error)
}

type Service struct {
	repo         RepositoryAPI
	logger       *slog.Logger
	queryTimeout time.Duration
	now          func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger, queryTimeout time.Duration) *Service {
	return &Service{
		repo:         repo,
		logger:       logger,
		queryTimeout: queryTimeout,
		now:          time.Now,
	}
}

// Record appends one entry to the trail.
func (s *Service) Record(ctx context.Context, entry *Entry) error {
	ctx, cancel := internal.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if err := s.repo.Record(ctx, entry); err != nil {
		return account.StoreError(err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, session *permission.Session, filter Filter) (*Result, error) {
	if err := s.authorize(session); err != nil {
		return nil, err
	}
	if appErr := filter.normalize(); appErr != nil {
		return nil, appErr
	}

	ctx, cancel := internal.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	result, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list audit logs", "error", err)
		return nil, account.StoreError(err)
	}
	if result.Logs == nil {
		result.Logs = []*Entry{}
	}
	return result, nil
}

func (s *Service) Summary(ctx context.Context, session *permission.Session) (*Summary, error) {
	if err := s.authorize(session); err != nil {
		return nil, err
	}

	ctx, cancel := internal.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	summary, err := s.repo.Summary(ctx, s.now())
	if err != nil {
		s.logger.Error("failed to summarize audit logs", "error", err)
		return nil, account.StoreError(err)
	}
	return summary, nil
}

func (s *Service) authorize(session *permission.Session) error {
	if session == nil {
		return internal.ErrNotLoggedIn
	}
	allowed := permission.AuthorizeCapability(session, permission.ViewReports)
	metrics.RecordAuthorization(string(permission.ViewReports), allowed)
	if !allowed {
		return internal.ErrPermissionDenied.WithDetails(map[string]string{"capability": string(permission.ViewReports)})
	}
	return nil
}

func (f *Filter) normalize() *internal.AppError {
	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		return internal.NewValidationFieldError("limit", "limit must not exceed 1000", internal.ErrCodeValidationFailed)
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return internal.NewValidationFieldError("to", "end date is before start date", internal.ErrCodeValidationFailed)
	}
	return nil
}
