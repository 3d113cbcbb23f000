package department

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/hrm-access/internal"
	"github.com/frahmantamala/hrm-access/internal/account"
)

type RepositoryAPI interface {
	List(ctx context.Context) ([]string, error)
}

// Service is the read-only department directory.
type Service struct {
	repo         RepositoryAPI
	logger       *slog.Logger
	queryTimeout time.Duration
}

func NewService(repo RepositoryAPI, logger *slog.Logger, queryTimeout time.Duration) *Service {
	return &Service{
		repo:         repo,
		logger:       logger,
		queryTimeout: queryTimeout,
	}
}

// List returns the distinct non-empty department names, sorted.
func (s *Service) List(ctx context.Context) ([]string, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	departments, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list departments", "error", err)
		return nil, account.StoreError(err)
	}
	if departments == nil {
		departments = []string{}
	}
	return departments, nil
}
