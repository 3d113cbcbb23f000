package backup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

type scheduledCreator interface {
	CreateScheduled(ctx context.Context) (*Backup, error)
}

// Scheduler runs backups on a standard five-field cron expression.
type Scheduler struct {
	cron    *cron.Cron
	service scheduledCreator
	logger  *slog.Logger
	entryID cron.EntryID
}

func NewScheduler(service scheduledCreator, schedule string, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		service: service,
		logger:  logger,
	}

	entryID, err := s.cron.AddFunc(schedule, s.run)
	if err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", schedule, err)
	}
	s.entryID = entryID
	return s, nil
}

func (s *Scheduler) run() {
	b, err := s.service.CreateScheduled(context.Background())
	if err != nil {
		s.logger.Error("scheduled backup failed", "error", err)
		return
	}
	s.logger.Info("scheduled backup completed", "path", b.Path, "size", b.SizeFormatted)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("backup scheduler started", "next_run", s.cron.Entry(s.entryID).Next)
}

// Stop waits for a running backup to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("backup scheduler stop timed out")
	}
}
