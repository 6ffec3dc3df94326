package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"campus-assistant/internal/domain"
	"campus-assistant/internal/usecase"
)

const jobTimeout = 30 * time.Minute

// Scheduler runs the daily report job on a cron spec (07:00 by default),
// backfilling the trailing week so the weekly aggregate always has its
// inputs.
type Scheduler struct {
	backfill usecase.BackfillScheduler
	spec     string
	logger   *slog.Logger
	cron     *cron.Cron
}

// NewScheduler creates a stopped scheduler; call Start to begin.
func NewScheduler(backfill usecase.BackfillScheduler, spec string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		backfill: backfill,
		spec:     spec,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start registers the daily job and starts the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.runDailyJob)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduler started", slog.String("spec", s.spec))
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runDailyJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	yesterday := domain.FormatDate(time.Now().AddDate(0, 0, -1))
	s.logger.Info("scheduled_daily_job_started", slog.String("date", yesterday))

	result, err := s.backfill.EnsureRange(ctx, yesterday, 7)
	if err != nil {
		s.logger.Error("scheduled daily job failed", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("scheduled_daily_job_finished",
		slog.Int("completed", len(result.Completed)),
		slog.Int("failed", len(result.Failed)))
}
