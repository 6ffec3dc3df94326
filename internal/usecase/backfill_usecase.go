package usecase

import (
	"context"
	"log/slog"

	"campus-assistant/internal/domain"
)

// BackfillResult records which dates in the requested range now have a
// report and which failed compilation.
type BackfillResult struct {
	Completed []string
	Failed    map[string]error
}

// BackfillScheduler ensures every day in a trailing range has a compiled
// daily report, then produces the weekly aggregate. Re-entry after a
// successful run is a no-op scan: already-covered dates are never
// regenerated.
type BackfillScheduler interface {
	// EnsureRange fills [end-days+1, end], oldest first. One bad day does
	// not block the rest of the range.
	EnsureRange(ctx context.Context, endDate string, days int) (*BackfillResult, error)
	// EnsureDay fills a single date, idempotently. Force recompiles even
	// when a report already exists (the explicit re-trigger path).
	EnsureDay(ctx context.Context, date string, force bool) (*CompileResult, bool, error)
}

type backfillScheduler struct {
	reportRepo domain.ReportRepository
	retrieval  RetrievalEngine
	compiler   ReportCompiler
	logger     *slog.Logger
}

// NewBackfillScheduler wires the scheduler.
func NewBackfillScheduler(
	reportRepo domain.ReportRepository,
	retrieval RetrievalEngine,
	compiler ReportCompiler,
	logger *slog.Logger,
) BackfillScheduler {
	return &backfillScheduler{
		reportRepo: reportRepo,
		retrieval:  retrieval,
		compiler:   compiler,
		logger:     logger,
	}
}

func (s *backfillScheduler) EnsureRange(ctx context.Context, endDate string, days int) (*BackfillResult, error) {
	end, err := domain.ParseDate(endDate)
	if err != nil {
		return nil, err
	}
	if days < 1 {
		days = 1
	}

	available, err := s.availableSet(ctx)
	if err != nil {
		return nil, err
	}

	result := &BackfillResult{Failed: make(map[string]error)}
	regenerated := 0

	// Oldest first, so the weekly aggregate has the best chance of finding
	// recent days already filled by an earlier manual run.
	for _, date := range domain.DateRange(end, days) {
		if available[date] {
			result.Completed = append(result.Completed, date)
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		set, err := s.retrieval.ForDay(ctx, date)
		if err != nil {
			s.logger.Error("backfill retrieval failed",
				slog.String("date", date), slog.String("error", err.Error()))
			result.Failed[date] = err
			continue
		}
		if _, err := s.compiler.CompileDaily(ctx, date, set); err != nil {
			s.logger.Error("backfill compile failed",
				slog.String("date", date), slog.String("error", err.Error()))
			result.Failed[date] = err
			continue
		}
		result.Completed = append(result.Completed, date)
		regenerated++
	}

	// Missing days only lower the weekly counts; they are not fatal. An
	// unchanged, already-aggregated week is left alone so re-entry stays
	// free of model spend.
	if days >= 7 && (regenerated > 0 || !s.weeklyExists(ctx, endDate)) {
		if _, err := s.compiler.CompileWeekly(ctx, endDate); err != nil {
			s.logger.Error("weekly aggregate failed",
				slog.String("end_date", endDate), slog.String("error", err.Error()))
			// Keyed by scope so a daily failure on the end date survives too.
			result.Failed[domain.Weekly(endDate).Key()] = err
		}
	}

	s.logger.Info("backfill_completed",
		slog.String("end_date", endDate),
		slog.Int("days", days),
		slog.Int("completed", len(result.Completed)),
		slog.Int("failed", len(result.Failed)))
	return result, nil
}

func (s *backfillScheduler) EnsureDay(ctx context.Context, date string, force bool) (*CompileResult, bool, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return nil, false, err
	}

	if !force {
		available, err := s.availableSet(ctx)
		if err != nil {
			return nil, false, err
		}
		if available[date] {
			return nil, false, nil
		}
	}

	set, err := s.retrieval.ForDay(ctx, date)
	if err != nil {
		return nil, false, err
	}
	result, err := s.compiler.CompileDaily(ctx, date, set)
	if err != nil {
		return nil, false, err
	}
	return result, true, nil
}

func (s *backfillScheduler) weeklyExists(ctx context.Context, endDate string) bool {
	rep, err := s.reportRepo.Get(ctx, domain.Weekly(endDate), domain.IdentityStudent)
	if err != nil {
		// Lookup failure is not fatal to the range; fall back to
		// regenerating the aggregate rather than silently skipping it.
		s.logger.Warn("weekly report lookup failed, regenerating",
			slog.String("end_date", endDate), slog.String("error", err.Error()))
		return false
	}
	return rep != nil
}

func (s *backfillScheduler) availableSet(ctx context.Context) (map[string]bool, error) {
	dates, err := s.reportRepo.AvailableDates(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(dates))
	for _, d := range dates {
		set[d] = true
	}
	return set, nil
}
