package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"campus-assistant/internal/domain"
)

// GenerationConfig carries the sampling options applied to every compile
// and QA generation. A non-zero Seed is reused across retries inside the
// gateway.
type GenerationConfig struct {
	Temperature float64
	MaxTokens   int
	Seed        int
}

// CompileResult reports the outcome per identity. A missing identity in
// Reports has its failure recorded in Failed.
type CompileResult struct {
	Scope   domain.ReportScope
	Reports map[domain.Identity]*domain.Report
	Failed  map[domain.Identity]error
}

// ReportCompiler turns a retrieved snapshot into audience-specific
// summaries and persists them.
type ReportCompiler interface {
	// CompileDaily generates and saves the student and teacher reports for
	// one day from the given snapshot.
	CompileDaily(ctx context.Context, date string, set *RetrievedSet) (*CompileResult, error)
	// CompileWeekly condenses the trailing week's daily reports into one
	// weekly report per identity. It never re-reads raw records.
	CompileWeekly(ctx context.Context, endDate string) (*CompileResult, error)
}

type reportCompiler struct {
	reportRepo domain.ReportRepository
	llmClient  domain.LLMClient
	prompts    PromptBuilder
	genConfig  GenerationConfig
	logger     *slog.Logger

	// flight serializes compilation per scope: two concurrent triggers for
	// the same date share one execution instead of racing on save.
	flight singleflight.Group
}

// NewReportCompiler wires the compiler.
func NewReportCompiler(
	reportRepo domain.ReportRepository,
	llmClient domain.LLMClient,
	prompts PromptBuilder,
	genConfig GenerationConfig,
	logger *slog.Logger,
) ReportCompiler {
	return &reportCompiler{
		reportRepo: reportRepo,
		llmClient:  llmClient,
		prompts:    prompts,
		genConfig:  genConfig,
		logger:     logger,
	}
}

func (c *reportCompiler) options() domain.GenerateOptions {
	return domain.GenerateOptions{
		Temperature: c.genConfig.Temperature,
		MaxTokens:   c.genConfig.MaxTokens,
		Seed:        c.genConfig.Seed,
	}
}

func (c *reportCompiler) CompileDaily(ctx context.Context, date string, set *RetrievedSet) (*CompileResult, error) {
	scope := domain.Daily(date)
	v, err, _ := c.flight.Do(scope.Key(), func() (interface{}, error) {
		return c.compileDaily(ctx, scope, set)
	})
	if err != nil {
		return nil, err
	}
	return v.(*CompileResult), nil
}

func (c *reportCompiler) compileDaily(ctx context.Context, scope domain.ReportScope, set *RetrievedSet) (*CompileResult, error) {
	c.logger.Info("daily_report_started",
		slog.String("date", scope.Date),
		slog.Int("news_count", set.RawCount),
		slog.Int("effective_news_count", set.EffectiveCount()))

	// An empty snapshot gets the canonical no-news summary without a model
	// call: nothing to summarize, nothing to hallucinate from.
	if set.EffectiveCount() == 0 {
		return c.saveCanonical(ctx, scope, domain.NoNewsDailySummary, set.RawCount, 0)
	}

	result := c.generatePerIdentity(ctx, scope, set.RawCount, set.EffectiveCount(), func(identity domain.Identity) []domain.Message {
		return c.prompts.DailySummary(scope.Date, identity, set.Records)
	})
	return c.finish(ctx, scope, result)
}

func (c *reportCompiler) CompileWeekly(ctx context.Context, endDate string) (*CompileResult, error) {
	scope := domain.Weekly(endDate)
	v, err, _ := c.flight.Do(scope.Key(), func() (interface{}, error) {
		return c.compileWeekly(ctx, scope)
	})
	if err != nil {
		return nil, err
	}
	return v.(*CompileResult), nil
}

func (c *reportCompiler) compileWeekly(ctx context.Context, scope domain.ReportScope) (*CompileResult, error) {
	end, err := domain.ParseDate(scope.Date)
	if err != nil {
		return nil, err
	}
	dates := domain.DateRange(end, 7)

	// Collect each identity's daily summaries; the weekly counts are sums
	// of the dailies' counts, never recomputed from raw records.
	dailies := make(map[domain.Identity][]domain.Report)
	newsCount := 0
	effectiveCount := 0
	for _, date := range dates {
		for _, identity := range domain.Identities {
			rep, err := c.reportRepo.Get(ctx, domain.Daily(date), identity)
			if err != nil {
				return nil, err
			}
			if rep == nil {
				continue
			}
			if identity == domain.IdentityStudent {
				newsCount += rep.NewsCount
				effectiveCount += rep.EffectiveNewsCount
			}
			if rep.EffectiveNewsCount > 0 {
				dailies[identity] = append(dailies[identity], *rep)
			}
		}
	}

	c.logger.Info("weekly_report_started",
		slog.String("end_date", scope.Date),
		slog.Int("news_count", newsCount),
		slog.Int("effective_news_count", effectiveCount))

	if effectiveCount == 0 {
		return c.saveCanonical(ctx, scope, domain.NoNewsWeeklySummary, newsCount, 0)
	}

	result := c.generatePerIdentity(ctx, scope, newsCount, effectiveCount, func(identity domain.Identity) []domain.Message {
		return c.prompts.WeeklySummary(scope.Date, identity, dailies[identity])
	})
	return c.finish(ctx, scope, result)
}

// generatePerIdentity runs one independent generation-and-save per
// identity. A gateway failure for one identity never discards the other's
// already-computed report.
func (c *reportCompiler) generatePerIdentity(
	ctx context.Context,
	scope domain.ReportScope,
	newsCount, effectiveCount int,
	buildPrompt func(domain.Identity) []domain.Message,
) *CompileResult {
	result := &CompileResult{
		Scope:   scope,
		Reports: make(map[domain.Identity]*domain.Report),
		Failed:  make(map[domain.Identity]error),
	}

	type outcome struct {
		identity domain.Identity
		report   *domain.Report
		err      error
	}
	outcomes := make(chan outcome, len(domain.Identities))

	for _, identity := range domain.Identities {
		go func(identity domain.Identity) {
			report, err := c.generateOne(ctx, scope, identity, newsCount, effectiveCount, buildPrompt(identity))
			outcomes <- outcome{identity: identity, report: report, err: err}
		}(identity)
	}

	for range domain.Identities {
		o := <-outcomes
		if o.err != nil {
			c.logger.Error("summary generation failed",
				slog.String("scope", scope.Key()),
				slog.String("identity", string(o.identity)),
				slog.String("error", o.err.Error()))
			result.Failed[o.identity] = o.err
			continue
		}
		result.Reports[o.identity] = o.report
	}
	return result
}

func (c *reportCompiler) generateOne(
	ctx context.Context,
	scope domain.ReportScope,
	identity domain.Identity,
	newsCount, effectiveCount int,
	messages []domain.Message,
) (*domain.Report, error) {
	resp, err := c.llmClient.Chat(ctx, messages, c.options())
	if err != nil {
		return nil, fmt.Errorf("generate %s summary: %w", identity, err)
	}

	report := &domain.Report{
		Scope:              scope,
		Identity:           identity,
		Summary:            resp.Text,
		NewsCount:          newsCount,
		EffectiveNewsCount: effectiveCount,
		GeneratedAt:        time.Now(),
	}
	if err := c.reportRepo.Save(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (c *reportCompiler) saveCanonical(ctx context.Context, scope domain.ReportScope, summary string, newsCount, effectiveCount int) (*CompileResult, error) {
	result := &CompileResult{
		Scope:   scope,
		Reports: make(map[domain.Identity]*domain.Report),
		Failed:  make(map[domain.Identity]error),
	}
	now := time.Now()
	for _, identity := range domain.Identities {
		report := &domain.Report{
			Scope:              scope,
			Identity:           identity,
			Summary:            summary,
			NewsCount:          newsCount,
			EffectiveNewsCount: effectiveCount,
			GeneratedAt:        now,
		}
		if err := c.reportRepo.Save(ctx, report); err != nil {
			result.Failed[identity] = err
			continue
		}
		result.Reports[identity] = report
	}
	return c.finish(ctx, scope, result)
}

// finish applies the failure contract: both identities failing fails the
// compile; a partial failure is surfaced in the result but not fatal.
func (c *reportCompiler) finish(_ context.Context, scope domain.ReportScope, result *CompileResult) (*CompileResult, error) {
	if len(result.Reports) == 0 {
		errs := make([]error, 0, len(result.Failed))
		for _, err := range result.Failed {
			errs = append(errs, err)
		}
		return nil, &domain.CompileError{Scope: scope, Err: errors.Join(errs...)}
	}

	c.logger.Info("report_compiled",
		slog.String("scope", scope.Key()),
		slog.Int("identities", len(result.Reports)),
		slog.Int("failed", len(result.Failed)))
	return result, nil
}
