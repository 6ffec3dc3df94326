package usecase

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"campus-assistant/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeNewsRepo is an in-memory NewsRepository.
type fakeNewsRepo struct {
	mu      sync.Mutex
	records []domain.NewsRecord
}

func (f *fakeNewsRepo) Put(_ context.Context, record *domain.NewsRecord) (domain.PutResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.records {
		if existing.ID == record.ID {
			return domain.PutDuplicate, nil
		}
	}
	f.records = append(f.records, *record)
	return domain.PutInserted, nil
}

func (f *fakeNewsRepo) ListByDate(_ context.Context, date string) ([]domain.NewsRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.NewsRecord
	for _, rec := range f.records {
		if rec.Date == date {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeNewsRepo) ListRange(_ context.Context, start, end string) ([]domain.NewsRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.NewsRecord
	for _, rec := range f.records {
		if rec.Date >= start && rec.Date <= end {
			out = append(out, rec)
		}
	}
	return out, nil
}

var _ domain.NewsRepository = (*fakeNewsRepo)(nil)

func record(date, title, body string, collected time.Time) domain.NewsRecord {
	policy := domain.NewFingerprintPolicy()
	return domain.NewsRecord{
		ID:          policy.Compute(title, body, "https://dean.example.edu/"+title),
		Date:        date,
		Title:       title,
		Body:        body,
		SourceURL:   "https://dean.example.edu/" + title,
		Source:      "教务处",
		CollectedAt: collected,
	}
}

// fakeReportRepo is an in-memory ReportRepository.
type fakeReportRepo struct {
	mu      sync.Mutex
	reports map[string]domain.Report
	saves   int
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: make(map[string]domain.Report)}
}

func reportKey(scope domain.ReportScope, identity domain.Identity) string {
	return scope.Key() + "|" + string(identity)
}

func (f *fakeReportRepo) Save(_ context.Context, report *domain.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports[reportKey(report.Scope, report.Identity)] = *report
	f.saves++
	return nil
}

func (f *fakeReportRepo) Get(_ context.Context, scope domain.ReportScope, identity domain.Identity) (*domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rep, ok := f.reports[reportKey(scope, identity)]
	if !ok {
		return nil, nil
	}
	return &rep, nil
}

func (f *fakeReportRepo) AvailableDates(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	var dates []string
	for _, rep := range f.reports {
		if rep.Scope.Kind != domain.ScopeDaily || seen[rep.Scope.Date] {
			continue
		}
		seen[rep.Scope.Date] = true
		dates = append(dates, rep.Scope.Date)
	}
	return dates, nil
}

var _ domain.ReportRepository = (*fakeReportRepo)(nil)

// countingLLM is an LLMClient stub that counts calls and can fail
// selectively based on prompt content.
type countingLLM struct {
	mu       sync.Mutex
	calls    int
	prompts  [][]domain.Message
	response string
	delay    time.Duration
	// failWhen returns a non-nil error for prompts it wants to fail.
	failWhen func(messages []domain.Message) error
}

func (c *countingLLM) Chat(ctx context.Context, messages []domain.Message, _ domain.GenerateOptions) (*domain.LLMResponse, error) {
	c.mu.Lock()
	c.calls++
	c.prompts = append(c.prompts, messages)
	c.mu.Unlock()

	if c.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.delay):
		}
	}
	if c.failWhen != nil {
		if err := c.failWhen(messages); err != nil {
			return nil, err
		}
	}
	text := c.response
	if text == "" {
		text = "摘要：今日有若干教务通知。"
	}
	return &domain.LLMResponse{Text: text, Done: true}, nil
}

func (c *countingLLM) Version() string { return "counting-stub" }

func (c *countingLLM) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *countingLLM) lastPrompt() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.prompts) == 0 {
		return nil
	}
	return c.prompts[len(c.prompts)-1]
}

var _ domain.LLMClient = (*countingLLM)(nil)

func promptContains(messages []domain.Message, needle string) bool {
	for _, m := range messages {
		if strings.Contains(m.Content, needle) {
			return true
		}
	}
	return false
}
