package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"campus-assistant/internal/domain"
)

// AskInput is a free-text question over a trailing window of stored news.
type AskInput struct {
	Question string
	Identity domain.Identity
	Days     int
}

// AskOutput is the grounded answer. DaysReferenced is the number of days
// that actually contributed grounding, which may be less than requested.
type AskOutput struct {
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	DaysReferenced int       `json:"days_referenced"`
	UserIdentity   string    `json:"user_identity"`
	AnsweredAt     time.Time `json:"answered_at"`
}

// QAService answers questions grounded in a bounded recent window of
// stored records, independent of compiled reports. It persists nothing
// apart from a small in-memory answer cache.
type QAService interface {
	Ask(ctx context.Context, input AskInput) (*AskOutput, error)
}

type qaService struct {
	retrieval   RetrievalEngine
	llmClient   domain.LLMClient
	prompts     PromptBuilder
	genConfig   GenerationConfig
	defaultDays int
	logger      *slog.Logger
	cache       *lru.Cache[string, string]

	// now is injectable for tests; the grounding window ends today.
	now func() time.Time
}

// NewQAService wires the QA path. cacheSize <= 0 disables caching.
func NewQAService(
	retrieval RetrievalEngine,
	llmClient domain.LLMClient,
	prompts PromptBuilder,
	genConfig GenerationConfig,
	defaultDays int,
	cacheSize int,
	logger *slog.Logger,
) QAService {
	if defaultDays <= 0 {
		defaultDays = 7
	}
	var cache *lru.Cache[string, string]
	if cacheSize > 0 {
		cache, _ = lru.New[string, string](cacheSize)
	}
	return &qaService{
		retrieval:   retrieval,
		llmClient:   llmClient,
		prompts:     prompts,
		genConfig:   genConfig,
		defaultDays: defaultDays,
		logger:      logger,
		cache:       cache,
		now:         time.Now,
	}
}

func (s *qaService) Ask(ctx context.Context, input AskInput) (*AskOutput, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, &domain.ValidationError{Field: "question", Reason: "must not be empty"}
	}
	identity := input.Identity
	if identity == "" {
		identity = domain.IdentityStudent
	}
	days := input.Days
	if days <= 0 {
		days = s.defaultDays
	}
	if days > 30 {
		days = 30
	}

	today := domain.FormatDate(s.now())
	set, err := s.retrieval.ForWindow(ctx, today, days)
	if err != nil {
		return nil, err
	}
	daysReferenced := countDistinctDates(set.Records)

	s.logger.Info("qa_started",
		slog.String("identity", string(identity)),
		slog.Int("days_requested", days),
		slog.Int("days_referenced", daysReferenced),
		slog.Int("grounding_records", len(set.Records)))

	key := s.cacheKey(question, identity, days, set.Records)
	if s.cache != nil {
		if answer, ok := s.cache.Get(key); ok {
			return s.output(question, answer, identity, daysReferenced), nil
		}
	}

	messages := s.prompts.Question(question, identity, set.Records)
	resp, err := s.llmClient.Chat(ctx, messages, domain.GenerateOptions{
		Temperature: s.genConfig.Temperature,
		MaxTokens:   s.genConfig.MaxTokens,
		Seed:        s.genConfig.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("answer question: %w", err)
	}

	if s.cache != nil {
		s.cache.Add(key, resp.Text)
	}
	return s.output(question, resp.Text, identity, daysReferenced), nil
}

func countDistinctDates(records []domain.NewsRecord) int {
	dates := make(map[string]struct{}, len(records))
	for _, rec := range records {
		dates[rec.Date] = struct{}{}
	}
	return len(dates)
}

func (s *qaService) cacheKey(question string, identity domain.Identity, days int, records []domain.NewsRecord) string {
	latest := ""
	if n := len(records); n > 0 {
		latest = records[n-1].ID
	}
	return fmt.Sprintf("%s|%s|%d|%d|%s", question, identity, days, len(records), latest)
}

func (s *qaService) output(question, answer string, identity domain.Identity, daysReferenced int) *AskOutput {
	return &AskOutput{
		Question:       question,
		Answer:         answer,
		DaysReferenced: daysReferenced,
		UserIdentity:   string(identity),
		AnsweredAt:     time.Now(),
	}
}
