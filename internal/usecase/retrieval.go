package usecase

import (
	"context"
	"log/slog"

	"campus-assistant/internal/domain"
)

// minBodyRunes is the relevance floor: bodies shorter than this carry no
// summarizable content and are dropped at filter time.
const minBodyRunes = 10

// RetrievalEngine selects the relevant subset of stored records for a day
// or a trailing window, within a bounded record budget. Results are
// snapshots: callers summarize exactly what was returned, never a live
// view of the store.
type RetrievalEngine interface {
	// ForDay returns the day's records after relevance filtering.
	ForDay(ctx context.Context, date string) (*RetrievedSet, error)
	// ForWindow unions ForDay across [end-days+1, end], preserving date
	// order and applying the record budget with recency bias.
	ForWindow(ctx context.Context, end string, days int) (*RetrievedSet, error)
}

// RetrievedSet is a filtered snapshot of records plus the raw count the
// filter started from.
type RetrievedSet struct {
	Records  []domain.NewsRecord
	RawCount int
}

// EffectiveCount is the number of records that survived filtering.
func (s *RetrievedSet) EffectiveCount() int {
	return len(s.Records)
}

type retrievalEngine struct {
	newsRepo   domain.NewsRepository
	maxRecords int
	logger     *slog.Logger
}

// NewRetrievalEngine creates a retrieval engine over the news store.
func NewRetrievalEngine(newsRepo domain.NewsRepository, maxRecords int, logger *slog.Logger) RetrievalEngine {
	if maxRecords <= 0 {
		maxRecords = 50
	}
	return &retrievalEngine{
		newsRepo:   newsRepo,
		maxRecords: maxRecords,
		logger:     logger,
	}
}

func (e *retrievalEngine) ForDay(ctx context.Context, date string) (*RetrievedSet, error) {
	records, err := e.newsRepo.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	filtered := filterRelevant(records)

	e.logger.Debug("retrieved day",
		slog.String("date", date),
		slog.Int("raw", len(records)),
		slog.Int("effective", len(filtered)))

	return &RetrievedSet{Records: filtered, RawCount: len(records)}, nil
}

func (e *retrievalEngine) ForWindow(ctx context.Context, end string, days int) (*RetrievedSet, error) {
	endDay, err := domain.ParseDate(end)
	if err != nil {
		return nil, err
	}
	if days < 1 {
		days = 1
	}
	start := domain.FormatDate(endDay.AddDate(0, 0, -(days - 1)))

	records, err := e.newsRepo.ListRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	filtered := filterRelevant(records)

	// Budget: keep the most recent records, never truncating mid-record.
	if len(filtered) > e.maxRecords {
		filtered = filtered[len(filtered)-e.maxRecords:]
	}

	return &RetrievedSet{Records: filtered, RawCount: len(records)}, nil
}

// filterRelevant drops records with empty or trivially short bodies, and
// collapses normalized-content duplicates keeping the earliest ingested
// copy. This is defense in depth beyond the store's id-based dedup, which
// only catches byte-identical (title, body, url) triples.
func filterRelevant(records []domain.NewsRecord) []domain.NewsRecord {
	seen := make(map[string]int, len(records)) // normalized content -> index into out
	out := make([]domain.NewsRecord, 0, len(records))

	for _, rec := range records {
		body := domain.NormalizeText(rec.Body)
		if len([]rune(body)) < minBodyRunes {
			continue
		}
		key := domain.NormalizeText(rec.Title) + "\x00" + body
		if idx, dup := seen[key]; dup {
			// First ingested wins; later copies are duplicates, not
			// distinct records.
			if rec.CollectedAt.Before(out[idx].CollectedAt) {
				out[idx] = rec
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, rec)
	}
	return out
}
