package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"campus-assistant/internal/domain"
)

// IngestInput is one crawled notice pushed by the crawler.
type IngestInput struct {
	Date      string
	Title     string
	Body      string
	SourceURL string
	Source    string
}

// NewsIngestor fingerprints and stores crawled records. Re-ingesting the
// same (title, body, source_url) triple is a no-op.
type NewsIngestor interface {
	Ingest(ctx context.Context, input IngestInput) (domain.PutResult, *domain.NewsRecord, error)
}

type newsIngestor struct {
	newsRepo    domain.NewsRepository
	fingerprint domain.FingerprintPolicy
	logger      *slog.Logger
}

// NewNewsIngestor wires the ingestion seam used by the crawler.
func NewNewsIngestor(newsRepo domain.NewsRepository, fingerprint domain.FingerprintPolicy, logger *slog.Logger) NewsIngestor {
	return &newsIngestor{
		newsRepo:    newsRepo,
		fingerprint: fingerprint,
		logger:      logger,
	}
}

func (i *newsIngestor) Ingest(ctx context.Context, input IngestInput) (domain.PutResult, *domain.NewsRecord, error) {
	if strings.TrimSpace(input.Title) == "" {
		return "", nil, &domain.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if _, err := domain.ParseDate(input.Date); err != nil {
		return "", nil, err
	}

	record := &domain.NewsRecord{
		ID:          i.fingerprint.Compute(input.Title, input.Body, input.SourceURL),
		Date:        input.Date,
		Title:       strings.TrimSpace(input.Title),
		Body:        input.Body,
		SourceURL:   input.SourceURL,
		Source:      input.Source,
		CollectedAt: time.Now(),
	}

	result, err := i.newsRepo.Put(ctx, record)
	if err != nil {
		return "", nil, err
	}

	i.logger.Info("news_ingested",
		slog.String("date", record.Date),
		slog.String("id", record.ID[:12]),
		slog.String("result", string(result)))
	return result, record, nil
}
