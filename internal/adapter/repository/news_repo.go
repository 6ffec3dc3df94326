package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campus-assistant/internal/domain"
)

type newsRepository struct {
	pool *pgxpool.Pool
}

// NewNewsRepository creates a Postgres-backed NewsRepository.
func NewNewsRepository(pool *pgxpool.Pool) domain.NewsRepository {
	return &newsRepository{pool: pool}
}

func (r *newsRepository) Put(ctx context.Context, record *domain.NewsRecord) (domain.PutResult, error) {
	query := `
		INSERT INTO news_records (id, date, title, body, source_url, source, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	tag, err := r.pool.Exec(ctx, query,
		record.ID, record.Date, record.Title, record.Body,
		record.SourceURL, record.Source, record.CollectedAt,
	)
	if err != nil {
		return "", &domain.StorageError{Op: "put news record", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return domain.PutDuplicate, nil
	}
	return domain.PutInserted, nil
}

func (r *newsRepository) ListByDate(ctx context.Context, date string) ([]domain.NewsRecord, error) {
	query := `
		SELECT id, date::text, title, body, source_url, source, collected_at
		FROM news_records
		WHERE date = $1
		ORDER BY seq ASC
	`
	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, &domain.StorageError{Op: "list news by date", Err: err}
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (r *newsRepository) ListRange(ctx context.Context, start, end string) ([]domain.NewsRecord, error) {
	query := `
		SELECT id, date::text, title, body, source_url, source, collected_at
		FROM news_records
		WHERE date BETWEEN $1 AND $2
		ORDER BY date ASC, seq ASC
	`
	rows, err := r.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, &domain.StorageError{Op: "list news range", Err: err}
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]domain.NewsRecord, error) {
	var records []domain.NewsRecord
	for rows.Next() {
		var rec domain.NewsRecord
		if err := rows.Scan(&rec.ID, &rec.Date, &rec.Title, &rec.Body, &rec.SourceURL, &rec.Source, &rec.CollectedAt); err != nil {
			return nil, &domain.StorageError{Op: "scan news record", Err: err}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "iterate news records", Err: err}
	}
	return records, nil
}
