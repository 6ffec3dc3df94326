package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campus-assistant/internal/domain"
)

type reportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository creates a Postgres-backed ReportRepository.
func NewReportRepository(pool *pgxpool.Pool) domain.ReportRepository {
	return &reportRepository{pool: pool}
}

func (r *reportRepository) Save(ctx context.Context, report *domain.Report) error {
	query := `
		INSERT INTO reports (scope_kind, scope_date, identity, summary, news_count, effective_news_count, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (scope_kind, scope_date, identity) DO UPDATE
		SET summary = EXCLUDED.summary,
		    news_count = EXCLUDED.news_count,
		    effective_news_count = EXCLUDED.effective_news_count,
		    generated_at = EXCLUDED.generated_at
	`
	_, err := r.pool.Exec(ctx, query,
		report.Scope.Kind, report.Scope.Date, report.Identity,
		report.Summary, report.NewsCount, report.EffectiveNewsCount, report.GeneratedAt,
	)
	if err != nil {
		return &domain.StorageError{Op: "save report", Err: err}
	}
	return nil
}

func (r *reportRepository) Get(ctx context.Context, scope domain.ReportScope, identity domain.Identity) (*domain.Report, error) {
	query := `
		SELECT scope_kind, scope_date::text, identity, summary, news_count, effective_news_count, generated_at
		FROM reports
		WHERE scope_kind = $1 AND scope_date = $2 AND identity = $3
	`
	row := r.pool.QueryRow(ctx, query, scope.Kind, scope.Date, identity)

	var rep domain.Report
	err := row.Scan(&rep.Scope.Kind, &rep.Scope.Date, &rep.Identity,
		&rep.Summary, &rep.NewsCount, &rep.EffectiveNewsCount, &rep.GeneratedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "get report", Err: err}
	}
	return &rep, nil
}

func (r *reportRepository) AvailableDates(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT scope_date::text
		FROM reports
		WHERE scope_kind = 'daily'
		ORDER BY scope_date::text DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, &domain.StorageError{Op: "list report dates", Err: err}
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, &domain.StorageError{Op: "scan report date", Err: err}
		}
		dates = append(dates, date)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "iterate report dates", Err: err}
	}
	return dates, nil
}
