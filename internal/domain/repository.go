package domain

import "context"

// PutResult reports whether a Put inserted a new record or hit the dedup
// index.
type PutResult string

const (
	PutInserted  PutResult = "inserted"
	PutDuplicate PutResult = "duplicate"
)

// NewsRepository owns NewsRecord persistence. Records are keyed by
// (date, id) and immutable once stored.
type NewsRepository interface {
	// Put stores the record unless its fingerprint is already present.
	Put(ctx context.Context, record *NewsRecord) (PutResult, error)
	// ListByDate returns all records for one day in insertion order.
	ListByDate(ctx context.Context, date string) ([]NewsRecord, error)
	// ListRange returns records in [start, end] inclusive, ordered by date
	// then insertion order.
	ListRange(ctx context.Context, start, end string) ([]NewsRecord, error)
}

// ReportRepository owns Report persistence, keyed by (scope, identity).
type ReportRepository interface {
	// Save upserts a report. Last writer wins; call sites serialize writes
	// per scope.
	Save(ctx context.Context, report *Report) error
	// Get returns the report for (scope, identity), or nil when absent.
	Get(ctx context.Context, scope ReportScope, identity Identity) (*Report, error)
	// AvailableDates returns the dates for which a daily report exists for
	// at least one identity, newest first.
	AvailableDates(ctx context.Context) ([]string, error)
}
