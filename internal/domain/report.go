package domain

import (
	"fmt"
	"time"
)

// Identity is the audience lens applied to the same underlying records.
type Identity string

const (
	IdentityStudent Identity = "student"
	IdentityTeacher Identity = "teacher"
)

// Identities lists every audience a report is compiled for.
var Identities = []Identity{IdentityStudent, IdentityTeacher}

// ParseIdentity validates a caller-supplied identity string.
func ParseIdentity(s string) (Identity, error) {
	switch Identity(s) {
	case IdentityStudent, IdentityTeacher:
		return Identity(s), nil
	case "":
		return IdentityStudent, nil
	}
	return "", &ValidationError{Field: "identity", Reason: fmt.Sprintf("unknown identity %q", s)}
}

// ScopeKind distinguishes daily reports from weekly aggregates.
type ScopeKind string

const (
	ScopeDaily  ScopeKind = "daily"
	ScopeWeekly ScopeKind = "weekly"
)

// ReportScope identifies what a report covers: a single day, or the
// trailing 7-day window ending on Date.
type ReportScope struct {
	Kind ScopeKind
	Date string // YYYY-MM-DD; for weekly scopes this is the range end
}

// Daily returns the scope for a single calendar day.
func Daily(date string) ReportScope {
	return ReportScope{Kind: ScopeDaily, Date: date}
}

// Weekly returns the scope for the 7-day window ending on date.
func Weekly(endDate string) ReportScope {
	return ReportScope{Kind: ScopeWeekly, Date: endDate}
}

// Key returns a stable identifier used for write serialization per scope.
func (s ReportScope) Key() string {
	return string(s.Kind) + ":" + s.Date
}

// Report is an audience-specific summary for one scope.
type Report struct {
	Scope              ReportScope `json:"scope"`
	Identity           Identity    `json:"identity"`
	Summary            string      `json:"summary"`
	NewsCount          int         `json:"news_count"`
	EffectiveNewsCount int         `json:"effective_news_count"`
	GeneratedAt        time.Time   `json:"generated_at"`
}

const (
	// NoNewsDailySummary is the canonical summary written when a day has no
	// usable records. Generation is skipped entirely for such days.
	NoNewsDailySummary = "今日无重要新闻通知。"
	// NoNewsWeeklySummary is the weekly counterpart.
	NoNewsWeeklySummary = "本周无重要新闻通知。"
)

const dateLayout = "2006-01-02"

// ParseDate validates a YYYY-MM-DD day string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Reason: fmt.Sprintf("malformed date %q", s)}
	}
	return t, nil
}

// FormatDate renders a time as the canonical day string.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// DateRange returns the days-length range of day strings ending at end,
// oldest first.
func DateRange(end time.Time, days int) []string {
	if days <= 0 {
		return nil
	}
	out := make([]string, 0, days)
	for i := days - 1; i >= 0; i-- {
		out = append(out, FormatDate(end.AddDate(0, 0, -i)))
	}
	return out
}
