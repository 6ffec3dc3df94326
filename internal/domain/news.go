package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// NewsRecord is a single crawled campus notice. Immutable once stored.
type NewsRecord struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"` // calendar day, YYYY-MM-DD
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	SourceURL   string    `json:"source_url"`
	Source      string    `json:"source"`
	CollectedAt time.Time `json:"collected_at"`
}

// FingerprintPolicy computes a stable content hash for a news record.
// It ensures idempotency: same title+body+url (normalized) -> same hash,
// so re-ingesting the same notice is a no-op.
type FingerprintPolicy interface {
	Compute(title, body, sourceURL string) string
}

type fingerprintPolicy struct{}

// NewFingerprintPolicy creates the default FingerprintPolicy.
func NewFingerprintPolicy() FingerprintPolicy {
	return &fingerprintPolicy{}
}

// Compute returns the SHA-256 hash of the normalized content.
// NUL separators avoid ambiguity between field boundaries.
func (p *fingerprintPolicy) Compute(title, body, sourceURL string) string {
	content := NormalizeText(title) + "\x00" + NormalizeText(body) + "\x00" + strings.TrimSpace(sourceURL)
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// NormalizeText trims the text and collapses internal whitespace runs to a
// single space, so cosmetic formatting differences do not defeat dedup.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
