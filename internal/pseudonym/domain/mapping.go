package domain

import (
	"time"

	"github.com/google/uuid"
)

// Mapping is the persisted association between one plaintext value and its pseudonym
// within one session and category. The original value is stored only as AEAD
// ciphertext; plaintext is never persisted.
type Mapping struct {
	ID        uuid.UUID
	SessionID string
	Category  Category
	// Ordinal is the zero-based position of this mapping within (SessionID, Category).
	// Ordinals are strictly increasing and never reused, even after earlier mappings
	// are deleted by expiry.
	Ordinal                int
	OriginalValueEncrypted []byte
	Nonce                  []byte
	PseudonymValue         string
	CreatedAt              time.Time
	ExpiresAt              time.Time
	LastAccessedAt         time.Time
	// UsageCount is incremented on every substitution application.
	UsageCount int64
	CreatedBy  string
}

// IsExpired checks if the mapping has passed its retention window.
// All time comparisons use UTC.
func (m *Mapping) IsExpired() bool {
	return time.Now().UTC().After(m.ExpiresAt.UTC())
}

// ExpiredMapping identifies a mapping removed by the expiry sweep. Only
// non-sensitive identifiers are carried; the ciphertext is gone with the row.
type ExpiredMapping struct {
	ID        uuid.UUID
	SessionID string
	Category  Category
}
