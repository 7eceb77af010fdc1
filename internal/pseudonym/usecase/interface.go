// Package usecase orchestrates the pseudonymization workflows: substituting
// sensitive values with session-scoped pseudonyms before records leave the
// trust boundary, restoring originals afterwards, and sweeping expired mappings.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	pseudonymDomain "github.com/auditbridge/pseudonym/internal/pseudonym/domain"
)

// MappingRepository defines the interface for mapping persistence.
type MappingRepository interface {
	// CreateBatch inserts new mappings. Returns domain.ErrPseudonymConflict when a
	// concurrent caller already created one of the pseudonyms.
	CreateBatch(ctx context.Context, mappings []*pseudonymDomain.Mapping) error

	// ListBySessionAndCategory retrieves mappings for one session and category,
	// ordered by ordinal ascending.
	ListBySessionAndCategory(
		ctx context.Context,
		sessionID string,
		category pseudonymDomain.Category,
	) ([]*pseudonymDomain.Mapping, error)

	// ListBySession retrieves all mappings for one session.
	ListBySession(ctx context.Context, sessionID string) ([]*pseudonymDomain.Mapping, error)

	// TouchBatch increments usage counters and refreshes last_accessed_at.
	TouchBatch(ctx context.Context, ids []uuid.UUID, accessedAt time.Time) error

	// DeleteExpired deletes up to limit mappings expired at the cutoff and returns
	// the deleted rows' identifying tuples.
	DeleteExpired(
		ctx context.Context,
		cutoff time.Time,
		limit int,
	) ([]pseudonymDomain.ExpiredMapping, error)

	// CountExpired returns how many mappings are expired at the cutoff.
	CountExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// PseudonymizeResult describes one pseudonymization pass over a findings batch.
type PseudonymizeResult struct {
	// Findings is the protected copy of the input records. Input records are never
	// mutated.
	Findings []map[string]any
	// MappingsCreated counts mappings newly persisted by this call.
	MappingsCreated int
	// MappingsReused counts existing mappings whose pseudonyms were applied again.
	MappingsReused int
}

// DepseudonymizeResult describes one restoration pass.
type DepseudonymizeResult struct {
	// Data is the restored copy of the input value.
	Data any
	// MappingsApplied counts mappings whose pseudonyms were available for
	// restoration after decryption.
	MappingsApplied int
	// DecryptionFailures counts mappings skipped because their ciphertext could
	// not be authenticated. Failures are isolated per mapping.
	DecryptionFailures int
}

// CleanupResult summarizes an expiry sweep.
type CleanupResult struct {
	// Deleted is the number of mappings removed, or the number that would be
	// removed when DryRun is set.
	Deleted int64
	// Sessions is the number of distinct sessions affected. Zero in dry-run mode.
	Sessions int
	DryRun   bool
}

// PseudonymUseCase defines the pseudonymization engine operations.
type PseudonymUseCase interface {
	// Pseudonymize extracts sensitive values from findings, creates or reuses
	// session-scoped mappings, and returns a protected copy of the records.
	// Idempotent per session: repeated values keep their first pseudonym.
	Pseudonymize(
		ctx context.Context,
		sessionID, actorID string,
		findings []map[string]any,
	) (*PseudonymizeResult, error)

	// Depseudonymize restores original values in an arbitrary tree of strings,
	// lists, and maps using the session's stored mappings. Returns
	// domain.ErrNoMappingsForSession when the session has no mappings.
	Depseudonymize(
		ctx context.Context,
		sessionID, actorID string,
		data any,
	) (*DepseudonymizeResult, error)

	// CleanupExpired deletes expired mappings in batches of batchSize. With dryRun
	// set it only counts what would be deleted.
	CleanupExpired(ctx context.Context, batchSize int, dryRun bool) (*CleanupResult, error)
}
