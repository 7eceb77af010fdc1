// Package usecase implements audit event recording and retrieval.
package usecase

import (
	"context"
	"time"

	auditDomain "github.com/auditbridge/pseudonym/internal/audit/domain"
)

// EventRepository defines the interface for audit event persistence.
type EventRepository interface {
	Create(ctx context.Context, event *auditDomain.Event) error

	// List retrieves audit events ordered by newest first with pagination and
	// optional inclusive time filters (nil means no filter).
	List(
		ctx context.Context,
		offset, limit int,
		createdAtFrom, createdAtTo *time.Time,
	) ([]*auditDomain.Event, error)
}

// EventUseCase defines the interface for audit event operations. Record is
// write-only and best-effort from the caller's perspective: primary operations
// treat a returned error as advisory and never fail because of it.
type EventUseCase interface {
	// Record persists one mapping lifecycle event. Generates a UUIDv7 identifier
	// and UTC timestamp. Details is optional and can be nil.
	Record(
		ctx context.Context,
		actorID string,
		action auditDomain.Action,
		resourceID string,
		details map[string]any,
	) error

	// List retrieves audit events ordered by newest first with pagination and
	// optional inclusive time filters.
	List(
		ctx context.Context,
		offset, limit int,
		createdAtFrom, createdAtTo *time.Time,
	) ([]*auditDomain.Event, error)
}
