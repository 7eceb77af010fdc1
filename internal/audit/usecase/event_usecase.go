package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/auditbridge/pseudonym/internal/audit/domain"
	apperrors "github.com/auditbridge/pseudonym/internal/errors"
)

// eventUseCase implements EventUseCase for recording mapping lifecycle events.
type eventUseCase struct {
	eventRepo EventRepository
}

// NewEventUseCase creates a new EventUseCase with the provided dependencies.
func NewEventUseCase(eventRepo EventRepository) EventUseCase {
	return &eventUseCase{
		eventRepo: eventRepo,
	}
}

// Record persists one mapping lifecycle event. Generates a unique UUIDv7
// identifier and timestamp. The details parameter is optional and can be nil.
func (e *eventUseCase) Record(
	ctx context.Context,
	actorID string,
	action auditDomain.Action,
	resourceID string,
	details map[string]any,
) error {
	event := &auditDomain.Event{
		ID:           uuid.Must(uuid.NewV7()),
		ActorID:      actorID,
		Action:       action,
		ResourceType: auditDomain.ResourceTypeMapping,
		ResourceID:   resourceID,
		Details:      details,
		CreatedAt:    time.Now().UTC(),
	}

	if err := e.eventRepo.Create(ctx, event); err != nil {
		return apperrors.Wrap(err, "failed to record audit event")
	}

	return nil
}

// List retrieves audit events ordered by created_at descending (newest first) with
// pagination and optional time-based filtering. Both boundaries are inclusive.
// All timestamps are expected in UTC.
func (e *eventUseCase) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.Event, error) {
	events, err := e.eventRepo.List(ctx, offset, limit, createdAtFrom, createdAtTo)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}

	return events, nil
}
