package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	auditDomain "github.com/auditbridge/pseudonym/internal/audit/domain"
	apperrors "github.com/auditbridge/pseudonym/internal/errors"
)

// mockEventRepository is a mock implementation of EventRepository for testing.
type mockEventRepository struct {
	mock.Mock
}

func (m *mockEventRepository) Create(ctx context.Context, event *auditDomain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockEventRepository) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.Event, error) {
	args := m.Called(ctx, offset, limit, createdAtFrom, createdAtTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.Event), args.Error(1)
}

func TestEventUseCase_Record(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := &mockEventRepository{}
		repo.On("Create", ctx, mock.MatchedBy(func(event *auditDomain.Event) bool {
			return event.ActorID == "client-1" &&
				event.Action == auditDomain.ActionMappingCreated &&
				event.ResourceType == auditDomain.ResourceTypeMapping &&
				event.ResourceID != "" &&
				!event.CreatedAt.IsZero()
		})).Return(nil).Once()

		uc := NewEventUseCase(repo)
		err := uc.Record(ctx, "client-1", auditDomain.ActionMappingCreated, "mapping-id", map[string]any{
			"session_id": "s1",
			"category":   "name",
			"pseudonym":  "Person_A",
		})

		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("RepositoryError", func(t *testing.T) {
		repo := &mockEventRepository{}
		repo.On("Create", ctx, mock.Anything).Return(apperrors.New("insert failed")).Once()

		uc := NewEventUseCase(repo)
		err := uc.Record(ctx, "client-1", auditDomain.ActionDecryptionError, "mapping-id", nil)

		assert.Error(t, err)
		repo.AssertExpectations(t)
	})
}

func TestEventUseCase_List(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		want := []*auditDomain.Event{
			{ActorID: "client-1", Action: auditDomain.ActionMappingsExpired},
		}
		repo := &mockEventRepository{}
		repo.On("List", ctx, 0, 50, (*time.Time)(nil), (*time.Time)(nil)).Return(want, nil).Once()

		uc := NewEventUseCase(repo)
		events, err := uc.List(ctx, 0, 50, nil, nil)

		assert.NoError(t, err)
		assert.Equal(t, want, events)
		repo.AssertExpectations(t)
	})

	t.Run("RepositoryError", func(t *testing.T) {
		repo := &mockEventRepository{}
		repo.On("List", ctx, 0, 50, (*time.Time)(nil), (*time.Time)(nil)).
			Return(nil, apperrors.New("query failed")).Once()

		uc := NewEventUseCase(repo)
		_, err := uc.List(ctx, 0, 50, nil, nil)

		assert.Error(t, err)
		repo.AssertExpectations(t)
	})
}
