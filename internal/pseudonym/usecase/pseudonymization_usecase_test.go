package usecase

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/auditbridge/pseudonym/internal/audit/domain"
	cryptoDomain "github.com/auditbridge/pseudonym/internal/crypto/domain"
	cryptoService "github.com/auditbridge/pseudonym/internal/crypto/service"
	apperrors "github.com/auditbridge/pseudonym/internal/errors"
	pseudonymDomain "github.com/auditbridge/pseudonym/internal/pseudonym/domain"
	"github.com/auditbridge/pseudonym/internal/pseudonym/service"
)

// mockMappingRepository is a mock implementation of MappingRepository for testing.
type mockMappingRepository struct {
	mock.Mock
}

func (m *mockMappingRepository) CreateBatch(
	ctx context.Context,
	mappings []*pseudonymDomain.Mapping,
) error {
	args := m.Called(ctx, mappings)
	return args.Error(0)
}

func (m *mockMappingRepository) ListBySessionAndCategory(
	ctx context.Context,
	sessionID string,
	category pseudonymDomain.Category,
) ([]*pseudonymDomain.Mapping, error) {
	args := m.Called(ctx, sessionID, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*pseudonymDomain.Mapping), args.Error(1)
}

func (m *mockMappingRepository) ListBySession(
	ctx context.Context,
	sessionID string,
) ([]*pseudonymDomain.Mapping, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*pseudonymDomain.Mapping), args.Error(1)
}

func (m *mockMappingRepository) TouchBatch(
	ctx context.Context,
	ids []uuid.UUID,
	accessedAt time.Time,
) error {
	args := m.Called(ctx, ids, accessedAt)
	return args.Error(0)
}

func (m *mockMappingRepository) DeleteExpired(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]pseudonymDomain.ExpiredMapping, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]pseudonymDomain.ExpiredMapping), args.Error(1)
}

func (m *mockMappingRepository) CountExpired(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// mockEventUseCase is a mock implementation of the audit EventUseCase.
type mockEventUseCase struct {
	mock.Mock
}

func (m *mockEventUseCase) Record(
	ctx context.Context,
	actorID string,
	action auditDomain.Action,
	resourceID string,
	details map[string]any,
) error {
	args := m.Called(ctx, actorID, action, resourceID, details)
	return args.Error(0)
}

func (m *mockEventUseCase) List(
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

// fakeTxManager runs the function directly without a real transaction.
type fakeTxManager struct{}

func (f *fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestCipher(t *testing.T) cryptoService.StringCipher {
	t.Helper()
	key := bytes.Repeat([]byte{0x42}, 32)
	cipher, err := cryptoService.NewStringCipher(key, cryptoDomain.AESGCM)
	require.NoError(t, err)
	return cipher
}

func newTestUseCase(
	t *testing.T,
	repo *mockMappingRepository,
	auditor *mockEventUseCase,
) PseudonymUseCase {
	t.Helper()
	return NewPseudonymUseCase(
		repo,
		&fakeTxManager{},
		newTestCipher(t),
		service.NewExtractor(service.ExtractorConfig{}),
		service.NewReplacer(),
		auditor,
		30*24*time.Hour,
		nil,
	)
}

func encryptedMapping(
	t *testing.T,
	cipher cryptoService.StringCipher,
	sessionID string,
	category pseudonymDomain.Category,
	ordinal int,
	plaintext, pseudonym string,
) *pseudonymDomain.Mapping {
	t.Helper()
	ciphertext, nonce, err := cipher.Encrypt(plaintext)
	require.NoError(t, err)
	now := time.Now().UTC()
	return &pseudonymDomain.Mapping{
		ID:                     uuid.Must(uuid.NewV7()),
		SessionID:              sessionID,
		Category:               category,
		Ordinal:                ordinal,
		OriginalValueEncrypted: ciphertext,
		Nonce:                  nonce,
		PseudonymValue:         pseudonym,
		CreatedAt:              now,
		ExpiresAt:              now.Add(24 * time.Hour),
		LastAccessedAt:         now,
		UsageCount:             1,
		CreatedBy:              "client-1",
	}
}

func TestPseudonymUseCase_Pseudonymize(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesMappingsAndProtectsFindings", func(t *testing.T) {
		repo := &mockMappingRepository{}
		auditor := &mockEventUseCase{}
		repo.On("ListBySessionAndCategory", mock.Anything, "session-1", pseudonymDomain.CategoryName).
			Return([]*pseudonymDomain.Mapping{}, nil).Once()
		repo.On("ListBySessionAndCategory", mock.Anything, "session-1", pseudonymDomain.CategoryIdentifier).
			Return([]*pseudonymDomain.Mapping{}, nil).Once()
		repo.On("ListBySessionAndCategory", mock.Anything, "session-1", pseudonymDomain.CategoryAmount).
			Return([]*pseudonymDomain.Mapping{}, nil).Once()
		repo.On("CreateBatch", mock.Anything, mock.MatchedBy(func(mappings []*pseudonymDomain.Mapping) bool {
			return len(mappings) == 3
		})).Return(nil).Once()
		auditor.On("Record", mock.Anything, "client-1", auditDomain.ActionMappingCreated,
			mock.Anything, mock.Anything).Return(nil).Times(3)

		uc := newTestUseCase(t, repo, auditor)
		findings := []map[string]any{
			{
				"findingNumber":     "F-001",
				"responsiblePerson": "John Doe",
				"description":       "Invoice INV2024001 overstated by $5,000.",
			},
		}

		result, err := uc.Pseudonymize(ctx, "session-1", "client-1", findings)

		require.NoError(t, err)
		assert.Equal(t, 3, result.MappingsCreated)
		assert.Equal(t, 0, result.MappingsReused)
		assert.Equal(t, "Person_A", result.Findings[0]["responsiblePerson"])
		description := result.Findings[0]["description"].(string)
		assert.NotContains(t, description, "INV2024001")
		assert.NotContains(t, description, "$5,000")
		assert.Contains(t, description, "ID_001")
		assert.Contains(t, description, "Amount_001")

		// Input records are never mutated.
		assert.Equal(t, "John Doe", findings[0]["responsiblePerson"])
		repo.AssertExpectations(t)
		auditor.AssertExpectations(t)
	})

	t.Run("ReusesExistingMappings", func(t *testing.T) {
		cipher := newTestCipher(t)
		existing := encryptedMapping(t, cipher, "session-1",
			pseudonymDomain.CategoryName, 0, "John Doe", "Person_A")

		repo := &mockMappingRepository{}
		auditor := &mockEventUseCase{}
		repo.On("ListBySessionAndCategory", mock.Anything, "session-1", pseudonymDomain.CategoryName).
			Return([]*pseudonymDomain.Mapping{existing}, nil).Once()
		repo.On("TouchBatch", mock.Anything, []uuid.UUID{existing.ID}, mock.Anything).
			Return(nil).Once()
		auditor.On("Record", mock.Anything, "client-1", auditDomain.ActionMappingReused,
			existing.ID.String(), mock.MatchedBy(func(details map[string]any) bool {
				return details["session_id"] == "session-1" &&
					details["category"] == string(pseudonymDomain.CategoryName) &&
					details["pseudonym"] == "Person_A"
			})).Return(nil).Once()

		uc := newTestUseCase(t, repo, auditor)
		findings := []map[string]any{{"responsiblePerson": "John Doe"}}

		result, err := uc.Pseudonymize(ctx, "session-1", "client-1", findings)

		require.NoError(t, err)
		assert.Equal(t, 0, result.MappingsCreated)
		assert.Equal(t, 1, result.MappingsReused)
		assert.Equal(t, "Person_A", result.Findings[0]["responsiblePerson"])
		repo.AssertExpectations(t)
		auditor.AssertExpectations(t)
	})

	t.Run("NewMappingContinuesAfterHighestOrdinal", func(t *testing.T) {
		cipher := newTestCipher(t)
		existing := encryptedMapping(t, cipher, "session-1",
			pseudonymDomain.CategoryName, 3, "Jane Smith", "Person_D")

		repo := &mockMappingRepository{}
		auditor := &mockEventUseCase{}
		repo.On("ListBySessionAndCategory", mock.Anything, "session-1", pseudonymDomain.CategoryName).
			Return([]*pseudonymDomain.Mapping{existing}, nil).Once()
		repo.On("CreateBatch", mock.Anything, mock.MatchedBy(func(mappings []*pseudonymDomain.Mapping) bool {
			return len(mappings) == 1 &&
				mappings[0].Ordinal == 4 &&
				mappings[0].PseudonymValue == "Person_E"
		})).Return(nil).Once()
		auditor.On("Record", mock.Anything, "client-1", auditDomain.ActionMappingCreated,
			mock.Anything, mock.Anything).Return(nil).Once()

		uc := newTestUseCase(t, repo, auditor)
		findings := []map[string]any{{"responsiblePerson": "John Doe"}}

		result, err := uc.Pseudonymize(ctx, "session-1", "client-1", findings)

		require.NoError(t, err)
		assert.Equal(t, 1, result.MappingsCreated)
		repo.AssertExpectations(t)
	})

	t.Run("BlankSessionID", func(t *testing.T) {
		uc := newTestUseCase(t, &mockMappingRepository{}, &mockEventUseCase{})
		_, err := uc.Pseudonymize(ctx, "", "client-1", []map[string]any{{"description": "x"}})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("EmptyFindings", func(t *testing.T) {
		uc := newTestUseCase(t, &mockMappingRepository{}, &mockEventUseCase{})
		_, err := uc.Pseudonymize(ctx, "session-1", "client-1", nil)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("NoSensitiveValuesIsNoop", func(t *testing.T) {
		repo := &mockMappingRepository{}
		uc := newTestUseCase(t, repo, &mockEventUseCase{})

		findings := []map[string]any{{"description": "All controls operating effectively."}}
		result, err := uc.Pseudonymize(ctx, "session-1", "client-1", findings)

		require.NoError(t, err)
		assert.Equal(t, 0, result.MappingsCreated)
		assert.Equal(t, findings[0]["description"], result.Findings[0]["description"])
		repo.AssertExpectations(t)
	})

	t.Run("CreateConflictPropagates", func(t *testing.T) {
		repo := &mockMappingRepository{}
		repo.On("ListBySessionAndCategory", mock.Anything, "session-1", pseudonymDomain.CategoryName).
			Return([]*pseudonymDomain.Mapping{}, nil).Once()
		repo.On("CreateBatch", mock.Anything, mock.Anything).
			Return(pseudonymDomain.ErrPseudonymConflict).Once()

		uc := newTestUseCase(t, repo, &mockEventUseCase{})
		_, err := uc.Pseudonymize(ctx, "session-1", "client-1",
			[]map[string]any{{"responsiblePerson": "John Doe"}})

		assert.ErrorIs(t, err, apperrors.ErrConflict)
		repo.AssertExpectations(t)
	})
}

func TestPseudonymUseCase_Depseudonymize(t *testing.T) {
	ctx := context.Background()

	t.Run("RestoresOriginalValues", func(t *testing.T) {
		cipher := newTestCipher(t)
		name := encryptedMapping(t, cipher, "session-1",
			pseudonymDomain.CategoryName, 0, "John Doe", "Person_A")
		amount := encryptedMapping(t, cipher, "session-1",
			pseudonymDomain.CategoryAmount, 0, "$5,000", "Amount_001")

		repo := &mockMappingRepository{}
		repo.On("ListBySession", mock.Anything, "session-1").
			Return([]*pseudonymDomain.Mapping{name, amount}, nil).Once()
		repo.On("TouchBatch", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

		uc := newTestUseCase(t, repo, &mockEventUseCase{})
		data := map[string]any{
			"analysis": "Person_A should repay Amount_001.",
			"items":    []any{"Person_A is responsible"},
		}

		result, err := uc.Depseudonymize(ctx, "session-1", "client-1", data)

		require.NoError(t, err)
		assert.Equal(t, 2, result.MappingsApplied)
		assert.Equal(t, 0, result.DecryptionFailures)
		restored := result.Data.(map[string]any)
		assert.Equal(t, "John Doe should repay $5,000.", restored["analysis"])
		assert.Equal(t, "John Doe is responsible", restored["items"].([]any)[0])
		repo.AssertExpectations(t)
	})

	t.Run("NoMappingsForSession", func(t *testing.T) {
		repo := &mockMappingRepository{}
		repo.On("ListBySession", mock.Anything, "session-unknown").
			Return([]*pseudonymDomain.Mapping{}, nil).Once()

		uc := newTestUseCase(t, repo, &mockEventUseCase{})
		_, err := uc.Depseudonymize(ctx, "session-unknown", "client-1", "Person_A")

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Contains(t, err.Error(), "retention")
		repo.AssertExpectations(t)
	})

	t.Run("DecryptionFailureIsIsolated", func(t *testing.T) {
		cipher := newTestCipher(t)
		good := encryptedMapping(t, cipher, "session-1",
			pseudonymDomain.CategoryName, 0, "John Doe", "Person_A")
		bad := encryptedMapping(t, cipher, "session-1",
			pseudonymDomain.CategoryName, 1, "Jane Smith", "Person_B")
		bad.OriginalValueEncrypted[0] ^= 0xFF

		repo := &mockMappingRepository{}
		auditor := &mockEventUseCase{}
		repo.On("ListBySession", mock.Anything, "session-1").
			Return([]*pseudonymDomain.Mapping{good, bad}, nil).Once()
		repo.On("TouchBatch", mock.Anything, []uuid.UUID{good.ID}, mock.Anything).
			Return(nil).Once()
		auditor.On("Record", mock.Anything, "client-1", auditDomain.ActionDecryptionError,
			bad.ID.String(), mock.Anything).Return(nil).Once()

		uc := newTestUseCase(t, repo, auditor)
		result, err := uc.Depseudonymize(ctx, "session-1", "client-1",
			"Person_A and Person_B reviewed the finding.")

		require.NoError(t, err)
		assert.Equal(t, 1, result.MappingsApplied)
		assert.Equal(t, 1, result.DecryptionFailures)
		restored := result.Data.(string)
		assert.True(t, strings.Contains(restored, "John Doe"))
		assert.True(t, strings.Contains(restored, "Person_B"))
		repo.AssertExpectations(t)
		auditor.AssertExpectations(t)
	})

	t.Run("BlankSessionID", func(t *testing.T) {
		uc := newTestUseCase(t, &mockMappingRepository{}, &mockEventUseCase{})
		_, err := uc.Depseudonymize(ctx, "", "client-1", "data")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestPseudonymUseCase_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cipher := newTestCipher(t)

	// Capture mappings created during pseudonymization and serve them back for
	// depseudonymization.
	var stored []*pseudonymDomain.Mapping
	repo := &mockMappingRepository{}
	auditor := &mockEventUseCase{}
	repo.On("ListBySessionAndCategory", mock.Anything, "session-1", mock.Anything).
		Return([]*pseudonymDomain.Mapping{}, nil)
	repo.On("CreateBatch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			stored = append(stored, args.Get(1).([]*pseudonymDomain.Mapping)...)
		}).
		Return(nil)
	repo.On("TouchBatch", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	auditor.On("Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)

	uc := NewPseudonymUseCase(
		repo,
		&fakeTxManager{},
		cipher,
		service.NewExtractor(service.ExtractorConfig{}),
		service.NewReplacer(),
		auditor,
		30*24*time.Hour,
		nil,
	)

	findings := []map[string]any{
		{
			"responsiblePerson": "Budi Santoso",
			"description":       "Contract KTR2023045 was overpaid by $12,500.",
			"recommendation":    "Budi Santoso must refund $12,500 immediately.",
		},
	}

	protected, err := uc.Pseudonymize(ctx, "session-1", "client-1", findings)
	require.NoError(t, err)
	require.NotEmpty(t, stored)

	repo.On("ListBySession", mock.Anything, "session-1").Return(stored, nil)

	analysis := protected.Findings[0]["description"].(string) + " " +
		protected.Findings[0]["recommendation"].(string)
	restored, err := uc.Depseudonymize(ctx, "session-1", "client-1", analysis)
	require.NoError(t, err)

	text := restored.Data.(string)
	assert.Contains(t, text, "Budi Santoso")
	assert.Contains(t, text, "KTR2023045")
	assert.Contains(t, text, "$12,500")
	assert.NotContains(t, text, "Person_A")
	assert.NotContains(t, text, "ID_001")
	assert.NotContains(t, text, "Amount_001")
}

func TestPseudonymUseCase_CleanupExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("DeletesInBatchesUntilExhausted", func(t *testing.T) {
		first := []pseudonymDomain.ExpiredMapping{
			{ID: uuid.Must(uuid.NewV7()), SessionID: "s1", Category: pseudonymDomain.CategoryName},
			{ID: uuid.Must(uuid.NewV7()), SessionID: "s2", Category: pseudonymDomain.CategoryAmount},
		}
		second := []pseudonymDomain.ExpiredMapping{
			{ID: uuid.Must(uuid.NewV7()), SessionID: "s1", Category: pseudonymDomain.CategoryName},
		}

		repo := &mockMappingRepository{}
		auditor := &mockEventUseCase{}
		repo.On("DeleteExpired", mock.Anything, mock.Anything, 2).
			Return(first, nil).Once()
		repo.On("DeleteExpired", mock.Anything, mock.Anything, 2).
			Return(second, nil).Once()
		auditor.On("Record", mock.Anything, SystemActor, auditDomain.ActionMappingsExpired,
			"sweep", mock.MatchedBy(func(details map[string]any) bool {
				tuples, ok := details["mappings"].([]map[string]any)
				return details["deleted"] == int64(3) && details["sessions"] == 2 &&
					ok && len(tuples) == 3 && tuples[0]["session_id"] == "s1"
			})).Return(nil).Once()

		uc := newTestUseCase(t, repo, auditor)
		result, err := uc.CleanupExpired(ctx, 2, false)

		require.NoError(t, err)
		assert.Equal(t, int64(3), result.Deleted)
		assert.Equal(t, 2, result.Sessions)
		assert.False(t, result.DryRun)
		repo.AssertExpectations(t)
		auditor.AssertExpectations(t)
	})

	t.Run("DryRunOnlyCounts", func(t *testing.T) {
		repo := &mockMappingRepository{}
		repo.On("CountExpired", mock.Anything, mock.Anything).
			Return(int64(42), nil).Once()

		uc := newTestUseCase(t, repo, &mockEventUseCase{})
		result, err := uc.CleanupExpired(ctx, 1000, true)

		require.NoError(t, err)
		assert.Equal(t, int64(42), result.Deleted)
		assert.True(t, result.DryRun)
		repo.AssertNotCalled(t, "DeleteExpired", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
	})

	t.Run("NothingExpiredRecordsNoEvent", func(t *testing.T) {
		repo := &mockMappingRepository{}
		auditor := &mockEventUseCase{}
		repo.On("DeleteExpired", mock.Anything, mock.Anything, 1000).
			Return([]pseudonymDomain.ExpiredMapping{}, nil).Once()

		uc := newTestUseCase(t, repo, auditor)
		result, err := uc.CleanupExpired(ctx, 1000, false)

		require.NoError(t, err)
		assert.Equal(t, int64(0), result.Deleted)
		auditor.AssertNotCalled(t, "Record",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
	})

	t.Run("NonPositiveBatchSizeIsRejected", func(t *testing.T) {
		repo := &mockMappingRepository{}

		uc := newTestUseCase(t, repo, &mockEventUseCase{})
		for _, batchSize := range []int{0, -1} {
			_, err := uc.CleanupExpired(ctx, batchSize, false)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		}
		repo.AssertNotCalled(t, "DeleteExpired", mock.Anything, mock.Anything, mock.Anything)
	})
}
