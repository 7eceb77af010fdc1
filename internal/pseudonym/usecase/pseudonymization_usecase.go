package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/auditbridge/pseudonym/internal/audit/domain"
	auditUsecase "github.com/auditbridge/pseudonym/internal/audit/usecase"
	cryptoService "github.com/auditbridge/pseudonym/internal/crypto/service"
	"github.com/auditbridge/pseudonym/internal/database"
	apperrors "github.com/auditbridge/pseudonym/internal/errors"
	pseudonymDomain "github.com/auditbridge/pseudonym/internal/pseudonym/domain"
	"github.com/auditbridge/pseudonym/internal/pseudonym/service"
)

// SystemActor identifies operations triggered by the service itself rather than
// an API caller, such as the expiry sweep.
const SystemActor = "system"

// pseudonymUseCase implements PseudonymUseCase.
type pseudonymUseCase struct {
	mappingRepo MappingRepository
	txManager   database.TxManager
	cipher      cryptoService.StringCipher
	extractor   *service.Extractor
	replacer    *service.Replacer
	auditor     auditUsecase.EventUseCase
	retention   time.Duration
	logger      *slog.Logger
}

// NewPseudonymUseCase creates a new PseudonymUseCase with the provided dependencies.
func NewPseudonymUseCase(
	mappingRepo MappingRepository,
	txManager database.TxManager,
	cipher cryptoService.StringCipher,
	extractor *service.Extractor,
	replacer *service.Replacer,
	auditor auditUsecase.EventUseCase,
	retention time.Duration,
	logger *slog.Logger,
) PseudonymUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &pseudonymUseCase{
		mappingRepo: mappingRepo,
		txManager:   txManager,
		cipher:      cipher,
		extractor:   extractor,
		replacer:    replacer,
		auditor:     auditor,
		retention:   retention,
		logger:      logger,
	}
}

// Pseudonymize extracts sensitive values from findings, creates or reuses
// session-scoped mappings inside one transaction, and returns a protected copy
// of the records.
func (p *pseudonymUseCase) Pseudonymize(
	ctx context.Context,
	sessionID, actorID string,
	findings []map[string]any,
) (*PseudonymizeResult, error) {
	if sessionID == "" {
		return nil, pseudonymDomain.ErrSessionIDRequired
	}
	if len(findings) == 0 {
		return nil, pseudonymDomain.ErrFindingsRequired
	}

	extraction := p.extractor.Extract(findings)
	candidates := resolvePrecedence(extraction)

	now := time.Now().UTC()
	forward := make(map[string]string)
	var created []*pseudonymDomain.Mapping
	var reused []*pseudonymDomain.Mapping

	err := p.txManager.WithTx(ctx, func(txCtx context.Context) error {
		for _, category := range pseudonymDomain.Categories {
			values := candidates[category]
			if len(values) == 0 {
				continue
			}

			existing, err := p.mappingRepo.ListBySessionAndCategory(txCtx, sessionID, category)
			if err != nil {
				return err
			}

			known := make(map[string]*pseudonymDomain.Mapping, len(existing))
			nextOrdinal := 0
			for _, mapping := range existing {
				if mapping.Ordinal >= nextOrdinal {
					nextOrdinal = mapping.Ordinal + 1
				}
				plaintext, err := p.cipher.Decrypt(mapping.OriginalValueEncrypted, mapping.Nonce)
				if err != nil {
					p.recordDecryptionError(txCtx, actorID, sessionID, mapping)
					continue
				}
				known[plaintext] = mapping
			}

			for _, value := range values {
				if mapping, ok := known[value]; ok {
					forward[value] = mapping.PseudonymValue
					reused = append(reused, mapping)
					continue
				}

				ciphertext, nonce, err := p.cipher.Encrypt(value)
				if err != nil {
					return apperrors.Wrap(err, "failed to encrypt value")
				}

				mapping := &pseudonymDomain.Mapping{
					ID:                     uuid.Must(uuid.NewV7()),
					SessionID:              sessionID,
					Category:               category,
					Ordinal:                nextOrdinal,
					OriginalValueEncrypted: ciphertext,
					Nonce:                  nonce,
					PseudonymValue:         service.GeneratePseudonym(category, nextOrdinal),
					CreatedAt:              now,
					ExpiresAt:              now.Add(p.retention),
					LastAccessedAt:         now,
					UsageCount:             0,
					CreatedBy:              actorID,
				}
				nextOrdinal++

				forward[value] = mapping.PseudonymValue
				created = append(created, mapping)
			}
		}

		if len(created) > 0 {
			if err := p.mappingRepo.CreateBatch(txCtx, created); err != nil {
				return err
			}
		}
		if len(reused) > 0 {
			reusedIDs := make([]uuid.UUID, len(reused))
			for i, mapping := range reused {
				reusedIDs[i] = mapping.ID
			}
			if err := p.mappingRepo.TouchBatch(txCtx, reusedIDs, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	protected := make([]map[string]any, len(findings))
	targetFields := make([]string, 0, len(p.extractor.PersonFields())+len(p.extractor.FreeTextFields()))
	targetFields = append(targetFields, p.extractor.PersonFields()...)
	targetFields = append(targetFields, p.extractor.FreeTextFields()...)
	for i, finding := range findings {
		record := make(map[string]any, len(finding))
		for key, value := range finding {
			record[key] = value
		}
		for _, field := range targetFields {
			if text, ok := record[field].(string); ok {
				record[field] = p.replacer.ApplyForward(text, forward)
			}
		}
		protected[i] = record
	}

	for _, mapping := range created {
		p.recordEvent(ctx, actorID, auditDomain.ActionMappingCreated, mapping.ID.String(), map[string]any{
			"session_id": sessionID,
			"category":   string(mapping.Category),
			"pseudonym":  mapping.PseudonymValue,
		})
	}
	for _, mapping := range reused {
		p.recordEvent(ctx, actorID, auditDomain.ActionMappingReused, mapping.ID.String(), map[string]any{
			"session_id": sessionID,
			"category":   string(mapping.Category),
			"pseudonym":  mapping.PseudonymValue,
		})
	}

	return &PseudonymizeResult{
		Findings:        protected,
		MappingsCreated: len(created),
		MappingsReused:  len(reused),
	}, nil
}

// Depseudonymize restores original values using the session's stored mappings.
// A mapping whose ciphertext fails authentication is skipped and audited; the
// remaining mappings are still applied.
func (p *pseudonymUseCase) Depseudonymize(
	ctx context.Context,
	sessionID, actorID string,
	data any,
) (*DepseudonymizeResult, error) {
	if sessionID == "" {
		return nil, pseudonymDomain.ErrSessionIDRequired
	}

	mappings, err := p.mappingRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(mappings) == 0 {
		return nil, pseudonymDomain.ErrNoMappingsForSession
	}

	reverse := make(map[string]string, len(mappings))
	applied := make([]uuid.UUID, 0, len(mappings))
	failures := 0
	for _, mapping := range mappings {
		plaintext, err := p.cipher.Decrypt(mapping.OriginalValueEncrypted, mapping.Nonce)
		if err != nil {
			failures++
			p.recordDecryptionError(ctx, actorID, sessionID, mapping)
			continue
		}
		reverse[mapping.PseudonymValue] = plaintext
		applied = append(applied, mapping.ID)
	}

	restored := p.replacer.ApplyReverse(data, reverse)

	if err := p.mappingRepo.TouchBatch(ctx, applied, time.Now().UTC()); err != nil {
		p.logger.Warn("failed to update mapping usage counters",
			"session_id", sessionID, "error", err)
	}

	return &DepseudonymizeResult{
		Data:               restored,
		MappingsApplied:    len(applied),
		DecryptionFailures: failures,
	}, nil
}

// CleanupExpired deletes expired mappings in batches. Each batch runs in its own
// transaction so a long sweep never holds one transaction open.
func (p *pseudonymUseCase) CleanupExpired(
	ctx context.Context,
	batchSize int,
	dryRun bool,
) (*CleanupResult, error) {
	if batchSize <= 0 {
		return nil, pseudonymDomain.ErrBatchSizeRequired
	}

	cutoff := time.Now().UTC()

	if dryRun {
		count, err := p.mappingRepo.CountExpired(ctx, cutoff)
		if err != nil {
			return nil, err
		}
		return &CleanupResult{Deleted: count, DryRun: true}, nil
	}

	var total int64
	var deleted []map[string]any
	sessions := make(map[string]bool)
	for {
		var batch []pseudonymDomain.ExpiredMapping
		err := p.txManager.WithTx(ctx, func(txCtx context.Context) error {
			var err error
			batch, err = p.mappingRepo.DeleteExpired(txCtx, cutoff, batchSize)
			return err
		})
		if err != nil {
			return nil, err
		}

		total += int64(len(batch))
		for _, expired := range batch {
			sessions[expired.SessionID] = true
			deleted = append(deleted, map[string]any{
				"mapping_id": expired.ID.String(),
				"session_id": expired.SessionID,
				"category":   string(expired.Category),
			})
		}

		if len(batch) < batchSize {
			break
		}
	}

	if total > 0 {
		p.recordEvent(ctx, SystemActor, auditDomain.ActionMappingsExpired, "sweep", map[string]any{
			"deleted":  total,
			"sessions": len(sessions),
			"mappings": deleted,
		})
	}

	return &CleanupResult{Deleted: total, Sessions: len(sessions)}, nil
}

// recordEvent records an audit event. Audit failures never fail the primary
// operation; they are logged and dropped.
func (p *pseudonymUseCase) recordEvent(
	ctx context.Context,
	actorID string,
	action auditDomain.Action,
	resourceID string,
	details map[string]any,
) {
	if err := p.auditor.Record(ctx, actorID, action, resourceID, details); err != nil {
		p.logger.Warn("failed to record audit event",
			"action", string(action), "resource_id", resourceID, "error", err)
	}
}

func (p *pseudonymUseCase) recordDecryptionError(
	ctx context.Context,
	actorID, sessionID string,
	mapping *pseudonymDomain.Mapping,
) {
	p.logger.Error("failed to decrypt mapping",
		"session_id", sessionID, "mapping_id", mapping.ID.String(),
		"category", string(mapping.Category))
	p.recordEvent(ctx, actorID, auditDomain.ActionDecryptionError, mapping.ID.String(), map[string]any{
		"session_id": sessionID,
		"category":   string(mapping.Category),
	})
}

// resolvePrecedence assigns each candidate value to exactly one category. When a
// value was extracted under more than one category, the earliest category in
// domain.Categories claims it.
func resolvePrecedence(extraction service.Extraction) map[pseudonymDomain.Category][]string {
	claimed := make(map[string]bool)
	candidates := make(map[pseudonymDomain.Category][]string)

	claim := func(category pseudonymDomain.Category, values []string) {
		for _, value := range values {
			if claimed[value] {
				continue
			}
			claimed[value] = true
			candidates[category] = append(candidates[category], value)
		}
	}

	claim(pseudonymDomain.CategoryName, extraction.Names)
	claim(pseudonymDomain.CategoryIdentifier, extraction.Identifiers)
	claim(pseudonymDomain.CategoryAmount, extraction.Amounts)

	return candidates
}
