// Package repository implements mapping persistence with dual database support
// (PostgreSQL and MySQL). All writes go through database.GetTx() so a use case
// can batch them into one transaction.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/auditbridge/pseudonym/internal/database"
	apperrors "github.com/auditbridge/pseudonym/internal/errors"
	pseudonymDomain "github.com/auditbridge/pseudonym/internal/pseudonym/domain"
)

const mappingColumns = `id, session_id, category, ordinal, original_value_encrypted, nonce,
	pseudonym_value, created_at, expires_at, last_accessed_at, usage_count, created_by`

// PostgreSQLMappingRepository implements mapping persistence for PostgreSQL.
type PostgreSQLMappingRepository struct {
	db *sql.DB
}

// NewPostgreSQLMappingRepository creates a new PostgreSQL mapping repository.
func NewPostgreSQLMappingRepository(db *sql.DB) *PostgreSQLMappingRepository {
	return &PostgreSQLMappingRepository{db: db}
}

// CreateBatch inserts new mappings. The unique constraint on (session_id, category,
// pseudonym_value) turns a concurrent double-create into ErrPseudonymConflict
// instead of silently duplicating a pseudonym.
func (p *PostgreSQLMappingRepository) CreateBatch(
	ctx context.Context,
	mappings []*pseudonymDomain.Mapping,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO mappings (` + mappingColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	for _, mapping := range mappings {
		_, err := querier.ExecContext(
			ctx,
			query,
			mapping.ID,
			mapping.SessionID,
			string(mapping.Category),
			mapping.Ordinal,
			mapping.OriginalValueEncrypted,
			mapping.Nonce,
			mapping.PseudonymValue,
			mapping.CreatedAt,
			mapping.ExpiresAt,
			mapping.LastAccessedAt,
			mapping.UsageCount,
			mapping.CreatedBy,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return pseudonymDomain.ErrPseudonymConflict
			}
			return apperrors.Wrap(err, "failed to create mapping")
		}
	}

	return nil
}

// ListBySessionAndCategory retrieves all mappings for one session and category,
// ordered by ordinal ascending.
func (p *PostgreSQLMappingRepository) ListBySessionAndCategory(
	ctx context.Context,
	sessionID string,
	category pseudonymDomain.Category,
) ([]*pseudonymDomain.Mapping, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + mappingColumns + `
			  FROM mappings
			  WHERE session_id = $1 AND category = $2
			  ORDER BY ordinal ASC`

	rows, err := querier.QueryContext(ctx, query, sessionID, string(category))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list mappings by session and category")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanMappings(rows)
}

// ListBySession retrieves all mappings for one session across every category,
// ordered by category and ordinal.
func (p *PostgreSQLMappingRepository) ListBySession(
	ctx context.Context,
	sessionID string,
) ([]*pseudonymDomain.Mapping, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + mappingColumns + `
			  FROM mappings
			  WHERE session_id = $1
			  ORDER BY category ASC, ordinal ASC`

	rows, err := querier.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list mappings by session")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanMappings(rows)
}

// TouchBatch increments usage counters and refreshes last_accessed_at for the
// given mapping IDs.
func (p *PostgreSQLMappingRepository) TouchBatch(
	ctx context.Context,
	ids []uuid.UUID,
	accessedAt time.Time,
) error {
	if len(ids) == 0 {
		return nil
	}

	querier := database.GetTx(ctx, p.db)

	query := `UPDATE mappings
			  SET usage_count = usage_count + 1, last_accessed_at = $1
			  WHERE id = ANY($2)`

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	_, err := querier.ExecContext(ctx, query, accessedAt, pq.Array(idStrings))
	if err != nil {
		return apperrors.Wrap(err, "failed to touch mappings")
	}

	return nil
}

// DeleteExpired deletes up to limit mappings whose expires_at is at or before the
// cutoff and returns the deleted rows' identifying tuples. The limit caps the
// size of a single sweep transaction; callers loop until fewer than limit rows
// are returned.
func (p *PostgreSQLMappingRepository) DeleteExpired(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]pseudonymDomain.ExpiredMapping, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM mappings
			  WHERE id IN (
				  SELECT id FROM mappings WHERE expires_at <= $1 ORDER BY expires_at ASC LIMIT $2
			  )
			  RETURNING id, session_id, category`

	rows, err := querier.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to delete expired mappings")
	}
	defer func() {
		_ = rows.Close()
	}()

	deleted := make([]pseudonymDomain.ExpiredMapping, 0)
	for rows.Next() {
		var expired pseudonymDomain.ExpiredMapping
		var category string
		if err := rows.Scan(&expired.ID, &expired.SessionID, &category); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan expired mapping")
		}
		expired.Category = pseudonymDomain.Category(category)
		deleted = append(deleted, expired)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate expired mappings")
	}

	return deleted, nil
}

// CountExpired returns the number of mappings whose expires_at is at or before
// the cutoff. Used by dry-run sweeps.
func (p *PostgreSQLMappingRepository) CountExpired(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	var count int64
	query := `SELECT COUNT(*) FROM mappings WHERE expires_at <= $1`
	if err := querier.QueryRowContext(ctx, query, cutoff).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count expired mappings")
	}

	return count, nil
}

// scanMappings scans mapping rows into domain entities.
func scanMappings(rows *sql.Rows) ([]*pseudonymDomain.Mapping, error) {
	mappings := make([]*pseudonymDomain.Mapping, 0)
	for rows.Next() {
		var mapping pseudonymDomain.Mapping
		var category string

		err := rows.Scan(
			&mapping.ID,
			&mapping.SessionID,
			&category,
			&mapping.Ordinal,
			&mapping.OriginalValueEncrypted,
			&mapping.Nonce,
			&mapping.PseudonymValue,
			&mapping.CreatedAt,
			&mapping.ExpiresAt,
			&mapping.LastAccessedAt,
			&mapping.UsageCount,
			&mapping.CreatedBy,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan mapping")
		}

		mapping.Category = pseudonymDomain.Category(category)
		mappings = append(mappings, &mapping)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate mappings")
	}

	return mappings, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if apperrors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
