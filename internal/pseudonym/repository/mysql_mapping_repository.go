package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/auditbridge/pseudonym/internal/database"
	apperrors "github.com/auditbridge/pseudonym/internal/errors"
	pseudonymDomain "github.com/auditbridge/pseudonym/internal/pseudonym/domain"
)

// MySQLMappingRepository implements mapping persistence for MySQL.
// UUIDs are stored as CHAR(36) strings.
type MySQLMappingRepository struct {
	db *sql.DB
}

// NewMySQLMappingRepository creates a new MySQL mapping repository.
func NewMySQLMappingRepository(db *sql.DB) *MySQLMappingRepository {
	return &MySQLMappingRepository{db: db}
}

// CreateBatch inserts new mappings. A unique key violation on (session_id,
// category, pseudonym_value) is reported as ErrPseudonymConflict.
func (m *MySQLMappingRepository) CreateBatch(
	ctx context.Context,
	mappings []*pseudonymDomain.Mapping,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO mappings (` + mappingColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, mapping := range mappings {
		_, err := querier.ExecContext(
			ctx,
			query,
			mapping.ID.String(),
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
			if isMySQLDuplicateEntry(err) {
				return pseudonymDomain.ErrPseudonymConflict
			}
			return apperrors.Wrap(err, "failed to create mapping")
		}
	}

	return nil
}

// ListBySessionAndCategory retrieves all mappings for one session and category,
// ordered by ordinal ascending.
func (m *MySQLMappingRepository) ListBySessionAndCategory(
	ctx context.Context,
	sessionID string,
	category pseudonymDomain.Category,
) ([]*pseudonymDomain.Mapping, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mappingColumns + `
			  FROM mappings
			  WHERE session_id = ? AND category = ?
			  ORDER BY ordinal ASC`

	rows, err := querier.QueryContext(ctx, query, sessionID, string(category))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list mappings by session and category")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanMySQLMappings(rows)
}

// ListBySession retrieves all mappings for one session across every category,
// ordered by category and ordinal.
func (m *MySQLMappingRepository) ListBySession(
	ctx context.Context,
	sessionID string,
) ([]*pseudonymDomain.Mapping, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mappingColumns + `
			  FROM mappings
			  WHERE session_id = ?
			  ORDER BY category ASC, ordinal ASC`

	rows, err := querier.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list mappings by session")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanMySQLMappings(rows)
}

// TouchBatch increments usage counters and refreshes last_accessed_at for the
// given mapping IDs.
func (m *MySQLMappingRepository) TouchBatch(
	ctx context.Context,
	ids []uuid.UUID,
	accessedAt time.Time,
) error {
	if len(ids) == 0 {
		return nil
	}

	querier := database.GetTx(ctx, m.db)

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, accessedAt)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id.String())
	}

	query := `UPDATE mappings
			  SET usage_count = usage_count + 1, last_accessed_at = ?
			  WHERE id IN (` + strings.Join(placeholders, ", ") + `)`

	_, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.Wrap(err, "failed to touch mappings")
	}

	return nil
}

// DeleteExpired deletes up to limit mappings whose expires_at is at or before
// the cutoff and returns the deleted rows' identifying tuples. MySQL has no
// DELETE ... RETURNING, so the rows are selected first; callers run this inside
// a transaction to keep the two statements consistent.
func (m *MySQLMappingRepository) DeleteExpired(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]pseudonymDomain.ExpiredMapping, error) {
	querier := database.GetTx(ctx, m.db)

	selectQuery := `SELECT id, session_id, category
					FROM mappings
					WHERE expires_at <= ?
					ORDER BY expires_at ASC
					LIMIT ?`

	rows, err := querier.QueryContext(ctx, selectQuery, cutoff, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to select expired mappings")
	}

	expired := make([]pseudonymDomain.ExpiredMapping, 0)
	for rows.Next() {
		var item pseudonymDomain.ExpiredMapping
		var idStr string
		var category string
		if err := rows.Scan(&idStr, &item.SessionID, &category); err != nil {
			_ = rows.Close()
			return nil, apperrors.Wrap(err, "failed to scan expired mapping")
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			_ = rows.Close()
			return nil, apperrors.Wrap(err, "failed to parse mapping id")
		}
		item.ID = id
		item.Category = pseudonymDomain.Category(category)
		expired = append(expired, item)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, apperrors.Wrap(err, "failed to iterate expired mappings")
	}
	_ = rows.Close()

	if len(expired) == 0 {
		return expired, nil
	}

	placeholders := make([]string, len(expired))
	args := make([]any, len(expired))
	for i, item := range expired {
		placeholders[i] = "?"
		args[i] = item.ID.String()
	}

	deleteQuery := `DELETE FROM mappings WHERE id IN (` + strings.Join(placeholders, ", ") + `)`
	if _, err := querier.ExecContext(ctx, deleteQuery, args...); err != nil {
		return nil, apperrors.Wrap(err, "failed to delete expired mappings")
	}

	return expired, nil
}

// CountExpired returns the number of mappings whose expires_at is at or before
// the cutoff. Used by dry-run sweeps.
func (m *MySQLMappingRepository) CountExpired(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	var count int64
	query := `SELECT COUNT(*) FROM mappings WHERE expires_at <= ?`
	if err := querier.QueryRowContext(ctx, query, cutoff).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count expired mappings")
	}

	return count, nil
}

// scanMySQLMappings scans mapping rows, parsing the CHAR(36) UUID column.
func scanMySQLMappings(rows *sql.Rows) ([]*pseudonymDomain.Mapping, error) {
	mappings := make([]*pseudonymDomain.Mapping, 0)
	for rows.Next() {
		var mapping pseudonymDomain.Mapping
		var idStr string
		var category string

		err := rows.Scan(
			&idStr,
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

		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse mapping id")
		}
		mapping.ID = id
		mapping.Category = pseudonymDomain.Category(category)
		mappings = append(mappings, &mapping)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate mappings")
	}

	return mappings, nil
}

// isMySQLDuplicateEntry reports whether err is a MySQL duplicate entry error (1062).
func isMySQLDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	if apperrors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
