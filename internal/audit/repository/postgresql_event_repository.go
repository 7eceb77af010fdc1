// Package repository implements audit event persistence with dual database support
// (PostgreSQL and MySQL).
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	auditDomain "github.com/auditbridge/pseudonym/internal/audit/domain"
	"github.com/auditbridge/pseudonym/internal/database"
	apperrors "github.com/auditbridge/pseudonym/internal/errors"
)

// PostgreSQLEventRepository implements audit event persistence for PostgreSQL.
// Uses transaction support via database.GetTx().
type PostgreSQLEventRepository struct {
	db *sql.DB
}

// NewPostgreSQLEventRepository creates a new PostgreSQL audit event repository.
func NewPostgreSQLEventRepository(db *sql.DB) *PostgreSQLEventRepository {
	return &PostgreSQLEventRepository{db: db}
}

// Create inserts a new audit event into the PostgreSQL database. Handles nil
// details as database NULL.
func (p *PostgreSQLEventRepository) Create(ctx context.Context, event *auditDomain.Event) error {
	querier := database.GetTx(ctx, p.db)

	var detailsJSON []byte
	var err error

	if event.Details != nil {
		detailsJSON, err = json.Marshal(event.Details)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal audit event details")
		}
	}

	query := `INSERT INTO audit_events (id, actor_id, action, resource_type, resource_id, details, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = querier.ExecContext(
		ctx,
		query,
		event.ID,
		event.ActorID,
		string(event.Action),
		event.ResourceType,
		event.ResourceID,
		detailsJSON,
		event.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit event")
	}

	return nil
}

// List retrieves audit events ordered by ID descending (newest first) with pagination
// and optional inclusive time-based filtering (nil means no filter). All timestamps
// are expected in UTC. Returns empty slice if no events found.
func (p *PostgreSQLEventRepository) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.Event, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, actor_id, action, resource_type, resource_id, details, created_at
			  FROM audit_events
			  WHERE ($3::timestamptz IS NULL OR created_at >= $3)
			    AND ($4::timestamptz IS NULL OR created_at <= $4)
			  ORDER BY id DESC
			  LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset, createdAtFrom, createdAtTo)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}
	defer func() {
		_ = rows.Close()
	}()

	events := make([]*auditDomain.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit events")
	}

	return events, nil
}

// scanEvent scans a single audit event row, handling NULL details gracefully.
func scanEvent(rows *sql.Rows) (*auditDomain.Event, error) {
	var event auditDomain.Event
	var detailsJSON []byte
	var action string

	err := rows.Scan(
		&event.ID,
		&event.ActorID,
		&action,
		&event.ResourceType,
		&event.ResourceID,
		&detailsJSON,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan audit event")
	}

	event.Action = auditDomain.Action(action)

	if detailsJSON != nil {
		if err := json.Unmarshal(detailsJSON, &event.Details); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal audit event details")
		}
	}

	return &event, nil
}
