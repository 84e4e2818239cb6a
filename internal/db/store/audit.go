package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/codr1/clubreserve/internal/models"
)

func (q *Queries) InsertAuditEvent(ctx context.Context, e models.AuditEvent) error {
	_, err := q.exec(ctx, psql.Insert("audit_events").
		Columns("id", "entity_type", "entity_id", "action", "from_state", "to_state", "detail", "created_at").
		Values(e.ID, e.EntityType, e.EntityID, e.Action, e.FromState, e.ToState, e.Detail, formatTimestamp(e.CreatedAt)),
		"insert audit event")
	return err
}

// ListAuditEvents returns an entity's events oldest first.
func (q *Queries) ListAuditEvents(ctx context.Context, entityType string, entityID int64) ([]models.AuditEvent, error) {
	rows, err := q.query(ctx, psql.Select("id", "entity_type", "entity_id", "action", "from_state", "to_state",
		"detail", "created_at").
		From("audit_events").
		Where(sq.Eq{"entity_type": entityType, "entity_id": entityID}).
		OrderBy("created_at", "rowid"), "list audit events")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AuditEvent
	for rows.Next() {
		var e models.AuditEvent
		var createdAt string
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.FromState, &e.ToState,
			&e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if e.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
