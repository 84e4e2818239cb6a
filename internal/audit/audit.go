// Package audit records lifecycle events. Observers are notified after the
// change they describe has committed.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codr1/clubreserve/internal/db"
	"github.com/codr1/clubreserve/internal/models"
)

const EntityReservation = "reservation"

type Observer interface {
	Notify(ctx context.Context, event models.AuditEvent) error
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(entityType string, entityID int64, action, from, to, detail string) models.AuditEvent {
	return models.AuditEvent{
		ID:         uuid.NewString(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		FromState:  from,
		ToState:    to,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
}

type Nop struct{}

func (Nop) Notify(context.Context, models.AuditEvent) error { return nil }

// Multi fans an event out to every observer and joins their errors.
type Multi []Observer

func (m Multi) Notify(ctx context.Context, event models.AuditEvent) error {
	var errs []error
	for _, o := range m {
		if o == nil {
			continue
		}
		if err := o.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StoreObserver appends events to the audit_events table.
type StoreObserver struct {
	db *db.DB
}

func NewStoreObserver(database *db.DB) (*StoreObserver, error) {
	if database == nil {
		return nil, errors.New("audit store observer requires a database")
	}
	return &StoreObserver{db: database}, nil
}

func (s *StoreObserver) Notify(ctx context.Context, event models.AuditEvent) error {
	if err := s.db.Queries.InsertAuditEvent(ctx, event); err != nil {
		return err
	}
	log.Ctx(ctx).Debug().
		Str("entity_type", event.EntityType).
		Int64("entity_id", event.EntityID).
		Str("action", event.Action).
		Msg("Recorded audit event")
	return nil
}
