package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/calendar"
	"github.com/codr1/clubreserve/internal/db/store"
	"github.com/codr1/clubreserve/internal/metrics"
	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/timeslot"
)

// SlotCheck identifies a candidate booking. ExcludeID skips the reservation
// being edited.
type SlotCheck struct {
	FacilityID int64
	SportID    *int64
	Date       time.Time
	Slot       timeslot.Slot
	ExcludeID  int64
}

// FindConflict returns the first live reservation overlapping the candidate,
// or nil when the slot is free. Touching intervals do not overlap.
func FindConflict(ctx context.Context, q *store.Queries, c SlotCheck) (*models.Reservation, error) {
	existing, err := q.FindOverlappingReservation(ctx, store.OverlapQuery{
		FacilityID: c.FacilityID,
		SportID:    c.SportID,
		Date:       c.Date,
		Slot:       c.Slot,
		ExcludeID:  c.ExcludeID,
		States:     models.LiveStates,
	})
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find conflicting reservation: %w", err)
	}
	return &existing, nil
}

// CheckSlot requires the candidate to fit inside one open slot of the
// facility calendar and to overlap no live reservation.
func CheckSlot(ctx context.Context, q *store.Queries, c SlotCheck) error {
	open, err := calendar.ResolveAvailability(ctx, q, c.FacilityID, c.Date)
	if err != nil {
		return err
	}
	if !timeslot.ContainedIn(c.Slot, open) {
		return fmt.Errorf("%w: %s on %s", apperr.ErrOutOfSchedule, c.Slot, c.Date.Format(models.DateLayout))
	}

	existing, err := FindConflict(ctx, q, c)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperr.ReservationConflictError{
			ReservationID: existing.ID,
			Code:          existing.Code,
			Window:        existing.Date.Format(models.DateLayout) + " " + existing.Slot().String(),
		}
	}
	return nil
}

func (e *Engine) checkSlot(ctx context.Context, q *store.Queries, r models.Reservation) error {
	err := CheckSlot(ctx, q, SlotCheck{
		FacilityID: r.FacilityID,
		SportID:    r.SportID,
		Date:       r.Date,
		Slot:       r.Slot(),
		ExcludeID:  r.ID,
	})
	var overlap apperr.ReservationConflictError
	switch {
	case errors.Is(err, apperr.ErrOutOfSchedule):
		e.metrics.ObserveConflict(metrics.ConflictOutOfSchedule)
	case errors.As(err, &overlap):
		e.metrics.ObserveConflict(metrics.ConflictOverlap)
	}
	return err
}
