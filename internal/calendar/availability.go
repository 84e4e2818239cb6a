package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/db/store"
	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/timeslot"
)

// ResolveAvailability returns the open slots of a facility on date: the
// template lines for that weekday minus any closed exception covering them.
// A facility without an active template yields apperr.ErrNoTemplate.
func ResolveAvailability(ctx context.Context, q *store.Queries, facilityID int64, date time.Time) ([]timeslot.Slot, error) {
	facility, err := q.GetFacility(ctx, facilityID)
	if err != nil {
		return nil, fmt.Errorf("resolve availability: %w", err)
	}
	template, err := q.GetFacilityCalendarTemplate(ctx, facility.ClubID, facility.ID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%w: facility %q", apperr.ErrNoTemplate, facility.Name)
		}
		return nil, fmt.Errorf("resolve availability: %w", err)
	}

	day := timeslot.WeekdayOf(date)
	lines, err := q.ListAvailabilityLines(ctx, template.ID, &day)
	if err != nil {
		return nil, fmt.Errorf("resolve availability: %w", err)
	}
	dayStart := models.DateOnly(date)
	exceptions, err := q.ListCalendarExceptionsBetween(ctx, template.ID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("resolve availability: %w", err)
	}

	return OpenSlots(lines, exceptions, dayStart), nil
}

// OpenSlots applies the closed exceptions that touch date to the given lines.
// Exceptions with IsClosed unset are informational and change nothing.
func OpenSlots(lines []models.AvailabilityLine, exceptions []models.CalendarException, date time.Time) []timeslot.Slot {
	open := make([]timeslot.Slot, 0, len(lines))
	for _, line := range lines {
		open = append(open, line.Slot())
	}

	for _, exception := range exceptions {
		if !exception.IsClosed {
			continue
		}
		closed, ok := exception.ClosedSlotOn(date)
		if !ok {
			continue
		}
		var remaining []timeslot.Slot
		for _, slot := range open {
			remaining = append(remaining, slot.Subtract(closed)...)
		}
		open = remaining
	}

	timeslot.Sort(open)
	return open
}
