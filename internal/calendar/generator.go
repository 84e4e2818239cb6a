package calendar

import (
	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/timeslot"
)

// Partition splits [start, end) into consecutive slots of duration hours. The
// last slot is clipped to end. Arithmetic is done in whole minutes so 1.5 hour
// steps do not drift.
func Partition(start, end, duration float64) ([]timeslot.Slot, error) {
	if err := timeslot.New(start, end).Validate(); err != nil {
		return nil, apperr.Invalid("start_time", err.Error())
	}
	step := timeslot.Minutes(duration)
	if duration <= 0 || step <= 0 {
		return nil, apperr.Invalid("slot_duration", "must be at least one minute")
	}

	from, to := timeslot.Minutes(start), timeslot.Minutes(end)
	slots := make([]timeslot.Slot, 0, (to-from+step-1)/step)
	for cursor := from; cursor < to; cursor += step {
		next := min(cursor+step, to)
		slots = append(slots, timeslot.New(timeslot.FromMinutes(cursor), timeslot.FromMinutes(next)))
	}
	return slots, nil
}
