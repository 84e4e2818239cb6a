package models

import (
	"strings"
	"time"

	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/timeslot"
)

// CalendarTemplate is a facility's recurring weekly availability.
type CalendarTemplate struct {
	ID         int64  `json:"id"`
	ClubID     int64  `json:"clubId"`
	FacilityID int64  `json:"facilityId"`
	Name       string `json:"name"`
	Active     bool   `json:"active"`
}

func (c CalendarTemplate) Validate() error {
	if c.ClubID <= 0 {
		return apperr.Invalid("club_id", "must be a positive integer")
	}
	if c.FacilityID <= 0 {
		return apperr.Invalid("facility_id", "must be a positive integer")
	}
	return validateName(c.Name)
}

type AvailabilityLine struct {
	ID         int64            `json:"id"`
	TemplateID int64            `json:"templateId"`
	DayOfWeek  timeslot.Weekday `json:"dayOfWeek"`
	StartTime  float64          `json:"startTime"`
	EndTime    float64          `json:"endTime"`
}

func (l AvailabilityLine) Slot() timeslot.Slot {
	return timeslot.New(l.StartTime, l.EndTime)
}

func (l AvailabilityLine) Validate() error {
	if !l.DayOfWeek.Valid() {
		return apperr.Invalid("day_of_week", "must be between 0 (Monday) and 6 (Sunday)")
	}
	if err := l.Slot().Validate(); err != nil {
		return apperr.Invalid("start_time", err.Error())
	}
	return nil
}

// CalendarException overrides a template for a dated range. Closed exceptions
// remove the covered time from availability.
type CalendarException struct {
	ID         int64     `json:"id"`
	TemplateID int64     `json:"templateId"`
	DateFrom   time.Time `json:"dateFrom"`
	DateTo     time.Time `json:"dateTo"`
	Reason     string    `json:"reason"`
	IsClosed   bool      `json:"isClosed"`
}

func (e CalendarException) Validate() error {
	if e.DateFrom.IsZero() || e.DateTo.IsZero() {
		return apperr.Invalid("date_from", "and date_to are required")
	}
	if !e.DateFrom.Before(e.DateTo) {
		return apperr.Invalid("date_from", "must be before date_to")
	}
	if len(strings.TrimSpace(e.Reason)) > 500 {
		return apperr.Invalid("reason", "is too long")
	}
	return nil
}

// ClosedSlotOn returns the part of the given date the exception covers.
func (e CalendarException) ClosedSlotOn(date time.Time) (timeslot.Slot, bool) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, e.DateFrom.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	if !e.DateFrom.Before(dayEnd) || !e.DateTo.After(dayStart) {
		return timeslot.Slot{}, false
	}

	from := timeslot.DayStart
	if e.DateFrom.After(dayStart) {
		from = e.DateFrom.Sub(dayStart).Hours()
	}
	to := timeslot.DayEnd
	if e.DateTo.Before(dayEnd) {
		to = e.DateTo.Sub(dayStart).Hours()
	}
	return timeslot.New(from, to), true
}
