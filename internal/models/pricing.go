package models

import (
	"time"

	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/timeslot"
)

type PricingRuleState string

const (
	PricingDraft   PricingRuleState = "draft"
	PricingOpen    PricingRuleState = "open"
	PricingExpired PricingRuleState = "expired"
	PricingClosed  PricingRuleState = "closed"
)

// PricingRule prices a booked hour for a club, optionally narrowed to a sport,
// facility, facility type, date range, weekday, time window and duration range.
type PricingRule struct {
	ID            int64             `json:"id"`
	Name          string            `json:"name"`
	ClubID        int64             `json:"clubId"`
	SportID       *int64            `json:"sportId,omitempty"`
	FacilityID    *int64            `json:"facilityId,omitempty"`
	FacilityType  FacilityType      `json:"facilityType,omitempty"`
	DateFrom      *time.Time        `json:"dateFrom,omitempty"`
	DateTo        *time.Time        `json:"dateTo,omitempty"`
	DayOfWeek     *timeslot.Weekday `json:"dayOfWeek,omitempty"`
	TimeFrom      *float64          `json:"timeFrom,omitempty"`
	TimeTo        *float64          `json:"timeTo,omitempty"`
	MinDuration   *float64          `json:"minDuration,omitempty"`
	MaxDuration   *float64          `json:"maxDuration,omitempty"`
	BasePrice     float64           `json:"basePrice"`
	DynamicFactor float64           `json:"dynamicFactor"`
	Peak          bool              `json:"peak"`
	TaxID         *int64            `json:"taxId,omitempty"`
	Priority      int64             `json:"priority"`
	State         PricingRuleState  `json:"state"`
}

// HourlyPrice applies the dynamic factor to the base price.
func (r PricingRule) HourlyPrice() float64 {
	factor := r.DynamicFactor
	if factor == 0 {
		factor = 1
	}
	return RoundMoney(r.BasePrice * factor)
}

func (r PricingRule) Validate() error {
	if err := validateName(r.Name); err != nil {
		return err
	}
	if r.ClubID <= 0 {
		return apperr.Invalid("club_id", "must be a positive integer")
	}
	if r.BasePrice < 0 {
		return apperr.Invalid("base_price", "must be 0 or greater")
	}
	if r.DynamicFactor < 0 {
		return apperr.Invalid("dynamic_factor", "must not be negative")
	}
	if r.FacilityType != "" && !r.FacilityType.Valid() {
		return apperr.Invalid("facility_type", "must be one of court, field, room, lane")
	}
	if r.DateFrom != nil && r.DateTo != nil && r.DateTo.Before(*r.DateFrom) {
		return apperr.Invalid("date_to", "must not be before date_from")
	}
	if r.DayOfWeek != nil && !r.DayOfWeek.Valid() {
		return apperr.Invalid("day_of_week", "must be between 0 and 6")
	}
	if r.TimeFrom != nil && r.TimeTo != nil {
		if err := timeslot.New(*r.TimeFrom, *r.TimeTo).Validate(); err != nil {
			return apperr.Invalid("time_from", err.Error())
		}
	}
	if r.MinDuration != nil && *r.MinDuration < 0 {
		return apperr.Invalid("min_duration", "must be 0 or greater")
	}
	if r.MinDuration != nil && r.MaxDuration != nil && *r.MinDuration > *r.MaxDuration {
		return apperr.Invalid("min_duration", "cannot exceed max_duration")
	}
	return nil
}

// Specificity ranks the rule's scope: facility beats sport beats facility type
// beats club-wide.
func (r PricingRule) Specificity() int {
	score := 0
	if r.FacilityID != nil {
		score += 4
	}
	if r.SportID != nil {
		score += 2
	}
	if r.FacilityType != "" {
		score++
	}
	return score
}

// CoversDate treats missing bounds as open-ended. Bounds are inclusive dates.
func (r PricingRule) CoversDate(date time.Time) bool {
	day := DateOnly(date)
	if r.DateFrom != nil && day.Before(DateOnly(*r.DateFrom)) {
		return false
	}
	if r.DateTo != nil && day.After(DateOnly(*r.DateTo)) {
		return false
	}
	return true
}

// DateOnly truncates to midnight UTC of the same calendar day.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(raw string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, apperr.Invalid("date", "must be YYYY-MM-DD")
	}
	return parsed, nil
}
