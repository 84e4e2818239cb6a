package models

import (
	"errors"
	"testing"
	"time"

	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/timeslot"
)

func TestFacilityValidate(t *testing.T) {
	valid := Facility{ClubID: 1, Name: "Court 1", Type: FacilityCourt, Capacity: 4, Surface: SurfaceClay}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Facility)
	}{
		{"zero capacity", func(f *Facility) { f.Capacity = 0 }},
		{"negative capacity", func(f *Facility) { f.Capacity = -2 }},
		{"blank name", func(f *Facility) { f.Name = "  " }},
		{"unknown type", func(f *Facility) { f.Type = "pool" }},
		{"lane on grass", func(f *Facility) { f.Type = FacilityLane; f.Surface = SurfaceGrass }},
		{"lane on hard", func(f *Facility) { f.Type = FacilityLane; f.Surface = SurfaceHard }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid
			tt.mutate(&f)
			err := f.Validate()
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	lane := Facility{ClubID: 1, Name: "Lane 3", Type: FacilityLane, Capacity: 1, Surface: SurfaceWood}
	if err := lane.Validate(); err != nil {
		t.Fatalf("wood lane should be valid: %v", err)
	}
}

func TestAvailabilityLineValidate(t *testing.T) {
	line := AvailabilityLine{TemplateID: 1, DayOfWeek: timeslot.Monday, StartTime: 8, EndTime: 22}
	if err := line.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	line.EndTime = 8
	if err := line.Validate(); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	line.EndTime = 9
	line.DayOfWeek = 7
	if err := line.Validate(); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for weekday, got %v", err)
	}
}

func TestExceptionClosedSlotOn(t *testing.T) {
	exc := CalendarException{
		DateFrom: time.Date(2026, 10, 12, 12, 0, 0, 0, time.UTC),
		DateTo:   time.Date(2026, 10, 13, 9, 30, 0, 0, time.UTC),
		IsClosed: true,
	}
	if err := exc.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	slot, ok := exc.ClosedSlotOn(time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC))
	if !ok || slot != timeslot.New(12, 24) {
		t.Fatalf("first day = %v, %v", slot, ok)
	}
	slot, ok = exc.ClosedSlotOn(time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC))
	if !ok || slot != timeslot.New(0, 9.5) {
		t.Fatalf("second day = %v, %v", slot, ok)
	}
	if _, ok := exc.ClosedSlotOn(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)); ok {
		t.Fatalf("exception should not cover the 14th")
	}

	exc.DateTo = exc.DateFrom
	if err := exc.Validate(); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for empty range, got %v", err)
	}
}

func TestPromotionValidate(t *testing.T) {
	tests := []struct {
		name  string
		promo Promotion
		ok    bool
	}{
		{"percent", Promotion{Name: "Ten", DiscountType: DiscountPercent, DiscountValue: 10}, true},
		{"percent full", Promotion{Name: "Free", DiscountType: DiscountPercent, DiscountValue: 100}, true},
		{"percent zero", Promotion{Name: "Zero", DiscountType: DiscountPercent, DiscountValue: 0}, false},
		{"percent over", Promotion{Name: "Over", DiscountType: DiscountPercent, DiscountValue: 120}, false},
		{"fixed", Promotion{Name: "Fifty", DiscountType: DiscountFixed, DiscountValue: 50}, true},
		{"fixed negative", Promotion{Name: "Neg", DiscountType: DiscountFixed, DiscountValue: -1}, false},
		{"usage over limit", Promotion{Name: "Used", DiscountType: DiscountFixed, DiscountValue: 5, UsageLimit: 2, UsageCount: 3}, false},
		{"unknown type", Promotion{Name: "Odd", DiscountType: "bogo", DiscountValue: 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.promo.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestPolicyRefundPercentAt(t *testing.T) {
	policy := Policy{Name: "Standard", FreeCancelHours: 24, RefundPercent: 50, NoShowPenaltyPercent: 25}
	if err := policy.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	start := time.Date(2026, 10, 20, 18, 0, 0, 0, time.UTC)

	if got := policy.RefundPercentAt(start, start.Add(-48*time.Hour)); got != 100 {
		t.Fatalf("early cancel refund = %v", got)
	}
	if got := policy.RefundPercentAt(start, start.Add(-2*time.Hour)); got != 50 {
		t.Fatalf("late cancel refund = %v", got)
	}
	if got := policy.NoShowPenalty(80); got != 20 {
		t.Fatalf("no show penalty = %v", got)
	}

	policy.RefundPercent = 101
	if err := policy.Validate(); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPricingRuleHelpers(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	rule := PricingRule{Name: "Season", ClubID: 1, BasePrice: 100, DynamicFactor: 1.2, DateFrom: &from, DateTo: &to}
	if err := rule.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rule.HourlyPrice(); got != 120 {
		t.Fatalf("hourly price = %v", got)
	}
	if !rule.CoversDate(to) || rule.CoversDate(to.AddDate(0, 0, 1)) {
		t.Fatalf("date window should be inclusive of date_to only")
	}

	facilityID := int64(3)
	sportID := int64(2)
	facilityRule := PricingRule{FacilityID: &facilityID}
	sportRule := PricingRule{SportID: &sportID, FacilityType: FacilityCourt}
	if facilityRule.Specificity() <= sportRule.Specificity() {
		t.Fatalf("facility scope must outrank sport scope")
	}
	if sportRule.Specificity() <= (PricingRule{FacilityType: FacilityCourt}).Specificity() {
		t.Fatalf("sport scope must outrank facility type scope")
	}
}

func TestReservationAttendeeCapacity(t *testing.T) {
	r := Reservation{NumberOfAttendance: 4, PartnerCountsAsAttendee: true}
	if got := r.AttendeeCapacity(); got != 3 {
		t.Fatalf("capacity = %d", got)
	}
	r.PartnerCountsAsAttendee = false
	if got := r.AttendeeCapacity(); got != 4 {
		t.Fatalf("capacity = %d", got)
	}
	if !StateConfirmed.Live() || StateDraft.Live() || StateCheckedOut.Live() {
		t.Fatalf("unexpected live states")
	}
}
