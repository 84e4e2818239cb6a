package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/testutil"
	"github.com/codr1/clubreserve/internal/timeslot"
)

func ptr[T any](v T) *T { return &v }

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // Monday

func openRule(id int64, priority int64) models.PricingRule {
	return models.PricingRule{
		ID: id, Name: "rule", ClubID: 1, BasePrice: 10, DynamicFactor: 1, Priority: priority, State: models.PricingOpen,
	}
}

func TestSelectPrefersPriorityThenSpecificity(t *testing.T) {
	clubWide := openRule(1, 10)
	sportRule := openRule(2, 10)
	sportRule.SportID = ptr(int64(5))
	facilityRule := openRule(3, 10)
	facilityRule.FacilityID = ptr(int64(7))
	urgent := openRule(4, 20)

	q := Query{ClubID: 1, SportID: ptr(int64(5)), FacilityID: ptr(int64(7)), Date: day}

	got, err := Select([]models.PricingRule{clubWide, sportRule, facilityRule}, q)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got.ID != facilityRule.ID {
		t.Fatalf("selected rule %d, want facility rule %d", got.ID, facilityRule.ID)
	}

	got, err = Select([]models.PricingRule{clubWide, sportRule, facilityRule, urgent}, q)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got.ID != urgent.ID {
		t.Fatalf("selected rule %d, want higher priority rule %d", got.ID, urgent.ID)
	}
}

func TestSelectIsDeterministic(t *testing.T) {
	a, b := openRule(8, 10), openRule(3, 10)
	q := Query{ClubID: 1, Date: day}
	for i := 0; i < 5; i++ {
		got, err := Select([]models.PricingRule{a, b}, q)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if got.ID != 3 {
			t.Fatalf("run %d selected %d, want lowest id 3", i, got.ID)
		}
	}
}

func TestSelectFilters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.PricingRule)
		query  Query
	}{
		{"draft rule", func(r *models.PricingRule) { r.State = models.PricingDraft }, Query{ClubID: 1, Date: day}},
		{"other club", func(r *models.PricingRule) { r.ClubID = 2 }, Query{ClubID: 1, Date: day}},
		{"sport rule without sport", func(r *models.PricingRule) { r.SportID = ptr(int64(5)) }, Query{ClubID: 1, Date: day}},
		{"ended before date", func(r *models.PricingRule) { r.DateTo = ptr(day.AddDate(0, 0, -1)) }, Query{ClubID: 1, Date: day}},
		{"starts after date", func(r *models.PricingRule) { r.DateFrom = ptr(day.AddDate(0, 0, 1)) }, Query{ClubID: 1, Date: day}},
		{"other weekday", func(r *models.PricingRule) { r.DayOfWeek = ptr(timeslot.Sunday) }, Query{ClubID: 1, Date: day}},
		{"time window without slot", func(r *models.PricingRule) { r.TimeFrom = ptr(18.0) }, Query{ClubID: 1, Date: day}},
		{
			"slot outside window",
			func(r *models.PricingRule) { r.TimeFrom, r.TimeTo = ptr(18.0), ptr(22.0) },
			Query{ClubID: 1, Date: day, Slot: ptr(timeslot.New(17, 19))},
		},
		{
			"too long",
			func(r *models.PricingRule) { r.MaxDuration = ptr(1.0) },
			Query{ClubID: 1, Date: day, Slot: ptr(timeslot.New(9, 11))},
		},
		{"wrong facility type", func(r *models.PricingRule) { r.FacilityType = models.FacilityLane }, Query{ClubID: 1, Date: day, FacilityType: models.FacilityCourt}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := openRule(1, 10)
			tt.mutate(&rule)
			_, err := Select([]models.PricingRule{rule}, tt.query)
			if !errors.Is(err, apperr.ErrNoApplicableRule) {
				t.Fatalf("error = %v, want ErrNoApplicableRule", err)
			}
		})
	}
}

func TestSelectInclusiveDateBounds(t *testing.T) {
	rule := openRule(1, 10)
	rule.DateFrom = ptr(day)
	rule.DateTo = ptr(day)
	rule.DayOfWeek = ptr(timeslot.Monday)
	rule.TimeFrom, rule.TimeTo = ptr(8.0), ptr(12.0)

	if _, err := Select([]models.PricingRule{rule}, Query{ClubID: 1, Date: day, Slot: ptr(timeslot.New(8, 12))}); err != nil {
		t.Fatalf("select: %v", err)
	}
}

func TestResolveLoadsTax(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewTestDB(t)
	venue := testutil.SeedVenue(t, database)
	tax := testutil.SeedTax(t, database, "VAT 21", 21, false)
	rule := testutil.SeedOpenRule(t, database, venue.Club.ID, 20, &tax.ID)

	service, err := NewService(database)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	res, err := service.Resolve(ctx, Query{ClubID: venue.Club.ID, SportID: &venue.Sport.ID, FacilityID: &venue.Facility.ID, Date: day})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Rule.ID != rule.ID || res.HourlyPrice != 20 {
		t.Fatalf("resolution = %+v", res)
	}
	if res.Tax == nil || res.Tax.Percent != 21 {
		t.Fatalf("tax = %+v", res.Tax)
	}
}

func TestRuleActions(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewTestDB(t)
	venue := testutil.SeedVenue(t, database)
	service, err := NewService(database)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	rule, err := service.CreateRule(ctx, models.PricingRule{Name: "Evening", ClubID: venue.Club.ID, BasePrice: 30, Priority: 5})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rule.State != models.PricingDraft {
		t.Fatalf("state = %q, want draft", rule.State)
	}

	if _, err := service.Apply(ctx, rule.ID, ActionClose); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("close draft error = %v", err)
	}
	steps := []struct {
		action Action
		want   models.PricingRuleState
	}{
		{ActionOpen, models.PricingOpen},
		{ActionClose, models.PricingClosed},
		{ActionResetToDraft, models.PricingDraft},
	}
	for _, step := range steps {
		updated, err := service.Apply(ctx, rule.ID, step.action)
		if err != nil {
			t.Fatalf("%s: %v", step.action, err)
		}
		if updated.State != step.want {
			t.Fatalf("%s: state = %q, want %q", step.action, updated.State, step.want)
		}
	}
	if _, err := service.Apply(ctx, rule.ID, Action("archive")); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("unknown action error = %v", err)
	}
}

func TestExpireLapsedRules(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewTestDB(t)
	venue := testutil.SeedVenue(t, database)
	service, err := NewService(database)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	lapsed, err := service.CreateRule(ctx, models.PricingRule{
		Name: "Winter", ClubID: venue.Club.ID, BasePrice: 15, Priority: 10,
		DateTo: ptr(day.AddDate(0, 0, -1)), State: models.PricingOpen,
	})
	if err != nil {
		t.Fatalf("create lapsed: %v", err)
	}
	current, err := service.CreateRule(ctx, models.PricingRule{
		Name: "Spring", ClubID: venue.Club.ID, BasePrice: 15, Priority: 10,
		DateTo: ptr(day), State: models.PricingOpen,
	})
	if err != nil {
		t.Fatalf("create current: %v", err)
	}

	n, err := ExpireLapsedRules(ctx, database, day.Add(9*time.Hour))
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired %d rules, want 1", n)
	}

	got, err := database.Queries.GetPricingRule(ctx, lapsed.ID)
	if err != nil {
		t.Fatalf("get lapsed: %v", err)
	}
	if got.State != models.PricingExpired {
		t.Fatalf("lapsed state = %q", got.State)
	}
	got, err = database.Queries.GetPricingRule(ctx, current.ID)
	if err != nil {
		t.Fatalf("get current: %v", err)
	}
	if got.State != models.PricingOpen {
		t.Fatalf("current state = %q", got.State)
	}

	if n, err := ExpireLapsedRules(ctx, database, day); err != nil || n != 0 {
		t.Fatalf("second sweep = %d, %v", n, err)
	}
}
