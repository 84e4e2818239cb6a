package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/testutil"
)

func TestAddJobValidatesInput(t *testing.T) {
	svc, err := New()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop() })

	if _, err := svc.AddJob(" ", "* * * * *", func() {}); err != ErrEmptyJobName {
		t.Fatalf("blank name error = %v", err)
	}
	if _, err := svc.AddJob("job", "", func() {}); err != ErrEmptyCronExpr {
		t.Fatalf("blank cron error = %v", err)
	}
	if _, err := svc.AddJob("job", "not a cron", func() {}); err == nil {
		t.Fatalf("expected invalid cron expression to be rejected")
	}

	var nilService *Service
	if _, err := nilService.AddJob("job", "* * * * *", func() {}); err != ErrNotInitialized {
		t.Fatalf("nil service error = %v", err)
	}
}

func TestRegisterPricingExpiry(t *testing.T) {
	database := testutil.NewTestDB(t)
	svc, err := New()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop() })

	if err := RegisterPricingExpiry(svc, nil, "15 0 * * *"); err == nil {
		t.Fatalf("expected error without database")
	}
	if err := RegisterPricingExpiry(svc, database, "15 0 * * *"); err != nil {
		t.Fatalf("register: %v", err)
	}
	jobs := svc.Jobs()
	if len(jobs) != 1 || jobs[0].Name() != PricingExpiryJobName {
		t.Fatalf("jobs = %v", jobs)
	}
}

func TestPricingExpirySweepExpiresLapsedRules(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewTestDB(t)
	venue := testutil.SeedVenue(t, database)

	lastWeek := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	nextWeek := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	lapsed, err := database.Queries.CreatePricingRule(ctx, models.PricingRule{
		Name: "Winter rate", ClubID: venue.Club.ID, BasePrice: 15, Priority: 5,
		DateTo: &lastWeek, State: models.PricingOpen,
	})
	if err != nil {
		t.Fatalf("create lapsed rule: %v", err)
	}
	current, err := database.Queries.CreatePricingRule(ctx, models.PricingRule{
		Name: "Spring rate", ClubID: venue.Club.ID, BasePrice: 18, Priority: 5,
		DateTo: &nextWeek, State: models.PricingOpen,
	})
	if err != nil {
		t.Fatalf("create current rule: %v", err)
	}

	now := time.Date(2026, 3, 2, 0, 15, 0, 0, time.UTC)
	PricingExpirySweep(database, func() time.Time { return now })()

	got, err := database.Queries.GetPricingRule(ctx, lapsed.ID)
	if err != nil {
		t.Fatalf("get lapsed rule: %v", err)
	}
	if got.State != models.PricingExpired {
		t.Fatalf("lapsed rule state = %s", got.State)
	}
	got, err = database.Queries.GetPricingRule(ctx, current.ID)
	if err != nil {
		t.Fatalf("get current rule: %v", err)
	}
	if got.State != models.PricingOpen {
		t.Fatalf("current rule state = %s", got.State)
	}
}
