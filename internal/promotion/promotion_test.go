package promotion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/testutil"
)

var asOf = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestIsValid(t *testing.T) {
	base := models.Promotion{Code: "SUMMER", DiscountType: models.DiscountPercent, DiscountValue: 10, Active: true}

	tests := []struct {
		name   string
		mutate func(*models.Promotion)
		want   bool
	}{
		{"active", func(*models.Promotion) {}, true},
		{"inactive", func(p *models.Promotion) { p.Active = false }, false},
		{"not started", func(p *models.Promotion) { p.DateStart = datePtr(2026, 6, 16) }, false},
		{"ended", func(p *models.Promotion) { p.DateEnd = datePtr(2026, 6, 14) }, false},
		{"last day", func(p *models.Promotion) { p.DateEnd = datePtr(2026, 6, 15) }, true},
		{"limit reached", func(p *models.Promotion) { p.UsageLimit, p.UsageCount = 3, 3 }, false},
		{"below limit", func(p *models.Promotion) { p.UsageLimit, p.UsageCount = 3, 2 }, true},
		{"unlimited", func(p *models.Promotion) { p.UsageCount = 500 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			if got := IsValid(p, asOf); got != tt.want {
				t.Fatalf("IsValid = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApply(t *testing.T) {
	percent := models.Promotion{DiscountType: models.DiscountPercent, DiscountValue: 25, Active: true}
	fixed := models.Promotion{DiscountType: models.DiscountFixed, DiscountValue: 30, Active: true}
	inactive := fixed
	inactive.Active = false

	if got := Apply(percent, 80, asOf); got != 60 {
		t.Fatalf("percent apply = %v, want 60", got)
	}
	if got := Apply(fixed, 80, asOf); got != 50 {
		t.Fatalf("fixed apply = %v, want 50", got)
	}
	if got := Apply(fixed, 20, asOf); got != 0 {
		t.Fatalf("fixed apply floors at 0, got %v", got)
	}
	if got := Apply(inactive, 80, asOf); got != 80 {
		t.Fatalf("invalid promotion changed amount to %v", got)
	}
	if got := Discount(percent, 80, asOf); got != 20 {
		t.Fatalf("discount = %v, want 20", got)
	}
}

func TestCheckAgainstTotal(t *testing.T) {
	fixed := models.Promotion{DiscountType: models.DiscountFixed, DiscountValue: 100, Active: true}
	if err := CheckAgainstTotal(fixed, 80); !errors.Is(err, apperr.ErrPreconditionFailed) {
		t.Fatalf("error = %v, want precondition failed", err)
	}
	if err := CheckAgainstTotal(fixed, 100); !errors.Is(err, apperr.ErrPreconditionFailed) {
		t.Fatalf("equal total must be rejected, got %v", err)
	}
	if err := CheckAgainstTotal(fixed, 100.01); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	percent := models.Promotion{DiscountType: models.DiscountPercent, DiscountValue: 100, Active: true}
	if err := CheckAgainstTotal(percent, 10); err != nil {
		t.Fatalf("percent promotions are not bounded by total: %v", err)
	}
}

func TestValidateFor(t *testing.T) {
	club := int64(1)
	padel := int64(4)
	tennis := int64(5)
	p := models.Promotion{
		Code: "PADEL", DiscountType: models.DiscountPercent, DiscountValue: 10, Active: true,
		ClubID: &club, SportIDs: []int64{padel}, FacilityIDs: []int64{9},
	}

	if err := ValidateFor(p, Target{ClubID: 1, SportID: &padel, FacilityID: 9}, asOf); err != nil {
		t.Fatalf("expected promotion to apply: %v", err)
	}
	cases := []Target{
		{ClubID: 2, SportID: &padel, FacilityID: 9},
		{ClubID: 1, SportID: &tennis, FacilityID: 9},
		{ClubID: 1, FacilityID: 9},
		{ClubID: 1, SportID: &padel, FacilityID: 10},
	}
	for _, target := range cases {
		if err := ValidateFor(p, target, asOf); !errors.Is(err, apperr.ErrPreconditionFailed) {
			t.Fatalf("target %+v: error = %v", target, err)
		}
	}
}

func TestServiceCreateGeneratesCode(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewTestDB(t)
	venue := testutil.SeedVenue(t, database)
	service, err := NewService(database)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	created, err := service.Create(ctx, models.Promotion{
		Name: "Opening week", DiscountType: models.DiscountFixed, DiscountValue: 5, Active: true,
		SportIDs: []int64{venue.Sport.ID},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Code != "PROMO/00001" {
		t.Fatalf("code = %q", created.Code)
	}

	got, err := service.GetByCode(ctx, "PROMO/00001")
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	if len(got.SportIDs) != 1 || got.SportIDs[0] != venue.Sport.ID {
		t.Fatalf("sport ids = %v", got.SportIDs)
	}

	_, err = service.Create(ctx, models.Promotion{
		Name: "Broken", DiscountType: models.DiscountPercent, DiscountValue: 150, Active: true,
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("error = %v, want validation", err)
	}
}

func TestUsageIncrementRespectsLimit(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewTestDB(t)
	p := testutil.SeedPromotion(t, database, models.Promotion{
		Name: "Single use", Code: "ONCE", DiscountType: models.DiscountFixed, DiscountValue: 5,
		UsageLimit: 1, Active: true,
	})

	ok, err := database.Queries.IncrementPromotionUsage(ctx, p.ID)
	if err != nil || !ok {
		t.Fatalf("first increment = %v, %v", ok, err)
	}
	ok, err = database.Queries.IncrementPromotionUsage(ctx, p.ID)
	if err != nil {
		t.Fatalf("second increment: %v", err)
	}
	if ok {
		t.Fatalf("increment past the limit succeeded")
	}
}
