package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/codr1/clubreserve/internal/db"
	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/timeslot"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// Venue is a seeded club with one sport and one court.
type Venue struct {
	Club     models.Club
	Sport    models.Sport
	Facility models.Facility
	Template models.CalendarTemplate
}

// SeedVenue creates a club, a sport and a four-person court whose template is
// open 08:00-22:00 every day.
func SeedVenue(t *testing.T, database *db.DB) Venue {
	t.Helper()
	ctx := context.Background()
	q := database.Queries

	club, err := q.CreateClub(ctx, "Riverside Club")
	if err != nil {
		t.Fatalf("create club: %v", err)
	}
	sport, err := q.CreateSport(ctx, "Padel")
	if err != nil {
		t.Fatalf("create sport: %v", err)
	}
	facility, err := q.CreateFacility(ctx, models.Facility{
		ClubID:   club.ID,
		Name:     "Court 1",
		Type:     models.FacilityCourt,
		Capacity: 4,
		Surface:  models.SurfaceSynthetic,
		Active:   true,
	})
	if err != nil {
		t.Fatalf("create facility: %v", err)
	}
	template := SeedTemplate(t, database, club.ID, facility.ID, 8, 22)

	return Venue{Club: club, Sport: sport, Facility: facility, Template: template}
}

// SeedTemplate creates an active template with one from-to line per weekday.
func SeedTemplate(t *testing.T, database *db.DB, clubID, facilityID int64, from, to float64) models.CalendarTemplate {
	t.Helper()
	ctx := context.Background()

	template, err := database.Queries.CreateCalendarTemplate(ctx, models.CalendarTemplate{
		ClubID:     clubID,
		FacilityID: facilityID,
		Name:       "Regular hours",
		Active:     true,
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	for _, day := range timeslot.AllWeekdays {
		if _, err := database.Queries.CreateAvailabilityLine(ctx, models.AvailabilityLine{
			TemplateID: template.ID,
			DayOfWeek:  day,
			StartTime:  from,
			EndTime:    to,
		}); err != nil {
			t.Fatalf("create availability line: %v", err)
		}
	}
	return template
}

func SeedTax(t *testing.T, database *db.DB, name string, percent float64, included bool) models.Tax {
	t.Helper()
	tax, err := database.Queries.CreateTax(context.Background(), models.Tax{Name: name, Percent: percent, PriceIncluded: included})
	if err != nil {
		t.Fatalf("create tax: %v", err)
	}
	return tax
}

// SeedOpenRule creates a club-wide open pricing rule.
func SeedOpenRule(t *testing.T, database *db.DB, clubID int64, basePrice float64, taxID *int64) models.PricingRule {
	t.Helper()
	rule, err := database.Queries.CreatePricingRule(context.Background(), models.PricingRule{
		Name:      "Standard rate",
		ClubID:    clubID,
		BasePrice: basePrice,
		TaxID:     taxID,
		Priority:  10,
		State:     models.PricingOpen,
	})
	if err != nil {
		t.Fatalf("create pricing rule: %v", err)
	}
	return rule
}

func SeedTrainer(t *testing.T, database *db.DB, clubID int64, rate float64) models.Trainer {
	t.Helper()
	trainer, err := database.Queries.CreateTrainer(context.Background(), models.Trainer{
		ClubID: clubID, Name: "Coach Sam", HourlyRate: rate, Active: true,
	})
	if err != nil {
		t.Fatalf("create trainer: %v", err)
	}
	return trainer
}

func SeedEquipment(t *testing.T, database *db.DB, clubID int64, name string, priceHour float64) models.Equipment {
	t.Helper()
	equipment, err := database.Queries.CreateEquipment(context.Background(), models.Equipment{
		ClubID: clubID, Name: name, PriceHour: priceHour,
	})
	if err != nil {
		t.Fatalf("create equipment: %v", err)
	}
	return equipment
}

// SeedRunningPolicy creates a running policy with a 24 hour free-cancel window.
func SeedRunningPolicy(t *testing.T, database *db.DB, clubID int64) models.Policy {
	t.Helper()
	policy, err := database.Queries.CreatePolicy(context.Background(), models.Policy{
		ClubID:               clubID,
		Name:                 "Standard terms",
		FreeCancelHours:      24,
		RefundPercent:        50,
		NoShowPenaltyPercent: 100,
		RescheduleAllowed:    true,
		State:                models.PolicyRunning,
	})
	if err != nil {
		t.Fatalf("create policy: %v", err)
	}
	return policy
}

func SeedPromotion(t *testing.T, database *db.DB, p models.Promotion) models.Promotion {
	t.Helper()
	promotion, err := database.Queries.CreatePromotion(context.Background(), p)
	if err != nil {
		t.Fatalf("create promotion: %v", err)
	}
	return promotion
}
