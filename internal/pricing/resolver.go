// Package pricing selects the pricing rule that applies to a booking and
// manages rule state.
package pricing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/db/store"
	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/timeslot"
)

// Query describes the booking a price is needed for. Slot is optional; rules
// restricted to a time window or duration range only match when it is set.
type Query struct {
	ClubID       int64
	SportID      *int64
	FacilityID   *int64
	FacilityType models.FacilityType
	Date         time.Time
	Slot         *timeslot.Slot
}

// Resolution is the selected rule with its tax and effective hourly price.
type Resolution struct {
	Rule        models.PricingRule `json:"rule"`
	Tax         *models.Tax        `json:"tax,omitempty"`
	HourlyPrice float64            `json:"hourlyPrice"`
}

// Matches reports whether rule is a candidate for q, ignoring its state.
func Matches(rule models.PricingRule, q Query) bool {
	if rule.ClubID != q.ClubID || !rule.CoversDate(q.Date) {
		return false
	}
	if rule.SportID != nil && (q.SportID == nil || *rule.SportID != *q.SportID) {
		return false
	}
	if rule.FacilityID != nil && (q.FacilityID == nil || *rule.FacilityID != *q.FacilityID) {
		return false
	}
	if rule.FacilityType != "" && rule.FacilityType != q.FacilityType {
		return false
	}
	if rule.DayOfWeek != nil && *rule.DayOfWeek != timeslot.WeekdayOf(q.Date) {
		return false
	}

	if rule.TimeFrom != nil || rule.TimeTo != nil || rule.MinDuration != nil || rule.MaxDuration != nil {
		if q.Slot == nil {
			return false
		}
		if rule.TimeFrom != nil && q.Slot.From < *rule.TimeFrom {
			return false
		}
		if rule.TimeTo != nil && q.Slot.To > *rule.TimeTo {
			return false
		}
		duration := q.Slot.Duration()
		if rule.MinDuration != nil && duration < *rule.MinDuration {
			return false
		}
		if rule.MaxDuration != nil && duration > *rule.MaxDuration {
			return false
		}
	}
	return true
}

// Select picks the applicable open rule: highest priority, then most specific
// scope (facility > sport > facility type > club-wide), then lowest id.
func Select(rules []models.PricingRule, q Query) (models.PricingRule, error) {
	candidates := make([]models.PricingRule, 0, len(rules))
	for _, rule := range rules {
		if rule.State == models.PricingOpen && Matches(rule, q) {
			candidates = append(candidates, rule)
		}
	}
	if len(candidates) == 0 {
		return models.PricingRule{}, fmt.Errorf("%w: club %d on %s", apperr.ErrNoApplicableRule,
			q.ClubID, q.Date.Format(models.DateLayout))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Specificity() != b.Specificity() {
			return a.Specificity() > b.Specificity()
		}
		return a.ID < b.ID
	})
	return candidates[0], nil
}

// Resolve loads the club's open rules, selects one and resolves its tax.
func Resolve(ctx context.Context, q *store.Queries, query Query) (Resolution, error) {
	rules, err := q.ListOpenPricingRules(ctx, query.ClubID, query.Date)
	if err != nil {
		return Resolution{}, fmt.Errorf("list pricing rules: %w", err)
	}
	rule, err := Select(rules, query)
	if err != nil {
		return Resolution{}, err
	}

	res := Resolution{Rule: rule, HourlyPrice: rule.HourlyPrice()}
	if rule.TaxID != nil {
		tax, err := q.GetTax(ctx, *rule.TaxID)
		if err != nil {
			return Resolution{}, fmt.Errorf("pricing rule %d tax: %w", rule.ID, err)
		}
		res.Tax = &tax
	}
	return res, nil
}
