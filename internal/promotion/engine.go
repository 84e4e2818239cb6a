// Package promotion validates promotion codes and applies their discounts.
package promotion

import (
	"fmt"
	"slices"
	"time"

	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/models"
)

// IsValid reports whether p can be used at asOf: active, inside its validity
// window and below its usage limit.
func IsValid(p models.Promotion, asOf time.Time) bool {
	if !p.Active {
		return false
	}
	day := models.DateOnly(asOf)
	if p.DateStart != nil && day.Before(models.DateOnly(*p.DateStart)) {
		return false
	}
	if p.DateEnd != nil && day.After(models.DateOnly(*p.DateEnd)) {
		return false
	}
	if p.UsageLimit > 0 && p.UsageCount >= p.UsageLimit {
		return false
	}
	return true
}

// Apply returns amount after p's discount, or amount unchanged when p is not
// valid at asOf.
func Apply(p models.Promotion, amount float64, asOf time.Time) float64 {
	if !IsValid(p, asOf) {
		return amount
	}
	switch p.DiscountType {
	case models.DiscountPercent:
		return models.RoundMoney(amount * (1 - p.DiscountValue/100))
	case models.DiscountFixed:
		return models.RoundMoney(max(0, amount-p.DiscountValue))
	}
	return amount
}

// Discount is the amount p takes off.
func Discount(p models.Promotion, amount float64, asOf time.Time) float64 {
	return models.RoundMoney(amount - Apply(p, amount, asOf))
}

// Target is the booking a promotion is checked against.
type Target struct {
	ClubID     int64
	SportID    *int64
	FacilityID int64
}

// ValidateFor checks that p is usable at asOf and applies to target. Empty
// sport or facility lists apply to all.
func ValidateFor(p models.Promotion, target Target, asOf time.Time) error {
	if !IsValid(p, asOf) {
		return fmt.Errorf("%w: promotion %s is not valid on %s", apperr.ErrPreconditionFailed,
			p.Code, asOf.Format(models.DateLayout))
	}
	if p.ClubID != nil && *p.ClubID != target.ClubID {
		return fmt.Errorf("%w: promotion %s belongs to another club", apperr.ErrPreconditionFailed, p.Code)
	}
	if len(p.SportIDs) > 0 && (target.SportID == nil || !slices.Contains(p.SportIDs, *target.SportID)) {
		return fmt.Errorf("%w: promotion %s does not apply to this sport", apperr.ErrPreconditionFailed, p.Code)
	}
	if len(p.FacilityIDs) > 0 && !slices.Contains(p.FacilityIDs, target.FacilityID) {
		return fmt.Errorf("%w: promotion %s does not apply to this facility", apperr.ErrPreconditionFailed, p.Code)
	}
	return nil
}

// CheckAgainstTotal enforces that a fixed discount is strictly less than the
// total it is applied to.
func CheckAgainstTotal(p models.Promotion, total float64) error {
	if p.DiscountType == models.DiscountFixed && p.DiscountValue >= total {
		return fmt.Errorf("%w: fixed discount %.2f must be less than the reservation total %.2f",
			apperr.ErrPreconditionFailed, p.DiscountValue, total)
	}
	return nil
}
