package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/billing"
	"github.com/codr1/clubreserve/internal/db/store"
	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/pricing"
	"github.com/codr1/clubreserve/internal/promotion"
	"github.com/codr1/clubreserve/internal/timeslot"
)

// Compute fills the pre-tax amounts. The trainer fee is the trainer's hourly
// rate as a flat charge.
func Compute(duration, hourlyPrice float64, equipment []models.EquipmentLine, trainerFee float64) models.Amounts {
	a := models.Amounts{
		PriceHour: hourlyPrice,
		Duration:  duration,
		Subtotal:  models.RoundMoney(duration * hourlyPrice),
		Trainer:   models.RoundMoney(trainerFee),
	}
	for _, line := range equipment {
		a.Equipment += line.Subtotal
	}
	a.Equipment = models.RoundMoney(a.Equipment)
	return a
}

// Base is the amount tax is computed on.
func Base(a models.Amounts) float64 {
	return models.RoundMoney(a.Subtotal + a.Equipment + a.Trainer)
}

// ApplyTax records the tax engine's split. With price-included taxes the
// total stays at the base and the untaxed amount shrinks.
func ApplyTax(a *models.Amounts, tax billing.TaxResult) {
	a.Untaxed = tax.TotalExcluded
	a.Tax = tax.Tax()
	a.Total = tax.TotalIncluded
	a.Discount = 0
	a.Due = a.Total
}

// ApplyPromotion checks p against the booking and its total, then records
// the discount.
func ApplyPromotion(a *models.Amounts, p models.Promotion, target promotion.Target, asOf time.Time) error {
	if err := promotion.ValidateFor(p, target, asOf); err != nil {
		return err
	}
	if err := promotion.CheckAgainstTotal(p, a.Total); err != nil {
		return err
	}
	a.Discount = promotion.Discount(p, a.Total, asOf)
	a.Due = models.RoundMoney(a.Total - a.Discount)
	return nil
}

// price resolves the pricing rule and recomputes every amount on r,
// including its equipment lines. Any change to the interval, rule, trainer
// or equipment must come back through here.
func (e *Engine) price(ctx context.Context, q *store.Queries, r *models.Reservation, facility models.Facility, equipment []EquipmentRequest) error {
	slot := r.Slot()
	res, err := pricing.Resolve(ctx, q, pricing.Query{
		ClubID:       r.ClubID,
		SportID:      r.SportID,
		FacilityID:   &facility.ID,
		FacilityType: facility.Type,
		Date:         r.Date,
		Slot:         &slot,
	})
	if err != nil {
		return err
	}
	r.PricingRuleID = &res.Rule.ID

	lines := make([]models.EquipmentLine, 0, len(equipment))
	for _, req := range equipment {
		eq, err := q.GetEquipment(ctx, req.EquipmentID)
		if err != nil {
			return err
		}
		if eq.ClubID != r.ClubID {
			return apperr.Invalid("equipment_id", fmt.Sprintf("%d belongs to another club", eq.ID))
		}
		hours := req.Hours
		if hours == 0 {
			hours = slot.Duration()
		}
		line := models.EquipmentLine{
			EquipmentID: eq.ID,
			Name:        eq.Name,
			Qty:         req.Qty,
			Hours:       hours,
			PriceHour:   eq.PriceHour,
		}
		line.Subtotal = line.ComputeSubtotal()
		lines = append(lines, line)
	}
	r.Equipment = lines

	var trainerFee float64
	if r.TrainerID != nil {
		trainer, err := q.GetTrainer(ctx, *r.TrainerID)
		if err != nil {
			return err
		}
		trainerFee = trainer.HourlyRate
	}

	amounts := Compute(slot.Duration(), res.HourlyPrice, lines, trainerFee)
	tax, err := e.taxes.ComputeTax(ctx, Base(amounts), res.Tax, r.Currency)
	if err != nil {
		return fmt.Errorf("compute tax: %w", err)
	}
	ApplyTax(&amounts, tax)

	if r.PromotionID != nil {
		p, err := q.GetPromotion(ctx, *r.PromotionID)
		if err != nil {
			return err
		}
		if err := ApplyPromotion(&amounts, p, targetOf(*r), e.clock.Now()); err != nil {
			return err
		}
	}
	amounts.Penalty = r.Amounts.Penalty
	r.Amounts = amounts
	return nil
}

func targetOf(r models.Reservation) promotion.Target {
	return promotion.Target{ClubID: r.ClubID, SportID: r.SportID, FacilityID: r.FacilityID}
}

// OrderLines lists the sale order lines for r: the facility fee, trainer fee,
// equipment, tax when it is charged on top, and the promotion discount. The
// lines sum to the amount due.
func OrderLines(r models.Reservation, facilityName, promotionCode string) []billing.OrderLine {
	a := r.Amounts
	lines := []billing.OrderLine{{
		Description: fmt.Sprintf("%s %s %s", facilityName, r.Date.Format(models.DateLayout),
			timeslot.New(r.TimeFrom, r.TimeTo)),
		Quantity:  a.Duration,
		PriceUnit: a.PriceHour,
		Subtotal:  a.Subtotal,
	}}
	if a.Trainer > 0 {
		lines = append(lines, billing.OrderLine{Description: "Trainer fee", Quantity: 1, PriceUnit: a.Trainer, Subtotal: a.Trainer})
	}
	for _, eq := range r.Equipment {
		lines = append(lines, billing.OrderLine{
			Description: fmt.Sprintf("%s (%g h)", eq.Name, eq.Hours),
			Quantity:    eq.Qty,
			PriceUnit:   models.RoundMoney(eq.Hours * eq.PriceHour),
			Subtotal:    eq.Subtotal,
		})
	}
	if extra := models.RoundMoney(a.Total - Base(a)); extra > 0 {
		lines = append(lines, billing.OrderLine{Description: "Tax", Quantity: 1, PriceUnit: extra, Subtotal: extra})
	}
	if a.Discount > 0 {
		lines = append(lines, billing.OrderLine{
			Description: "Promotion " + promotionCode,
			Quantity:    1,
			PriceUnit:   -a.Discount,
			Subtotal:    -a.Discount,
		})
	}
	return lines
}
