package models

import (
	"time"

	"github.com/codr1/clubreserve/internal/apperr"
)

type PolicyState string

const (
	PolicyDraft     PolicyState = "draft"
	PolicyRunning   PolicyState = "running"
	PolicyCancelled PolicyState = "cancelled"
)

// Policy carries the cancellation, refund and no-show terms a reservation is booked under.
type Policy struct {
	ID                   int64       `json:"id"`
	ClubID               int64       `json:"clubId"`
	Name                 string      `json:"name"`
	FreeCancelHours      float64     `json:"freeCancelHours"`
	RefundPercent        float64     `json:"refundPercent"`
	NoShowPenaltyPercent float64     `json:"noShowPenaltyPercent"`
	RescheduleAllowed    bool        `json:"rescheduleAllowed"`
	State                PolicyState `json:"state"`
}

func (p Policy) Validate() error {
	if err := validateName(p.Name); err != nil {
		return err
	}
	if p.FreeCancelHours < 0 {
		return apperr.Invalid("free_cancel_hours", "must be 0 or greater")
	}
	if p.RefundPercent < 0 || p.RefundPercent > 100 {
		return apperr.Invalid("refund_percent", "must be between 0 and 100")
	}
	if p.NoShowPenaltyPercent < 0 || p.NoShowPenaltyPercent > 100 {
		return apperr.Invalid("no_show_penalty_percent", "must be between 0 and 100")
	}
	return nil
}

// RefundPercentAt is 100 when cancelled at least FreeCancelHours before the
// start, otherwise the policy's partial refund percentage.
func (p Policy) RefundPercentAt(start, cancelledAt time.Time) float64 {
	if start.Sub(cancelledAt).Hours() >= p.FreeCancelHours {
		return 100
	}
	return p.RefundPercent
}

func (p Policy) NoShowPenalty(total float64) float64 {
	return RoundMoney(total * p.NoShowPenaltyPercent / 100)
}
