package models

import (
	"strings"
	"time"

	"github.com/codr1/clubreserve/internal/apperr"
)

type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

type Promotion struct {
	ID            int64        `json:"id"`
	Name          string       `json:"name"`
	Code          string       `json:"code"`
	ClubID        *int64       `json:"clubId,omitempty"`
	DiscountType  DiscountType `json:"discountType"`
	DiscountValue float64      `json:"discountValue"`
	DateStart     *time.Time   `json:"dateStart,omitempty"`
	DateEnd       *time.Time   `json:"dateEnd,omitempty"`
	UsageLimit    int64        `json:"usageLimit"`
	UsageCount    int64        `json:"usageCount"`
	Active        bool         `json:"active"`
	SportIDs      []int64      `json:"sportIds,omitempty"`
	FacilityIDs   []int64      `json:"facilityIds,omitempty"`
}

func (p Promotion) Validate() error {
	if err := validateName(p.Name); err != nil {
		return err
	}
	if strings.TrimSpace(p.Code) != p.Code {
		return apperr.Invalid("code", "must not have leading or trailing whitespace")
	}
	switch p.DiscountType {
	case DiscountPercent:
		if p.DiscountValue <= 0 || p.DiscountValue > 100 {
			return apperr.Invalid("discount_value", "must be greater than 0 and at most 100 for percent discounts")
		}
	case DiscountFixed:
		if p.DiscountValue <= 0 {
			return apperr.Invalid("discount_value", "must be greater than 0 for fixed discounts")
		}
	default:
		return apperr.Invalid("discount_type", "must be percent or fixed")
	}
	if p.UsageLimit < 0 || p.UsageCount < 0 {
		return apperr.Invalid("usage_limit", "must be 0 or greater")
	}
	if p.UsageLimit > 0 && p.UsageCount > p.UsageLimit {
		return apperr.Invalid("usage_count", "cannot exceed usage_limit")
	}
	if p.DateStart != nil && p.DateEnd != nil && p.DateEnd.Before(*p.DateStart) {
		return apperr.Invalid("date_end", "must not be before date_start")
	}
	return nil
}
