package models

import (
	"math"

	"github.com/codr1/clubreserve/internal/apperr"
)

type Tax struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Percent       float64 `json:"percent"`
	PriceIncluded bool    `json:"priceIncluded"`
}

func (t Tax) Validate() error {
	if err := validateName(t.Name); err != nil {
		return err
	}
	if t.Percent < 0 || t.Percent > 100 {
		return apperr.Invalid("percent", "must be between 0 and 100")
	}
	return nil
}

type Equipment struct {
	ID        int64   `json:"id"`
	ClubID    int64   `json:"clubId"`
	Name      string  `json:"name"`
	PriceHour float64 `json:"priceHour"`
}

type Trainer struct {
	ID         int64   `json:"id"`
	ClubID     int64   `json:"clubId"`
	Name       string  `json:"name"`
	HourlyRate float64 `json:"hourlyRate"`
	Active     bool    `json:"active"`
}

// RoundMoney rounds to two decimal places, half away from zero.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
