package reservation

import (
	"net/mail"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/models"
)

type AttendeeRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Mobile string `json:"mobile,omitempty"`
}

// NormalizeMobile parses raw in the context of region and returns it in E.164.
func NormalizeMobile(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	num, err := phonenumbers.Parse(raw, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", apperr.Invalid("mobile", "is not a valid phone number")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func (e *Engine) newAttendee(reservationID int64, req AttendeeRequest) (models.Attendee, error) {
	a := models.Attendee{
		ReservationID: reservationID,
		Name:          strings.TrimSpace(req.Name),
		Email:         strings.TrimSpace(req.Email),
	}
	if a.Name == "" {
		return models.Attendee{}, apperr.Invalid("name", "is required")
	}
	if a.Email != "" {
		if _, err := mail.ParseAddress(a.Email); err != nil {
			return models.Attendee{}, apperr.Invalid("email", "is not a valid address")
		}
	}
	mobile, err := NormalizeMobile(req.Mobile, e.region)
	if err != nil {
		return models.Attendee{}, err
	}
	a.Mobile = mobile
	return a, nil
}
