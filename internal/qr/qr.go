// Package qr builds the text carried by attendee QR codes and renders it.
package qr

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/timeslot"
)

// Ticket is everything an attendee's QR code describes.
type Ticket struct {
	Attendee     string
	Code         string
	Club         string
	Facility     string
	Sport        string
	Date         string
	TimeRange    string
	Amount       float64
	Currency     string
	PaymentState string
	State        string
}

// NewTicket collects the ticket fields from a reservation and its references.
func NewTicket(r models.Reservation, attendee models.Attendee, club, facility, sport string) Ticket {
	return Ticket{
		Attendee:     attendee.Name,
		Code:         r.Code,
		Club:         club,
		Facility:     facility,
		Sport:        sport,
		Date:         r.Date.Format(models.DateLayout),
		TimeRange:    timeslot.FormatHour12(r.TimeFrom) + " - " + timeslot.FormatHour12(r.TimeTo),
		Amount:       r.Amounts.Due,
		Currency:     r.Currency,
		PaymentState: r.PaymentState.Label(),
		State:        r.State.Label(),
	}
}

// Payload renders the ticket as the newline separated text encoded in the QR image.
func (t Ticket) Payload() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Attendee: %s\n", t.Attendee)
	fmt.Fprintf(&b, "Reservation: %s\n", t.Code)
	fmt.Fprintf(&b, "Club: %s\n", t.Club)
	fmt.Fprintf(&b, "Facility: %s\n", t.Facility)
	if t.Sport != "" {
		fmt.Fprintf(&b, "Sport: %s\n", t.Sport)
	}
	fmt.Fprintf(&b, "Date: %s\n", t.Date)
	fmt.Fprintf(&b, "Time: %s\n", t.TimeRange)
	fmt.Fprintf(&b, "Amount: %.2f %s\n", t.Amount, t.Currency)
	fmt.Fprintf(&b, "Payment: %s\n", t.PaymentState)
	fmt.Fprintf(&b, "Status: %s", t.State)
	return b.String()
}

type Renderer interface {
	Render(payload string) ([]byte, error)
}

// PNGRenderer encodes payloads as square PNG images.
type PNGRenderer struct {
	Size int
}

func (r PNGRenderer) Render(payload string) ([]byte, error) {
	size := r.Size
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}
