package email

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/clubreserve/internal/reservation"
)

const confirmationEmailTimeout = 5 * time.Second

// Notifier emails a ticket to every attendee with an address once their
// reservation is confirmed. Sends run in the background; Wait blocks until
// they have finished.
type Notifier struct {
	client  EmailSender
	from    string
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewNotifier(client EmailSender, from string) (*Notifier, error) {
	if client == nil {
		return nil, fmt.Errorf("email sender is required")
	}
	return &Notifier{client: client, from: from, timeout: confirmationEmailTimeout}, nil
}

func (n *Notifier) ReservationConfirmed(ctx context.Context, c reservation.Confirmation) error {
	r := c.Reservation
	date := FormatDate(r.Date)
	amountDue := fmt.Sprintf("%.2f %s", r.Amounts.Due, r.Currency)

	for _, attendee := range r.Attendees {
		recipient := strings.TrimSpace(attendee.Email)
		if recipient == "" {
			continue
		}
		message := BuildReservationConfirmation(ConfirmationDetails{
			ClubName:     c.Club,
			FacilityName: c.Facility,
			SportName:    c.Sport,
			Code:         r.Code,
			Date:         date,
			TimeRange:    r.Slot().String(),
			Attendee:     attendee.Name,
			AmountDue:    amountDue,
			Ticket:       attendee.QRPayload,
		})

		n.wg.Add(1)
		go func(recipient string, message ConfirmationEmail) {
			defer n.wg.Done()
			// Detached so the request that confirmed the reservation can finish first.
			sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
			defer cancel()
			if err := n.client.Send(sendCtx, recipient, message.Subject, message.Body, n.from); err != nil {
				log.Ctx(ctx).Error().Err(err).
					Int64("reservation_id", r.ID).
					Str("recipient", recipient).
					Msg("Failed to send confirmation email")
			}
		}(recipient, message)
	}
	return nil
}

// Wait blocks until pending sends finish or ctx is done.
func (n *Notifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
