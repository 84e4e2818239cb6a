package email

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/reservation"
)

type sentEmail struct {
	recipient string
	subject   string
	body      string
	sender    string
	ctxErr    error
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []sentEmail
	fail bool
}

func (f *fakeEmailSender) Send(ctx context.Context, recipient, subject, body, sender string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{recipient, subject, body, sender, ctx.Err()})
	if f.fail {
		return errors.New("ses unavailable")
	}
	return nil
}

func (f *fakeEmailSender) messages() []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEmail(nil), f.sent...)
}

func confirmed() reservation.Confirmation {
	return reservation.Confirmation{
		Reservation: models.Reservation{
			ID:       7,
			Code:     "RES/2026/0007",
			Date:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			TimeFrom: 9,
			TimeTo:   10.5,
			Currency: "EUR",
			Amounts:  models.Amounts{Due: 36},
			Attendees: []models.Attendee{
				{Name: "Ana", Email: "ana@example.com", QRPayload: "ticket-ana"},
				{Name: "Ben"},
				{Name: "Cy", Email: " cy@example.com ", QRPayload: "ticket-cy"},
			},
		},
		Club:     "Riverside Club",
		Facility: "Court 1",
		Sport:    "Padel",
	}
}

func waitForSends(t *testing.T, n *Notifier) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := n.Wait(ctx); err != nil {
		t.Fatalf("wait for sends: %v", err)
	}
}

func TestReservationConfirmedEmailsAttendeesWithAddress(t *testing.T) {
	sender := &fakeEmailSender{}
	n, err := NewNotifier(sender, "bookings@example.com")
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	if err := n.ReservationConfirmed(context.Background(), confirmed()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	waitForSends(t, n)

	sent := sender.messages()
	if len(sent) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(sent))
	}
	tickets := map[string]string{"ana@example.com": "ticket-ana", "cy@example.com": "ticket-cy"}
	for _, m := range sent {
		ticket, ok := tickets[m.recipient]
		if !ok {
			t.Fatalf("unexpected recipient %q", m.recipient)
		}
		if !strings.Contains(m.body, ticket) {
			t.Fatalf("body for %s missing ticket:\n%s", m.recipient, m.body)
		}
		if !strings.Contains(m.body, "Time: 09:00-10:30") || !strings.Contains(m.body, "Amount due: 36.00 EUR") {
			t.Fatalf("body missing schedule or amount:\n%s", m.body)
		}
		if m.subject != "Reservation Confirmed - Court 1 (RES/2026/0007)" {
			t.Fatalf("subject = %q", m.subject)
		}
		if m.sender != "bookings@example.com" {
			t.Fatalf("sender = %q", m.sender)
		}
	}
}

func TestReservationConfirmedOutlivesCanceledRequest(t *testing.T) {
	sender := &fakeEmailSender{fail: true}
	n, err := NewNotifier(sender, "")
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.ReservationConfirmed(ctx, confirmed()); err != nil {
		t.Fatalf("send failures must not surface: %v", err)
	}
	waitForSends(t, n)

	for _, m := range sender.messages() {
		if m.ctxErr != nil {
			t.Fatalf("send saw canceled context: %v", m.ctxErr)
		}
	}
}

func TestBuildReservationConfirmationDefaults(t *testing.T) {
	msg := BuildReservationConfirmation(ConfirmationDetails{})
	if msg.Subject != "Reservation Confirmed - your facility" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Date: TBD") || strings.Contains(msg.Body, "Sport:") {
		t.Fatalf("body = %q", msg.Body)
	}
}

func TestNewNotifierRequiresSender(t *testing.T) {
	if _, err := NewNotifier(nil, "x@example.com"); err == nil {
		t.Fatalf("expected error for nil sender")
	}
}
