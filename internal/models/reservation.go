// internal/models/reservation.go
package models

import (
	"time"

	"github.com/codr1/clubreserve/internal/timeslot"
)

type ReservationState string

const (
	StateDraft      ReservationState = "draft"
	StateRequested  ReservationState = "requested"
	StateConfirmed  ReservationState = "confirmed"
	StateCheckedIn  ReservationState = "checked_in"
	StateCheckedOut ReservationState = "checked_out"
	StateCancelled  ReservationState = "cancelled"
	StateRefunded   ReservationState = "refunded"
	StateNoShow     ReservationState = "no_show"
)

// LiveStates are the states that hold a facility's time.
var LiveStates = []ReservationState{StateRequested, StateConfirmed, StateCheckedIn}

func (s ReservationState) Live() bool {
	for _, live := range LiveStates {
		if s == live {
			return true
		}
	}
	return false
}

var reservationStateLabels = map[ReservationState]string{
	StateDraft:      "Draft",
	StateRequested:  "Requested",
	StateConfirmed:  "Confirmed",
	StateCheckedIn:  "Checked In",
	StateCheckedOut: "Checked Out",
	StateCancelled:  "Cancelled",
	StateRefunded:   "Refunded",
	StateNoShow:     "No Show",
}

func (s ReservationState) Label() string {
	if label, ok := reservationStateLabels[s]; ok {
		return label
	}
	return string(s)
}

type PaymentState string

const (
	PaymentUnpaid   PaymentState = "unpaid"
	PaymentPaid     PaymentState = "paid"
	PaymentRefunded PaymentState = "refunded"
)

func (p PaymentState) Label() string {
	switch p {
	case PaymentUnpaid:
		return "Unpaid"
	case PaymentPaid:
		return "Paid"
	case PaymentRefunded:
		return "Refunded"
	}
	return string(p)
}

type ReservationSource string

const (
	SourceBackend ReservationSource = "backend"
	SourcePortal  ReservationSource = "portal"
	SourceApp     ReservationSource = "app"
)

func (s ReservationSource) Valid() bool {
	return s == SourceBackend || s == SourcePortal || s == SourceApp
}

// Amounts are the reservation's computed financials.
type Amounts struct {
	PriceHour float64 `json:"priceHour"`
	Duration  float64 `json:"duration"`
	Subtotal  float64 `json:"subtotal"`
	Equipment float64 `json:"equipment"`
	Trainer   float64 `json:"trainer"`
	Untaxed   float64 `json:"untaxed"`
	Tax       float64 `json:"tax"`
	Total     float64 `json:"total"`
	Discount  float64 `json:"discount"`
	Due       float64 `json:"due"`
	Penalty   float64 `json:"penalty"`
}

type Reservation struct {
	ID                      int64             `json:"id"`
	Code                    string            `json:"code"`
	Name                    string            `json:"name"`
	ClubID                  int64             `json:"clubId"`
	FacilityID              int64             `json:"facilityId"`
	SportID                 *int64            `json:"sportId,omitempty"`
	Date                    time.Time         `json:"date"`
	TimeFrom                float64           `json:"timeFrom"`
	TimeTo                  float64           `json:"timeTo"`
	TrainerID               *int64            `json:"trainerId,omitempty"`
	PolicyID                *int64            `json:"policyId,omitempty"`
	PricingRuleID           *int64            `json:"pricingRuleId,omitempty"`
	PromotionID             *int64            `json:"promotionId,omitempty"`
	PlayerName              string            `json:"playerName,omitempty"`
	PartnerName             string            `json:"partnerName,omitempty"`
	PartnerCountsAsAttendee bool              `json:"partnerCountsAsAttendee"`
	NumberOfAttendance      int64             `json:"numberOfAttendance"`
	State                   ReservationState  `json:"state"`
	PaymentState            PaymentState      `json:"paymentState"`
	Source                  ReservationSource `json:"source"`
	Currency                string            `json:"currency"`
	Amounts                 Amounts           `json:"amounts"`
	SaleOrderRef            string            `json:"saleOrderRef,omitempty"`
	InvoiceRef              string            `json:"invoiceRef,omitempty"`
	CreditNoteRef           string            `json:"creditNoteRef,omitempty"`
	CheckinAt               *time.Time        `json:"checkinAt,omitempty"`
	CheckoutAt              *time.Time        `json:"checkoutAt,omitempty"`
	Notes                   string            `json:"notes,omitempty"`
	CreatedAt               time.Time         `json:"createdAt"`
	UpdatedAt               time.Time         `json:"updatedAt"`

	Equipment []EquipmentLine `json:"equipment,omitempty"`
	Attendees []Attendee      `json:"attendees,omitempty"`
}

func (r Reservation) Slot() timeslot.Slot {
	return timeslot.New(r.TimeFrom, r.TimeTo)
}

// StartsAt is the reservation's start on its calendar date.
func (r Reservation) StartsAt() time.Time {
	return DateOnly(r.Date).Add(time.Duration(timeslot.Minutes(r.TimeFrom)) * time.Minute)
}

// AttendeeCapacity is number_of_attendance less the partner seat when the
// partner counts as an attendee.
func (r Reservation) AttendeeCapacity() int64 {
	capacity := r.NumberOfAttendance
	if r.PartnerCountsAsAttendee {
		capacity--
	}
	if capacity < 0 {
		return 0
	}
	return capacity
}

type EquipmentLine struct {
	ID            int64   `json:"id"`
	ReservationID int64   `json:"reservationId"`
	EquipmentID   int64   `json:"equipmentId"`
	Name          string  `json:"name"`
	Qty           float64 `json:"qty"`
	Hours         float64 `json:"hours"`
	PriceHour     float64 `json:"priceHour"`
	Subtotal      float64 `json:"subtotal"`
}

// ComputeSubtotal is qty × hours × hourly rate, rounded to cents.
func (l EquipmentLine) ComputeSubtotal() float64 {
	return RoundMoney(l.Qty * l.Hours * l.PriceHour)
}

type Attendee struct {
	ID            int64  `json:"id"`
	ReservationID int64  `json:"reservationId"`
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	Mobile        string `json:"mobile,omitempty"`
	QRPayload     string `json:"qrPayload,omitempty"`
	QRImage       []byte `json:"-"`
}

type TrainingSession struct {
	ID            int64     `json:"id"`
	ReservationID int64     `json:"reservationId"`
	TrainerID     int64     `json:"trainerId"`
	ClubID        int64     `json:"clubId"`
	FacilityID    int64     `json:"facilityId"`
	SportID       *int64    `json:"sportId,omitempty"`
	Date          time.Time `json:"date"`
	TimeFrom      float64   `json:"timeFrom"`
	TimeTo        float64   `json:"timeTo"`
	PriceHour     float64   `json:"priceHour"`
	AmountTotal   float64   `json:"amountTotal"`
}

type AuditEvent struct {
	ID         string    `json:"id"`
	EntityType string    `json:"entityType"`
	EntityID   int64     `json:"entityId"`
	Action     string    `json:"action"`
	FromState  string    `json:"fromState,omitempty"`
	ToState    string    `json:"toState,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
