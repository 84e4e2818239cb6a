// Package reservation drives a booking through its lifecycle: guarded
// creation against the facility calendar and live bookings, pricing, and the
// state transitions with their billing side effects.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/audit"
	"github.com/codr1/clubreserve/internal/billing"
	"github.com/codr1/clubreserve/internal/booking/lock"
	"github.com/codr1/clubreserve/internal/db"
	"github.com/codr1/clubreserve/internal/metrics"
	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/qr"
	"github.com/codr1/clubreserve/internal/timeslot"
)

const (
	actionCreate      = "create"
	actionUpdate      = "update"
	actionDelete      = "delete"
	actionReschedule  = "reschedule"
	actionSubmit      = "submit"
	actionConfirm     = "confirm"
	actionCheckIn     = "check_in"
	actionCheckOut    = "check_out"
	actionCancel      = "cancel"
	actionRefund      = "refund"
	actionNoShow      = "no_show"
	actionPay         = "pay"
	actionAddAttendee = "add_attendee"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Confirmation is handed to the Notifier once a reservation is confirmed.
// Attendees carry their QR payloads.
type Confirmation struct {
	Reservation models.Reservation
	Club        string
	Facility    string
	Sport       string
}

type Notifier interface {
	ReservationConfirmed(ctx context.Context, c Confirmation) error
}

// Deps are the engine's collaborators. Only DB is required.
type Deps struct {
	DB            *db.DB
	Locker        lock.Locker
	Taxes         billing.TaxEngine
	Sales         billing.SalesGateway
	QR            qr.Renderer
	Observer      audit.Observer
	Notifier      Notifier
	Metrics       *metrics.Metrics
	Clock         Clock
	Currency      string
	DefaultRegion string
}

type Engine struct {
	db       *db.DB
	locker   lock.Locker
	taxes    billing.TaxEngine
	sales    billing.SalesGateway
	qr       qr.Renderer
	observer audit.Observer
	notifier Notifier
	metrics  *metrics.Metrics
	clock    Clock
	currency string
	region   string
}

func NewEngine(deps Deps) (*Engine, error) {
	if deps.DB == nil {
		return nil, errors.New("reservation engine requires a database")
	}
	e := &Engine{
		db:       deps.DB,
		locker:   deps.Locker,
		taxes:    deps.Taxes,
		sales:    deps.Sales,
		qr:       deps.QR,
		observer: deps.Observer,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		clock:    deps.Clock,
		currency: strings.ToUpper(deps.Currency),
		region:   strings.ToUpper(deps.DefaultRegion),
	}
	if e.locker == nil {
		e.locker = lock.NewMemoryLocker()
	}
	if e.taxes == nil {
		e.taxes = billing.PercentTaxEngine{}
	}
	if e.sales == nil {
		ledger, err := billing.NewLocalLedger(deps.DB)
		if err != nil {
			return nil, err
		}
		e.sales = ledger
	}
	if e.qr == nil {
		e.qr = qr.PNGRenderer{}
	}
	if e.observer == nil {
		e.observer = audit.Nop{}
	}
	if e.clock == nil {
		e.clock = systemClock{}
	}
	if e.currency == "" {
		e.currency = "USD"
	}
	if e.region == "" {
		e.region = "US"
	}
	return e, nil
}

// Request carries the caller-editable fields of a reservation.
type Request struct {
	Name                    string                   `json:"name"`
	ClubID                  int64                    `json:"clubId"`
	FacilityID              int64                    `json:"facilityId"`
	SportID                 *int64                   `json:"sportId,omitempty"`
	Date                    time.Time                `json:"date"`
	TimeFrom                float64                  `json:"timeFrom"`
	TimeTo                  float64                  `json:"timeTo"`
	TrainerID               *int64                   `json:"trainerId,omitempty"`
	PolicyID                *int64                   `json:"policyId,omitempty"`
	PromotionID             *int64                   `json:"promotionId,omitempty"`
	PromotionCode           string                   `json:"promotionCode,omitempty"`
	PlayerName              string                   `json:"playerName,omitempty"`
	PartnerName             string                   `json:"partnerName,omitempty"`
	PartnerCountsAsAttendee bool                     `json:"partnerCountsAsAttendee"`
	NumberOfAttendance      int64                    `json:"numberOfAttendance,omitempty"`
	Source                  models.ReservationSource `json:"source,omitempty"`
	Notes                   string                   `json:"notes,omitempty"`
	Equipment               []EquipmentRequest       `json:"equipment,omitempty"`
}

// EquipmentRequest books Qty units of equipment. Zero Hours means the whole
// reservation.
type EquipmentRequest struct {
	EquipmentID int64   `json:"equipmentId"`
	Qty         float64 `json:"qty"`
	Hours       float64 `json:"hours,omitempty"`
}

func (r Request) Slot() timeslot.Slot {
	return timeslot.New(r.TimeFrom, r.TimeTo)
}

func (r Request) validate() error {
	if r.ClubID <= 0 {
		return apperr.Invalid("club_id", "must be a positive integer")
	}
	if r.FacilityID <= 0 {
		return apperr.Invalid("facility_id", "must be a positive integer")
	}
	if r.Date.IsZero() {
		return apperr.Invalid("date", "is required")
	}
	if err := r.Slot().Validate(); err != nil {
		return err
	}
	if r.NumberOfAttendance < 0 {
		return apperr.Invalid("number_of_attendance", "must be 0 or greater")
	}
	if r.Source != "" && !r.Source.Valid() {
		return apperr.Invalid("source", "must be one of backend, portal, app")
	}
	for _, eq := range r.Equipment {
		if eq.EquipmentID <= 0 {
			return apperr.Invalid("equipment_id", "must be a positive integer")
		}
		if eq.Qty <= 0 {
			return apperr.Invalid("qty", "must be greater than 0")
		}
		if eq.Hours < 0 {
			return apperr.Invalid("hours", "must be 0 or greater")
		}
	}
	return nil
}

// withSlotLock holds the (facility, date) lock around fn.
func (e *Engine) withSlotLock(ctx context.Context, facilityID int64, date time.Time, fn func() error) error {
	key := lock.SlotKey(facilityID, date)
	unlock, err := e.locker.Lock(ctx, key)
	if err != nil {
		return fmt.Errorf("acquire %s: %w", key, err)
	}
	defer unlock()
	return fn()
}

// withReservationLock holds the reservation's lock around fn. It is taken
// before any slot lock.
func (e *Engine) withReservationLock(ctx context.Context, id int64, fn func() error) error {
	key := lock.ReservationKey(id)
	unlock, err := e.locker.Lock(ctx, key)
	if err != nil {
		return fmt.Errorf("acquire %s: %w", key, err)
	}
	defer unlock()
	return fn()
}

func invalidTransition(r models.Reservation, action string) error {
	return fmt.Errorf("%w: cannot %s reservation %s in state %s",
		apperr.ErrInvalidTransition, strings.ReplaceAll(action, "_", " "), r.Code, r.State)
}

// outcome is what a committed action reports to observers.
type outcome struct {
	reservation models.Reservation
	from        models.ReservationState
	detail      string
}

// finish records the action's result and, on success, fans the audit event
// out to observers. Observer failures are logged, not returned: the
// transition is already committed.
func (e *Engine) finish(ctx context.Context, action string, id int64, o outcome, err error) (models.Reservation, error) {
	e.metrics.ObserveTransition(action, err)
	logger := log.Ctx(ctx).With().
		Str("component", "reservation_lifecycle").
		Str("action", action).
		Int64("reservation_id", id).
		Logger()

	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrExternal):
			logger.Error().Err(err).Msg("Reservation action failed on an external call")
		case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrNotFound),
			errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrPreconditionFailed):
			logger.Warn().Err(err).Msg("Reservation action rejected")
		default:
			logger.Error().Err(err).Msg("Reservation action failed")
		}
		return models.Reservation{}, err
	}

	r := o.reservation
	event := audit.NewEvent(audit.EntityReservation, r.ID, action, string(o.from), string(r.State), o.detail)
	if nerr := e.observer.Notify(ctx, event); nerr != nil {
		logger.Error().Err(nerr).Str("event_id", event.ID).Msg("Failed to notify reservation observers")
	}
	logger.Info().
		Str("code", r.Code).
		Str("from", string(o.from)).
		Str("to", string(r.State)).
		Msg("Reservation action applied")
	return r, nil
}
