package reservation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/billing"
	"github.com/codr1/clubreserve/internal/db"
	"github.com/codr1/clubreserve/internal/db/store"
	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/qr"
	"github.com/codr1/clubreserve/internal/sequence"
	"github.com/codr1/clubreserve/internal/timeslot"
)

// step is one guarded transition. to is left empty when the action keeps
// the current state.
type step struct {
	action string
	from   []models.ReservationState
	to     models.ReservationState
	apply  func(ctx context.Context, q *store.Queries, r *models.Reservation) (string, error)
}

// run applies s while holding the reservation's lock.
func (e *Engine) run(ctx context.Context, id int64, s step) (outcome, error) {
	var o outcome
	err := e.withReservationLock(ctx, id, func() error {
		var err error
		o, err = e.runLocked(ctx, id, s)
		return err
	})
	return o, err
}

// runLocked loads the reservation inside a transaction, checks its state,
// applies the step and writes it back only if no other writer moved it
// meanwhile. The caller holds the reservation's lock.
func (e *Engine) runLocked(ctx context.Context, id int64, s step) (outcome, error) {
	var o outcome
	err := e.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		r, err := q.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		o.from = r.State
		if !slices.Contains(s.from, r.State) {
			return invalidTransition(r, s.action)
		}
		if s.apply != nil {
			if o.detail, err = s.apply(ctx, q, &r); err != nil {
				return err
			}
		}
		if s.to != "" {
			r.State = s.to
		}
		r.UpdatedAt = e.clock.Now()
		ok, err := q.UpdateReservation(ctx, r, o.from)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: reservation %s changed while being updated", apperr.ErrConflict, r.Code)
		}
		o.reservation, err = q.GetReservation(ctx, id)
		return err
	})
	return o, err
}

func (e *Engine) Get(ctx context.Context, id int64) (models.Reservation, error) {
	return e.db.Queries.GetReservation(ctx, id)
}

func (e *Engine) List(ctx context.Context, facilityID int64, date time.Time) ([]models.Reservation, error) {
	return e.db.Queries.ListReservations(ctx, facilityID, models.DateOnly(date))
}

// Create books a draft reservation. The calendar and overlap checks, pricing
// and the insert run under the (facility, date) lock in one transaction.
func (e *Engine) Create(ctx context.Context, req Request) (models.Reservation, error) {
	o, err := e.create(ctx, req)
	return e.finish(ctx, actionCreate, o.reservation.ID, o, err)
}

func (e *Engine) create(ctx context.Context, req Request) (outcome, error) {
	if err := req.validate(); err != nil {
		return outcome{}, err
	}
	req.Date = models.DateOnly(req.Date)

	var o outcome
	err := e.withSlotLock(ctx, req.FacilityID, req.Date, func() error {
		return e.db.RunInTx(ctx, func(txdb *db.DB) error {
			q := txdb.Queries
			now := e.clock.Now()
			r := models.Reservation{
				State:        models.StateDraft,
				PaymentState: models.PaymentUnpaid,
				Currency:     e.currency,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := e.build(ctx, q, &r, req); err != nil {
				return err
			}
			code, err := sequence.ReservationCode(ctx, q, now)
			if err != nil {
				return err
			}
			r.Code = code
			if r.Name == "" {
				r.Name = code
			}

			created, err := q.CreateReservation(ctx, r)
			if err != nil {
				return err
			}
			if _, err := q.ReplaceEquipmentLines(ctx, created.ID, r.Equipment); err != nil {
				return err
			}
			o.reservation, err = q.GetReservation(ctx, created.ID)
			return err
		})
	})
	return o, err
}

// build applies req to r and enforces every guard that precedes a write:
// ownership, capacity, the calendar and overlap checks, and pricing.
func (e *Engine) build(ctx context.Context, q *store.Queries, r *models.Reservation, req Request) error {
	facility, err := q.GetFacility(ctx, req.FacilityID)
	if err != nil {
		return err
	}
	if facility.ClubID != req.ClubID {
		return apperr.Invalid("facility_id", "does not belong to the club")
	}
	if !facility.Active {
		return apperr.Invalid("facility_id", "is not active")
	}
	if req.SportID != nil {
		if _, err := q.GetSport(ctx, *req.SportID); err != nil {
			return err
		}
	}

	attendance := req.NumberOfAttendance
	if attendance == 0 {
		attendance = facility.Capacity
	}
	if attendance > facility.Capacity {
		return apperr.Invalid("number_of_attendance", fmt.Sprintf("exceeds the facility capacity of %d", facility.Capacity))
	}

	source := req.Source
	if source == "" {
		source = models.SourceBackend
	}

	r.Name = strings.TrimSpace(req.Name)
	r.ClubID = req.ClubID
	r.FacilityID = facility.ID
	r.SportID = req.SportID
	r.Date = req.Date
	r.TimeFrom = req.TimeFrom
	r.TimeTo = req.TimeTo
	r.TrainerID = req.TrainerID
	r.PolicyID = req.PolicyID
	r.PromotionID = req.PromotionID
	r.PlayerName = strings.TrimSpace(req.PlayerName)
	r.PartnerName = strings.TrimSpace(req.PartnerName)
	r.PartnerCountsAsAttendee = req.PartnerCountsAsAttendee
	r.NumberOfAttendance = attendance
	r.Source = source
	r.Notes = req.Notes

	if r.ID > 0 {
		count, err := q.CountAttendees(ctx, r.ID)
		if err != nil {
			return err
		}
		if count > r.AttendeeCapacity() {
			return fmt.Errorf("%w: reservation %s already has %d attendees, more than the %d allowed",
				apperr.ErrPreconditionFailed, r.Code, count, r.AttendeeCapacity())
		}
	}

	if r.PolicyID != nil {
		policy, err := q.GetPolicy(ctx, *r.PolicyID)
		if err != nil {
			return err
		}
		if policy.ClubID != r.ClubID {
			return apperr.Invalid("policy_id", "belongs to another club")
		}
		if policy.State != models.PolicyRunning {
			return fmt.Errorf("%w: policy %s is not running", apperr.ErrPreconditionFailed, policy.Name)
		}
	}
	if r.TrainerID != nil {
		trainer, err := q.GetTrainer(ctx, *r.TrainerID)
		if err != nil {
			return err
		}
		if trainer.ClubID != r.ClubID {
			return apperr.Invalid("trainer_id", "belongs to another club")
		}
		if !trainer.Active {
			return fmt.Errorf("%w: trainer %s is not active", apperr.ErrPreconditionFailed, trainer.Name)
		}
	}
	if code := strings.TrimSpace(req.PromotionCode); code != "" && r.PromotionID == nil {
		p, err := q.GetPromotionByCode(ctx, code)
		if err != nil {
			return err
		}
		r.PromotionID = &p.ID
	}

	if err := e.checkSlot(ctx, q, *r); err != nil {
		return err
	}
	return e.price(ctx, q, r, facility, req.Equipment)
}

// Update rewrites a draft reservation and recomputes its amounts.
func (e *Engine) Update(ctx context.Context, id int64, req Request) (models.Reservation, error) {
	o, err := e.update(ctx, id, req)
	return e.finish(ctx, actionUpdate, id, o, err)
}

func (e *Engine) update(ctx context.Context, id int64, req Request) (outcome, error) {
	if err := req.validate(); err != nil {
		return outcome{}, err
	}
	req.Date = models.DateOnly(req.Date)

	var o outcome
	err := e.withReservationLock(ctx, id, func() error {
		return e.withSlotLock(ctx, req.FacilityID, req.Date, func() error {
			var err error
			o, err = e.runLocked(ctx, id, step{
				action: actionUpdate,
				from:   []models.ReservationState{models.StateDraft},
				apply: func(ctx context.Context, q *store.Queries, r *models.Reservation) (string, error) {
					if err := e.build(ctx, q, r, req); err != nil {
						return "", err
					}
					if r.Name == "" {
						r.Name = r.Code
					}
					_, err := q.ReplaceEquipmentLines(ctx, r.ID, r.Equipment)
					return "", err
				},
			})
			return err
		})
	})
	return o, err
}

// Delete removes a draft reservation together with the lines it owns.
func (e *Engine) Delete(ctx context.Context, id int64) error {
	var o outcome
	err := e.withReservationLock(ctx, id, func() error {
		return e.db.RunInTx(ctx, func(txdb *db.DB) error {
			q := txdb.Queries
			r, err := q.GetReservation(ctx, id)
			if err != nil {
				return err
			}
			if r.State != models.StateDraft {
				return invalidTransition(r, actionDelete)
			}
			if _, err := q.DeleteEquipmentLines(ctx, id); err != nil {
				return err
			}
			if _, err := q.DeleteAttendees(ctx, id); err != nil {
				return err
			}
			if _, err := q.DeleteReservation(ctx, id); err != nil {
				return err
			}
			o = outcome{reservation: r, from: r.State, detail: "deleted"}
			o.reservation.State = ""
			return nil
		})
	})
	_, err = e.finish(ctx, actionDelete, id, o, err)
	return err
}

// Reschedule moves a requested or confirmed reservation to another interval
// of the same length, when its policy allows it. Amounts are kept as
// ordered, even if another pricing rule covers the new date.
func (e *Engine) Reschedule(ctx context.Context, id int64, date time.Time, timeFrom, timeTo float64) (models.Reservation, error) {
	o, err := e.reschedule(ctx, id, date, timeFrom, timeTo)
	return e.finish(ctx, actionReschedule, id, o, err)
}

func (e *Engine) reschedule(ctx context.Context, id int64, date time.Time, timeFrom, timeTo float64) (outcome, error) {
	slot := timeslot.New(timeFrom, timeTo)
	if err := slot.Validate(); err != nil {
		return outcome{}, err
	}
	if date.IsZero() {
		return outcome{}, apperr.Invalid("date", "is required")
	}
	date = models.DateOnly(date)

	var o outcome
	err := e.withReservationLock(ctx, id, func() error {
		current, err := e.db.Queries.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		return e.withSlotLock(ctx, current.FacilityID, date, func() error {
			var err error
			o, err = e.runLocked(ctx, id, step{
				action: actionReschedule,
				from:   []models.ReservationState{models.StateRequested, models.StateConfirmed},
				apply: func(ctx context.Context, q *store.Queries, r *models.Reservation) (string, error) {
					if r.PolicyID == nil {
						return "", fmt.Errorf("%w: reservation %s has no policy allowing reschedule", apperr.ErrPreconditionFailed, r.Code)
					}
					policy, err := q.GetPolicy(ctx, *r.PolicyID)
					if err != nil {
						return "", err
					}
					if !policy.RescheduleAllowed {
						return "", fmt.Errorf("%w: policy %s does not allow rescheduling", apperr.ErrPreconditionFailed, policy.Name)
					}
					if timeslot.Minutes(slot.Duration()) != timeslot.Minutes(r.Slot().Duration()) {
						return "", apperr.Invalid("time_to", "must keep the booked duration")
					}
					previous := r.Date.Format(models.DateLayout) + " " + r.Slot().String()
					r.Date = date
					r.TimeFrom = slot.From
					r.TimeTo = slot.To
					if err := e.checkSlot(ctx, q, *r); err != nil {
						return "", err
					}
					return "moved from " + previous, nil
				},
			})
			return err
		})
	})
	return o, err
}

// Submit moves a draft to requested: it creates the sale order from the
// priced lines and consumes one promotion use.
func (e *Engine) Submit(ctx context.Context, id int64) (models.Reservation, error) {
	o, err := e.submit(ctx, id)
	return e.finish(ctx, actionSubmit, id, o, err)
}

func (e *Engine) submit(ctx context.Context, id int64) (outcome, error) {
	var o outcome
	err := e.withReservationLock(ctx, id, func() error {
		current, err := e.db.Queries.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		return e.withSlotLock(ctx, current.FacilityID, current.Date, func() error {
			var lines []billing.OrderLine
			err := e.db.RunInTx(ctx, func(txdb *db.DB) error {
				var err error
				lines, err = e.prepareOrder(ctx, txdb.Queries, id)
				return err
			})
			if err != nil {
				return err
			}

			orderRef, err := e.sales.CreateOrder(ctx, current.Currency, lines)
			if err != nil {
				return apperr.External("create sale order", err)
			}

			o, err = e.runLocked(ctx, id, step{
				action: actionSubmit,
				from:   []models.ReservationState{models.StateDraft},
				to:     models.StateRequested,
				apply: func(ctx context.Context, q *store.Queries, r *models.Reservation) (string, error) {
					if err := e.checkSlot(ctx, q, *r); err != nil {
						return "", err
					}
					if r.PromotionID != nil {
						ok, err := q.IncrementPromotionUsage(ctx, *r.PromotionID)
						if err != nil {
							return "", err
						}
						if !ok {
							return "", fmt.Errorf("%w: promotion usage limit reached", apperr.ErrPreconditionFailed)
						}
					}
					r.SaleOrderRef = orderRef
					return "sale order " + orderRef, nil
				},
			})
			if err != nil {
				e.voidOrder(ctx, id, orderRef)
			}
			return err
		})
	})
	return o, err
}

// voidOrder cancels a sale order whose reservation was not submitted.
func (e *Engine) voidOrder(ctx context.Context, id int64, orderRef string) {
	cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := e.sales.CancelOrder(cancelCtx, orderRef); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("order_ref", orderRef).Int64("reservation_id", id).
			Msg("Failed to cancel sale order of a reservation that was not submitted")
	}
}

// prepareOrder re-validates a draft and returns its order lines.
func (e *Engine) prepareOrder(ctx context.Context, q *store.Queries, id int64) ([]billing.OrderLine, error) {
	r, err := q.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.State != models.StateDraft {
		return nil, invalidTransition(r, actionSubmit)
	}
	if int64(len(r.Attendees)) > r.AttendeeCapacity() {
		return nil, fmt.Errorf("%w: reservation %s has more attendees than allowed", apperr.ErrPreconditionFailed, r.Code)
	}
	if err := e.checkSlot(ctx, q, r); err != nil {
		return nil, err
	}

	var promotionCode string
	if r.PromotionID != nil {
		p, err := q.GetPromotion(ctx, *r.PromotionID)
		if err != nil {
			return nil, err
		}
		amounts := r.Amounts
		if err := ApplyPromotion(&amounts, p, targetOf(r), e.clock.Now()); err != nil {
			return nil, err
		}
		promotionCode = p.Code
	}
	facility, err := q.GetFacility(ctx, r.FacilityID)
	if err != nil {
		return nil, err
	}
	return OrderLines(r, facility.Name, promotionCode), nil
}

// Confirm confirms the sale order, invoices and posts it, then issues a QR
// ticket per attendee. A failed external call leaves the reservation
// requested; retrying reuses the order's invoice.
func (e *Engine) Confirm(ctx context.Context, id int64) (models.Reservation, error) {
	var names venueNames
	o, err := e.confirm(ctx, id, &names)
	r, err := e.finish(ctx, actionConfirm, id, o, err)
	if err != nil {
		return r, err
	}
	if e.notifier != nil {
		c := Confirmation{Reservation: r, Club: names.club, Facility: names.facility, Sport: names.sport}
		if nerr := e.notifier.ReservationConfirmed(ctx, c); nerr != nil {
			log.Ctx(ctx).Error().Err(nerr).Int64("reservation_id", id).Msg("Failed to send reservation confirmation")
		}
	}
	return r, nil
}

func (e *Engine) confirm(ctx context.Context, id int64, names *venueNames) (outcome, error) {
	var o outcome
	err := e.withReservationLock(ctx, id, func() error {
		var err error
		o, err = e.confirmLocked(ctx, id, names)
		return err
	})
	return o, err
}

// confirmLocked runs with the reservation's lock held, so no other
// transition can move the reservation between posting and the state write.
func (e *Engine) confirmLocked(ctx context.Context, id int64, names *venueNames) (outcome, error) {
	r, err := e.db.Queries.GetReservation(ctx, id)
	if err != nil {
		return outcome{}, err
	}
	if r.State != models.StateRequested {
		return outcome{}, invalidTransition(r, actionConfirm)
	}
	if r.SaleOrderRef == "" {
		return outcome{}, fmt.Errorf("%w: reservation %s has no sale order", apperr.ErrPreconditionFailed, r.Code)
	}
	if int64(len(r.Attendees)) > r.AttendeeCapacity() {
		return outcome{}, fmt.Errorf("%w: reservation %s has more attendees than allowed", apperr.ErrPreconditionFailed, r.Code)
	}

	if err := e.sales.ConfirmOrder(ctx, r.SaleOrderRef); err != nil {
		return outcome{}, apperr.External("confirm sale order "+r.SaleOrderRef, err)
	}
	invoiceRef, err := e.sales.CreateInvoice(ctx, r.SaleOrderRef)
	if err != nil {
		return outcome{}, apperr.External("create invoice for "+r.SaleOrderRef, err)
	}
	if err := e.sales.PostInvoice(ctx, invoiceRef); err != nil {
		return outcome{}, apperr.External("post invoice "+invoiceRef, err)
	}

	return e.runLocked(ctx, id, step{
		action: actionConfirm,
		from:   []models.ReservationState{models.StateRequested},
		to:     models.StateConfirmed,
		apply: func(ctx context.Context, q *store.Queries, r *models.Reservation) (string, error) {
			if int64(len(r.Attendees)) > r.AttendeeCapacity() {
				return "", fmt.Errorf("%w: reservation %s has more attendees than allowed", apperr.ErrPreconditionFailed, r.Code)
			}
			r.InvoiceRef = invoiceRef
			r.PaymentState = models.PaymentUnpaid

			var err error
			if *names, err = loadVenueNames(ctx, q, *r); err != nil {
				return "", err
			}
			view := *r
			view.State = models.StateConfirmed
			for _, a := range r.Attendees {
				payload := qr.NewTicket(view, a, names.club, names.facility, names.sport).Payload()
				image, err := e.qr.Render(payload)
				if err != nil {
					return "", fmt.Errorf("render ticket for attendee %d: %w", a.ID, err)
				}
				if err := q.UpdateAttendeeQR(ctx, a.ID, payload, image); err != nil {
					return "", err
				}
			}
			return "invoice " + invoiceRef, nil
		},
	})
}

type venueNames struct {
	club     string
	facility string
	sport    string
}

func loadVenueNames(ctx context.Context, q *store.Queries, r models.Reservation) (venueNames, error) {
	club, err := q.GetClub(ctx, r.ClubID)
	if err != nil {
		return venueNames{}, err
	}
	facility, err := q.GetFacility(ctx, r.FacilityID)
	if err != nil {
		return venueNames{}, err
	}
	names := venueNames{club: club.Name, facility: facility.Name}
	if r.SportID != nil {
		sport, err := q.GetSport(ctx, *r.SportID)
		if err != nil {
			return venueNames{}, err
		}
		names.sport = sport.Name
	}
	return names, nil
}

func (e *Engine) CheckIn(ctx context.Context, id int64) (models.Reservation, error) {
	o, err := e.run(ctx, id, step{
		action: actionCheckIn,
		from:   []models.ReservationState{models.StateConfirmed},
		to:     models.StateCheckedIn,
		apply: func(ctx context.Context, q *store.Queries, r *models.Reservation) (string, error) {
			now := e.clock.Now()
			r.CheckinAt = &now
			return "", nil
		},
	})
	return e.finish(ctx, actionCheckIn, id, o, err)
}

// CheckOut closes a checked-in reservation, releases its attendees and, when
// a trainer is attached, records the training session it covered.
func (e *Engine) CheckOut(ctx context.Context, id int64) (models.Reservation, error) {
	o, err := e.run(ctx, id, step{
		action: actionCheckOut,
		from:   []models.ReservationState{models.StateCheckedIn},
		to:     models.StateCheckedOut,
		apply: func(ctx context.Context, q *store.Queries, r *models.Reservation) (string, error) {
			now := e.clock.Now()
			r.CheckoutAt = &now
			if _, err := q.DeleteAttendees(ctx, r.ID); err != nil {
				return "", err
			}
			if r.TrainerID == nil {
				return "", nil
			}
			trainer, err := q.GetTrainer(ctx, *r.TrainerID)
			if err != nil {
				return "", err
			}
			session, err := q.CreateTrainingSession(ctx, models.TrainingSession{
				ReservationID: r.ID,
				TrainerID:     trainer.ID,
				ClubID:        r.ClubID,
				FacilityID:    r.FacilityID,
				SportID:       r.SportID,
				Date:          r.Date,
				TimeFrom:      r.TimeFrom,
				TimeTo:        r.TimeTo,
				PriceHour:     trainer.HourlyRate,
				AmountTotal:   models.RoundMoney(r.Slot().Duration() * trainer.HourlyRate),
			})
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("training session %d", session.ID), nil
		},
	})
	return e.finish(ctx, actionCheckOut, id, o, err)
}

// Cancel releases the booking. No money moves; the refund percentage the
// policy would grant is recorded for a manual refund.
func (e *Engine) Cancel(ctx context.Context, id int64) (models.Reservation, error) {
	o, err := e.run(ctx, id, step{
		action: actionCancel,
		from:   []models.ReservationState{models.StateDraft, models.StateRequested, models.StateConfirmed},
		to:     models.StateCancelled,
		apply: func(ctx context.Context, q *store.Queries, r *models.Reservation) (string, error) {
			if _, err := q.DeleteAttendees(ctx, r.ID); err != nil {
				return "", err
			}
			if r.PolicyID == nil {
				return "", nil
			}
			policy, err := q.GetPolicy(ctx, *r.PolicyID)
			if err != nil {
				return "", err
			}
			percent := policy.RefundPercentAt(r.StartsAt(), e.clock.Now())
			return fmt.Sprintf("refund_percent=%g", percent), nil
		},
	})
	return e.finish(ctx, actionCancel, id, o, err)
}

// Refund reverses a confirmed reservation's posted invoice with a credit
// note and reconciles the two.
func (e *Engine) Refund(ctx context.Context, id int64) (models.Reservation, error) {
	o, err := e.refund(ctx, id)
	return e.finish(ctx, actionRefund, id, o, err)
}

func (e *Engine) refund(ctx context.Context, id int64) (outcome, error) {
	var o outcome
	err := e.withReservationLock(ctx, id, func() error {
		var err error
		o, err = e.refundLocked(ctx, id)
		return err
	})
	return o, err
}

// refundLocked runs with the reservation's lock held. The gateway reuses the
// invoice's credit note, so a retry after a failed post or reconcile
// finishes the same reversal instead of issuing another.
func (e *Engine) refundLocked(ctx context.Context, id int64) (outcome, error) {
	r, err := e.db.Queries.GetReservation(ctx, id)
	if err != nil {
		return outcome{}, err
	}
	if r.State != models.StateConfirmed {
		return outcome{}, invalidTransition(r, actionRefund)
	}
	if r.InvoiceRef == "" {
		return outcome{}, fmt.Errorf("refund %s: %w", r.Code, apperr.ErrNoInvoice)
	}
	inv, err := e.sales.GetInvoice(ctx, r.InvoiceRef)
	if errors.Is(err, apperr.ErrNotFound) {
		return outcome{}, fmt.Errorf("refund %s: invoice %s: %w", r.Code, r.InvoiceRef, apperr.ErrNoInvoice)
	}
	if err != nil {
		return outcome{}, apperr.External("get invoice "+r.InvoiceRef, err)
	}
	if !inv.Posted {
		return outcome{}, fmt.Errorf("refund %s: invoice %s is not posted: %w", r.Code, r.InvoiceRef, apperr.ErrNoInvoice)
	}

	noteRef, err := e.sales.CreateCreditNote(ctx, r.InvoiceRef)
	if err != nil {
		return outcome{}, apperr.External("create credit note for "+r.InvoiceRef, err)
	}
	if err := e.sales.PostInvoice(ctx, noteRef); err != nil {
		return outcome{}, apperr.External("post credit note "+noteRef, err)
	}
	if err := e.sales.ReconcileReceivables(ctx, r.InvoiceRef, noteRef); err != nil {
		return outcome{}, apperr.External("reconcile "+r.InvoiceRef, err)
	}

	return e.runLocked(ctx, id, step{
		action: actionRefund,
		from:   []models.ReservationState{models.StateConfirmed},
		to:     models.StateRefunded,
		apply: func(ctx context.Context, q *store.Queries, r *models.Reservation) (string, error) {
			r.CreditNoteRef = noteRef
			r.PaymentState = models.PaymentRefunded
			return "credit note " + noteRef, nil
		},
	})
}

// NoShow closes a confirmed reservation whose start has passed, recording
// the policy's penalty.
func (e *Engine) NoShow(ctx context.Context, id int64) (models.Reservation, error) {
	o, err := e.run(ctx, id, step{
		action: actionNoShow,
		from:   []models.ReservationState{models.StateConfirmed},
		to:     models.StateNoShow,
		apply: func(ctx context.Context, q *store.Queries, r *models.Reservation) (string, error) {
			if e.clock.Now().Before(r.StartsAt()) {
				return "", fmt.Errorf("%w: reservation %s has not started", apperr.ErrPreconditionFailed, r.Code)
			}
			if _, err := q.DeleteAttendees(ctx, r.ID); err != nil {
				return "", err
			}
			if r.PolicyID == nil {
				return "", nil
			}
			policy, err := q.GetPolicy(ctx, *r.PolicyID)
			if err != nil {
				return "", err
			}
			r.Amounts.Penalty = policy.NoShowPenalty(r.Amounts.Total)
			return fmt.Sprintf("penalty=%.2f", r.Amounts.Penalty), nil
		},
	})
	return e.finish(ctx, actionNoShow, id, o, err)
}

func (e *Engine) RegisterPayment(ctx context.Context, id int64) (models.Reservation, error) {
	o, err := e.run(ctx, id, step{
		action: actionPay,
		from:   []models.ReservationState{models.StateConfirmed, models.StateCheckedIn},
		apply: func(ctx context.Context, q *store.Queries, r *models.Reservation) (string, error) {
			if r.PaymentState != models.PaymentUnpaid {
				return "", fmt.Errorf("%w: reservation %s is already %s", apperr.ErrInvalidTransition, r.Code, r.PaymentState)
			}
			r.PaymentState = models.PaymentPaid
			return fmt.Sprintf("paid %.2f %s", r.Amounts.Due, r.Currency), nil
		},
	})
	return e.finish(ctx, actionPay, id, o, err)
}

// AddAttendee registers an attendee on a draft or requested reservation
// within its capacity.
func (e *Engine) AddAttendee(ctx context.Context, id int64, req AttendeeRequest) (models.Reservation, error) {
	attendee, err := e.newAttendee(id, req)
	if err != nil {
		return e.finish(ctx, actionAddAttendee, id, outcome{}, err)
	}
	o, err := e.run(ctx, id, step{
		action: actionAddAttendee,
		from:   []models.ReservationState{models.StateDraft, models.StateRequested},
		apply: func(ctx context.Context, q *store.Queries, r *models.Reservation) (string, error) {
			count, err := q.CountAttendees(ctx, r.ID)
			if err != nil {
				return "", err
			}
			if count >= r.AttendeeCapacity() {
				return "", fmt.Errorf("%w: reservation %s is full with %d attendees",
					apperr.ErrPreconditionFailed, r.Code, count)
			}
			created, err := q.CreateAttendee(ctx, attendee)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("attendee %d", created.ID), nil
		},
	})
	return e.finish(ctx, actionAddAttendee, id, o, err)
}
