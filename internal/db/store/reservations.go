package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/timeslot"
)

var reservationColumns = []string{
	"id", "code", "name", "club_id", "facility_id", "sport_id", "date", "time_from", "time_to",
	"trainer_id", "policy_id", "pricing_rule_id", "promotion_id", "player_name", "partner_name",
	"partner_counts_as_attendee", "number_of_attendance", "state", "payment_state", "source", "currency",
	"price_hour", "duration", "amount_subtotal", "amount_equipment", "amount_trainer", "amount_untaxed",
	"amount_tax", "amount_total", "amount_discount", "amount_due", "amount_penalty",
	"sale_order_ref", "invoice_ref", "credit_note_ref", "checkin_at", "checkout_at", "notes",
	"created_at", "updated_at",
}

func reservationValues(r models.Reservation) []any {
	return []any{
		r.Code, r.Name, r.ClubID, r.FacilityID, nullableInt(r.SportID), formatDate(r.Date), r.TimeFrom, r.TimeTo,
		nullableInt(r.TrainerID), nullableInt(r.PolicyID), nullableInt(r.PricingRuleID), nullableInt(r.PromotionID),
		r.PlayerName, r.PartnerName, r.PartnerCountsAsAttendee, r.NumberOfAttendance,
		string(r.State), string(r.PaymentState), string(r.Source), r.Currency,
		r.Amounts.PriceHour, r.Amounts.Duration, r.Amounts.Subtotal, r.Amounts.Equipment, r.Amounts.Trainer,
		r.Amounts.Untaxed, r.Amounts.Tax, r.Amounts.Total, r.Amounts.Discount, r.Amounts.Due, r.Amounts.Penalty,
		r.SaleOrderRef, r.InvoiceRef, r.CreditNoteRef, nullableTimestamp(r.CheckinAt), nullableTimestamp(r.CheckoutAt),
		r.Notes, formatTimestamp(r.CreatedAt), formatTimestamp(r.UpdatedAt),
	}
}

func (q *Queries) CreateReservation(ctx context.Context, r models.Reservation) (models.Reservation, error) {
	id, err := q.insert(ctx, psql.Insert("reservations").
		Columns(reservationColumns[1:]...).
		Values(reservationValues(r)...), "create reservation")
	if err != nil {
		return models.Reservation{}, err
	}
	r.ID = id
	return r, nil
}

// UpdateReservation writes every column of r, but only while the stored row is
// still in expectedState. It reports whether the row was written.
func (q *Queries) UpdateReservation(ctx context.Context, r models.Reservation, expectedState models.ReservationState) (bool, error) {
	values := reservationValues(r)
	update := psql.Update("reservations")
	for i, column := range reservationColumns[1:] {
		if column == "code" || column == "created_at" {
			continue
		}
		update = update.Set(column, values[i])
	}
	what := fmt.Sprintf("update reservation %d", r.ID)
	res, err := q.exec(ctx, update.Where(sq.Eq{"id": r.ID, "state": string(expectedState)}), what)
	if err != nil {
		return false, err
	}
	n, err := rowsAffected(res, what)
	return n == 1, err
}

func (q *Queries) GetReservation(ctx context.Context, id int64) (models.Reservation, error) {
	what := fmt.Sprintf("reservation %d", id)
	rows, err := q.query(ctx, psql.Select(reservationColumns...).From("reservations").Where(sq.Eq{"id": id}), what)
	if err != nil {
		return models.Reservation{}, err
	}
	list, err := scanReservations(rows)
	if err != nil {
		return models.Reservation{}, err
	}
	if len(list) == 0 {
		return models.Reservation{}, mapErr(sql.ErrNoRows, what)
	}
	r := list[0]
	if r.Equipment, err = q.ListEquipmentLines(ctx, id); err != nil {
		return models.Reservation{}, err
	}
	if r.Attendees, err = q.ListAttendees(ctx, id); err != nil {
		return models.Reservation{}, err
	}
	return r, nil
}

// DeleteReservation removes the reservation row only; owned lines must be
// deleted first.
func (q *Queries) DeleteReservation(ctx context.Context, id int64) (int64, error) {
	what := fmt.Sprintf("delete reservation %d", id)
	res, err := q.exec(ctx, psql.Delete("reservations").Where(sq.Eq{"id": id}), what)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res, what)
}

// ListReservations returns a facility's reservations on date ordered by start.
func (q *Queries) ListReservations(ctx context.Context, facilityID int64, date time.Time) ([]models.Reservation, error) {
	rows, err := q.query(ctx, psql.Select(reservationColumns...).From("reservations").
		Where(sq.Eq{"facility_id": facilityID, "date": formatDate(date)}).
		OrderBy("time_from", "id"), "list reservations")
	if err != nil {
		return nil, err
	}
	return scanReservations(rows)
}

// OverlapQuery selects live reservations that strictly overlap Slot.
type OverlapQuery struct {
	FacilityID int64
	SportID    *int64
	Date       time.Time
	Slot       timeslot.Slot
	ExcludeID  int64
	States     []models.ReservationState
}

// FindOverlappingReservation returns the earliest reservation matching the
// query, or a NotFound error when the slot is free.
func (q *Queries) FindOverlappingReservation(ctx context.Context, oq OverlapQuery) (models.Reservation, error) {
	states := make([]string, len(oq.States))
	for i, s := range oq.States {
		states[i] = string(s)
	}
	where := sq.And{
		sq.Eq{"facility_id": oq.FacilityID, "date": formatDate(oq.Date), "state": states},
		sq.Lt{"time_from": oq.Slot.To},
		sq.Gt{"time_to": oq.Slot.From},
	}
	if oq.SportID != nil {
		// A reservation without a sport holds the facility for every sport.
		where = append(where, sq.Or{sq.Eq{"sport_id": *oq.SportID}, sq.Eq{"sport_id": nil}})
	}
	if oq.ExcludeID > 0 {
		where = append(where, sq.NotEq{"id": oq.ExcludeID})
	}

	rows, err := q.query(ctx, psql.Select(reservationColumns...).From("reservations").
		Where(where).OrderBy("time_from", "id").Limit(1), "find overlapping reservation")
	if err != nil {
		return models.Reservation{}, err
	}
	list, err := scanReservations(rows)
	if err != nil {
		return models.Reservation{}, err
	}
	if len(list) == 0 {
		return models.Reservation{}, mapErr(sql.ErrNoRows, "overlapping reservation")
	}
	return list[0], nil
}

func scanReservations(rows *sql.Rows) ([]models.Reservation, error) {
	defer rows.Close()

	var out []models.Reservation
	for rows.Next() {
		var (
			r                                             models.Reservation
			sportID, trainerID, policyID, ruleID, promoID sql.NullInt64
			checkinAt, checkoutAt                         sql.NullString
			date, state, paymentState, source             string
			createdAt, updatedAt                          string
		)
		if err := rows.Scan(&r.ID, &r.Code, &r.Name, &r.ClubID, &r.FacilityID, &sportID, &date, &r.TimeFrom, &r.TimeTo,
			&trainerID, &policyID, &ruleID, &promoID, &r.PlayerName, &r.PartnerName,
			&r.PartnerCountsAsAttendee, &r.NumberOfAttendance, &state, &paymentState, &source, &r.Currency,
			&r.Amounts.PriceHour, &r.Amounts.Duration, &r.Amounts.Subtotal, &r.Amounts.Equipment, &r.Amounts.Trainer,
			&r.Amounts.Untaxed, &r.Amounts.Tax, &r.Amounts.Total, &r.Amounts.Discount, &r.Amounts.Due, &r.Amounts.Penalty,
			&r.SaleOrderRef, &r.InvoiceRef, &r.CreditNoteRef, &checkinAt, &checkoutAt, &r.Notes,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		r.SportID = intPtr(sportID)
		r.TrainerID = intPtr(trainerID)
		r.PolicyID = intPtr(policyID)
		r.PricingRuleID = intPtr(ruleID)
		r.PromotionID = intPtr(promoID)
		r.State = models.ReservationState(state)
		r.PaymentState = models.PaymentState(paymentState)
		r.Source = models.ReservationSource(source)

		var err error
		if r.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		if r.CheckinAt, err = timestampPtr(checkinAt); err != nil {
			return nil, err
		}
		if r.CheckoutAt, err = timestampPtr(checkoutAt); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		if r.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReplaceEquipmentLines deletes a reservation's equipment lines and inserts lines.
func (q *Queries) ReplaceEquipmentLines(ctx context.Context, reservationID int64, lines []models.EquipmentLine) ([]models.EquipmentLine, error) {
	if _, err := q.DeleteEquipmentLines(ctx, reservationID); err != nil {
		return nil, err
	}
	out := make([]models.EquipmentLine, 0, len(lines))
	for _, l := range lines {
		l.ReservationID = reservationID
		id, err := q.insert(ctx, psql.Insert("reservation_equipment_lines").
			Columns("reservation_id", "equipment_id", "qty", "hours", "price_hour", "subtotal").
			Values(l.ReservationID, l.EquipmentID, l.Qty, l.Hours, l.PriceHour, l.Subtotal),
			"create equipment line")
		if err != nil {
			return nil, err
		}
		l.ID = id
		out = append(out, l)
	}
	return out, nil
}

func (q *Queries) ListEquipmentLines(ctx context.Context, reservationID int64) ([]models.EquipmentLine, error) {
	rows, err := q.query(ctx, psql.Select("l.id", "l.reservation_id", "l.equipment_id", "e.name", "l.qty",
		"l.hours", "l.price_hour", "l.subtotal").
		From("reservation_equipment_lines l").
		Join("equipment e ON e.id = l.equipment_id").
		Where(sq.Eq{"l.reservation_id": reservationID}).OrderBy("l.id"), "list equipment lines")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.EquipmentLine
	for rows.Next() {
		var l models.EquipmentLine
		if err := rows.Scan(&l.ID, &l.ReservationID, &l.EquipmentID, &l.Name, &l.Qty, &l.Hours,
			&l.PriceHour, &l.Subtotal); err != nil {
			return nil, fmt.Errorf("scan equipment line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (q *Queries) DeleteEquipmentLines(ctx context.Context, reservationID int64) (int64, error) {
	what := fmt.Sprintf("delete equipment lines for reservation %d", reservationID)
	res, err := q.exec(ctx, psql.Delete("reservation_equipment_lines").
		Where(sq.Eq{"reservation_id": reservationID}), what)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res, what)
}

func (q *Queries) CreateAttendee(ctx context.Context, a models.Attendee) (models.Attendee, error) {
	id, err := q.insert(ctx, psql.Insert("reservation_attendees").
		Columns("reservation_id", "name", "email", "mobile", "qr_payload", "qr_image").
		Values(a.ReservationID, a.Name, a.Email, a.Mobile, a.QRPayload, a.QRImage), "create attendee")
	if err != nil {
		return models.Attendee{}, err
	}
	a.ID = id
	return a, nil
}

func (q *Queries) ListAttendees(ctx context.Context, reservationID int64) ([]models.Attendee, error) {
	rows, err := q.query(ctx, psql.Select("id", "reservation_id", "name", "email", "mobile", "qr_payload", "qr_image").
		From("reservation_attendees").Where(sq.Eq{"reservation_id": reservationID}).OrderBy("id"), "list attendees")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Attendee
	for rows.Next() {
		var a models.Attendee
		if err := rows.Scan(&a.ID, &a.ReservationID, &a.Name, &a.Email, &a.Mobile, &a.QRPayload, &a.QRImage); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (q *Queries) CountAttendees(ctx context.Context, reservationID int64) (int64, error) {
	what := fmt.Sprintf("count attendees for reservation %d", reservationID)
	row, err := q.queryRow(ctx, psql.Select("COUNT(*)").From("reservation_attendees").
		Where(sq.Eq{"reservation_id": reservationID}), what)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, mapErr(err, what)
	}
	return n, nil
}

func (q *Queries) UpdateAttendeeQR(ctx context.Context, attendeeID int64, payload string, image []byte) error {
	_, err := q.exec(ctx, psql.Update("reservation_attendees").
		Set("qr_payload", payload).Set("qr_image", image).
		Where(sq.Eq{"id": attendeeID}), fmt.Sprintf("update attendee %d qr", attendeeID))
	return err
}

func (q *Queries) DeleteAttendees(ctx context.Context, reservationID int64) (int64, error) {
	what := fmt.Sprintf("delete attendees for reservation %d", reservationID)
	res, err := q.exec(ctx, psql.Delete("reservation_attendees").
		Where(sq.Eq{"reservation_id": reservationID}), what)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res, what)
}

func (q *Queries) CreateTrainingSession(ctx context.Context, s models.TrainingSession) (models.TrainingSession, error) {
	id, err := q.insert(ctx, psql.Insert("training_sessions").
		Columns("reservation_id", "trainer_id", "club_id", "facility_id", "sport_id", "date",
			"time_from", "time_to", "price_hour", "amount_total").
		Values(s.ReservationID, s.TrainerID, s.ClubID, s.FacilityID, nullableInt(s.SportID), formatDate(s.Date),
			s.TimeFrom, s.TimeTo, s.PriceHour, s.AmountTotal), "create training session")
	if err != nil {
		return models.TrainingSession{}, err
	}
	s.ID = id
	return s, nil
}

func (q *Queries) GetTrainingSessionByReservation(ctx context.Context, reservationID int64) (models.TrainingSession, error) {
	what := fmt.Sprintf("training session for reservation %d", reservationID)
	row, err := q.queryRow(ctx, psql.Select("id", "reservation_id", "trainer_id", "club_id", "facility_id", "sport_id",
		"date", "time_from", "time_to", "price_hour", "amount_total").
		From("training_sessions").Where(sq.Eq{"reservation_id": reservationID}), what)
	if err != nil {
		return models.TrainingSession{}, err
	}
	var s models.TrainingSession
	var sportID sql.NullInt64
	var date string
	if err := row.Scan(&s.ID, &s.ReservationID, &s.TrainerID, &s.ClubID, &s.FacilityID, &sportID,
		&date, &s.TimeFrom, &s.TimeTo, &s.PriceHour, &s.AmountTotal); err != nil {
		return models.TrainingSession{}, mapErr(err, what)
	}
	s.SportID = intPtr(sportID)
	if s.Date, err = parseDate(date); err != nil {
		return models.TrainingSession{}, err
	}
	return s, nil
}
