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

var pricingRuleColumns = []string{
	"id", "name", "club_id", "sport_id", "facility_id", "facility_type", "date_from", "date_to",
	"day_of_week", "time_from", "time_to", "min_duration", "max_duration", "base_price",
	"dynamic_factor", "peak", "tax_id", "priority", "state",
}

func (q *Queries) CreatePricingRule(ctx context.Context, r models.PricingRule) (models.PricingRule, error) {
	if r.State == "" {
		r.State = models.PricingDraft
	}
	if r.DynamicFactor == 0 {
		r.DynamicFactor = 1
	}
	var dow any
	if r.DayOfWeek != nil {
		dow = int(*r.DayOfWeek)
	}
	id, err := q.insert(ctx, psql.Insert("pricing_rules").
		Columns(pricingRuleColumns[1:]...).
		Values(r.Name, r.ClubID, nullableInt(r.SportID), nullableInt(r.FacilityID), string(r.FacilityType),
			nullableDate(r.DateFrom), nullableDate(r.DateTo), dow, nullableFloat(r.TimeFrom), nullableFloat(r.TimeTo),
			nullableFloat(r.MinDuration), nullableFloat(r.MaxDuration), r.BasePrice, r.DynamicFactor, r.Peak,
			nullableInt(r.TaxID), r.Priority, string(r.State)),
		"create pricing rule")
	if err != nil {
		return models.PricingRule{}, err
	}
	r.ID = id
	return r, nil
}

func (q *Queries) GetPricingRule(ctx context.Context, id int64) (models.PricingRule, error) {
	what := fmt.Sprintf("pricing rule %d", id)
	rows, err := q.query(ctx, psql.Select(pricingRuleColumns...).From("pricing_rules").Where(sq.Eq{"id": id}), what)
	if err != nil {
		return models.PricingRule{}, err
	}
	rules, err := scanPricingRules(rows)
	if err != nil {
		return models.PricingRule{}, err
	}
	if len(rules) == 0 {
		return models.PricingRule{}, mapErr(sql.ErrNoRows, what)
	}
	return rules[0], nil
}

// ListOpenPricingRules returns a club's open rules whose date window covers
// date. Scope filters are applied by the caller.
func (q *Queries) ListOpenPricingRules(ctx context.Context, clubID int64, date time.Time) ([]models.PricingRule, error) {
	day := formatDate(date)
	rows, err := q.query(ctx, psql.Select(pricingRuleColumns...).From("pricing_rules").
		Where(sq.Eq{"club_id": clubID, "state": string(models.PricingOpen)}).
		Where(sq.Or{sq.Eq{"date_from": nil}, sq.LtOrEq{"date_from": day}}).
		Where(sq.Or{sq.Eq{"date_to": nil}, sq.GtOrEq{"date_to": day}}).
		OrderBy("priority DESC", "id"), "list open pricing rules")
	if err != nil {
		return nil, err
	}
	return scanPricingRules(rows)
}

// ListLapsedPricingRules returns open rules whose date_to is before today.
func (q *Queries) ListLapsedPricingRules(ctx context.Context, today time.Time) ([]models.PricingRule, error) {
	rows, err := q.query(ctx, psql.Select(pricingRuleColumns...).From("pricing_rules").
		Where(sq.Eq{"state": string(models.PricingOpen)}).
		Where(sq.NotEq{"date_to": nil}).
		Where(sq.Lt{"date_to": formatDate(today)}).
		OrderBy("id"), "list lapsed pricing rules")
	if err != nil {
		return nil, err
	}
	return scanPricingRules(rows)
}

// UpdatePricingRuleState moves a rule to `to` only while it is in one of
// from. It reports whether a row changed.
func (q *Queries) UpdatePricingRuleState(ctx context.Context, id int64, from []models.PricingRuleState, to models.PricingRuleState) (bool, error) {
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}
	what := fmt.Sprintf("update pricing rule %d state", id)
	res, err := q.exec(ctx, psql.Update("pricing_rules").Set("state", string(to)).
		Where(sq.Eq{"id": id, "state": states}), what)
	if err != nil {
		return false, err
	}
	n, err := rowsAffected(res, what)
	return n == 1, err
}

func scanPricingRules(rows *sql.Rows) ([]models.PricingRule, error) {
	defer rows.Close()

	var out []models.PricingRule
	for rows.Next() {
		var (
			r                                models.PricingRule
			sportID, facilityID, taxID, dow  sql.NullInt64
			dateFrom, dateTo                 sql.NullString
			timeFrom, timeTo, minDur, maxDur sql.NullFloat64
			facilityType, state              string
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.ClubID, &sportID, &facilityID, &facilityType, &dateFrom, &dateTo,
			&dow, &timeFrom, &timeTo, &minDur, &maxDur, &r.BasePrice, &r.DynamicFactor, &r.Peak,
			&taxID, &r.Priority, &state); err != nil {
			return nil, fmt.Errorf("scan pricing rule: %w", err)
		}
		r.SportID = intPtr(sportID)
		r.FacilityID = intPtr(facilityID)
		r.TaxID = intPtr(taxID)
		r.FacilityType = models.FacilityType(facilityType)
		r.State = models.PricingRuleState(state)
		if dow.Valid {
			d := timeslot.Weekday(dow.Int64)
			r.DayOfWeek = &d
		}
		r.TimeFrom = floatPtr(timeFrom)
		r.TimeTo = floatPtr(timeTo)
		r.MinDuration = floatPtr(minDur)
		r.MaxDuration = floatPtr(maxDur)
		var err error
		if r.DateFrom, err = datePtr(dateFrom); err != nil {
			return nil, err
		}
		if r.DateTo, err = datePtr(dateTo); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
