package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/codr1/clubreserve/internal/models"
)

var promotionColumns = []string{
	"id", "name", "code", "club_id", "discount_type", "discount_value",
	"date_start", "date_end", "usage_limit", "usage_count", "active",
}

// CreatePromotion inserts the promotion and its sport/facility applicability rows.
func (q *Queries) CreatePromotion(ctx context.Context, p models.Promotion) (models.Promotion, error) {
	id, err := q.insert(ctx, psql.Insert("promotions").
		Columns(promotionColumns[1:]...).
		Values(p.Name, p.Code, nullableInt(p.ClubID), string(p.DiscountType), p.DiscountValue,
			nullableDate(p.DateStart), nullableDate(p.DateEnd), p.UsageLimit, p.UsageCount, p.Active),
		"create promotion")
	if err != nil {
		return models.Promotion{}, err
	}
	p.ID = id

	for _, sportID := range p.SportIDs {
		if _, err := q.exec(ctx, psql.Insert("promotion_sports").Columns("promotion_id", "sport_id").
			Values(id, sportID), "link promotion sport"); err != nil {
			return models.Promotion{}, err
		}
	}
	for _, facilityID := range p.FacilityIDs {
		if _, err := q.exec(ctx, psql.Insert("promotion_facilities").Columns("promotion_id", "facility_id").
			Values(id, facilityID), "link promotion facility"); err != nil {
			return models.Promotion{}, err
		}
	}
	return p, nil
}

func (q *Queries) GetPromotion(ctx context.Context, id int64) (models.Promotion, error) {
	return q.getPromotion(ctx, sq.Eq{"id": id}, fmt.Sprintf("promotion %d", id))
}

func (q *Queries) GetPromotionByCode(ctx context.Context, code string) (models.Promotion, error) {
	return q.getPromotion(ctx, sq.Eq{"code": code}, fmt.Sprintf("promotion %q", code))
}

func (q *Queries) getPromotion(ctx context.Context, where sq.Eq, what string) (models.Promotion, error) {
	row, err := q.queryRow(ctx, psql.Select(promotionColumns...).From("promotions").Where(where), what)
	if err != nil {
		return models.Promotion{}, err
	}
	var (
		p                  models.Promotion
		clubID             sql.NullInt64
		dateStart, dateEnd sql.NullString
		discountType       string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Code, &clubID, &discountType, &p.DiscountValue,
		&dateStart, &dateEnd, &p.UsageLimit, &p.UsageCount, &p.Active); err != nil {
		return models.Promotion{}, mapErr(err, what)
	}
	p.ClubID = intPtr(clubID)
	p.DiscountType = models.DiscountType(discountType)
	if p.DateStart, err = datePtr(dateStart); err != nil {
		return models.Promotion{}, err
	}
	if p.DateEnd, err = datePtr(dateEnd); err != nil {
		return models.Promotion{}, err
	}

	if p.SportIDs, err = q.listIDs(ctx, "promotion_sports", "sport_id", p.ID); err != nil {
		return models.Promotion{}, err
	}
	if p.FacilityIDs, err = q.listIDs(ctx, "promotion_facilities", "facility_id", p.ID); err != nil {
		return models.Promotion{}, err
	}
	return p, nil
}

func (q *Queries) listIDs(ctx context.Context, table, column string, promotionID int64) ([]int64, error) {
	rows, err := q.query(ctx, psql.Select(column).From(table).
		Where(sq.Eq{"promotion_id": promotionID}).OrderBy(column), "list "+table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IncrementPromotionUsage bumps usage_count unless the limit is already reached.
// It reports whether the increment happened.
func (q *Queries) IncrementPromotionUsage(ctx context.Context, id int64) (bool, error) {
	what := fmt.Sprintf("increment promotion %d usage", id)
	res, err := q.exec(ctx, psql.Update("promotions").
		Set("usage_count", sq.Expr("usage_count + 1")).
		Where(sq.Eq{"id": id}).
		Where(sq.Or{sq.Eq{"usage_limit": 0}, sq.Expr("usage_count < usage_limit")}), what)
	if err != nil {
		return false, err
	}
	n, err := rowsAffected(res, what)
	return n == 1, err
}
