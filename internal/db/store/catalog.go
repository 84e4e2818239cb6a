package store

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/codr1/clubreserve/internal/models"
)

func (q *Queries) CreateClub(ctx context.Context, name string) (models.Club, error) {
	id, err := q.insert(ctx, psql.Insert("clubs").Columns("name").Values(strings.TrimSpace(name)), "create club")
	if err != nil {
		return models.Club{}, err
	}
	return models.Club{ID: id, Name: strings.TrimSpace(name)}, nil
}

func (q *Queries) GetClub(ctx context.Context, id int64) (models.Club, error) {
	return q.getNamed(ctx, "clubs", sq.Eq{"id": id}, fmt.Sprintf("club %d", id))
}

// GetClubByName matches case-insensitively.
func (q *Queries) GetClubByName(ctx context.Context, name string) (models.Club, error) {
	return q.getNamed(ctx, "clubs", sq.Eq{"name": strings.TrimSpace(name)}, fmt.Sprintf("club %q", name))
}

func (q *Queries) CreateSport(ctx context.Context, name string) (models.Sport, error) {
	id, err := q.insert(ctx, psql.Insert("sports").Columns("name").Values(strings.TrimSpace(name)), "create sport")
	if err != nil {
		return models.Sport{}, err
	}
	return models.Sport{ID: id, Name: strings.TrimSpace(name)}, nil
}

func (q *Queries) GetSport(ctx context.Context, id int64) (models.Sport, error) {
	c, err := q.getNamed(ctx, "sports", sq.Eq{"id": id}, fmt.Sprintf("sport %d", id))
	return models.Sport(c), err
}

func (q *Queries) GetSportByName(ctx context.Context, name string) (models.Sport, error) {
	c, err := q.getNamed(ctx, "sports", sq.Eq{"name": strings.TrimSpace(name)}, fmt.Sprintf("sport %q", name))
	return models.Sport(c), err
}

func (q *Queries) getNamed(ctx context.Context, table string, where sq.Eq, what string) (models.Club, error) {
	row, err := q.queryRow(ctx, psql.Select("id", "name").From(table).Where(where), what)
	if err != nil {
		return models.Club{}, err
	}
	var out models.Club
	if err := row.Scan(&out.ID, &out.Name); err != nil {
		return models.Club{}, mapErr(err, what)
	}
	return out, nil
}

var facilityColumns = []string{"id", "club_id", "name", "facility_type", "capacity", "surface_type", "indoor", "active"}

func (q *Queries) CreateFacility(ctx context.Context, f models.Facility) (models.Facility, error) {
	f.Name = strings.TrimSpace(f.Name)
	id, err := q.insert(ctx, psql.Insert("facilities").
		Columns("club_id", "name", "facility_type", "capacity", "surface_type", "indoor", "active").
		Values(f.ClubID, f.Name, string(f.Type), f.Capacity, string(f.Surface), f.Indoor, f.Active),
		"create facility")
	if err != nil {
		return models.Facility{}, err
	}
	f.ID = id
	return f, nil
}

func (q *Queries) GetFacility(ctx context.Context, id int64) (models.Facility, error) {
	return q.getFacility(ctx, sq.Eq{"id": id}, fmt.Sprintf("facility %d", id))
}

func (q *Queries) GetFacilityByName(ctx context.Context, clubID int64, name string) (models.Facility, error) {
	return q.getFacility(ctx, sq.Eq{"club_id": clubID, "name": strings.TrimSpace(name)}, fmt.Sprintf("facility %q", name))
}

func (q *Queries) getFacility(ctx context.Context, where sq.Eq, what string) (models.Facility, error) {
	row, err := q.queryRow(ctx, psql.Select(facilityColumns...).From("facilities").Where(where), what)
	if err != nil {
		return models.Facility{}, err
	}
	var f models.Facility
	var facilityType, surface string
	if err := row.Scan(&f.ID, &f.ClubID, &f.Name, &facilityType, &f.Capacity, &surface, &f.Indoor, &f.Active); err != nil {
		return models.Facility{}, mapErr(err, what)
	}
	f.Type = models.FacilityType(facilityType)
	f.Surface = models.SurfaceType(surface)
	return f, nil
}

func (q *Queries) CreateTax(ctx context.Context, t models.Tax) (models.Tax, error) {
	t.Name = strings.TrimSpace(t.Name)
	id, err := q.insert(ctx, psql.Insert("taxes").
		Columns("name", "percent", "price_included").
		Values(t.Name, t.Percent, t.PriceIncluded), "create tax")
	if err != nil {
		return models.Tax{}, err
	}
	t.ID = id
	return t, nil
}

func (q *Queries) GetTax(ctx context.Context, id int64) (models.Tax, error) {
	return q.getTax(ctx, sq.Eq{"id": id}, fmt.Sprintf("tax %d", id))
}

func (q *Queries) GetTaxByName(ctx context.Context, name string) (models.Tax, error) {
	return q.getTax(ctx, sq.Eq{"name": strings.TrimSpace(name)}, fmt.Sprintf("tax %q", name))
}

func (q *Queries) getTax(ctx context.Context, where sq.Eq, what string) (models.Tax, error) {
	row, err := q.queryRow(ctx, psql.Select("id", "name", "percent", "price_included").From("taxes").Where(where), what)
	if err != nil {
		return models.Tax{}, err
	}
	var t models.Tax
	if err := row.Scan(&t.ID, &t.Name, &t.Percent, &t.PriceIncluded); err != nil {
		return models.Tax{}, mapErr(err, what)
	}
	return t, nil
}

func (q *Queries) CreateEquipment(ctx context.Context, e models.Equipment) (models.Equipment, error) {
	e.Name = strings.TrimSpace(e.Name)
	id, err := q.insert(ctx, psql.Insert("equipment").
		Columns("club_id", "name", "price_hour").
		Values(e.ClubID, e.Name, e.PriceHour), "create equipment")
	if err != nil {
		return models.Equipment{}, err
	}
	e.ID = id
	return e, nil
}

func (q *Queries) GetEquipment(ctx context.Context, id int64) (models.Equipment, error) {
	return q.getEquipment(ctx, sq.Eq{"id": id}, fmt.Sprintf("equipment %d", id))
}

func (q *Queries) GetEquipmentByName(ctx context.Context, clubID int64, name string) (models.Equipment, error) {
	return q.getEquipment(ctx, sq.Eq{"club_id": clubID, "name": strings.TrimSpace(name)}, fmt.Sprintf("equipment %q", name))
}

func (q *Queries) getEquipment(ctx context.Context, where sq.Eq, what string) (models.Equipment, error) {
	row, err := q.queryRow(ctx, psql.Select("id", "club_id", "name", "price_hour").From("equipment").Where(where), what)
	if err != nil {
		return models.Equipment{}, err
	}
	var e models.Equipment
	if err := row.Scan(&e.ID, &e.ClubID, &e.Name, &e.PriceHour); err != nil {
		return models.Equipment{}, mapErr(err, what)
	}
	return e, nil
}

func (q *Queries) CreateTrainer(ctx context.Context, t models.Trainer) (models.Trainer, error) {
	id, err := q.insert(ctx, psql.Insert("trainers").
		Columns("club_id", "name", "hourly_rate", "active").
		Values(t.ClubID, strings.TrimSpace(t.Name), t.HourlyRate, t.Active), "create trainer")
	if err != nil {
		return models.Trainer{}, err
	}
	t.ID = id
	return t, nil
}

func (q *Queries) GetTrainer(ctx context.Context, id int64) (models.Trainer, error) {
	what := fmt.Sprintf("trainer %d", id)
	row, err := q.queryRow(ctx, psql.Select("id", "club_id", "name", "hourly_rate", "active").
		From("trainers").Where(sq.Eq{"id": id}), what)
	if err != nil {
		return models.Trainer{}, err
	}
	var t models.Trainer
	if err := row.Scan(&t.ID, &t.ClubID, &t.Name, &t.HourlyRate, &t.Active); err != nil {
		return models.Trainer{}, mapErr(err, what)
	}
	return t, nil
}

var policyColumns = []string{
	"id", "club_id", "name", "free_cancel_hours", "refund_percent",
	"no_show_penalty_percent", "reschedule_allowed", "state",
}

func (q *Queries) CreatePolicy(ctx context.Context, p models.Policy) (models.Policy, error) {
	if p.State == "" {
		p.State = models.PolicyDraft
	}
	id, err := q.insert(ctx, psql.Insert("policies").
		Columns(policyColumns[1:]...).
		Values(p.ClubID, strings.TrimSpace(p.Name), p.FreeCancelHours, p.RefundPercent,
			p.NoShowPenaltyPercent, p.RescheduleAllowed, string(p.State)), "create policy")
	if err != nil {
		return models.Policy{}, err
	}
	p.ID = id
	return p, nil
}

func (q *Queries) GetPolicy(ctx context.Context, id int64) (models.Policy, error) {
	what := fmt.Sprintf("policy %d", id)
	row, err := q.queryRow(ctx, psql.Select(policyColumns...).From("policies").Where(sq.Eq{"id": id}), what)
	if err != nil {
		return models.Policy{}, err
	}
	var p models.Policy
	var state string
	if err := row.Scan(&p.ID, &p.ClubID, &p.Name, &p.FreeCancelHours, &p.RefundPercent,
		&p.NoShowPenaltyPercent, &p.RescheduleAllowed, &state); err != nil {
		return models.Policy{}, mapErr(err, what)
	}
	p.State = models.PolicyState(state)
	return p, nil
}

// UpdatePolicyState moves a policy between states when it is currently in one of from.
func (q *Queries) UpdatePolicyState(ctx context.Context, id int64, from []models.PolicyState, to models.PolicyState) (bool, error) {
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}
	what := fmt.Sprintf("update policy %d state", id)
	res, err := q.exec(ctx, psql.Update("policies").Set("state", string(to)).
		Where(sq.Eq{"id": id, "state": states}), what)
	if err != nil {
		return false, err
	}
	n, err := rowsAffected(res, what)
	return n == 1, err
}
