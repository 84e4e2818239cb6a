package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/timeslot"
)

var templateColumns = []string{"id", "club_id", "facility_id", "name", "active"}

func (q *Queries) CreateCalendarTemplate(ctx context.Context, t models.CalendarTemplate) (models.CalendarTemplate, error) {
	id, err := q.insert(ctx, psql.Insert("calendar_templates").
		Columns("club_id", "facility_id", "name", "active").
		Values(t.ClubID, t.FacilityID, t.Name, t.Active), "create calendar template")
	if err != nil {
		return models.CalendarTemplate{}, err
	}
	t.ID = id
	return t, nil
}

func (q *Queries) GetCalendarTemplate(ctx context.Context, id int64) (models.CalendarTemplate, error) {
	return q.getTemplate(ctx, sq.Eq{"id": id}, fmt.Sprintf("calendar template %d", id))
}

// GetFacilityCalendarTemplate returns the active template for a club's facility.
func (q *Queries) GetFacilityCalendarTemplate(ctx context.Context, clubID, facilityID int64) (models.CalendarTemplate, error) {
	return q.getTemplate(ctx, sq.Eq{"club_id": clubID, "facility_id": facilityID, "active": true},
		fmt.Sprintf("calendar template for facility %d", facilityID))
}

func (q *Queries) getTemplate(ctx context.Context, where sq.Eq, what string) (models.CalendarTemplate, error) {
	row, err := q.queryRow(ctx, psql.Select(templateColumns...).From("calendar_templates").Where(where), what)
	if err != nil {
		return models.CalendarTemplate{}, err
	}
	var t models.CalendarTemplate
	if err := row.Scan(&t.ID, &t.ClubID, &t.FacilityID, &t.Name, &t.Active); err != nil {
		return models.CalendarTemplate{}, mapErr(err, what)
	}
	return t, nil
}

func (q *Queries) DeleteCalendarTemplate(ctx context.Context, id int64) (int64, error) {
	what := fmt.Sprintf("delete calendar template %d", id)
	res, err := q.exec(ctx, psql.Delete("calendar_templates").Where(sq.Eq{"id": id}), what)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res, what)
}

func (q *Queries) CreateAvailabilityLine(ctx context.Context, l models.AvailabilityLine) (models.AvailabilityLine, error) {
	id, err := q.insert(ctx, psql.Insert("calendar_lines").
		Columns("template_id", "day_of_week", "start_time", "end_time").
		Values(l.TemplateID, int(l.DayOfWeek), l.StartTime, l.EndTime), "create availability line")
	if err != nil {
		return models.AvailabilityLine{}, err
	}
	l.ID = id
	return l, nil
}

// ListAvailabilityLines returns a template's lines ordered by day and start,
// restricted to one day when day is set.
func (q *Queries) ListAvailabilityLines(ctx context.Context, templateID int64, day *timeslot.Weekday) ([]models.AvailabilityLine, error) {
	where := sq.Eq{"template_id": templateID}
	if day != nil {
		where["day_of_week"] = int(*day)
	}
	rows, err := q.query(ctx, psql.Select("id", "template_id", "day_of_week", "start_time", "end_time").
		From("calendar_lines").Where(where).
		OrderBy("day_of_week", "start_time", "end_time"), "list availability lines")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []models.AvailabilityLine
	for rows.Next() {
		var l models.AvailabilityLine
		var dow int
		if err := rows.Scan(&l.ID, &l.TemplateID, &dow, &l.StartTime, &l.EndTime); err != nil {
			return nil, fmt.Errorf("scan availability line: %w", err)
		}
		l.DayOfWeek = timeslot.Weekday(dow)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// DeleteAvailabilityLines removes a template's lines, limited to days when given.
func (q *Queries) DeleteAvailabilityLines(ctx context.Context, templateID int64, days []timeslot.Weekday) (int64, error) {
	where := sq.And{sq.Eq{"template_id": templateID}}
	if len(days) > 0 {
		codes := make([]int, len(days))
		for i, d := range days {
			codes[i] = int(d)
		}
		where = append(where, sq.Eq{"day_of_week": codes})
	}
	what := fmt.Sprintf("delete availability lines for template %d", templateID)
	res, err := q.exec(ctx, psql.Delete("calendar_lines").Where(where), what)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res, what)
}

var exceptionColumns = []string{"id", "template_id", "date_from", "date_to", "reason", "is_closed"}

func (q *Queries) CreateCalendarException(ctx context.Context, e models.CalendarException) (models.CalendarException, error) {
	id, err := q.insert(ctx, psql.Insert("calendar_exceptions").
		Columns(exceptionColumns[1:]...).
		Values(e.TemplateID, formatTimestamp(e.DateFrom), formatTimestamp(e.DateTo), e.Reason, e.IsClosed),
		"create calendar exception")
	if err != nil {
		return models.CalendarException{}, err
	}
	e.ID = id
	return e, nil
}

func (q *Queries) ListCalendarExceptions(ctx context.Context, templateID int64) ([]models.CalendarException, error) {
	return q.listExceptions(ctx, sq.Eq{"template_id": templateID})
}

// ListCalendarExceptionsBetween returns exceptions intersecting [from, to).
func (q *Queries) ListCalendarExceptionsBetween(ctx context.Context, templateID int64, from, to time.Time) ([]models.CalendarException, error) {
	return q.listExceptions(ctx, sq.And{
		sq.Eq{"template_id": templateID},
		sq.Lt{"date_from": formatTimestamp(to)},
		sq.Gt{"date_to": formatTimestamp(from)},
	})
}

func (q *Queries) listExceptions(ctx context.Context, where sq.Sqlizer) ([]models.CalendarException, error) {
	rows, err := q.query(ctx, psql.Select(exceptionColumns...).From("calendar_exceptions").
		Where(where).OrderBy("date_from", "date_to"), "list calendar exceptions")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CalendarException
	for rows.Next() {
		var e models.CalendarException
		var from, to string
		if err := rows.Scan(&e.ID, &e.TemplateID, &from, &to, &e.Reason, &e.IsClosed); err != nil {
			return nil, fmt.Errorf("scan calendar exception: %w", err)
		}
		if e.DateFrom, err = parseTimestamp(from); err != nil {
			return nil, err
		}
		if e.DateTo, err = parseTimestamp(to); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q *Queries) DeleteCalendarExceptions(ctx context.Context, templateID int64) (int64, error) {
	what := fmt.Sprintf("delete calendar exceptions for template %d", templateID)
	res, err := q.exec(ctx, psql.Delete("calendar_exceptions").Where(sq.Eq{"template_id": templateID}), what)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res, what)
}
