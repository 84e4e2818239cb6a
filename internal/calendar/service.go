// Package calendar manages facility calendar templates: weekly availability
// lines, dated exceptions, the slot generator and availability resolution.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/db"
	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/timeslot"
)

type Service struct {
	db *db.DB
}

func NewService(database *db.DB) (*Service, error) {
	if database == nil {
		return nil, errors.New("calendar service requires a database")
	}
	return &Service{db: database}, nil
}

// Template is a calendar template with the lines and exceptions it owns.
type Template struct {
	models.CalendarTemplate
	Lines      []models.AvailabilityLine  `json:"lines"`
	Exceptions []models.CalendarException `json:"exceptions"`
}

func (s *Service) CreateTemplate(ctx context.Context, t models.CalendarTemplate) (models.CalendarTemplate, error) {
	if err := t.Validate(); err != nil {
		return models.CalendarTemplate{}, err
	}
	var created models.CalendarTemplate
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		facility, err := txdb.Queries.GetFacility(ctx, t.FacilityID)
		if err != nil {
			return err
		}
		if facility.ClubID != t.ClubID {
			return apperr.Invalid("facility_id", "does not belong to the club")
		}
		created, err = txdb.Queries.CreateCalendarTemplate(ctx, t)
		return err
	})
	if err != nil {
		return models.CalendarTemplate{}, fmt.Errorf("create calendar template: %w", err)
	}
	log.Ctx(ctx).Info().
		Int64("template_id", created.ID).
		Int64("facility_id", created.FacilityID).
		Msg("Created calendar template")
	return created, nil
}

func (s *Service) GetTemplate(ctx context.Context, id int64) (Template, error) {
	q := s.db.Queries
	t, err := q.GetCalendarTemplate(ctx, id)
	if err != nil {
		return Template{}, err
	}
	lines, err := q.ListAvailabilityLines(ctx, id, nil)
	if err != nil {
		return Template{}, err
	}
	exceptions, err := q.ListCalendarExceptions(ctx, id)
	if err != nil {
		return Template{}, err
	}
	return Template{CalendarTemplate: t, Lines: lines, Exceptions: exceptions}, nil
}

// DeleteTemplate removes the template together with its lines and exceptions.
func (s *Service) DeleteTemplate(ctx context.Context, id int64) error {
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		if _, err := q.GetCalendarTemplate(ctx, id); err != nil {
			return err
		}
		if _, err := q.DeleteAvailabilityLines(ctx, id, nil); err != nil {
			return err
		}
		if _, err := q.DeleteCalendarExceptions(ctx, id); err != nil {
			return err
		}
		_, err := q.DeleteCalendarTemplate(ctx, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete calendar template %d: %w", id, err)
	}
	log.Ctx(ctx).Info().Int64("template_id", id).Msg("Deleted calendar template")
	return nil
}

func (s *Service) AddLine(ctx context.Context, l models.AvailabilityLine) (models.AvailabilityLine, error) {
	if err := l.Validate(); err != nil {
		return models.AvailabilityLine{}, err
	}
	if _, err := s.db.Queries.GetCalendarTemplate(ctx, l.TemplateID); err != nil {
		return models.AvailabilityLine{}, err
	}
	created, err := s.db.Queries.CreateAvailabilityLine(ctx, l)
	if err != nil {
		return models.AvailabilityLine{}, fmt.Errorf("%s %s: %w", l.DayOfWeek, l.Slot(), err)
	}
	return created, nil
}

func (s *Service) AddException(ctx context.Context, e models.CalendarException) (models.CalendarException, error) {
	e.DateFrom = e.DateFrom.UTC()
	e.DateTo = e.DateTo.UTC()
	if err := e.Validate(); err != nil {
		return models.CalendarException{}, err
	}
	if _, err := s.db.Queries.GetCalendarTemplate(ctx, e.TemplateID); err != nil {
		return models.CalendarException{}, err
	}
	created, err := s.db.Queries.CreateCalendarException(ctx, e)
	if err != nil {
		return models.CalendarException{}, fmt.Errorf("exception %s to %s: %w",
			e.DateFrom.Format(time.RFC3339), e.DateTo.Format(time.RFC3339), err)
	}
	return created, nil
}

// GenerateRequest describes a slot generator run. A nil Day applies the
// slots to all seven weekdays.
type GenerateRequest struct {
	StartTime    float64           `json:"startTime"`
	EndTime      float64           `json:"endTime"`
	SlotDuration float64           `json:"slotDuration"`
	Day          *timeslot.Weekday `json:"day,omitempty"`
}

// GenerateSlots replaces the template's lines for the targeted day(s) with
// consecutive slots. Running it twice with the same request leaves the same
// lines in place.
func (s *Service) GenerateSlots(ctx context.Context, templateID int64, req GenerateRequest) ([]models.AvailabilityLine, error) {
	slots, err := Partition(req.StartTime, req.EndTime, req.SlotDuration)
	if err != nil {
		return nil, err
	}
	days := timeslot.AllWeekdays
	if req.Day != nil {
		if !req.Day.Valid() {
			return nil, apperr.Invalid("day", "must be between 0 (Monday) and 6 (Sunday)")
		}
		days = []timeslot.Weekday{*req.Day}
	}

	var created []models.AvailabilityLine
	err = s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		if _, err := q.GetCalendarTemplate(ctx, templateID); err != nil {
			return err
		}
		if _, err := q.DeleteAvailabilityLines(ctx, templateID, days); err != nil {
			return err
		}
		for _, day := range days {
			for _, slot := range slots {
				line, err := q.CreateAvailabilityLine(ctx, models.AvailabilityLine{
					TemplateID: templateID,
					DayOfWeek:  day,
					StartTime:  slot.From,
					EndTime:    slot.To,
				})
				if err != nil {
					return err
				}
				created = append(created, line)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generate slots for template %d: %w", templateID, err)
	}

	log.Ctx(ctx).Info().
		Int64("template_id", templateID).
		Int("days", len(days)).
		Int("slots_per_day", len(slots)).
		Msg("Generated availability slots")
	return created, nil
}

func (s *Service) Availability(ctx context.Context, facilityID int64, date time.Time) ([]timeslot.Slot, error) {
	return ResolveAvailability(ctx, s.db.Queries, facilityID, date)
}
