// internal/api/reservations/handlers.go
package reservations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/clubreserve/internal/api/apiutil"
	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/directory"
	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/reservation"
	"github.com/codr1/clubreserve/internal/timeslot"
)

const reservationQueryTimeout = 5 * time.Second

// Handlers serve the reservation JSON API.
type Handlers struct {
	engine    *reservation.Engine
	directory *directory.Directory
}

func NewHandlers(engine *reservation.Engine, dir *directory.Directory) (*Handlers, error) {
	if engine == nil || dir == nil {
		return nil, errors.New("reservation handlers require an engine and a directory")
	}
	return &Handlers{engine: engine, directory: dir}, nil
}

// Register mounts the reservation routes on mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/reservations", h.HandleReservationCreate)
	mux.HandleFunc("GET /api/v1/reservations/{id}", h.HandleReservationGet)
	mux.HandleFunc("PUT /api/v1/reservations/{id}", h.HandleReservationUpdate)
	mux.HandleFunc("DELETE /api/v1/reservations/{id}", h.HandleReservationDelete)
	mux.HandleFunc("POST /api/v1/reservations/{id}/attendees", h.HandleAttendeeAdd)
	mux.HandleFunc("POST /api/v1/reservations/{id}/reschedule", h.HandleReservationReschedule)
	mux.HandleFunc("POST /api/v1/reservations/{id}/{action}", h.HandleReservationAction)
	mux.HandleFunc("GET /api/v1/facilities/{id}/reservations", h.HandleReservationsList)
}

// reservationRequest is the create/update body. Club, facility, sport and
// equipment may be given by id or by name; names are resolved or created.
type reservationRequest struct {
	Name                    string                   `json:"name"`
	ClubID                  int64                    `json:"clubId"`
	Club                    string                   `json:"club"`
	FacilityID              int64                    `json:"facilityId"`
	Facility                string                   `json:"facility"`
	FacilityType            models.FacilityType      `json:"facilityType"`
	FacilityCapacity        int64                    `json:"facilityCapacity"`
	SportID                 *int64                   `json:"sportId"`
	Sport                   string                   `json:"sport"`
	Date                    string                   `json:"date"`
	TimeFrom                string                   `json:"timeFrom"`
	TimeTo                  string                   `json:"timeTo"`
	TrainerID               *int64                   `json:"trainerId"`
	PolicyID                *int64                   `json:"policyId"`
	PromotionCode           string                   `json:"promotionCode"`
	PlayerName              string                   `json:"playerName"`
	PartnerName             string                   `json:"partnerName"`
	PartnerCountsAsAttendee bool                     `json:"partnerCountsAsAttendee"`
	NumberOfAttendance      int64                    `json:"numberOfAttendance"`
	Source                  models.ReservationSource `json:"source"`
	Notes                   string                   `json:"notes"`
	Equipment               []equipmentRequest       `json:"equipment"`
}

type equipmentRequest struct {
	EquipmentID int64   `json:"equipmentId"`
	Name        string  `json:"name"`
	Qty         float64 `json:"qty"`
	Hours       float64 `json:"hours"`
}

type rescheduleRequest struct {
	Date     string `json:"date"`
	TimeFrom string `json:"timeFrom"`
	TimeTo   string `json:"timeTo"`
}

// POST /api/v1/reservations
func (h *Handlers) HandleReservationCreate(w http.ResponseWriter, r *http.Request) {
	var body reservationRequest
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reservationQueryTimeout)
	defer cancel()

	req, err := h.resolve(ctx, body)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	created, err := h.engine.Create(ctx, req)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusCreated, created)
}

// GET /api/v1/reservations/{id}
func (h *Handlers) HandleReservationGet(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	found, err := h.engine.Get(r.Context(), id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusOK, found)
}

// GET /api/v1/facilities/{id}/reservations?date=YYYY-MM-DD
func (h *Handlers) HandleReservationsList(w http.ResponseWriter, r *http.Request) {
	facilityID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	date, err := apiutil.DateQuery(r, "date")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	list, err := h.engine.List(r.Context(), facilityID, date)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Reservation{}
	}
	apiutil.Respond(w, r, http.StatusOK, list)
}

// PUT /api/v1/reservations/{id}
func (h *Handlers) HandleReservationUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	var body reservationRequest
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reservationQueryTimeout)
	defer cancel()

	req, err := h.resolve(ctx, body)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	updated, err := h.engine.Update(ctx, id, req)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusOK, updated)
}

// DELETE /api/v1/reservations/{id}
func (h *Handlers) HandleReservationDelete(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := h.engine.Delete(r.Context(), id); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/reservations/{id}/attendees
func (h *Handlers) HandleAttendeeAdd(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	var body reservation.AttendeeRequest
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	updated, err := h.engine.AddAttendee(r.Context(), id, body)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusCreated, updated)
}

// POST /api/v1/reservations/{id}/reschedule
func (h *Handlers) HandleReservationReschedule(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	var body rescheduleRequest
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	date, from, to, err := parseSchedule(body.Date, body.TimeFrom, body.TimeTo)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	moved, err := h.engine.Reschedule(r.Context(), id, date, from, to)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusOK, moved)
}

type transition func(*reservation.Engine, context.Context, int64) (models.Reservation, error)

var transitions = map[string]transition{
	"submit":    (*reservation.Engine).Submit,
	"confirm":   (*reservation.Engine).Confirm,
	"check-in":  (*reservation.Engine).CheckIn,
	"check-out": (*reservation.Engine).CheckOut,
	"cancel":    (*reservation.Engine).Cancel,
	"refund":    (*reservation.Engine).Refund,
	"no-show":   (*reservation.Engine).NoShow,
	"pay":       (*reservation.Engine).RegisterPayment,
}

// POST /api/v1/reservations/{id}/{action}
func (h *Handlers) HandleReservationAction(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	action := r.PathValue("action")
	run, ok := transitions[action]
	if !ok {
		apiutil.WriteError(w, r, fmt.Errorf("%w: unknown reservation action %q", apperr.ErrNotFound, action))
		return
	}

	log.Ctx(r.Context()).Debug().Int64("reservation_id", id).Str("action", action).Msg("Reservation action requested")
	updated, err := run(h.engine, r.Context(), id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusOK, updated)
}

// resolve turns a request body into an engine request, resolving names
// through the directory. Explicit ids win over names.
func (h *Handlers) resolve(ctx context.Context, body reservationRequest) (reservation.Request, error) {
	date, from, to, err := parseSchedule(body.Date, body.TimeFrom, body.TimeTo)
	if err != nil {
		return reservation.Request{}, err
	}

	req := reservation.Request{
		Name:                    strings.TrimSpace(body.Name),
		ClubID:                  body.ClubID,
		FacilityID:              body.FacilityID,
		SportID:                 body.SportID,
		Date:                    date,
		TimeFrom:                from,
		TimeTo:                  to,
		TrainerID:               body.TrainerID,
		PolicyID:                body.PolicyID,
		PromotionCode:           strings.TrimSpace(body.PromotionCode),
		PlayerName:              body.PlayerName,
		PartnerName:             body.PartnerName,
		PartnerCountsAsAttendee: body.PartnerCountsAsAttendee,
		NumberOfAttendance:      body.NumberOfAttendance,
		Source:                  body.Source,
		Notes:                   body.Notes,
	}

	if req.ClubID == 0 && strings.TrimSpace(body.Club) != "" {
		club, err := h.directory.ResolveOrCreateClub(ctx, body.Club)
		if err != nil {
			return reservation.Request{}, err
		}
		req.ClubID = club.ID
	}
	if req.ClubID <= 0 {
		return reservation.Request{}, apperr.Invalid("club", "id or name is required")
	}

	if req.FacilityID == 0 && strings.TrimSpace(body.Facility) != "" {
		facilityType := body.FacilityType
		if facilityType == "" {
			facilityType = models.FacilityCourt
		}
		facility, err := h.directory.ResolveOrCreateFacility(ctx, req.ClubID, body.Facility, facilityType, body.FacilityCapacity)
		if err != nil {
			return reservation.Request{}, err
		}
		req.FacilityID = facility.ID
	}

	if req.SportID == nil && strings.TrimSpace(body.Sport) != "" {
		sport, err := h.directory.ResolveOrCreateSport(ctx, body.Sport)
		if err != nil {
			return reservation.Request{}, err
		}
		req.SportID = &sport.ID
	}

	for _, eq := range body.Equipment {
		line := reservation.EquipmentRequest{EquipmentID: eq.EquipmentID, Qty: eq.Qty, Hours: eq.Hours}
		if line.EquipmentID == 0 && strings.TrimSpace(eq.Name) != "" {
			found, err := h.directory.ResolveOrCreateEquipment(ctx, req.ClubID, eq.Name)
			if err != nil {
				return reservation.Request{}, err
			}
			line.EquipmentID = found.ID
		}
		req.Equipment = append(req.Equipment, line)
	}
	return req, nil
}

func parseSchedule(rawDate, rawFrom, rawTo string) (time.Time, float64, float64, error) {
	date, err := models.ParseDate(strings.TrimSpace(rawDate))
	if err != nil {
		return time.Time{}, 0, 0, err
	}
	from, err := timeslot.ParseHour(rawFrom)
	if err != nil {
		return time.Time{}, 0, 0, apperr.Invalid("time_from", err.Error())
	}
	to, err := timeslot.ParseHour(rawTo)
	if err != nil {
		return time.Time{}, 0, 0, apperr.Invalid("time_to", err.Error())
	}
	return date, from, to, nil
}
