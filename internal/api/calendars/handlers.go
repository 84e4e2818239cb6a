// internal/api/calendars/handlers.go
package calendars

import (
	"errors"
	"net/http"

	"github.com/codr1/clubreserve/internal/api/apiutil"
	"github.com/codr1/clubreserve/internal/calendar"
	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/timeslot"
)

type Handlers struct {
	calendars *calendar.Service
}

func NewHandlers(svc *calendar.Service) (*Handlers, error) {
	if svc == nil {
		return nil, errors.New("calendar handlers require a calendar service")
	}
	return &Handlers{calendars: svc}, nil
}

func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/calendars", h.HandleTemplateCreate)
	mux.HandleFunc("GET /api/v1/calendars/{id}", h.HandleTemplateGet)
	mux.HandleFunc("DELETE /api/v1/calendars/{id}", h.HandleTemplateDelete)
	mux.HandleFunc("POST /api/v1/calendars/{id}/lines", h.HandleLineAdd)
	mux.HandleFunc("POST /api/v1/calendars/{id}/exceptions", h.HandleExceptionAdd)
	mux.HandleFunc("POST /api/v1/calendars/{id}/generate", h.HandleGenerate)
	mux.HandleFunc("GET /api/v1/facilities/{id}/availability", h.HandleAvailability)
}

// POST /api/v1/calendars
func (h *Handlers) HandleTemplateCreate(w http.ResponseWriter, r *http.Request) {
	var body models.CalendarTemplate
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	created, err := h.calendars.CreateTemplate(r.Context(), body)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusCreated, created)
}

// GET /api/v1/calendars/{id}
func (h *Handlers) HandleTemplateGet(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	template, err := h.calendars.GetTemplate(r.Context(), id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusOK, template)
}

// DELETE /api/v1/calendars/{id}
func (h *Handlers) HandleTemplateDelete(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := h.calendars.DeleteTemplate(r.Context(), id); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/calendars/{id}/lines
func (h *Handlers) HandleLineAdd(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	var body models.AvailabilityLine
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	body.TemplateID = id
	created, err := h.calendars.AddLine(r.Context(), body)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusCreated, created)
}

// POST /api/v1/calendars/{id}/exceptions
func (h *Handlers) HandleExceptionAdd(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	var body models.CalendarException
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	body.TemplateID = id
	created, err := h.calendars.AddException(r.Context(), body)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusCreated, created)
}

// POST /api/v1/calendars/{id}/generate
func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	var body calendar.GenerateRequest
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	lines, err := h.calendars.GenerateSlots(r.Context(), id, body)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusOK, lines)
}

type availabilityResponse struct {
	FacilityID int64           `json:"facilityId"`
	Date       string          `json:"date"`
	Slots      []timeslot.Slot `json:"slots"`
}

// GET /api/v1/facilities/{id}/availability?date=YYYY-MM-DD
func (h *Handlers) HandleAvailability(w http.ResponseWriter, r *http.Request) {
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
	slots, err := h.calendars.Availability(r.Context(), facilityID, date)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if slots == nil {
		slots = []timeslot.Slot{}
	}
	apiutil.Respond(w, r, http.StatusOK, availabilityResponse{
		FacilityID: facilityID,
		Date:       date.Format(models.DateLayout),
		Slots:      slots,
	})
}
