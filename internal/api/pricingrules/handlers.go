// internal/api/pricingrules/handlers.go
package pricingrules

import (
	"errors"
	"net/http"
	"strings"

	"github.com/codr1/clubreserve/internal/api/apiutil"
	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/pricing"
	"github.com/codr1/clubreserve/internal/timeslot"
)

type Handlers struct {
	pricing *pricing.Service
}

func NewHandlers(svc *pricing.Service) (*Handlers, error) {
	if svc == nil {
		return nil, errors.New("pricing handlers require a pricing service")
	}
	return &Handlers{pricing: svc}, nil
}

func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/pricing-rules", h.HandleRuleCreate)
	mux.HandleFunc("POST /api/v1/pricing-rules/{id}/{action}", h.HandleRuleAction)
	mux.HandleFunc("GET /api/v1/pricing/resolve", h.HandleResolve)
}

// POST /api/v1/pricing-rules
func (h *Handlers) HandleRuleCreate(w http.ResponseWriter, r *http.Request) {
	var body models.PricingRule
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	created, err := h.pricing.CreateRule(r.Context(), body)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusCreated, created)
}

// POST /api/v1/pricing-rules/{id}/{action} with action open, close or reset.
func (h *Handlers) HandleRuleAction(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	rule, err := h.pricing.Apply(r.Context(), id, pricing.Action(r.PathValue("action")))
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusOK, rule)
}

// GET /api/v1/pricing/resolve?club_id=&date=[&sport_id=&facility_id=&facility_type=&time_from=&time_to=]
func (h *Handlers) HandleResolve(w http.ResponseWriter, r *http.Request) {
	query, err := resolveQuery(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	resolution, err := h.pricing.Resolve(r.Context(), query)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusOK, resolution)
}

func resolveQuery(r *http.Request) (pricing.Query, error) {
	clubID, err := apiutil.ParsePositiveInt64Field(r.URL.Query().Get("club_id"), "club_id")
	if err != nil {
		return pricing.Query{}, err
	}
	date, err := apiutil.DateQuery(r, "date")
	if err != nil {
		return pricing.Query{}, err
	}
	sportID, err := apiutil.OptionalInt64Query(r, "sport_id")
	if err != nil {
		return pricing.Query{}, err
	}
	facilityID, err := apiutil.OptionalInt64Query(r, "facility_id")
	if err != nil {
		return pricing.Query{}, err
	}
	facilityType := models.FacilityType(strings.TrimSpace(r.URL.Query().Get("facility_type")))
	if facilityType != "" && !facilityType.Valid() {
		return pricing.Query{}, apperr.Invalid("facility_type", "must be one of court, field, room, lane")
	}

	from, err := apiutil.OptionalHourQuery(r, "time_from")
	if err != nil {
		return pricing.Query{}, err
	}
	to, err := apiutil.OptionalHourQuery(r, "time_to")
	if err != nil {
		return pricing.Query{}, err
	}

	q := pricing.Query{
		ClubID:       clubID,
		SportID:      sportID,
		FacilityID:   facilityID,
		FacilityType: facilityType,
		Date:         date,
	}
	switch {
	case from != nil && to != nil:
		slot := timeslot.New(*from, *to)
		if err := slot.Validate(); err != nil {
			return pricing.Query{}, apperr.Invalid("time_from", err.Error())
		}
		q.Slot = &slot
	case from != nil || to != nil:
		return pricing.Query{}, apperr.Invalid("time_to", "time_from and time_to must be given together")
	}
	return q, nil
}
