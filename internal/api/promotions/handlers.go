// internal/api/promotions/handlers.go
package promotions

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/codr1/clubreserve/internal/api/apiutil"
	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/promotion"
)

type Handlers struct {
	promotions *promotion.Service
}

func NewHandlers(svc *promotion.Service) (*Handlers, error) {
	if svc == nil {
		return nil, errors.New("promotion handlers require a promotion service")
	}
	return &Handlers{promotions: svc}, nil
}

func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/promotions", h.HandlePromotionCreate)
	mux.HandleFunc("GET /api/v1/promotions/{code}/validate", h.HandlePromotionValidate)
}

// POST /api/v1/promotions
func (h *Handlers) HandlePromotionCreate(w http.ResponseWriter, r *http.Request) {
	var body models.Promotion
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	created, err := h.promotions.Create(r.Context(), body)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusCreated, created)
}

type validation struct {
	Code      string  `json:"code"`
	Total     float64 `json:"total"`
	Discount  float64 `json:"discount"`
	AmountDue float64 `json:"amountDue"`
}

// GET /api/v1/promotions/{code}/validate?club_id=&facility_id=&date=&total=[&sport_id=]
//
// A promotion that cannot be used answers 422 with the reason.
func (h *Handlers) HandlePromotionValidate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	clubID, err := apiutil.ParsePositiveInt64Field(query.Get("club_id"), "club_id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	facilityID, err := apiutil.ParsePositiveInt64Field(query.Get("facility_id"), "facility_id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	sportID, err := apiutil.OptionalInt64Query(r, "sport_id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	date, err := apiutil.DateQuery(r, "date")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	total, err := strconv.ParseFloat(strings.TrimSpace(query.Get("total")), 64)
	if err != nil || total < 0 {
		apiutil.WriteError(w, r, apperr.Invalid("total", "must be a non-negative number"))
		return
	}

	p, err := h.promotions.GetByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	target := promotion.Target{ClubID: clubID, SportID: sportID, FacilityID: facilityID}
	if err := promotion.ValidateFor(p, target, date); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := promotion.CheckAgainstTotal(p, total); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	discount := promotion.Discount(p, total, date)
	apiutil.Respond(w, r, http.StatusOK, validation{
		Code:      p.Code,
		Total:     total,
		Discount:  discount,
		AmountDue: models.RoundMoney(total - discount),
	})
}
