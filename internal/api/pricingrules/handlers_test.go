package pricingrules

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/pricing"
	"github.com/codr1/clubreserve/internal/testutil"
)

func send(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, bytes.NewBufferString(body)))
	return rec
}

func TestRuleLifecycleAndResolve(t *testing.T) {
	database := testutil.NewTestDB(t)
	venue := testutil.SeedVenue(t, database)
	testutil.SeedOpenRule(t, database, venue.Club.ID, 20, nil)

	svc, err := pricing.NewService(database)
	if err != nil {
		t.Fatalf("new pricing service: %v", err)
	}
	h, err := NewHandlers(svc)
	if err != nil {
		t.Fatalf("new handlers: %v", err)
	}
	mux := http.NewServeMux()
	h.Register(mux)

	club := strconv.FormatInt(venue.Club.ID, 10)
	facility := strconv.FormatInt(venue.Facility.ID, 10)
	resolvePath := "/api/v1/pricing/resolve?club_id=" + club + "&facility_id=" + facility + "&date=2026-03-02"

	resolved := func() pricing.Resolution {
		t.Helper()
		rec := send(mux, http.MethodGet, resolvePath, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("resolve status = %d: %s", rec.Code, rec.Body.String())
		}
		var res pricing.Resolution
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return res
	}

	rec := send(mux, http.MethodPost, "/api/v1/pricing-rules",
		`{"name":"Court 1 rate","clubId":`+club+`,"facilityId":`+facility+`,"basePrice":30,"priority":10}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var rule models.PricingRule
	if err := json.Unmarshal(rec.Body.Bytes(), &rule); err != nil {
		t.Fatalf("decode rule: %v", err)
	}
	if rule.State != models.PricingDraft {
		t.Fatalf("new rule state = %s", rule.State)
	}
	if got := resolved(); got.HourlyPrice != 20 {
		t.Fatalf("draft rule must not apply, hourly price = %v", got.HourlyPrice)
	}

	rulePath := "/api/v1/pricing-rules/" + strconv.FormatInt(rule.ID, 10)
	if rec := send(mux, http.MethodPost, rulePath+"/close", ""); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("close draft status = %d", rec.Code)
	}
	if rec := send(mux, http.MethodPost, rulePath+"/archive", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown action status = %d", rec.Code)
	}
	if rec := send(mux, http.MethodPost, rulePath+"/open", ""); rec.Code != http.StatusOK {
		t.Fatalf("open status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := resolved(); got.HourlyPrice != 30 || got.Rule.ID != rule.ID {
		t.Fatalf("facility rule not selected: %+v", got)
	}

	if rec := send(mux, http.MethodGet, resolvePath+"&time_from=09:00", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("half time window status = %d", rec.Code)
	}
	if rec := send(mux, http.MethodGet, "/api/v1/pricing/resolve?club_id=999&date=2026-03-02", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("no rule status = %d", rec.Code)
	}
}
