package promotions

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/codr1/clubreserve/internal/promotion"
	"github.com/codr1/clubreserve/internal/testutil"
)

func TestCreateAndValidatePromotion(t *testing.T) {
	database := testutil.NewTestDB(t)
	venue := testutil.SeedVenue(t, database)
	svc, err := promotion.NewService(database)
	if err != nil {
		t.Fatalf("new promotion service: %v", err)
	}
	h, err := NewHandlers(svc)
	if err != nil {
		t.Fatalf("new handlers: %v", err)
	}
	mux := http.NewServeMux()
	h.Register(mux)

	send := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, path, bytes.NewBufferString(body)))
		return rec
	}

	rec := send(http.MethodPost, "/api/v1/promotions",
		`{"name":"Spring ten","code":"SPRING10","discountType":"percent","discountValue":10,"active":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = send(http.MethodPost, "/api/v1/promotions",
		`{"name":"Five off","code":"FIVE","discountType":"fixed","discountValue":5,"active":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create fixed status = %d: %s", rec.Code, rec.Body.String())
	}

	query := "?club_id=" + strconv.FormatInt(venue.Club.ID, 10) +
		"&facility_id=" + strconv.FormatInt(venue.Facility.ID, 10) + "&date=2026-03-02"

	rec = send(http.MethodGet, "/api/v1/promotions/SPRING10/validate"+query+"&total=80", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("validate status = %d: %s", rec.Code, rec.Body.String())
	}
	var got validation
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Discount != 8 || got.AmountDue != 72 {
		t.Fatalf("validation = %+v", got)
	}

	if rec := send(http.MethodGet, "/api/v1/promotions/FIVE/validate"+query+"&total=5", ""); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("fixed discount equal to total status = %d", rec.Code)
	}
	if rec := send(http.MethodGet, "/api/v1/promotions/NOPE/validate"+query+"&total=5", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown code status = %d", rec.Code)
	}
	if rec := send(http.MethodGet, "/api/v1/promotions/FIVE/validate"+query, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing total status = %d", rec.Code)
	}
}
