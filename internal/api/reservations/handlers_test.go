package reservations

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/codr1/clubreserve/internal/api/apiutil"
	"github.com/codr1/clubreserve/internal/directory"
	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/reservation"
	"github.com/codr1/clubreserve/internal/testutil"
)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

type server struct {
	mux   *http.ServeMux
	venue testutil.Venue
}

func newServer(t *testing.T) server {
	t.Helper()
	database := testutil.NewTestDB(t)
	venue := testutil.SeedVenue(t, database)
	testutil.SeedOpenRule(t, database, venue.Club.ID, 20, nil)

	engine, err := reservation.NewEngine(reservation.Deps{
		DB:    database,
		Clock: fixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	dir, err := directory.New(database)
	if err != nil {
		t.Fatalf("new directory: %v", err)
	}
	h, err := NewHandlers(engine, dir)
	if err != nil {
		t.Fatalf("new handlers: %v", err)
	}
	mux := http.NewServeMux()
	h.Register(mux)
	return server{mux: mux, venue: venue}
}

func (s server) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

func booking(from, to string) map[string]any {
	return map[string]any{
		"club":     "riverside club",
		"facility": "COURT 1",
		"sport":    "padel",
		"date":     "2026-03-02",
		"timeFrom": from,
		"timeTo":   to,
	}
}

func TestCreateResolvesNamesAndConflicts(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/reservations", booking("09:00", "10:30"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	first := decode[models.Reservation](t, rec)
	if first.ClubID != s.venue.Club.ID || first.FacilityID != s.venue.Facility.ID {
		t.Fatalf("names resolved to club %d facility %d", first.ClubID, first.FacilityID)
	}
	if first.SportID == nil || *first.SportID != s.venue.Sport.ID {
		t.Fatalf("sport = %v", first.SportID)
	}
	if first.State != models.StateDraft || first.Amounts.Subtotal != 30 {
		t.Fatalf("created = %+v", first)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/reservations/"+itoa(first.ID)+"/submit", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/api/v1/reservations", booking("10:00", "11:00"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("overlap status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decode[apiutil.ErrorResponse](t, rec)
	if body.Conflict == nil || body.Conflict.ReservationID != first.ID {
		t.Fatalf("conflict body = %+v", body)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/facilities/"+itoa(s.venue.Facility.ID)+"/reservations?date=2026-03-02", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if list := decode[[]models.Reservation](t, rec); len(list) != 1 {
		t.Fatalf("listed %d reservations", len(list))
	}
}

func TestRequestErrorsMapToStatus(t *testing.T) {
	s := newServer(t)

	bad := booking("09:00", "10:00")
	bad["date"] = "02/03/2026"
	rec := s.do(t, http.MethodPost, "/api/v1/reservations", bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date status = %d", rec.Code)
	}
	if body := decode[apiutil.ErrorResponse](t, rec); body.Field != "date" {
		t.Fatalf("error field = %q", body.Field)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/reservations", map[string]any{"bogus": true})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d", rec.Code)
	}

	outside := booking("06:00", "07:00")
	rec = s.do(t, http.MethodPost, "/api/v1/reservations", outside)
	if rec.Code != http.StatusConflict {
		t.Fatalf("out of schedule status = %d: %s", rec.Code, rec.Body.String())
	}

	if rec := s.do(t, http.MethodGet, "/api/v1/reservations/999", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing reservation status = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/v1/reservations/1/teleport", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown action status = %d", rec.Code)
	}
}

func TestDraftLifecycleOverHTTP(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/reservations", booking("18:00", "19:00"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[models.Reservation](t, rec)
	path := "/api/v1/reservations/" + itoa(created.ID)

	rec = s.do(t, http.MethodPost, path+"/attendees", map[string]any{"name": "Ana", "email": "ana@example.com"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("attendee status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[models.Reservation](t, rec); len(got.Attendees) != 1 {
		t.Fatalf("attendees = %+v", got.Attendees)
	}

	rec = s.do(t, http.MethodPut, path, booking("18:00", "20:00"))
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[models.Reservation](t, rec); got.Amounts.Subtotal != 40 {
		t.Fatalf("updated subtotal = %v", got.Amounts.Subtotal)
	}

	if rec := s.do(t, http.MethodPost, path+"/check-in", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("check-in on draft status = %d", rec.Code)
	}

	if rec := s.do(t, http.MethodDelete, path, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodGet, path, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
