package calendars

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/codr1/clubreserve/internal/calendar"
	"github.com/codr1/clubreserve/internal/db"
	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/testutil"
	"github.com/codr1/clubreserve/internal/timeslot"
)

func newMux(t *testing.T) (*http.ServeMux, *db.DB, testutil.Venue) {
	t.Helper()
	database := testutil.NewTestDB(t)
	venue := testutil.SeedVenue(t, database)
	svc, err := calendar.NewService(database)
	if err != nil {
		t.Fatalf("new calendar service: %v", err)
	}
	h, err := NewHandlers(svc)
	if err != nil {
		t.Fatalf("new handlers: %v", err)
	}
	mux := http.NewServeMux()
	h.Register(mux)
	return mux, database, venue
}

func send(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, bytes.NewBufferString(body)))
	return rec
}

func TestAvailabilityHonorsClosedExceptions(t *testing.T) {
	mux, _, venue := newMux(t)
	availability := "/api/v1/facilities/" + strconv.FormatInt(venue.Facility.ID, 10) + "/availability?date=2026-03-02"

	rec := send(t, mux, http.MethodGet, availability, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("availability status = %d: %s", rec.Code, rec.Body.String())
	}
	var got availabilityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Slots) != 1 || got.Slots[0] != timeslot.New(8, 22) {
		t.Fatalf("slots = %+v", got.Slots)
	}

	exceptionPath := "/api/v1/calendars/" + strconv.FormatInt(venue.Template.ID, 10) + "/exceptions"
	rec = send(t, mux, http.MethodPost, exceptionPath,
		`{"dateFrom":"2026-03-02T12:00:00Z","dateTo":"2026-03-02T14:00:00Z","reason":"Maintenance","isClosed":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("exception status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = send(t, mux, http.MethodGet, availability, "")
	got = availabilityResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []timeslot.Slot{timeslot.New(8, 12), timeslot.New(14, 22)}
	if len(got.Slots) != 2 || got.Slots[0] != want[0] || got.Slots[1] != want[1] {
		t.Fatalf("slots after exception = %+v", got.Slots)
	}

	if rec := send(t, mux, http.MethodGet, "/api/v1/facilities/"+strconv.FormatInt(venue.Facility.ID, 10)+"/availability", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing date status = %d", rec.Code)
	}
}

func TestTemplateLifecycle(t *testing.T) {
	mux, database, venue := newMux(t)
	lane, err := database.Queries.CreateFacility(context.Background(), models.Facility{
		ClubID: venue.Club.ID, Name: "Lane 1", Type: models.FacilityLane, Capacity: 2, Active: true,
	})
	if err != nil {
		t.Fatalf("create facility: %v", err)
	}

	body := `{"clubId":` + strconv.FormatInt(venue.Club.ID, 10) +
		`,"facilityId":` + strconv.FormatInt(lane.ID, 10) + `,"name":"Lane hours","active":true}`
	rec := send(t, mux, http.MethodPost, "/api/v1/calendars", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created models.CalendarTemplate
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	path := "/api/v1/calendars/" + strconv.FormatInt(created.ID, 10)

	rec = send(t, mux, http.MethodPost, path+"/generate", `{"startTime":9,"endTime":12,"slotDuration":1.5,"day":"mon"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status = %d: %s", rec.Code, rec.Body.String())
	}
	var lines []models.AvailabilityLine
	if err := json.Unmarshal(rec.Body.Bytes(), &lines); err != nil {
		t.Fatalf("decode lines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("generated %d lines", len(lines))
	}

	rec = send(t, mux, http.MethodPost, path+"/lines", `{"dayOfWeek":6,"startTime":10,"endTime":9}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("inverted line status = %d", rec.Code)
	}

	rec = send(t, mux, http.MethodGet, path, "")
	var template calendar.Template
	if err := json.Unmarshal(rec.Body.Bytes(), &template); err != nil {
		t.Fatalf("decode template: %v", err)
	}
	if len(template.Lines) != 2 {
		t.Fatalf("template lines = %+v", template.Lines)
	}

	if rec := send(t, mux, http.MethodDelete, path, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := send(t, mux, http.MethodGet, path, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
}
