package apiutil

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/timeslot"
)

func ParsePositiveInt64Field(raw string, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, apperr.Invalid(field, "is required")
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, apperr.Invalid(field, "must be a positive integer")
	}
	return value, nil
}

// PathID reads a positive integer path value such as {id}.
func PathID(r *http.Request, name string) (int64, error) {
	return ParsePositiveInt64Field(r.PathValue(name), name)
}

// OptionalInt64Query returns nil when the query parameter is absent.
func OptionalInt64Query(r *http.Request, key string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := ParsePositiveInt64Field(raw, key)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// DateQuery parses a required YYYY-MM-DD query parameter.
func DateQuery(r *http.Request, key string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return time.Time{}, apperr.Invalid(key, "is required")
	}
	date, err := models.ParseDate(raw)
	if err != nil {
		return time.Time{}, apperr.Invalid(key, "must be YYYY-MM-DD")
	}
	return date, nil
}

// OptionalHourQuery accepts "13:30" or "13.5"; nil when absent.
func OptionalHourQuery(r *http.Request, key string) (*float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	hours, err := timeslot.ParseHour(raw)
	if err != nil {
		return nil, apperr.Invalid(key, err.Error())
	}
	return &hours, nil
}
