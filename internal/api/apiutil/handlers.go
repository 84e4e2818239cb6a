package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/clubreserve/internal/apperr"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error    string        `json:"error"`
	Field    string        `json:"field,omitempty"`
	Conflict *ConflictInfo `json:"conflict,omitempty"`
}

// ConflictInfo identifies the reservation that blocks a booking.
type ConflictInfo struct {
	ReservationID int64  `json:"reservationId"`
	Code          string `json:"code"`
	Window        string `json:"window"`
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return apperr.Invalid("body", "is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", apperr.ErrValidation, err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: invalid JSON body", apperr.ErrValidation)
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteError maps err to its HTTP status and writes the error body. Internal
// errors are logged and their text is not exposed.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	body := ErrorResponse{Error: err.Error()}

	var fieldErr apperr.FieldError
	if errors.As(err, &fieldErr) {
		body.Field = fieldErr.Field
	}
	var conflict apperr.ReservationConflictError
	if errors.As(err, &conflict) {
		body.Conflict = &ConflictInfo{
			ReservationID: conflict.ReservationID,
			Code:          conflict.Code,
			Window:        conflict.Window,
		}
	}
	if status == http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		body = ErrorResponse{Error: "Internal Server Error"}
	}

	if werr := WriteJSON(w, status, body); werr != nil {
		log.Ctx(r.Context()).Error().Err(werr).Msg("Failed to write error response")
	}
}

// Respond writes payload with status, logging a failed write.
func Respond(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if err := WriteJSON(w, status, payload); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Failed to write response")
	}
}
