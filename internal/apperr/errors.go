// Package apperr defines the error kinds shared by the reservation engine.
//
// Callers classify failures with errors.Is against the kind sentinels; the
// specific sentinels below each wrap exactly one kind.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrExternal           = errors.New("external call failed")
)

var (
	ErrOutOfSchedule     = fmt.Errorf("%w: requested time is outside the facility schedule", ErrConflict)
	ErrDuplicate         = fmt.Errorf("%w: duplicate record", ErrConflict)
	ErrNoTemplate        = fmt.Errorf("%w: no calendar template for facility", ErrNotFound)
	ErrNoApplicableRule  = fmt.Errorf("%w: no applicable pricing rule", ErrNotFound)
	ErrNoInvoice         = fmt.Errorf("%w: reservation has no posted invoice", ErrPreconditionFailed)
	ErrInvalidTransition = fmt.Errorf("%w: transition not allowed", ErrPreconditionFailed)
)

// FieldError reports a caller-correctable problem with one input field.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e FieldError) Unwrap() error {
	return ErrValidation
}

// ReservationConflictError names the live reservation that blocks a request.
type ReservationConflictError struct {
	ReservationID int64
	Code          string
	Window        string
}

func (e ReservationConflictError) Error() string {
	return fmt.Sprintf("facility already booked by reservation %s (id %d) at %s", e.Code, e.ReservationID, e.Window)
}

func (e ReservationConflictError) Unwrap() error {
	return ErrConflict
}

// Invalid is shorthand for a FieldError.
func Invalid(field, reason string) error {
	return FieldError{Field: field, Reason: reason}
}

// Status maps an error to the HTTP status its kind surfaces as.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrPreconditionFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrExternal):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// External wraps a collaborator failure with the operation that produced it.
func External(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrExternal, op, err)
}
