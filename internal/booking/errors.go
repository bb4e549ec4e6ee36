package booking

import (
	"errors"
	"strings"

	"github.com/hackgods/vendor-booking/internal/validator"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrVendorNotFound   = errors.New("vendor not found")
	ErrServiceNotFound  = errors.New("service not found")
	ErrBookingNotFound  = errors.New("booking not found")
)

var (
	ErrInvalidRequest          = errors.New("invalid booking request")
	ErrNotAvailable            = errors.New("requested time is not available for this vendor")
	ErrConflict                = errors.New("requested time conflicts with another booking")
	ErrVendorDayBusy           = errors.New("vendor schedule is being updated, please retry")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrConflictInputInvalid    = errors.New("vendor and start time are required to evaluate conflicts")
)

const (
	FieldEventDate = "event_date"

	MsgNotAvailable = "is not available for this vendor"
	MsgConflict     = "conflicts with another booking"
)

type FieldError = validator.FieldError

// ValidationError is a caller-recoverable rejection. It unwraps to one of
// ErrInvalidRequest, ErrNotAvailable or ErrConflict.
type ValidationError struct {
	Kind   error
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return e.Kind.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

func invalid(kind error, fields ...FieldError) *ValidationError {
	return &ValidationError{Kind: kind, Fields: fields}
}

func notAvailable() *ValidationError {
	return invalid(ErrNotAvailable, FieldError{Field: FieldEventDate, Message: MsgNotAvailable})
}

func conflicting() *ValidationError {
	return invalid(ErrConflict, FieldError{Field: FieldEventDate, Message: MsgConflict})
}
