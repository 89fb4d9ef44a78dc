package apperror

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the domain packages and mapped to HTTP status codes by handlers.
var (
	ErrValidation       = errors.New("validation error")
	ErrInvalidPrice     = errors.New("invalid price")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrConflict         = errors.New("conflict")
)

// ValidationError reports which input field was rejected.
// It matches ErrValidation with errors.Is, and also any wrapped cause.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validation builds a ValidationError for a single field.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Validationf wraps cause as a ValidationError on field.
func Validationf(field string, cause error) error {
	return &ValidationError{Field: field, Message: cause.Error(), Err: cause}
}
