package order

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when order is not found
	ErrNotFound = errors.New("order not found")

	// ErrAlreadyExists is returned when attempting to create an order that already exists
	ErrAlreadyExists = errors.New("order already exists")

	// ErrValidation marks a payload that cannot be normalized. Never retried.
	ErrValidation = errors.New("invalid webhook payload")

	// ErrConflict is returned when the store contradicts the decision made under
	// the per-key lock, e.g. a create racing past the lock. Fails closed.
	ErrConflict = errors.New("order state conflict")

	// ErrStoreUnavailable wraps transient storage failures. The provider is
	// expected to redeliver.
	ErrStoreUnavailable = errors.New("order store unavailable")

	// ErrInvalidQuery is returned when order query validation fails
	ErrInvalidQuery = errors.New("invalid orders query")
)

// Validation error codes used on the wire.
const (
	CodeMissingField = "missing_field"
	CodeInvalidField = "invalid_field"
	CodeMalformed    = "malformed_payload"
)

// ValidationError names the offending field of a rejected payload.
type ValidationError struct {
	Field  string
	Code   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Field)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func missingField(field string) error {
	return &ValidationError{Field: field, Code: CodeMissingField}
}

func invalidField(field, reason string) error {
	return &ValidationError{Field: field, Code: CodeInvalidField, Reason: reason}
}
