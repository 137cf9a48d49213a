package db

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an operation targets a record that does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a dispatch loses a race or a uniqueness rule is violated
	ErrConflict = errors.New("conflict")

	// ErrBackendUnavailable marks failures of the underlying database or remote service
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrNotAuthorized is returned when the acting user may not mutate records
	ErrNotAuthorized = errors.New("not authorized")
)

// ValidationError reports malformed or missing input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for a field
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NoActiveRecord is the error for a key with no record on tonight's list
func NoActiveRecord(key NightKey) error {
	return fmt.Errorf("no active record for %s on %s: %w", key.TailNumber, key.NightDate, ErrNotFound)
}

// Unavailable wraps a driver error so callers can match ErrBackendUnavailable
func Unavailable(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, ErrBackendUnavailable, err)
}
