package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness violation the caller can resolve,
	// such as a taken username.
	ErrConflict = errors.New("conflict")
	// ErrNotAuthenticated indicates that no active session was presented.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// ValidationError is returned before any write when input is rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a *ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError wraps ErrConflict with a user-facing reason.
func ConflictError(reason string) error {
	return fmt.Errorf("%w: %s", ErrConflict, reason)
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
