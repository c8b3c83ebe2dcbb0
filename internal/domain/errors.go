package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden: authenticated but not permitted. Surfaced to admin and
	// staff callers only; client callers get ErrNotFound instead so tenant
	// existence never leaks.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound covers both true absence and denied existence for
	// client-role callers.
	ErrNotFound = errors.New("not found")

	// ErrConflict: concurrent-write contention (revision check or lock
	// acquisition failed). Safe to retry with fresh data.
	ErrConflict = errors.New("conflict")

	// ErrFatal: the persistence layer is unavailable.
	ErrFatal = errors.New("storage unavailable")
)

// ValidationError is a payload invariant violation: bad date ordering, a
// missing required relationship, a cross-tenant reference.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
