// Package errs defines the error taxonomy shared by the scheduling and
// materialization packages. Callers match with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports a malformed request: an empty team set,
	// an inverted window, a cutoff before the start of a series.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound reports an edit or cancel target that does not resolve
	// against the current state.
	ErrNotFound = errors.New("not found")

	// ErrForbidden reports a materialization request that is not allowed,
	// e.g. one that does not move past the team's cursor.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict reports a concurrent write that lost a race, such as an
	// attempt to move a team's cursor backward.
	ErrConflict = errors.New("conflict")
)

// Invalid wraps ErrInvalidArgument with a formatted message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound with a formatted message.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Forbidden wraps ErrForbidden with a formatted message.
func Forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

// Conflict wraps ErrConflict with a formatted message.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
