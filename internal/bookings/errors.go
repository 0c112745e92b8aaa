package bookings

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for an unknown booking id or magic-link token.
	ErrNotFound = errors.New("booking not found")
	// ErrInvalidStateTransition is returned when a status or payment move is not allowed.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrDuplicateIdentifier is returned when generated ids keep colliding.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	// ErrStoreUnavailable is returned on storage timeout or connection failure.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")
)

// errUnchanged lets a mutation report an idempotent no-op; stores return the
// current record without writing.
var errUnchanged = errors.New("unchanged")

// TransitionError describes a rejected move on the status or payment graph.
type TransitionError struct {
	Field  string
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s: %s cannot move from %q to %q", ErrInvalidStateTransition, e.Field, e.From, e.To)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// Is matches ErrInvalidStateTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// unavailable maps context expiry to ErrStoreUnavailable and passes other errors through.
func unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
