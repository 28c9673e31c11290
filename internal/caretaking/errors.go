// Package caretaking holds the pure logic of the caretaker delegation
// subsystem: chain resolution, the request lifecycle state machine, viewer
// permission resolution and the active-delegation registry checks. Nothing
// in this package performs I/O; every computation takes already-fetched
// data and returns a new result, so it can be unit-tested with fixed
// inputs independent of any transport or storage.
package caretaking

import (
	"errors"
	"fmt"
)

// Sentinel errors let handlers distinguish failure kinds and render a
// specific message for each; none of these maps to a generic catch-all.
var (
	// ErrChainConflict is returned when a submission proposes a caretaker
	// who is already inside the requester's delegation chain (or would
	// extend an existing chain to a second level).
	ErrChainConflict = errors.New("proposed caretaker is already part of a delegation chain")

	// ErrDuplicateActiveDelegation is returned when the primary user
	// already has a non-expired active delegation.
	ErrDuplicateActiveDelegation = errors.New("user already has an active caretaker")

	// ErrInvalidTransition is returned when a transition is attempted
	// against a request whose status does not permit it. The attempt has
	// no side effect.
	ErrInvalidTransition = errors.New("request status does not permit this transition")

	// ErrUnauthorized is returned when the viewer lacks the role required
	// for the attempted transition. The UI should never offer the action,
	// but the core still refuses it if invoked.
	ErrUnauthorized = errors.New("viewer is not authorized for this action")
)

// ValidationError reports a field-level contract violation detected before
// any write is attempted (missing end date, missing notes, non-future end
// date, unknown reason).
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
