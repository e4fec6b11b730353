package gate

import (
	"errors"
	"fmt"

	"github.com/dshills/rigsync/internal/host"
)

// Errors returned by the guard.
var (
	// ErrModeTransition indicates the host refused a mode change.
	ErrModeTransition = errors.New("mode transition failed")

	// ErrGuardBusy indicates the gated mode is held for another owner.
	ErrGuardBusy = errors.New("mode guard held by another owner")

	// ErrNoOwner indicates With was called without an owner object.
	ErrNoOwner = errors.New("no owner object")
)

// TransitionError describes a failed mode change of an owner object.
type TransitionError struct {
	Owner string
	From  host.Mode
	To    host.Mode
	Err   error
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s %s -> %s: %v", ErrModeTransition, e.Owner, e.From, e.To, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransitionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrModeTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrModeTransition
}
