package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates input that fails a business validation rule.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidTransition indicates a state machine guard violation.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrNotFinalized occurs when billing is attempted before finalization.
	ErrNotFinalized = errors.New("order not finalized")
	// ErrEditAlreadyRequested occurs when an edit request is already pending.
	ErrEditAlreadyRequested = errors.New("edit request already pending")
	// ErrPeriodNotFound occurs when resetting an absent accumulator period.
	ErrPeriodNotFound = errors.New("period not found")
	// ErrNoOutstandingBills occurs when a shop-wide collection has nothing to apply to.
	ErrNoOutstandingBills = errors.New("no outstanding bills")
	// ErrSyncFailure indicates the remote store was unreachable or denied the write.
	ErrSyncFailure = errors.New("remote sync failed")
	// ErrForbidden indicates the actor lacks the capability for the operation.
	ErrForbidden = errors.New("forbidden")
)

// TransitionError carries the current and requested order states.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
}

// Unwrap makes TransitionError match ErrInvalidTransition via errors.Is.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
