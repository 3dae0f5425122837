package orders

import "github.com/routecash/routecash/internal/shared"

// Status enumerates order lifecycle states.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusSubmitted     Status = "submitted"
	StatusEditRequested Status = "edit_requested"
	StatusFinalized     Status = "finalized"
	StatusBilled        Status = "billed"
	StatusLoadFormReady Status = "load_form_ready"
	StatusAssigned      Status = "assigned"
	StatusDelivered     Status = "delivered"
	StatusRejected      Status = "rejected"
)

// transitions lists every legal status change. Rejection from non-terminal
// states is handled separately so the table stays readable.
var transitions = map[Status][]Status{
	StatusDraft:         {StatusSubmitted},
	StatusSubmitted:     {StatusEditRequested, StatusFinalized},
	StatusEditRequested: {StatusSubmitted},
	StatusFinalized:     {StatusBilled},
	StatusBilled:        {StatusLoadFormReady},
	StatusLoadFormReady: {StatusAssigned},
	StatusAssigned:      {StatusDelivered},
}

// IsTerminal reports whether no further transition is allowed from s.
func IsTerminal(s Status) bool {
	return s == StatusDelivered || s == StatusRejected
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to Status) bool {
	if to == StatusRejected {
		return !IsTerminal(from)
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// transition mutates the order's status or fails with no mutation at all.
func (o *Order) transition(to Status) error {
	if !CanTransition(o.Status, to) {
		return &shared.TransitionError{From: string(o.Status), To: string(to)}
	}
	o.Status = to
	return nil
}
