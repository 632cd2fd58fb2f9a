package lifecycle

// State is the lifecycle state of a deal.
type State string

const (
	// StateDraft is assigned to deals created by automated discovery
	// before anyone has looked at them.
	StateDraft State = "DRAFT"
	// StatePendingApproval means the draft is waiting for an admin decision.
	StatePendingApproval State = "PENDING_APPROVAL"
	// StateActive means the deal is open for commitments.
	StateActive State = "ACTIVE"
	// StateFulfilled means the target quantity was reached at least once.
	// Fulfilled deals never accept new commitments and never revert to
	// active, even if cancellations later drop the aggregate below target.
	StateFulfilled State = "FULFILLED"
	// StateExpired means the deadline passed while the deal was active or
	// pending approval and the target was never reached.
	StateExpired State = "EXPIRED"
	// StateClosed is administrative deactivation.
	StateClosed State = "CLOSED"
)

// transitions is the full set of legal state changes. There is no path out
// of FULFILLED, EXPIRED or CLOSED.
var transitions = map[State][]State{
	StateDraft:           {StatePendingApproval, StateClosed},
	StatePendingApproval: {StateActive, StateExpired, StateClosed},
	StateActive:          {StateFulfilled, StateExpired, StateClosed},
	StateFulfilled:       {},
	StateExpired:         {},
	StateClosed:          {},
}

// CanTransition reports whether moving from one state to another is legal.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a state has no outgoing transitions.
func IsTerminal(s State) bool {
	return len(transitions[s]) == 0
}

// AcceptsCommitments reports whether new commitments may be placed against
// a deal in this state. Only active deals accept growth; a fulfilled deal
// is read-only for new pledges.
func AcceptsCommitments(s State) bool {
	return s == StateActive
}

// AcceptsCancellation reports whether an existing commitment on a deal in
// this state may still be cancelled.
func AcceptsCancellation(s State) bool {
	return s == StateActive || s == StateFulfilled
}

// Expirable reports whether a deal in this state expires when its deadline
// passes.
func Expirable(s State) bool {
	return s == StateActive || s == StatePendingApproval
}

// Valid reports whether s is a known state.
func Valid(s State) bool {
	_, ok := transitions[s]
	return ok
}
