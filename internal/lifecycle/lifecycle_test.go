package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to State }{
		{StateDraft, StatePendingApproval},
		{StateDraft, StateClosed},
		{StatePendingApproval, StateActive},
		{StatePendingApproval, StateExpired},
		{StatePendingApproval, StateClosed},
		{StateActive, StateFulfilled},
		{StateActive, StateExpired},
		{StateActive, StateClosed},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}
}

func TestNoTransitionOutOfTerminalStates(t *testing.T) {
	all := []State{StateDraft, StatePendingApproval, StateActive, StateFulfilled, StateExpired, StateClosed}
	for _, terminal := range []State{StateFulfilled, StateExpired, StateClosed} {
		for _, to := range all {
			assert.False(t, CanTransition(terminal, to), "%s -> %s must be illegal", terminal, to)
		}
	}
}

func TestNoBackwardTransitions(t *testing.T) {
	assert.False(t, CanTransition(StateActive, StatePendingApproval))
	assert.False(t, CanTransition(StateActive, StateDraft))
	assert.False(t, CanTransition(StatePendingApproval, StateDraft))
	assert.False(t, CanTransition(StateFulfilled, StateActive))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StateFulfilled))
	assert.True(t, IsTerminal(StateExpired))
	assert.True(t, IsTerminal(StateClosed))
	assert.False(t, IsTerminal(StateDraft))
	assert.False(t, IsTerminal(StatePendingApproval))
	assert.False(t, IsTerminal(StateActive))
}

func TestAcceptsCommitments(t *testing.T) {
	assert.True(t, AcceptsCommitments(StateActive))

	for _, s := range []State{StateDraft, StatePendingApproval, StateFulfilled, StateExpired, StateClosed} {
		assert.False(t, AcceptsCommitments(s), "%s must not accept commitments", s)
	}
}

func TestAcceptsCancellation(t *testing.T) {
	assert.True(t, AcceptsCancellation(StateActive))
	assert.True(t, AcceptsCancellation(StateFulfilled))
	assert.False(t, AcceptsCancellation(StateExpired))
	assert.False(t, AcceptsCancellation(StateClosed))
	assert.False(t, AcceptsCancellation(StatePendingApproval))
}

func TestExpirable(t *testing.T) {
	assert.True(t, Expirable(StateActive))
	assert.True(t, Expirable(StatePendingApproval))
	assert.False(t, Expirable(StateDraft))
	assert.False(t, Expirable(StateFulfilled))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(StateActive))
	assert.False(t, Valid(State("PAUSED")))
}
