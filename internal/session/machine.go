package session

import (
	"fmt"

	"github.com/jonathan/applypilot/internal/types"
)

// ErrInvalidTransition is wrapped by Transition when a move is not allowed.
var ErrInvalidTransition = fmt.Errorf("invalid session transition")

// transitions is the forward-only state table. A state maps to the set of
// states reachable from it; filled loops to itself so a fill can be re-run
// before submission.
var transitions = map[types.SessionStatus][]types.SessionStatus{
	types.StatusOpen:     {types.StatusAnalyzed},
	types.StatusAnalyzed: {types.StatusFilled},
	types.StatusFilled:   {types.StatusFilled, types.StatusSubmitted},
}

// CanTransition reports whether a session may move from one status to another.
func CanTransition(from, to types.SessionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves a session to the target status, or returns an error
// wrapping ErrInvalidTransition without touching the session.
func Transition(s *types.ApplicationSession, to types.SessionStatus) error {
	if !CanTransition(s.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
	}
	s.Status = to
	return nil
}

// Terminal reports whether a status ends the session lifecycle.
func Terminal(status types.SessionStatus) bool {
	return status == types.StatusSubmitted
}
