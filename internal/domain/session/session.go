// Package session defines the lifecycle states of a play session.
// This package is PURE and must NOT import any infrastructure packages.
package session

// State is the externally observable control-flow signal of a session.
type State string

const (
	StateStartScreen State = "START_SCREEN"
	StatePlaying     State = "PLAYING"
	StateFailed      State = "FAILED"
)

// CanTransition reports whether moving from one state to another is allowed.
// Failed is terminal except for a full restart into Playing.
func CanTransition(from, to State) bool {
	switch from {
	case StateStartScreen:
		return to == StatePlaying
	case StatePlaying:
		return to == StatePlaying || to == StateFailed
	case StateFailed:
		return to == StatePlaying
	}
	return false
}

// IsTerminal reports whether the state ends the session.
func (s State) IsTerminal() bool {
	return s == StateFailed
}
