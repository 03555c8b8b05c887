package engine

import (
	"fmt"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/session"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/events"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/logger"
)

// Actor ids stamped on emitted events.
const (
	ActorPlayer  = "PLAYER"
	ActorStacks  = "SYSTEM_STACKS"
	ActorQueue   = "SYSTEM_QUEUE"
	ActorActive  = "SYSTEM_ACTIVE"
	ActorStress  = "SYSTEM_STRESS"
	ActorSpawner = "SYSTEM_SPAWNER"
	ActorSession = "SYSTEM_SESSION"
)

// StateChangedPayload is attached to every session transition.
type StateChangedPayload struct {
	From   session.State `json:"from"`
	To     session.State `json:"to"`
	Cause  string        `json:"cause"` // "START", "RESTART", "STRESS", "FORCED"
	Seed   uint64        `json:"seed"`
	Stress float64       `json:"stress"`
}

// system carries what every subsystem needs to report what it did.
type system struct {
	eventLog *events.EventLog
	logger   *logger.Logger
}

// emit appends an event stamped with the session and day of w.
func (s system) emit(w *World, t events.EventType, actor, target string, payload interface{}) {
	if s.eventLog == nil {
		return
	}
	s.eventLog.Append(events.GameEvent{
		Type:      t,
		ActorID:   actor,
		TargetID:  target,
		Payload:   payload,
		SessionID: w.sessionID,
		GameDay:   w.day,
	})
}

// transition moves w to a new session state if allowed and reports it.
func (s system) transition(w *World, to session.State, cause string) bool {
	from := w.state
	if !session.CanTransition(from, to) {
		return false
	}
	w.state = to
	s.emit(w, events.EventTypeStateChanged, ActorSession, w.sessionID, StateChangedPayload{
		From:   from,
		To:     to,
		Cause:  cause,
		Seed:   w.seed,
		Stress: w.stress,
	})
	s.logger.Event(string(events.EventTypeStateChanged), ActorSession,
		fmt.Sprintf("session:%s %s -> %s (%s)", w.sessionID, from, to, cause))
	return true
}

func itemTarget(id interface{}) string {
	return fmt.Sprintf("item-%v", id)
}
