// Package events provides the append-only event log of the simulation.
// Everything the core wants the outside world to know (audio cues, popups,
// spectators, persistence) flows through here.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a game event.
type EventType string

const (
	EventTypeItemSpawned   EventType = "ITEM_SPAWNED"
	EventTypeItemEnqueued  EventType = "ITEM_ENQUEUED"
	EventTypeQueueRejected EventType = "QUEUE_REJECTED"
	EventTypeItemActivated EventType = "ITEM_ACTIVATED"
	EventTypeItemConsumed  EventType = "ITEM_CONSUMED"
	EventTypeStressChange  EventType = "STRESS_CHANGE"
	EventTypeStackOverflow EventType = "STACK_OVERFLOW"
	EventTypeItemRestacked EventType = "ITEM_RESTACKED"
	EventTypePurchase      EventType = "PURCHASE"
	EventTypeDialogShown   EventType = "DIALOG_SHOWN"
	EventTypeDayEnded      EventType = "DAY_ENDED"
	EventTypeStateChanged  EventType = "STATE_CHANGED"
)

// GameEvent represents an immutable record of something that happened in a session.
type GameEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`  // System or player that caused it
	TargetID  string      `json:"target_id"` // Item or stack affected (optional)
	Payload   interface{} `json:"payload"`   // Event-specific data
	SessionID string      `json:"session_id"`
	GameDay   int         `json:"game_day"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// Subscriber receives every appended event. It runs on the appending
// goroutine and must not call back into whatever appended the event.
type Subscriber func(event GameEvent)

// EventLog is the in-memory append-only log of game events.
type EventLog struct {
	mu          sync.RWMutex
	events      []GameEvent
	persister   EventPersister
	subscribers []Subscriber
	onError     func(error)

	// Writes not yet handed to the persister, in append order. At most one
	// flusher drains them so storage sees events in the same order.
	backlog  []GameEvent
	flushing bool
	pending  sync.WaitGroup
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister EventPersister) *EventLog {
	return &EventLog{
		events:    make([]GameEvent, 0),
		persister: persister,
	}
}

// SetErrorHandler registers a callback for persister failures.
func (el *EventLog) SetErrorHandler(fn func(error)) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.onError = fn
}

// Subscribe registers a synchronous listener.
func (el *EventLog) Subscribe(fn Subscriber) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.subscribers = append(el.subscribers, fn)
}

// Append adds a new event to the log. Missing IDs and timestamps are filled in.
func (el *EventLog) Append(event GameEvent) GameEvent {
	if event.ID == "" {
		event.ID = NewEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	el.mu.Lock()
	el.events = append(el.events, event)
	subs := el.subscribers
	if el.persister != nil {
		// Write through to persistent storage off the simulation goroutine
		el.pending.Add(1)
		el.backlog = append(el.backlog, event)
		if !el.flushing {
			el.flushing = true
			go el.flush()
		}
	}
	el.mu.Unlock()

	for _, fn := range subs {
		fn(event)
	}
	return event
}

// flush hands queued events to the persister one at a time until the backlog
// is empty.
func (el *EventLog) flush() {
	for {
		el.mu.Lock()
		if len(el.backlog) == 0 {
			el.flushing = false
			el.mu.Unlock()
			return
		}
		batch := el.backlog
		el.backlog = nil
		persister := el.persister
		onError := el.onError
		el.mu.Unlock()

		for _, e := range batch {
			if err := persister.Append(e); err != nil && onError != nil {
				onError(err)
			}
			el.pending.Done()
		}
	}
}

// Wait blocks until every in-flight persister write has returned.
func (el *EventLog) Wait() {
	el.pending.Wait()
}

// Len returns the number of events appended so far.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}

// Since returns a copy of the events appended after offset and the next offset.
func (el *EventLog) Since(offset int) ([]GameEvent, int) {
	el.mu.RLock()
	defer el.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	if offset >= len(el.events) {
		return nil, len(el.events)
	}
	out := make([]GameEvent, len(el.events)-offset)
	copy(out, el.events[offset:])
	return out, len(el.events)
}

// GetByType returns all events of a specific type.
func (el *EventLog) GetByType(t EventType) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// GetBySession returns all events recorded for one session.
func (el *EventLog) GetBySession(sessionID string) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.SessionID == sessionID {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns a copy of the full history of events.
func (el *EventLog) Replay() []GameEvent {
	out, _ := el.Since(0)
	return out
}

// NewEventID creates a unique event identifier.
func NewEventID() string {
	return uuid.New().String()
}
