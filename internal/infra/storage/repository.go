// Package storage provides the persistence layer for the game server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("storage: not found")

// Event mirrors the simulation event structure for persistence.
type Event struct {
	ID        string                 `json:"id" db:"id"`
	SessionID string                 `json:"session_id" db:"session_id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	EventType string                 `json:"event_type" db:"event_type"`
	ActorID   string                 `json:"actor_id" db:"actor_id"`
	TargetID  string                 `json:"target_id" db:"target_id"`
	Payload   map[string]interface{} `json:"payload" db:"payload"`
	GameDay   int                    `json:"game_day" db:"game_day"`
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event Event) error

	// GetBySessionID retrieves all events of a session in order (for replay).
	GetBySessionID(ctx context.Context, sessionID string) ([]Event, error)

	// GetByGameDay retrieves all events from a specific in-game day.
	GetByGameDay(ctx context.Context, sessionID string, day int) ([]Event, error)

	// GetByEventType retrieves all events of a specific type.
	GetByEventType(ctx context.Context, sessionID string, eventType string) ([]Event, error)

	// CountByType aggregates a session's events by type.
	CountByType(ctx context.Context, sessionID string) (map[string]int, error)
}

// SessionRecord is the durable summary of one play session.
type SessionRecord struct {
	SessionID      string         `json:"session_id" db:"session_id"`
	Seed           uint64         `json:"seed" db:"seed"`
	StartedAt      time.Time      `json:"started_at" db:"started_at"`
	EndedAt        time.Time      `json:"ended_at" db:"ended_at"`
	FinalState     string         `json:"final_state" db:"final_state"`
	FinalStress    float64        `json:"final_stress" db:"final_stress"`
	DaysSurvived   int            `json:"days_survived" db:"days_survived"`
	TotalConsumed  int            `json:"total_consumed" db:"total_consumed"`
	Books          int            `json:"books" db:"books"`
	Comics         int            `json:"comics" db:"comics"`
	Movies         int            `json:"movies" db:"movies"`
	Games          int            `json:"games" db:"games"`
	Favorites      map[string]int `json:"favorites" db:"favorites"` // Category -> favorite variant
	ElapsedSeconds float64        `json:"elapsed_seconds" db:"elapsed_seconds"`
}

// SessionRepository stores session summaries.
type SessionRepository interface {
	// Upsert writes a checkpoint or the final result of a session.
	Upsert(ctx context.Context, record SessionRecord) error

	// Get retrieves one session. Returns ErrNotFound for an unknown id.
	Get(ctx context.Context, sessionID string) (*SessionRecord, error)

	// Best returns the top finished sessions by items consumed, then days survived.
	Best(ctx context.Context, limit int) ([]SessionRecord, error)
}
