package storage

import (
	"context"
	"errors"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/events"
)

// ErrReadOnly is returned when appending through a read-only repository.
var ErrReadOnly = errors.New("storage: repository is read-only")

// LogEventRepository serves EventRepository reads from the in-memory event
// log. It backs the reconstructor when no database is configured.
type LogEventRepository struct {
	log *events.EventLog
}

func NewLogEventRepository(log *events.EventLog) *LogEventRepository {
	return &LogEventRepository{log: log}
}

// Append is not supported; the event log is written by the engine.
func (r *LogEventRepository) Append(ctx context.Context, event Event) error {
	return ErrReadOnly
}

func (r *LogEventRepository) filter(sessionID string, keep func(events.GameEvent) bool) ([]Event, error) {
	var out []Event
	for _, e := range r.log.GetBySession(sessionID) {
		if !keep(e) {
			continue
		}
		stored, err := ToStorageEvent(e)
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	return out, nil
}

func (r *LogEventRepository) GetBySessionID(ctx context.Context, sessionID string) ([]Event, error) {
	return r.filter(sessionID, func(events.GameEvent) bool { return true })
}

func (r *LogEventRepository) GetByGameDay(ctx context.Context, sessionID string, day int) ([]Event, error) {
	return r.filter(sessionID, func(e events.GameEvent) bool { return e.GameDay == day })
}

func (r *LogEventRepository) GetByEventType(ctx context.Context, sessionID string, eventType string) ([]Event, error) {
	return r.filter(sessionID, func(e events.GameEvent) bool { return string(e.Type) == eventType })
}

func (r *LogEventRepository) CountByType(ctx context.Context, sessionID string) (map[string]int, error) {
	counts := make(map[string]int)
	for _, e := range r.log.GetBySession(sessionID) {
		counts[string(e.Type)]++
	}
	return counts, nil
}
