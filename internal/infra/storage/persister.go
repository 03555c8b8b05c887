package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/events"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/metrics"
)

// EventLogPersister translates simulation events to storage events so the
// event log can write through to an EventRepository.
type EventLogPersister struct {
	repo    EventRepository
	metrics *metrics.Collector
	timeout time.Duration
}

// NewEventLogPersister wraps repo. A nil collector disables write metrics.
func NewEventLogPersister(repo EventRepository, collector *metrics.Collector) *EventLogPersister {
	return &EventLogPersister{repo: repo, metrics: collector, timeout: 5 * time.Second}
}

// Append implements events.EventPersister.
func (p *EventLogPersister) Append(event events.GameEvent) error {
	stored, err := ToStorageEvent(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	start := time.Now()
	err = p.repo.Append(ctx, stored)
	if p.metrics != nil {
		p.metrics.RecordEventWrite(time.Since(start), err)
	}
	return err
}

// ToStorageEvent flattens the typed payload into a JSON object.
func ToStorageEvent(event events.GameEvent) (Event, error) {
	payload := map[string]interface{}{}
	if event.Payload != nil {
		raw, err := json.Marshal(event.Payload)
		if err != nil {
			return Event{}, fmt.Errorf("failed to marshal %s payload: %w", event.Type, err)
		}
		// Non-object payloads are kept under a single key
		if err := decodePayload(raw, &payload); err != nil {
			payload = map[string]interface{}{"value": json.RawMessage(raw)}
		}
	}

	return Event{
		ID:        event.ID,
		SessionID: event.SessionID,
		Timestamp: event.Timestamp,
		EventType: string(event.Type),
		ActorID:   event.ActorID,
		TargetID:  event.TargetID,
		Payload:   payload,
		GameDay:   event.GameDay,
	}, nil
}

// decodePayload keeps numbers as json.Number so 64-bit seeds survive.
func decodePayload(raw []byte, dst *map[string]interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(dst)
}
