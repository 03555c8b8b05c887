// Package storage - reconstructor.go
// Rebuilds session summaries from the event log: state = f(events).
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Reconstructor rebuilds session results from the event log.
// This is used for:
// 1. The end-of-session recap screen
// 2. Recovering a session summary the recorder missed
// 3. Auditing and debugging
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new session reconstructor.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// RecapEvent is a simplified event for the recap screen.
type RecapEvent struct {
	Timestamp string `json:"timestamp"`
	EventType string `json:"event_type"`
	GameDay   int    `json:"game_day"`
	Summary   string `json:"summary"` // Human-readable description
	Impact    string `json:"impact"`  // "POSITIVE", "NEGATIVE", "NEUTRAL"
}

// variantCounter tracks consumed variants per category. Ties go to the
// variant seen first.
type variantCounter struct {
	order  map[string][]int
	counts map[string]map[int]int
}

func newVariantCounter() *variantCounter {
	return &variantCounter{order: map[string][]int{}, counts: map[string]map[int]int{}}
}

func (vc *variantCounter) add(category string, variant int) {
	c, ok := vc.counts[category]
	if !ok {
		c = map[int]int{}
		vc.counts[category] = c
	}
	if _, seen := c[variant]; !seen {
		vc.order[category] = append(vc.order[category], variant)
	}
	c[variant]++
}

func (vc *variantCounter) favorites() map[string]int {
	out := make(map[string]int, len(vc.order))
	for cat, order := range vc.order {
		best := order[0]
		for _, v := range order[1:] {
			if vc.counts[cat][v] > vc.counts[cat][best] {
				best = v
			}
		}
		out[cat] = best
	}
	return out
}

// RebuildSession reconstructs a session summary from its events.
func (r *Reconstructor) RebuildSession(ctx context.Context, sessionID string) (*SessionRecord, error) {
	events, err := r.eventRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events for session: %w", err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}

	rec := &SessionRecord{SessionID: sessionID, FinalState: "PLAYING"}
	favorites := newVariantCounter()

	// Events arrive in append order
	for _, e := range events {
		switch e.EventType {
		case "STATE_CHANGED":
			to := payloadString(e.Payload, "to")
			if to == "PLAYING" && rec.StartedAt.IsZero() {
				rec.StartedAt = e.Timestamp
				if seed, ok := payloadUint(e.Payload, "seed"); ok {
					rec.Seed = seed
				}
				if stress, ok := payloadFloat(e.Payload, "stress"); ok {
					rec.FinalStress = stress
				}
			}
			if to != "" {
				rec.FinalState = to
			}
			if to == "FAILED" {
				rec.EndedAt = e.Timestamp
			}
		case "STRESS_CHANGE":
			if current, ok := payloadFloat(e.Payload, "current"); ok {
				rec.FinalStress = current
			}
		case "DAY_ENDED":
			rec.DaysSurvived++
		case "ITEM_CONSUMED":
			category := payloadString(e.Payload, "category")
			variant, _ := payloadFloat(e.Payload, "variant")
			rec.TotalConsumed++
			switch category {
			case "BOOK":
				rec.Books++
			case "COMIC":
				rec.Comics++
			case "MOVIE":
				rec.Movies++
			case "GAME":
				rec.Games++
			}
			favorites.add(category, int(variant))
		}
	}

	rec.Favorites = favorites.favorites()
	if !rec.StartedAt.IsZero() {
		end := events[len(events)-1].Timestamp
		if !rec.EndedAt.IsZero() {
			end = rec.EndedAt
		}
		rec.ElapsedSeconds = end.Sub(rec.StartedAt).Seconds()
	}
	return rec, nil
}

// GenerateRecap creates the recap of a session from a given day onwards.
// Per-item bookkeeping events (spawn, enqueue, activation, restack) are left out.
func (r *Reconstructor) GenerateRecap(ctx context.Context, sessionID string, sinceDay int) ([]RecapEvent, error) {
	allEvents, err := r.eventRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	recap := make([]RecapEvent, 0)
	for _, e := range allEvents {
		if e.GameDay < sinceDay {
			continue
		}
		summary, ok := r.summarizeEvent(e)
		if !ok {
			continue
		}
		recap = append(recap, RecapEvent{
			Timestamp: e.Timestamp.Format("15:04:05"),
			EventType: e.EventType,
			GameDay:   e.GameDay,
			Summary:   summary,
			Impact:    r.determineImpact(e),
		})
	}

	return recap, nil
}

// summarizeEvent creates a human-readable summary. The second result is
// false for events the recap skips.
func (r *Reconstructor) summarizeEvent(event Event) (string, bool) {
	switch event.EventType {
	case "ITEM_CONSUMED":
		return fmt.Sprintf("Finished a %s.", lowerCategory(payloadString(event.Payload, "category"))), true
	case "PURCHASE":
		if bulk, _ := event.Payload["bulk"].(bool); bulk {
			n, _ := payloadFloat(event.Payload, "spawned")
			return fmt.Sprintf("Bulk buy! %d items arrived at once.", int(n)), true
		}
		return "Bought something new.", true
	case "STACK_OVERFLOW":
		return fmt.Sprintf("A %s had nowhere to go and was lost.", lowerCategory(payloadString(event.Payload, "category"))), true
	case "DAY_ENDED":
		day, _ := payloadFloat(event.Payload, "day")
		if acted, _ := event.Payload["acted_today"].(bool); acted {
			return fmt.Sprintf("Day %d ended. You kept busy.", int(day)), true
		}
		return fmt.Sprintf("Day %d ended with nothing done.", int(day)), true
	case "STATE_CHANGED":
		switch payloadString(event.Payload, "to") {
		case "PLAYING":
			return "A new session began.", true
		case "FAILED":
			return "The backlog won. Breakdown.", true
		}
	}
	return "", false
}

// determineImpact classifies the event impact.
func (r *Reconstructor) determineImpact(event Event) string {
	switch event.EventType {
	case "ITEM_CONSUMED":
		return "POSITIVE"
	case "STACK_OVERFLOW":
		return "NEGATIVE"
	case "DAY_ENDED":
		if delta, ok := payloadFloat(event.Payload, "delta"); ok && delta > 0 {
			return "NEGATIVE"
		}
		return "NEUTRAL"
	case "STATE_CHANGED":
		if payloadString(event.Payload, "to") == "FAILED" {
			return "NEGATIVE"
		}
	}
	return "NEUTRAL"
}

// Payloads decode with UseNumber; plain float64 is accepted for maps built in memory.
func payloadFloat(p map[string]interface{}, key string) (float64, bool) {
	switch v := p[key].(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Seeds use the full uint64 range and would lose precision as float64.
func payloadUint(p map[string]interface{}, key string) (uint64, bool) {
	switch v := p[key].(type) {
	case json.Number:
		n, err := strconv.ParseUint(v.String(), 10, 64)
		return n, err == nil
	case float64:
		return uint64(v), true
	case uint64:
		return v, true
	}
	return 0, false
}

func payloadString(p map[string]interface{}, key string) string {
	v, _ := p[key].(string)
	return v
}

func lowerCategory(c string) string {
	switch c {
	case "BOOK":
		return "book"
	case "COMIC":
		return "comic"
	case "MOVIE":
		return "movie"
	case "GAME":
		return "game"
	}
	return "item"
}
