// Package engine - active_system.go
// Active Consumption Slot: one item at a time, timer driven.
package engine

import (
	"fmt"
	"time"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/item"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/rules"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/events"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/logger"
)

// ItemConsumedPayload feeds the consumption audio cue and score popup.
type ItemConsumedPayload struct {
	ItemID      item.ID       `json:"item_id"`
	Category    item.Category `json:"category"`
	Variant     int           `json:"variant"`
	StressDelta float64       `json:"stress_delta"` // 0 when the decrement was rejected
	Origin      item.Point    `json:"origin"`
	Total       int           `json:"total"`
}

// ActiveSystem advances the consumption timer and completes items.
type ActiveSystem struct {
	system
	stress *StressSystem
}

// NewActiveSystem creates the active slot. Completions apply relief through stress.
func NewActiveSystem(eventLog *events.EventLog, log *logger.Logger, stress *StressSystem) *ActiveSystem {
	return &ActiveSystem{system: system{eventLog: eventLog, logger: log}, stress: stress}
}

// Tick advances the resident timer by dt and completes the item once its
// duration has elapsed. Returns whether an item finished on this call.
func (as *ActiveSystem) Tick(w *World, dt time.Duration) bool {
	if !w.active.occupied {
		return false
	}
	w.active.elapsed += dt
	if w.active.elapsed < w.active.duration {
		return false
	}
	as.complete(w)
	return true
}

// FractionRemaining goes from 1 to 0 over the resident item's duration.
// An empty slot reports 0.
func (as *ActiveSystem) FractionRemaining(w *World) float64 {
	if !w.active.occupied || w.active.duration <= 0 {
		return 0
	}
	left := 1 - float64(w.active.elapsed)/float64(w.active.duration)
	if left < 0 {
		return 0
	}
	return left
}

// Resident returns the id of the item being consumed.
func (as *ActiveSystem) Resident(w *World) (item.ID, bool) {
	return w.active.itemID, w.active.occupied
}

// complete runs exactly once per resident: the slot is cleared before any
// side effect so a later tick finds nothing to finish.
func (as *ActiveSystem) complete(w *World) {
	id := w.active.itemID
	w.active = activeSlot{}

	it, ok := w.item(id)
	if !ok {
		return
	}
	it.Location = item.LocationConsumed
	w.tally.Record(it.Category, it.Variant)
	w.destroy(id)

	origin := w.cfg.Layout.ActiveSlot
	delta := 0.0
	if as.stress.ApplyDelta(w, rules.ConsumeRelief, CauseConsume, origin) {
		delta = rules.ConsumeRelief
	}

	as.emit(w, events.EventTypeItemConsumed, ActorActive, itemTarget(id), ItemConsumedPayload{
		ItemID:      id,
		Category:    it.Category,
		Variant:     it.Variant,
		StressDelta: delta,
		Origin:      origin,
		Total:       w.tally.Total,
	})
	as.logger.Event(string(events.EventTypeItemConsumed), ActorActive,
		fmt.Sprintf("%s #%d variant:%d total:%d stress:%.1f", it.Category, id, it.Variant, w.tally.Total, w.stress))
}
