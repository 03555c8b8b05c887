// Package engine - queue_system.go
// Queue: the two-slot FIFO between the stacks and the active slot.
package engine

import (
	"fmt"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/item"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/events"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/logger"
)

// Queue rejection reasons.
const (
	RejectUnknown   = "UNKNOWN_ITEM"
	RejectQueued    = "ALREADY_QUEUED"
	RejectActive    = "ALREADY_ACTIVE"
	RejectQueueFull = "QUEUE_FULL"
)

// ItemEnqueuedPayload is emitted when an item joins the queue.
type ItemEnqueuedPayload struct {
	ItemID   item.ID       `json:"item_id"`
	Category item.Category `json:"category"`
	Position int           `json:"position"`
	From     item.Location `json:"from"`
}

// QueueRejectedPayload is emitted for an enqueue request that was ignored.
type QueueRejectedPayload struct {
	ItemID item.ID `json:"item_id"`
	Reason string  `json:"reason"`
}

// ItemActivatedPayload is emitted when the front of the queue starts consuming.
type ItemActivatedPayload struct {
	ItemID          item.ID       `json:"item_id"`
	Category        item.Category `json:"category"`
	Variant         int           `json:"variant"`
	DurationSeconds float64       `json:"duration_seconds"`
}

// QueueSystem manages the staging FIFO.
type QueueSystem struct {
	system
	stacks *StackSystem
}

// NewQueueSystem creates the queue. Enqueueing detaches items through stacks.
func NewQueueSystem(eventLog *events.EventLog, log *logger.Logger, stacks *StackSystem) *QueueSystem {
	return &QueueSystem{system: system{eventLog: eventLog, logger: log}, stacks: stacks}
}

// TryEnqueue appends an item to the queue. Already queued or active items,
// unknown items and a full queue are rejected without changing anything.
func (qs *QueueSystem) TryEnqueue(w *World, id item.ID) bool {
	it, ok := w.item(id)
	reason := ""
	switch {
	case !ok || it.Location == item.LocationConsumed:
		reason = RejectUnknown
	case it.Location == item.LocationInQueue:
		reason = RejectQueued
	case it.Location == item.LocationActive:
		reason = RejectActive
	case qs.Len(w) >= w.cfg.QueueCapacity:
		reason = RejectQueueFull
	}
	if reason != "" {
		qs.emit(w, events.EventTypeQueueRejected, ActorPlayer, itemTarget(id), QueueRejectedPayload{
			ItemID: id,
			Reason: reason,
		})
		return false
	}

	from := it.Location
	if from == item.LocationInStack {
		qs.stacks.RemoveItem(w, id)
	}
	it.Location = item.LocationInQueue
	it.StackID = -1
	w.queue = append(w.queue, id)

	qs.emit(w, events.EventTypeItemEnqueued, ActorPlayer, itemTarget(id), ItemEnqueuedPayload{
		ItemID:   id,
		Category: it.Category,
		Position: len(w.queue) - 1,
		From:     from,
	})
	qs.logger.Event(string(events.EventTypeItemEnqueued), ActorPlayer,
		fmt.Sprintf("%s #%d queued at %d", it.Category, id, len(w.queue)-1))
	return true
}

// DequeueIfSlotFree promotes the front of the queue when the active slot is empty.
func (qs *QueueSystem) DequeueIfSlotFree(w *World) bool {
	if w.active.occupied || qs.Len(w) == 0 {
		return false
	}

	id := w.queue[0]
	w.queue = w.queue[1:]
	it, ok := w.item(id)
	if !ok {
		return false
	}

	duration := w.catalog.ConsumeDuration(it.Category)
	it.Location = item.LocationActive
	w.active = activeSlot{itemID: id, occupied: true, duration: duration}

	qs.emit(w, events.EventTypeItemActivated, ActorQueue, itemTarget(id), ItemActivatedPayload{
		ItemID:          id,
		Category:        it.Category,
		Variant:         it.Variant,
		DurationSeconds: duration.Seconds(),
	})
	return true
}

// Len returns the number of queued items.
func (qs *QueueSystem) Len(w *World) int {
	return len(w.queue)
}
