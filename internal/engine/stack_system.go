// Package engine - stack_system.go
// Stack Store: per-category piles that fill up and overflow.
package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/item"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/rules"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/events"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/logger"
)

var (
	// ErrNoCapacity is returned when every stack is full and the item was discarded.
	ErrNoCapacity = errors.New("engine: no stack has capacity")
	// ErrItemNotPlaceable is returned for unknown items or items owned by the queue or active slot.
	ErrItemNotPlaceable = errors.New("engine: item cannot be placed on a stack")
)

// StackOverflowPayload is emitted when an item is discarded for lack of space.
type StackOverflowPayload struct {
	ItemID    item.ID       `json:"item_id"`
	Category  item.Category `json:"category"`
	Variant   int           `json:"variant"`
	Preferred int           `json:"preferred_stack"`
}

// ItemRestackedPayload is emitted when a loose item is put back on a stack.
type ItemRestackedPayload struct {
	ItemID     item.ID       `json:"item_id"`
	Category   item.Category `json:"category"`
	StackID    int           `json:"stack_id"`
	Mismatched bool          `json:"mismatched"`
}

// StackSystem manages stack membership, heights and the mismatch penalty.
type StackSystem struct {
	system
}

// NewStackSystem creates the stack store.
func NewStackSystem(eventLog *events.EventLog, log *logger.Logger) *StackSystem {
	return &StackSystem{system{eventLog: eventLog, logger: log}}
}

// movable reports whether an item may be put on a stack.
func movable(it *item.Item) bool {
	switch it.Location {
	case item.LocationInQueue, item.LocationActive, item.LocationConsumed:
		return false
	}
	return true
}

// IsFull reports whether the stack's fill height exceeds the maximum.
func (ss *StackSystem) IsFull(w *World, stackID int) bool {
	st, ok := w.stack(stackID)
	if !ok {
		return true
	}
	return st.FillHeight > w.cfg.MaxStackHeight
}

// nonFull returns the ids of every stack that still has room, in id order.
func (ss *StackSystem) nonFull(w *World) []int {
	var ids []int
	for _, st := range w.stacks {
		if st.FillHeight <= w.cfg.MaxStackHeight {
			ids = append(ids, st.ID)
		}
	}
	return ids
}

// AddItem appends an item to a stack. Items in the queue or active slot,
// unknown items and items already on that stack are ignored.
func (ss *StackSystem) AddItem(w *World, stackID int, id item.ID) bool {
	it, ok := w.item(id)
	if !ok || !movable(it) {
		return false
	}
	st, ok := w.stack(stackID)
	if !ok {
		return false
	}
	if it.Location == item.LocationInStack {
		if it.StackID == stackID {
			return false
		}
		ss.detach(w, it)
	}

	st.Items = append(st.Items, id)
	it.Location = item.LocationInStack
	it.StackID = stackID
	ss.recompute(w, st)
	return true
}

// AddToStackOrOverflow puts an item on the preferred stack, or on a random
// non-full stack when the preferred one is full. With no room anywhere the
// item is destroyed and ErrNoCapacity returned.
func (ss *StackSystem) AddToStackOrOverflow(w *World, preferred int, id item.ID) (int, error) {
	it, ok := w.item(id)
	if !ok || !movable(it) {
		return -1, ErrItemNotPlaceable
	}

	target := preferred
	if _, exists := w.stack(preferred); !exists || ss.IsFull(w, preferred) {
		free := ss.nonFull(w)
		if len(free) == 0 {
			ss.discard(w, it, preferred)
			return -1, ErrNoCapacity
		}
		target = free[w.rng.IntN(len(free))]
	}

	if it.Location == item.LocationInStack && it.StackID == target {
		return target, nil
	}
	ss.AddItem(w, target, id)
	return target, nil
}

// RemoveItem detaches an item from its stack, leaving it loose.
func (ss *StackSystem) RemoveItem(w *World, id item.ID) bool {
	it, ok := w.item(id)
	if !ok || it.Location != item.LocationInStack {
		return false
	}
	ss.detach(w, it)
	return true
}

// BeginDrag lifts an item off its stack into the player's hand.
func (ss *StackSystem) BeginDrag(w *World, id item.ID) bool {
	it, ok := w.item(id)
	if !ok {
		return false
	}
	switch it.Location {
	case item.LocationInStack:
		ss.detach(w, it)
	case item.LocationLoose:
	default:
		return false
	}
	it.Location = item.LocationDragging
	return true
}

// CancelDrag releases a held item. The next restack pass picks it up.
func (ss *StackSystem) CancelDrag(w *World, id item.ID) bool {
	it, ok := w.item(id)
	if !ok || it.Location != item.LocationDragging {
		return false
	}
	it.Location = item.LocationLoose
	return true
}

// RecomputeHeights rebuilds every stack's fill height and mismatch count
// from its members.
func (ss *StackSystem) RecomputeHeights(w *World) {
	for _, st := range w.stacks {
		ss.recompute(w, st)
	}
}

// RecomputePenalty sums the mismatched items of every stack into the
// global stack penalty and returns it.
func (ss *StackSystem) RecomputePenalty(w *World) float64 {
	mismatched := 0
	for _, st := range w.stacks {
		mismatched += st.Mismatched
	}
	w.stackPenalty = rules.StackPenalty(mismatched)
	return w.stackPenalty
}

// Restack puts every loose item back on a uniformly random stack.
// Returns how many items were placed.
func (ss *StackSystem) Restack(w *World) int {
	var loose []item.ID
	for id, it := range w.items {
		if it.Location == item.LocationLoose {
			loose = append(loose, id)
		}
	}
	if len(loose) == 0 {
		return 0
	}
	// Map order is random; sort so a seed reproduces the same placement
	sort.Slice(loose, func(i, j int) bool { return loose[i] < loose[j] })

	for _, id := range loose {
		stackID := w.rng.IntN(len(w.stacks))
		ss.AddItem(w, stackID, id)
		it := w.items[id]
		mismatched := w.stacks[stackID].Category != it.Category
		ss.emit(w, events.EventTypeItemRestacked, ActorStacks, itemTarget(id), ItemRestackedPayload{
			ItemID:     id,
			Category:   it.Category,
			StackID:    stackID,
			Mismatched: mismatched,
		})
	}
	return len(loose)
}

func (ss *StackSystem) detach(w *World, it *item.Item) {
	st, ok := w.stack(it.StackID)
	if ok {
		for i, member := range st.Items {
			if member == it.ID {
				st.Items = append(st.Items[:i], st.Items[i+1:]...)
				break
			}
		}
		ss.recompute(w, st)
	}
	it.Location = item.LocationLoose
	it.StackID = -1
}

func (ss *StackSystem) discard(w *World, it *item.Item, preferred int) {
	if it.Location == item.LocationInStack {
		ss.detach(w, it)
	}
	it.Location = item.LocationConsumed
	w.destroy(it.ID)

	ss.emit(w, events.EventTypeStackOverflow, ActorStacks, itemTarget(it.ID), StackOverflowPayload{
		ItemID:    it.ID,
		Category:  it.Category,
		Variant:   it.Variant,
		Preferred: preferred,
	})
	ss.logger.Warn(fmt.Sprintf("OVERFLOW: %s #%d discarded, every stack is full", it.Category, it.ID))
}

func (ss *StackSystem) recompute(w *World, st *Stack) {
	height := 0.0
	mismatched := 0
	for _, id := range st.Items {
		it, ok := w.items[id]
		if !ok {
			continue
		}
		height += w.catalog.SizeOf(it.Category).Height
		if it.Category != st.Category {
			mismatched++
		}
	}
	st.FillHeight = height
	st.Mismatched = mismatched
}
