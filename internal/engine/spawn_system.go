// Package engine - spawn_system.go
// Random Event Spawner: purchases, bulk bursts, flavor dialogs and the
// periodic free spawn.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/item"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/rules"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/events"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/logger"
)

// ErrNoFreeStack is returned when a spawn finds every stack full.
var ErrNoFreeStack = errors.New("engine: no free stack")

// spawnTable maps a uniform draw in [0,5) to a category. Movie takes two
// slots so it spawns twice as often as the others.
var spawnTable = [...]item.Category{
	item.CategoryBook,
	item.CategoryComic,
	item.CategoryGame,
	item.CategoryMovie,
	item.CategoryMovie,
}

// Dialogs are the flavor lines shown for each unit of a bulk purchase.
var Dialogs = []string{
	"Humble Bundle again...",
	"Got a gift card!",
	"Couldn't resist",
	"It wasn't on sale, but...",
	"I wanted to revist these.",
}

// Spawn causes.
const (
	SpawnCausePurchase = "PURCHASE"
	SpawnCauseBulk     = "BULK"
	SpawnCausePeriodic = "PERIODIC"
	SpawnCauseInitial  = "INITIAL"
	SpawnCauseManual   = "MANUAL"
)

// ItemSpawnedPayload is emitted for every item created.
type ItemSpawnedPayload struct {
	ItemID   item.ID       `json:"item_id"`
	Category item.Category `json:"category"`
	Variant  int           `json:"variant"`
	StackID  int           `json:"stack_id"`
	Cause    string        `json:"cause"`
}

// DialogShownPayload is emitted when a flavor line pops up.
type DialogShownPayload struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// PurchaseResult describes what one buy click produced.
type PurchaseResult struct {
	Bulk      bool `json:"bulk"`
	BurstSize int  `json:"burst_size"` // 1 for a single purchase
	Spawned   int  `json:"spawned"`
}

// SpawnSystem injects new items into the stacks.
type SpawnSystem struct {
	system
	stacks *StackSystem
	stress *StressSystem
}

// NewSpawnSystem creates the spawner.
func NewSpawnSystem(eventLog *events.EventLog, log *logger.Logger, stacks *StackSystem, stress *StressSystem) *SpawnSystem {
	return &SpawnSystem{
		system: system{eventLog: eventLog, logger: log},
		stacks: stacks,
		stress: stress,
	}
}

// SpawnOneRandomItem creates one item of a weighted random category and
// variant on a uniformly chosen non-full stack. Nothing is created and
// ErrNoFreeStack returned when every stack is full.
func (sp *SpawnSystem) SpawnOneRandomItem(w *World) (item.ID, error) {
	return sp.spawn(w, SpawnCauseManual)
}

func (sp *SpawnSystem) spawn(w *World, cause string) (item.ID, error) {
	free := sp.stacks.nonFull(w)
	if len(free) == 0 {
		return 0, ErrNoFreeStack
	}

	cat := spawnTable[w.rng.IntN(len(spawnTable))]
	variant := 0
	if n := w.catalog.VariantCount(cat); n > 0 {
		variant = w.rng.IntN(n)
	}
	stackID := free[w.rng.IntN(len(free))]

	it := w.newItem(cat, variant)
	sp.stacks.AddItem(w, stackID, it.ID)

	sp.emit(w, events.EventTypeItemSpawned, ActorSpawner, itemTarget(it.ID), ItemSpawnedPayload{
		ItemID:   it.ID,
		Category: cat,
		Variant:  variant,
		StackID:  stackID,
		Cause:    cause,
	})
	return it.ID, nil
}

// TriggerPurchaseEvent handles a buy click. One roll in ten becomes a bulk
// event of BulkMin..BulkMax units, each showing a dialog; bursts stop early
// when the stacks fill up. Relief and the acted-today mark apply only if
// something spawned.
func (sp *SpawnSystem) TriggerPurchaseEvent(w *World) PurchaseResult {
	result := PurchaseResult{BurstSize: 1}

	if w.rng.Float64() < w.cfg.BulkChance {
		result.Bulk = true
		result.BurstSize = w.cfg.BulkMin + w.rng.IntN(w.cfg.BulkMax-w.cfg.BulkMin+1)
		for i := 0; i < result.BurstSize; i++ {
			sp.showDialog(w)
			if _, err := sp.spawn(w, SpawnCauseBulk); err != nil {
				break
			}
			result.Spawned++
		}
	} else if _, err := sp.spawn(w, SpawnCausePurchase); err == nil {
		result.Spawned = 1
	}

	if result.Spawned > 0 {
		sp.stress.ApplyDelta(w, rules.PurchaseRelief, CausePurchase, w.cfg.Layout.BuyButton)
		w.actedToday = true
	}

	sp.emit(w, events.EventTypePurchase, ActorPlayer, w.sessionID, result)
	sp.logger.Event(string(events.EventTypePurchase), ActorPlayer,
		fmt.Sprintf("bulk:%t burst:%d spawned:%d", result.Bulk, result.BurstSize, result.Spawned))
	return result
}

// TickPeriodic spawns one free item every SpawnInterval.
func (sp *SpawnSystem) TickPeriodic(w *World, dt time.Duration) int {
	if w.cfg.SpawnInterval <= 0 {
		return 0
	}
	w.spawnElapsed += dt
	spawned := 0
	for w.spawnElapsed >= w.cfg.SpawnInterval {
		w.spawnElapsed -= w.cfg.SpawnInterval
		if _, err := sp.spawn(w, SpawnCausePeriodic); err == nil {
			spawned++
		}
	}
	return spawned
}

// Seed fills a fresh world with its starting items.
func (sp *SpawnSystem) Seed(w *World, n int) int {
	spawned := 0
	for i := 0; i < n; i++ {
		if _, err := sp.spawn(w, SpawnCauseInitial); err != nil {
			break
		}
		spawned++
	}
	return spawned
}

// DismissDialog clears the flavor line on screen.
func (sp *SpawnSystem) DismissDialog(w *World) bool {
	if w.dialog == "" {
		return false
	}
	w.dialog = ""
	return true
}

func (sp *SpawnSystem) showDialog(w *World) {
	idx := w.rng.IntN(len(Dialogs))
	w.dialog = Dialogs[idx]
	sp.emit(w, events.EventTypeDialogShown, ActorSpawner, w.sessionID, DialogShownPayload{
		Index: idx,
		Text:  w.dialog,
	})
}
