package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/item"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/events"
)

func TestSpawnIntoFullStacksSignalsNoFreeStack(t *testing.T) {
	r := newRig(t, quietConfig())
	for id := range r.w.stacks {
		r.fill(t, id)
	}
	before := len(r.w.items)
	spawnedBefore := r.count(events.EventTypeItemSpawned)

	_, err := r.spawn.SpawnOneRandomItem(r.w)
	assert.ErrorIs(t, err, ErrNoFreeStack)
	assert.Len(t, r.w.items, before)
	assert.Equal(t, spawnedBefore, r.count(events.EventTypeItemSpawned))
}

func TestSpawnWeightsMovieDouble(t *testing.T) {
	cfg := quietConfig()
	cfg.MaxStackHeight = 1e9
	r := newRig(t, cfg)

	counts := map[item.Category]int{}
	for i := 0; i < 10000; i++ {
		id, err := r.spawn.SpawnOneRandomItem(r.w)
		require.NoError(t, err)
		it := r.w.items[id]
		counts[it.Category]++
		assert.Less(t, it.Variant, r.w.catalog.VariantCount(it.Category))
	}

	for _, cat := range []item.Category{item.CategoryBook, item.CategoryComic, item.CategoryGame} {
		assert.InDelta(t, 2000, counts[cat], 200, "category %s", cat)
	}
	assert.InDelta(t, 4000, counts[item.CategoryMovie], 250)
}

func TestSameSeedSameSpawns(t *testing.T) {
	type spawn struct {
		cat     item.Category
		variant int
		stack   int
	}
	run := func() []spawn {
		r := newRig(t, quietConfig())
		var out []spawn
		for i := 0; i < 20; i++ {
			id, err := r.spawn.SpawnOneRandomItem(r.w)
			require.NoError(t, err)
			it := r.w.items[id]
			out = append(out, spawn{it.Category, it.Variant, it.StackID})
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestBulkPurchaseSpawnsWholeBurst(t *testing.T) {
	cfg := quietConfig()
	cfg.BulkChance = 1
	r := newRig(t, cfg)

	res := r.spawn.TriggerPurchaseEvent(r.w)

	assert.True(t, res.Bulk)
	assert.GreaterOrEqual(t, res.BurstSize, 4)
	assert.LessOrEqual(t, res.BurstSize, 8)
	assert.Equal(t, res.BurstSize, res.Spawned)
	assert.Len(t, r.w.items, res.Spawned)
	assert.Equal(t, res.BurstSize, r.count(events.EventTypeDialogShown))
	assert.Contains(t, Dialogs, r.w.dialog)
	assert.Equal(t, 9.0, r.w.stress)
	assert.True(t, r.w.actedToday)

	purchases := r.el.GetByType(events.EventTypePurchase)
	require.Len(t, purchases, 1)
	assert.Equal(t, res, purchases[0].Payload)
}

func TestBulkPurchaseStopsWhenStacksFill(t *testing.T) {
	cfg := quietConfig()
	cfg.BulkChance = 1
	cfg.MaxStackHeight = 36
	r := newRig(t, cfg)

	// Comics sit exactly at the limit; every other stack is over it
	for i := 0; i < 4; i++ {
		r.place(t, item.CategoryComic, comicStack)
	}
	r.fill(t, bookStack)
	r.fill(t, gameStack)
	r.fill(t, movieStack)
	require.False(t, r.stacks.IsFull(r.w, comicStack))

	res := r.spawn.TriggerPurchaseEvent(r.w)

	assert.True(t, res.Bulk)
	assert.Equal(t, 1, res.Spawned)
	assert.Less(t, res.Spawned, res.BurstSize)
	assert.Equal(t, 9.0, r.w.stress)
	assert.True(t, r.w.actedToday)
	assert.Equal(t, 2, r.count(events.EventTypeDialogShown), "dialog shown for the failing unit too")
}

func TestBulkPurchaseWithNoRoomChangesNothing(t *testing.T) {
	cfg := quietConfig()
	cfg.BulkChance = 1
	r := newRig(t, cfg)
	for id := range r.w.stacks {
		r.fill(t, id)
	}

	res := r.spawn.TriggerPurchaseEvent(r.w)

	assert.True(t, res.Bulk)
	assert.Equal(t, 0, res.Spawned)
	assert.Equal(t, 10.0, r.w.stress)
	assert.False(t, r.w.actedToday)
	assert.Equal(t, 0, r.count(events.EventTypeStressChange))
}

func TestSinglePurchase(t *testing.T) {
	cfg := quietConfig()
	cfg.BulkChance = 0
	r := newRig(t, cfg)

	res := r.spawn.TriggerPurchaseEvent(r.w)
	assert.Equal(t, PurchaseResult{Bulk: false, BurstSize: 1, Spawned: 1}, res)
	assert.Equal(t, 9.0, r.w.stress)
	assert.Equal(t, 0, r.count(events.EventTypeDialogShown))

	stress := r.el.GetByType(events.EventTypeStressChange)[0].Payload.(StressChangePayload)
	assert.Equal(t, CausePurchase, stress.Cause)
	assert.Equal(t, r.w.cfg.Layout.BuyButton, stress.Origin)
}

func TestPeriodicSpawn(t *testing.T) {
	cfg := quietConfig()
	cfg.SpawnInterval = 8 * time.Second
	r := newRig(t, cfg)

	assert.Equal(t, 0, r.spawn.TickPeriodic(r.w, 7*time.Second))
	assert.Equal(t, 1, r.spawn.TickPeriodic(r.w, time.Second))
	assert.Equal(t, 2, r.spawn.TickPeriodic(r.w, 16*time.Second))
	assert.Len(t, r.w.items, 3)
	assert.Equal(t, 10.0, r.w.stress, "free spawns carry no stress")
}

func TestDismissDialog(t *testing.T) {
	r := newRig(t, quietConfig())
	assert.False(t, r.spawn.DismissDialog(r.w))

	r.w.dialog = Dialogs[1]
	assert.True(t, r.spawn.DismissDialog(r.w))
	assert.Empty(t, r.w.dialog)
}
