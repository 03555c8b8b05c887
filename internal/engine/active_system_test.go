package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/item"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/events"
)

func activate(t *testing.T, r *rig, cat item.Category, stackID int) item.ID {
	t.Helper()
	id := r.place(t, cat, stackID)
	require.True(t, r.queue.TryEnqueue(r.w, id))
	require.True(t, r.queue.DequeueIfSlotFree(r.w))
	return id
}

func TestConsumptionCompletesExactlyOnce(t *testing.T) {
	r := newRig(t, quietConfig())
	id := activate(t, r, item.CategoryComic, comicStack)

	assert.False(t, r.active.Tick(r.w, 2*time.Second))
	assert.True(t, r.active.Tick(r.w, time.Second))
	assert.False(t, r.active.Tick(r.w, time.Second))
	assert.False(t, r.active.Tick(r.w, 10*time.Second))

	assert.Equal(t, 1, r.w.tally.Total)
	assert.Equal(t, 1, r.w.tally.Comics)
	assert.Equal(t, 1, r.count(events.EventTypeItemConsumed))
	_, exists := r.w.items[id]
	assert.False(t, exists, "consumed item is destroyed")
	_, busy := r.active.Resident(r.w)
	assert.False(t, busy)
}

func TestFractionRemaining(t *testing.T) {
	r := newRig(t, quietConfig())
	assert.Equal(t, 0.0, r.active.FractionRemaining(r.w), "empty slot")

	activate(t, r, item.CategoryBook, bookStack)
	assert.Equal(t, 1.0, r.active.FractionRemaining(r.w))

	r.active.Tick(r.w, 2500*time.Millisecond)
	assert.InDelta(t, 0.5, r.active.FractionRemaining(r.w), 1e-9)

	r.active.Tick(r.w, 2500*time.Millisecond)
	assert.Equal(t, 0.0, r.active.FractionRemaining(r.w))
}

func TestConsumptionAtZeroStressReportsNoRelief(t *testing.T) {
	r := newRig(t, quietConfig())
	r.w.stress = 0
	activate(t, r, item.CategoryMovie, movieStack)

	require.True(t, r.active.Tick(r.w, 4*time.Second))
	assert.Equal(t, 0.0, r.w.stress)
	assert.Equal(t, 0, r.count(events.EventTypeStressChange))

	consumed := r.el.GetByType(events.EventTypeItemConsumed)
	require.Len(t, consumed, 1)
	payload := consumed[0].Payload.(ItemConsumedPayload)
	assert.Equal(t, 0.0, payload.StressDelta)
	assert.Equal(t, item.CategoryMovie, payload.Category)
	assert.Equal(t, r.w.cfg.Layout.ActiveSlot, payload.Origin)
}
