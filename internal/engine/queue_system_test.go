package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/item"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/events"
)

func TestQueueNeverExceedsCapacity(t *testing.T) {
	r := newRig(t, quietConfig())
	a := r.place(t, item.CategoryBook, bookStack)
	b := r.place(t, item.CategoryComic, comicStack)
	c := r.place(t, item.CategoryGame, gameStack)

	require.True(t, r.queue.TryEnqueue(r.w, a))
	require.True(t, r.queue.TryEnqueue(r.w, b))
	assert.False(t, r.queue.TryEnqueue(r.w, c))

	assert.Equal(t, []item.ID{a, b}, r.w.queue)
	assert.Equal(t, 2, r.queue.Len(r.w))
	assert.Equal(t, item.LocationInStack, r.w.items[c].Location, "rejected item stays put")

	rejected := r.el.GetByType(events.EventTypeQueueRejected)
	require.Len(t, rejected, 1)
	assert.Equal(t, RejectQueueFull, rejected[0].Payload.(QueueRejectedPayload).Reason)
}

func TestEnqueueRejectsQueuedAndActive(t *testing.T) {
	r := newRig(t, quietConfig())
	a := r.place(t, item.CategoryBook, bookStack)

	require.True(t, r.queue.TryEnqueue(r.w, a))
	assert.False(t, r.queue.TryEnqueue(r.w, a))
	assert.Len(t, r.w.queue, 1)

	require.True(t, r.queue.DequeueIfSlotFree(r.w))
	assert.False(t, r.queue.TryEnqueue(r.w, a))
	assert.Empty(t, r.w.queue)

	assert.False(t, r.queue.TryEnqueue(r.w, 12345))

	var reasons []string
	for _, e := range r.el.GetByType(events.EventTypeQueueRejected) {
		reasons = append(reasons, e.Payload.(QueueRejectedPayload).Reason)
	}
	assert.Equal(t, []string{RejectQueued, RejectActive, RejectUnknown}, reasons)
}

func TestEnqueueDetachesFromStack(t *testing.T) {
	r := newRig(t, quietConfig())
	a := r.place(t, item.CategoryBook, bookStack)
	r.place(t, item.CategoryBook, bookStack)
	require.Equal(t, 34.0, r.w.stacks[bookStack].FillHeight)

	require.True(t, r.queue.TryEnqueue(r.w, a))
	assert.Equal(t, 17.0, r.w.stacks[bookStack].FillHeight)
	assert.NotContains(t, r.w.stacks[bookStack].Items, a)
}

func TestDequeueIsFIFOWithOneActive(t *testing.T) {
	r := newRig(t, quietConfig())
	a := r.place(t, item.CategoryComic, comicStack)
	b := r.place(t, item.CategoryMovie, movieStack)
	require.True(t, r.queue.TryEnqueue(r.w, a))
	require.True(t, r.queue.TryEnqueue(r.w, b))

	require.True(t, r.queue.DequeueIfSlotFree(r.w))
	resident, ok := r.active.Resident(r.w)
	require.True(t, ok)
	assert.Equal(t, a, resident)

	assert.False(t, r.queue.DequeueIfSlotFree(r.w), "slot busy")
	assert.Equal(t, []item.ID{b}, r.w.queue)

	r.active.Tick(r.w, r.w.catalog.ConsumeDuration(item.CategoryComic))
	require.True(t, r.queue.DequeueIfSlotFree(r.w))
	resident, _ = r.active.Resident(r.w)
	assert.Equal(t, b, resident)

	r.active.Tick(r.w, r.w.catalog.ConsumeDuration(item.CategoryMovie))
	assert.False(t, r.queue.DequeueIfSlotFree(r.w), "queue empty")
}
