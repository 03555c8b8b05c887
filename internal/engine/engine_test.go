package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/item"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/session"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/events"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/logger"
)

func newTestEngine(t *testing.T, cfg Config) (*Engine, *events.EventLog) {
	t.Helper()
	el := events.NewEventLog(nil)
	return NewEngine(cfg, nil, el, logger.NewDiscard()), el
}

func TestBookScenario(t *testing.T) {
	e, _ := newTestEngine(t, quietConfig())
	_, err := e.StartSession()
	require.NoError(t, err)

	// Spawn one Book onto the Book stack
	book := e.world.newItem(item.CategoryBook, 0)
	require.True(t, e.stackSystem.AddItem(e.world, bookStack, book.ID))
	snap := e.Snapshot()
	assert.Equal(t, 10.0, snap.Stress)
	assert.Equal(t, 17.0, snap.Stacks[bookStack].Height)

	require.True(t, e.TryEnqueue(book.ID))
	snap = e.Snapshot()
	require.Len(t, snap.Queue, 1)
	assert.Empty(t, snap.Stacks[bookStack].Items)

	e.Step(0)
	snap = e.Snapshot()
	require.NotNil(t, snap.Active)
	assert.Equal(t, book.ID, snap.Active.Item.ID)
	assert.Empty(t, snap.Queue)

	e.Step(5 * time.Second)
	snap = e.Snapshot()
	assert.Nil(t, snap.Active)
	assert.Equal(t, 1, snap.Tally.Total)
	assert.Equal(t, 1, snap.Tally.Books)
	assert.Equal(t, 9.0, snap.Stress)
}

func TestStepWaitsForPlaying(t *testing.T) {
	cfg := quietConfig()
	cfg.SpawnInterval = time.Second
	e, el := newTestEngine(t, cfg)

	e.Step(10 * time.Second)
	assert.Equal(t, session.StateStartScreen, e.State())
	assert.Equal(t, 0, el.Len())

	_, err := e.Purchase()
	assert.ErrorIs(t, err, ErrNotPlaying)
	assert.False(t, e.TryEnqueue(1))
}

func TestSessionLifecycle(t *testing.T) {
	e, el := newTestEngine(t, quietConfig())

	_, err := e.Restart()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	first, err := e.StartSession()
	require.NoError(t, err)
	assert.Equal(t, first, e.SessionID())
	assert.Equal(t, session.StatePlaying, e.State())

	_, err = e.StartSession()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.True(t, e.ForceFail())
	assert.False(t, e.ForceFail())
	assert.Equal(t, session.StateFailed, e.State())
	_, err = e.Purchase()
	assert.ErrorIs(t, err, ErrNotPlaying)

	second, err := e.Restart()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	snap := e.Snapshot()
	assert.Equal(t, session.StatePlaying, snap.State)
	assert.Equal(t, 10.0, snap.Stress)
	assert.Equal(t, 1, snap.Day)

	var causes []string
	for _, ev := range el.GetByType(events.EventTypeStateChanged) {
		causes = append(causes, ev.Payload.(StateChangedPayload).Cause)
	}
	assert.Equal(t, []string{"START", "FORCED", "RESTART"}, causes)
}

func TestFailureIsCheckedOnTick(t *testing.T) {
	e, _ := newTestEngine(t, quietConfig())
	_, err := e.StartSession()
	require.NoError(t, err)

	e.mu.Lock()
	e.world.stress = 98
	e.stressSystem.ApplyDelta(e.world, 5, CauseDayEnd, item.Point{})
	e.mu.Unlock()
	assert.Equal(t, session.StatePlaying, e.State(), "evaluated on the next tick")

	e.Step(10 * time.Millisecond)
	assert.Equal(t, session.StateFailed, e.State())
	assert.Equal(t, 103.0, e.Snapshot().Stress)
}

func TestRejectedQueueDropIsRestacked(t *testing.T) {
	e, _ := newTestEngine(t, quietConfig())
	_, err := e.StartSession()
	require.NoError(t, err)

	var ids []item.ID
	for i := 0; i < 3; i++ {
		id, err := e.SpawnRandom()
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.True(t, e.TryEnqueue(ids[0]))
	require.True(t, e.TryEnqueue(ids[1]))

	require.True(t, e.BeginDrag(ids[2]))
	assert.False(t, e.DropOnQueue(ids[2]))
	snap := e.Snapshot()
	assert.Empty(t, snap.Dragging)

	e.Step(0)
	found := false
	for _, st := range e.Snapshot().Stacks {
		for _, it := range st.Items {
			if it.ID == ids[2] {
				found = true
			}
		}
	}
	assert.True(t, found, "loose item back on a stack after one tick")
}

func TestDropOnStack(t *testing.T) {
	e, _ := newTestEngine(t, quietConfig())
	_, err := e.StartSession()
	require.NoError(t, err)

	id, err := e.SpawnRandom()
	require.NoError(t, err)
	require.True(t, e.BeginDrag(id))
	require.Len(t, e.Snapshot().Dragging, 1)

	placed, err := e.DropOnStack(id, gameStack)
	require.NoError(t, err)
	assert.Equal(t, gameStack, placed)
	assert.Empty(t, e.Snapshot().Dragging)
}

func TestInitialItemsAreDeterministic(t *testing.T) {
	cfg := quietConfig()
	cfg.InitialItems = 6

	layout := func() [][]item.Category {
		e, el := newTestEngine(t, cfg)
		_, err := e.StartSession()
		require.NoError(t, err)
		assert.Len(t, el.GetByType(events.EventTypeItemSpawned), 6)

		var out [][]item.Category
		for _, st := range e.Snapshot().Stacks {
			var cats []item.Category
			for _, it := range st.Items {
				cats = append(cats, it.Category)
			}
			out = append(out, cats)
		}
		return out
	}

	a, b := layout(), layout()
	assert.Equal(t, a, b)
	total := 0
	for _, cats := range a {
		total += len(cats)
	}
	assert.Equal(t, 6, total)
}

func TestSnapshotPositions(t *testing.T) {
	e, _ := newTestEngine(t, quietConfig())
	_, err := e.StartSession()
	require.NoError(t, err)

	e.mu.Lock()
	a := e.world.newItem(item.CategoryBook, 0)
	b := e.world.newItem(item.CategoryComic, 0)
	e.stackSystem.AddItem(e.world, bookStack, a.ID)
	e.stackSystem.AddItem(e.world, bookStack, b.ID)
	e.mu.Unlock()

	snap := e.Snapshot()
	origin := e.cfg.Layout.StackOrigins[item.CategoryBook]
	items := snap.Stacks[bookStack].Items
	require.Len(t, items, 2)
	assert.Equal(t, item.Point{X: origin.X, Y: origin.Y + 8.5}, items[0].Position)
	assert.Equal(t, item.Point{X: origin.X, Y: origin.Y + 17 + 4.5}, items[1].Position)
	assert.True(t, snap.Stacks[bookStack].Mismatched)

	require.True(t, e.TryEnqueue(a.ID))
	require.True(t, e.TryEnqueue(b.ID))
	snap = e.Snapshot()
	l := e.cfg.Layout
	assert.Equal(t, item.Point{X: l.QueueOrigin.X - 125, Y: l.QueueOrigin.Y}, snap.Queue[0].Position)
	assert.Equal(t, item.Point{X: l.QueueOrigin.X - 75, Y: l.QueueOrigin.Y}, snap.Queue[1].Position)
}

func TestTickerDrivesStep(t *testing.T) {
	var frames int64
	ticker := NewTicker(func(dt time.Duration) {
		atomic.AddInt64(&frames, 1)
	}, 5*time.Millisecond, logger.NewDiscard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ticker.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt64(&frames) >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	ticker.Stop()
	ticker.Stop()
	assert.GreaterOrEqual(t, ticker.GetFrame(), int64(3))
}

func TestPartialConfigDefaults(t *testing.T) {
	cfg := Config{Seed: 4}.withDefaults()
	def := DefaultConfig()
	assert.Equal(t, def.MaxStackHeight, cfg.MaxStackHeight)
	assert.Equal(t, def.BulkMin, cfg.BulkMin)
	assert.Zero(t, cfg.BulkChance, "zero keeps bulk events off")

	assert.Equal(t, 1.0, Config{BulkChance: 3}.withDefaults().BulkChance)
	assert.Zero(t, Config{BulkChance: -1}.withDefaults().BulkChance)
}
