package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/item"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/rules"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/session"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/events"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/logger"
)

// Stack ids follow item.Categories order.
const (
	bookStack  = 0
	comicStack = 1
	gameStack  = 2
	movieStack = 3
)

// quietConfig turns off everything that happens on its own.
func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 42
	cfg.InitialItems = 0
	cfg.SpawnInterval = 0
	cfg.DayLength = time.Hour
	return cfg
}

// rig wires every system around one playing world.
type rig struct {
	el     *events.EventLog
	w      *World
	stacks *StackSystem
	queue  *QueueSystem
	active *ActiveSystem
	stress *StressSystem
	spawn  *SpawnSystem
}

func newRig(t *testing.T, cfg Config) *rig {
	t.Helper()
	cfg = cfg.withDefaults()
	el := events.NewEventLog(nil)
	log := logger.NewDiscard()

	w := newWorld(cfg, item.DefaultCatalog(), cfg.Seed, "test-session")
	w.state = session.StatePlaying
	w.stress = rules.InitialStress

	stacks := NewStackSystem(el, log)
	stress := NewStressSystem(el, log)
	return &rig{
		el:     el,
		w:      w,
		stacks: stacks,
		queue:  NewQueueSystem(el, log, stacks),
		active: NewActiveSystem(el, log, stress),
		stress: stress,
		spawn:  NewSpawnSystem(el, log, stacks, stress),
	}
}

// place creates an item of cat directly on a stack.
func (r *rig) place(t *testing.T, cat item.Category, stackID int) item.ID {
	t.Helper()
	it := r.w.newItem(cat, 0)
	require.True(t, r.stacks.AddItem(r.w, stackID, it.ID))
	return it.ID
}

// fill stacks items of the stack's own category until it is full.
func (r *rig) fill(t *testing.T, stackID int) {
	t.Helper()
	st := r.w.stacks[stackID]
	for !r.stacks.IsFull(r.w, stackID) {
		r.place(t, st.Category, stackID)
	}
}

func (r *rig) count(t events.EventType) int {
	return len(r.el.GetByType(t))
}

func (r *rig) expectedHeight(st *Stack) float64 {
	h := 0.0
	for _, id := range st.Items {
		h += r.w.catalog.SizeOf(r.w.items[id].Category).Height
	}
	return h
}
