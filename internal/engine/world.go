package engine

import (
	"math/rand/v2"
	"time"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/item"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/session"
)

// Stack is a per-category pile of item ids.
type Stack struct {
	ID         int
	Category   item.Category
	Items      []item.ID
	FillHeight float64
	Mismatched int // Members whose category differs from the stack's
	Origin     item.Point
}

// activeSlot is the single consumption process.
type activeSlot struct {
	itemID   item.ID
	occupied bool
	elapsed  time.Duration
	duration time.Duration
}

// World is the simulation context of one session. It is owned by the Engine
// and handed to every system call; nothing else holds a reference to it.
type World struct {
	cfg     Config
	catalog *item.Catalog
	rng     *rand.Rand
	seed    uint64

	sessionID string
	state     session.State
	startedAt time.Time

	items  map[item.ID]*item.Item
	nextID item.ID

	stacks []*Stack
	queue  []item.ID
	active activeSlot

	stress       float64
	stackPenalty float64
	actedToday   bool
	day          int
	dayElapsed   time.Duration
	spawnElapsed time.Duration
	elapsed      time.Duration

	tally  *Tally
	dialog string
}

// newWorld builds an empty context with one stack per category.
func newWorld(cfg Config, catalog *item.Catalog, seed uint64, sessionID string) *World {
	w := &World{
		cfg:       cfg,
		catalog:   catalog,
		rng:       newRNG(seed),
		seed:      seed,
		sessionID: sessionID,
		state:     session.StateStartScreen,
		items:     make(map[item.ID]*item.Item),
		nextID:    1,
		day:       1,
		tally:     NewTally(),
	}
	for i, cat := range item.Categories() {
		w.stacks = append(w.stacks, &Stack{
			ID:       i,
			Category: cat,
			Origin:   cfg.Layout.StackOrigins[cat],
		})
	}
	return w
}

func (w *World) item(id item.ID) (*item.Item, bool) {
	it, ok := w.items[id]
	return it, ok
}

func (w *World) stack(id int) (*Stack, bool) {
	if id < 0 || id >= len(w.stacks) {
		return nil, false
	}
	return w.stacks[id], true
}

// stackFor returns the stack whose nominal category is cat.
func (w *World) stackFor(cat item.Category) *Stack {
	for _, st := range w.stacks {
		if st.Category == cat {
			return st
		}
	}
	return nil
}

// newItem allocates an arena entry. The caller places it somewhere.
func (w *World) newItem(cat item.Category, variant int) *item.Item {
	it := &item.Item{
		ID:       w.nextID,
		Category: cat,
		Variant:  variant,
		Location: item.LocationLoose,
		StackID:  -1,
	}
	w.items[it.ID] = it
	w.nextID++
	return it
}

func (w *World) destroy(id item.ID) {
	delete(w.items, id)
}
