package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/item"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/rules"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/session"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/events"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/logger"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/metrics"
)

var (
	// ErrNotPlaying is returned by operations that need a running session.
	ErrNotPlaying = errors.New("engine: session is not playing")
	// ErrInvalidTransition is returned for lifecycle requests the current state forbids.
	ErrInvalidTransition = errors.New("engine: invalid session transition")
)

// Engine is the central orchestrator. It owns the simulation context and
// serializes every mutation, ticks and player input alike, behind one lock.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	catalog  *item.Catalog
	eventLog *events.EventLog
	logger   *logger.Logger
	ticker   *Ticker

	// Sub-systems
	stackSystem  *StackSystem
	queueSystem  *QueueSystem
	activeSystem *ActiveSystem
	stressSystem *StressSystem
	spawnSystem  *SpawnSystem

	// State
	world    *World
	sessions int
}

// NewEngine initializes the core game systems. A nil catalog means the
// built-in one. The engine starts on the start screen.
func NewEngine(cfg Config, catalog *item.Catalog, eventLog *events.EventLog, log *logger.Logger) *Engine {
	cfg = cfg.withDefaults()
	if catalog == nil {
		catalog = item.DefaultCatalog()
	}
	if log == nil {
		log = logger.NewDiscard()
	}

	stacks := NewStackSystem(eventLog, log)
	stress := NewStressSystem(eventLog, log)
	e := &Engine{
		cfg:      cfg,
		catalog:  catalog,
		eventLog: eventLog,
		logger:   log,

		stackSystem:  stacks,
		queueSystem:  NewQueueSystem(eventLog, log, stacks),
		activeSystem: NewActiveSystem(eventLog, log, stress),
		stressSystem: stress,
		spawnSystem:  NewSpawnSystem(eventLog, log, stacks, stress),
	}
	e.world = newWorld(cfg, catalog, resolveSeed(cfg.Seed), "")
	e.ticker = NewTicker(e.Step, cfg.TickRate, log)
	return e
}

// Start runs the real-time clock until ctx ends. Call in a goroutine.
func (e *Engine) Start(ctx context.Context) {
	e.logger.Info("Starting backlog simulation engine...")
	e.ticker.Start(ctx)
}

// Stop halts the clock.
func (e *Engine) Stop() {
	e.ticker.Stop()
}

// Step advances a playing session by dt in the fixed system order.
func (e *Engine) Step(dt time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w := e.world
	if w.state != session.StatePlaying {
		return
	}
	start := time.Now()

	// Order matters: promotion sees this tick's restack, failure sees this tick's stress
	syncLayout(w)
	e.stackSystem.RecomputeHeights(w)
	e.stackSystem.Restack(w)
	e.queueSystem.DequeueIfSlotFree(w)
	e.activeSystem.Tick(w, dt)
	e.stackSystem.RecomputePenalty(w)
	e.stressSystem.TickDay(w, dt)
	e.spawnSystem.TickPeriodic(w, dt)
	e.stressSystem.CheckFailure(w)
	w.elapsed += dt

	metrics.Get().RecordTick(time.Since(start))
}

// StartSession leaves the start screen with a fresh world.
func (e *Engine) StartSession() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.world.state != session.StateStartScreen {
		return "", fmt.Errorf("start session from %s: %w", e.world.state, ErrInvalidTransition)
	}
	return e.newSession("START"), nil
}

// Restart throws the current world away and plays a new one.
func (e *Engine) Restart() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.world.state == session.StateStartScreen {
		return "", fmt.Errorf("restart from %s: %w", e.world.state, ErrInvalidTransition)
	}
	return e.newSession("RESTART"), nil
}

// ForceFail ends a playing session immediately.
func (e *Engine) ForceFail() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.world.state != session.StatePlaying {
		return false
	}
	return e.stressSystem.transition(e.world, session.StateFailed, "FORCED")
}

// newSession builds and enters a fresh world. Caller holds the lock.
func (e *Engine) newSession(cause string) string {
	e.sessions++
	seed := resolveSeed(e.cfg.Seed)
	if e.cfg.Seed != 0 {
		seed += uint64(e.sessions - 1)
	}

	w := newWorld(e.cfg, e.catalog, seed, uuid.New().String())
	w.stress = rules.InitialStress
	w.startedAt = time.Now()
	w.state = e.world.state
	e.world = w

	e.stressSystem.transition(w, session.StatePlaying, cause)
	e.spawnSystem.Seed(w, e.cfg.InitialItems)
	syncLayout(w)
	return w.sessionID
}

// playing runs fn on the world when a session is in progress.
func (e *Engine) playing(fn func(w *World)) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.world.state != session.StatePlaying {
		return false
	}
	fn(e.world)
	return true
}

// TryEnqueue moves an item into the queue.
func (e *Engine) TryEnqueue(id item.ID) bool {
	ok := false
	e.playing(func(w *World) { ok = e.queueSystem.TryEnqueue(w, id) })
	return ok
}

// AddItem puts an item on a specific stack.
func (e *Engine) AddItem(stackID int, id item.ID) bool {
	ok := false
	e.playing(func(w *World) { ok = e.stackSystem.AddItem(w, stackID, id) })
	return ok
}

// RemoveItem takes an item off its stack.
func (e *Engine) RemoveItem(id item.ID) bool {
	ok := false
	e.playing(func(w *World) { ok = e.stackSystem.RemoveItem(w, id) })
	return ok
}

// BeginDrag picks an item up.
func (e *Engine) BeginDrag(id item.ID) bool {
	ok := false
	e.playing(func(w *World) { ok = e.stackSystem.BeginDrag(w, id) })
	return ok
}

// DropOnStack releases a held item over a stack, overflowing when it is full.
func (e *Engine) DropOnStack(id item.ID, stackID int) (int, error) {
	placed, err := -1, ErrNotPlaying
	e.playing(func(w *World) { placed, err = e.stackSystem.AddToStackOrOverflow(w, stackID, id) })
	return placed, err
}

// DropOnQueue releases a held item over the queue. A rejected drop leaves
// the item loose so the next tick restacks it.
func (e *Engine) DropOnQueue(id item.ID) bool {
	ok := false
	e.playing(func(w *World) {
		ok = e.queueSystem.TryEnqueue(w, id)
		if !ok {
			e.stackSystem.CancelDrag(w, id)
		}
	})
	return ok
}

// CancelDrag releases a held item anywhere else.
func (e *Engine) CancelDrag(id item.ID) bool {
	ok := false
	e.playing(func(w *World) { ok = e.stackSystem.CancelDrag(w, id) })
	return ok
}

// Purchase handles a buy click.
func (e *Engine) Purchase() (PurchaseResult, error) {
	var res PurchaseResult
	if !e.playing(func(w *World) { res = e.spawnSystem.TriggerPurchaseEvent(w) }) {
		return res, ErrNotPlaying
	}
	return res, nil
}

// SpawnRandom spawns one item without any stress effect.
func (e *Engine) SpawnRandom() (item.ID, error) {
	var id item.ID
	err := ErrNotPlaying
	e.playing(func(w *World) { id, err = e.spawnSystem.SpawnOneRandomItem(w) })
	return id, err
}

// DismissDialog clears the flavor line.
func (e *Engine) DismissDialog() bool {
	ok := false
	e.playing(func(w *World) { ok = e.spawnSystem.DismissDialog(w) })
	return ok
}

// Snapshot returns a copy of the world with fresh layout positions.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	syncLayout(e.world)
	return buildSnapshot(e.world, e.activeSystem)
}

// State returns the session state.
func (e *Engine) State() session.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.world.state
}

// SessionID returns the id of the current session, empty before the first start.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.world.sessionID
}

// Config returns the settings the engine runs with.
func (e *Engine) Config() Config {
	return e.cfg
}

// Catalog returns the item catalog in use.
func (e *Engine) Catalog() *item.Catalog {
	return e.catalog
}

// GetEventLog exposes the event log for network bridges and workers.
func (e *Engine) GetEventLog() *events.EventLog {
	return e.eventLog
}

// GetFrame returns how many frames the clock has driven.
func (e *Engine) GetFrame() int64 {
	return e.ticker.GetFrame()
}
