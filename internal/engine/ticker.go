// Package engine contains the game loop and simulation logic.
// This is the heartbeat of "Backlog Breakdown".
//
// ARCHITECTURAL RULE: systems never hold the world. The Engine owns it and
// hands it to each system call in a fixed order, one tick at a time.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/logger"
)

// TickRate is the default real-time frame period.
const TickRate = 50 * time.Millisecond

// StepFunc advances the simulation by the elapsed wall time.
type StepFunc func(dt time.Duration)

// Ticker drives the simulation from the wall clock.
// It does NOT know about stacks or stress - only time progression.
type Ticker struct {
	step     StepFunc
	logger   *logger.Logger
	rate     time.Duration
	frame    int64
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTicker creates a new frame clock.
func NewTicker(step StepFunc, rate time.Duration, log *logger.Logger) *Ticker {
	if rate <= 0 {
		rate = TickRate
	}
	return &Ticker{
		step:     step,
		logger:   log,
		rate:     rate,
		stopChan: make(chan struct{}),
	}
}

// Start begins the game loop. Blocks until ctx ends or Stop is called.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Info("Engine Ticker started. The backlog grows...")

	ticker := time.NewTicker(t.rate)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Engine Ticker stopped by context.")
			return
		case <-t.stopChan:
			t.logger.Info("Engine Ticker stopped manually.")
			return
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			atomic.AddInt64(&t.frame, 1)
			t.step(dt)
		}
	}
}

// Stop gracefully stops the ticker. Safe to call more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

// GetFrame returns the number of frames driven so far.
func (t *Ticker) GetFrame() int64 {
	return atomic.LoadInt64(&t.frame)
}
