// Package recorder turns the live event stream into durable session results.
// It follows the event log from its own goroutine and never touches the
// simulation directly.
package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/session"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/engine"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/events"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/infra/storage"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/logger"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/metrics"
)

// SessionSource reports which session is currently running.
type SessionSource interface {
	State() session.State
	SessionID() string
}

// Worker follows the event log and upserts session summaries on start,
// on a checkpoint cadence, and on failure.
type Worker struct {
	eventLog      *events.EventLog
	source        SessionSource
	sessions      storage.SessionRepository
	reconstructor *storage.Reconstructor
	metrics       *metrics.Collector
	logger        *logger.Logger

	pollInterval       time.Duration
	checkpointInterval time.Duration

	lastProcessedEvent int
	done               chan struct{}
}

// NewWorker wires a recorder. Summaries are rebuilt from the in-memory log so
// they do not depend on the asynchronous persister having caught up.
func NewWorker(el *events.EventLog, source SessionSource, sessions storage.SessionRepository,
	collector *metrics.Collector, log *logger.Logger, pollInterval, checkpointInterval time.Duration) *Worker {
	if log == nil {
		log = logger.NewDiscard()
	}
	if pollInterval <= 0 {
		pollInterval = 200 * time.Millisecond
	}
	return &Worker{
		eventLog:           el,
		source:             source,
		sessions:           sessions,
		reconstructor:      storage.NewReconstructor(storage.NewLogEventRepository(el)),
		metrics:            collector,
		logger:             log,
		pollInterval:       pollInterval,
		checkpointInterval: checkpointInterval,
		done:               make(chan struct{}),
	}
}

// Start runs the follow loop until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Recorder initialized. Following the event log.")
	go w.loop(ctx)
}

// Wait blocks until a started worker has flushed and exited.
func (w *Worker) Wait() {
	<-w.done
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)
	poll := time.NewTicker(w.pollInterval)
	defer poll.Stop()

	// A nil channel never fires, which disables checkpoints
	var checkpoint <-chan time.Time
	if w.checkpointInterval > 0 {
		t := time.NewTicker(w.checkpointInterval)
		defer t.Stop()
		checkpoint = t.C
	}

	for {
		select {
		case <-ctx.Done():
			// Flush whatever was appended before shutdown
			w.ProcessPending(context.Background())
			w.logger.Info("Recorder stopped.")
			return
		case <-poll.C:
			w.ProcessPending(ctx)
		case <-checkpoint:
			if err := w.Checkpoint(ctx); err != nil {
				w.logger.Error("Recorder checkpoint failed: " + err.Error())
			}
		}
	}
}

// ProcessPending handles every event appended since the last call and
// returns how many were seen.
func (w *Worker) ProcessPending(ctx context.Context) int {
	batch, next := w.eventLog.Since(w.lastProcessedEvent)
	w.lastProcessedEvent = next

	for _, event := range batch {
		if event.Type != events.EventTypeStateChanged {
			continue
		}
		w.reactToStateChange(ctx, event)
	}
	return len(batch)
}

func (w *Worker) reactToStateChange(ctx context.Context, event events.GameEvent) {
	to, ok := targetState(event.Payload)
	if !ok {
		return
	}

	switch to {
	case session.StatePlaying:
		if w.metrics != nil {
			w.metrics.RecordSession(false)
		}
		if err := w.save(ctx, event.SessionID); err != nil {
			w.logger.Error("Recorder failed to open session: " + err.Error())
		}
	case session.StateFailed:
		if w.metrics != nil {
			w.metrics.RecordSession(true)
		}
		if err := w.save(ctx, event.SessionID); err != nil {
			w.logger.Error("Recorder failed to close session: " + err.Error())
			return
		}
		w.logger.Event("SESSION_RECORDED", "SYSTEM_RECORDER", event.SessionID)
	}
}

// Checkpoint upserts the running session, if any.
func (w *Worker) Checkpoint(ctx context.Context) error {
	if w.source == nil || w.source.State() != session.StatePlaying {
		return nil
	}
	return w.save(ctx, w.source.SessionID())
}

func (w *Worker) save(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	rec, err := w.reconstructor.RebuildSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("rebuild %s: %w", sessionID, err)
	}
	if w.sessions == nil {
		return nil
	}
	return w.sessions.Upsert(ctx, *rec)
}

// targetState reads the destination of a STATE_CHANGED payload.
func targetState(payload interface{}) (session.State, bool) {
	switch p := payload.(type) {
	case engine.StateChangedPayload:
		return p.To, true
	case map[string]interface{}:
		s, ok := p["to"].(string)
		return session.State(s), ok
	}
	return "", false
}
