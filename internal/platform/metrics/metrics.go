// Package metrics provides observability for the game server.
// Collected with atomics so the tick never waits on a scrape.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance and gameplay metrics.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Event metrics
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// Gameplay metrics
	ItemsSpawned    int64
	ItemsConsumed   int64
	Purchases       int64
	BulkEvents      int64
	SessionsStarted int64
	SessionsFailed  int64
	gameEvents      map[string]int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = New()

// New returns an empty collector. Tests use their own instead of the global.
func New() *Collector {
	return &Collector{
		StartTime:  time.Now(),
		gameEvents: make(map[string]int64),
	}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordTick records a tick cycle completion.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.TickLatencyMax) {
		atomic.StoreInt64(&c.TickLatencyMax, int64(latency))
	}

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordEventWrite records an event write to the database.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))

	if int64(latency) > atomic.LoadInt64(&c.EventWriteLatMax) {
		atomic.StoreInt64(&c.EventWriteLatMax, int64(latency))
	}

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// RecordGameEvent counts one simulation event by type.
func (c *Collector) RecordGameEvent(eventType string) {
	switch eventType {
	case "ITEM_SPAWNED":
		atomic.AddInt64(&c.ItemsSpawned, 1)
	case "ITEM_CONSUMED":
		atomic.AddInt64(&c.ItemsConsumed, 1)
	case "PURCHASE":
		atomic.AddInt64(&c.Purchases, 1)
	}

	c.mu.Lock()
	c.gameEvents[eventType]++
	c.mu.Unlock()
}

// RecordPurchase counts a purchase outcome.
func (c *Collector) RecordPurchase(bulk bool) {
	if bulk {
		atomic.AddInt64(&c.BulkEvents, 1)
	}
}

// RecordSession counts session starts and failures.
func (c *Collector) RecordSession(failed bool) {
	if failed {
		atomic.AddInt64(&c.SessionsFailed, 1)
	} else {
		atomic.AddInt64(&c.SessionsStarted, 1)
	}
}

// EventCount returns how many events of a type were recorded.
func (c *Collector) EventCount(eventType string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gameEvents[eventType]
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)

	// Calculate averages
	var tickAvg, eventAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6
	}

	byType := make(map[string]int64, len(c.gameEvents))
	for k, v := range c.gameEvents {
		byType[k] = v
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      c.LastTickTime.Format(time.RFC3339),
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
			"by_type":          byType,
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},

		"gameplay": map[string]interface{}{
			"items_spawned":    atomic.LoadInt64(&c.ItemsSpawned),
			"items_consumed":   atomic.LoadInt64(&c.ItemsConsumed),
			"purchases":        atomic.LoadInt64(&c.Purchases),
			"bulk_events":      atomic.LoadInt64(&c.BulkEvents),
			"sessions_started": atomic.LoadInt64(&c.SessionsStarted),
			"sessions_failed":  atomic.LoadInt64(&c.SessionsFailed),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return HandlerFor(collector)
}

// HandlerFor serves the JSON snapshot of c.
func HandlerFor(c *Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return PrometheusHandlerFor(collector)
}

// PrometheusHandlerFor serves c in Prometheus text format.
func PrometheusHandlerFor(c *Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		// Tick metrics
		fmt.Fprintf(w, "# HELP backlog_tick_count Total tick cycles\n")
		fmt.Fprintf(w, "# TYPE backlog_tick_count counter\n")
		fmt.Fprintf(w, "backlog_tick_count %d\n\n", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP backlog_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE backlog_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "backlog_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		// Event metrics
		fmt.Fprintf(w, "# HELP backlog_events_written Total events written\n")
		fmt.Fprintf(w, "# TYPE backlog_events_written counter\n")
		fmt.Fprintf(w, "backlog_events_written %d\n\n", atomic.LoadInt64(&c.EventsWritten))

		fmt.Fprintf(w, "# HELP backlog_event_write_errors Total event write errors\n")
		fmt.Fprintf(w, "# TYPE backlog_event_write_errors counter\n")
		fmt.Fprintf(w, "backlog_event_write_errors %d\n\n", atomic.LoadInt64(&c.EventWriteErrors))

		c.mu.RLock()
		types := make([]string, 0, len(c.gameEvents))
		for k := range c.gameEvents {
			types = append(types, k)
		}
		sort.Strings(types)
		fmt.Fprintf(w, "# HELP backlog_game_events_total Simulation events by type\n")
		fmt.Fprintf(w, "# TYPE backlog_game_events_total counter\n")
		for _, k := range types {
			fmt.Fprintf(w, "backlog_game_events_total{type=%q} %d\n", k, c.gameEvents[k])
		}
		c.mu.RUnlock()
		fmt.Fprintln(w)

		// WebSocket metrics
		fmt.Fprintf(w, "# HELP backlog_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE backlog_ws_connections gauge\n")
		fmt.Fprintf(w, "backlog_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP backlog_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE backlog_ws_messages_total counter\n")
		fmt.Fprintf(w, "backlog_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "backlog_ws_messages_total{direction=\"out\"} %d\n\n", atomic.LoadInt64(&c.WSMessagesOut))

		// Gameplay metrics
		fmt.Fprintf(w, "# HELP backlog_items_consumed Total items consumed\n")
		fmt.Fprintf(w, "# TYPE backlog_items_consumed counter\n")
		fmt.Fprintf(w, "backlog_items_consumed %d\n\n", atomic.LoadInt64(&c.ItemsConsumed))

		fmt.Fprintf(w, "# HELP backlog_bulk_events Total bulk purchase events\n")
		fmt.Fprintf(w, "# TYPE backlog_bulk_events counter\n")
		fmt.Fprintf(w, "backlog_bulk_events %d\n\n", atomic.LoadInt64(&c.BulkEvents))

		fmt.Fprintf(w, "# HELP backlog_sessions_failed Total failed sessions\n")
		fmt.Fprintf(w, "# TYPE backlog_sessions_failed counter\n")
		fmt.Fprintf(w, "backlog_sessions_failed %d\n", atomic.LoadInt64(&c.SessionsFailed))
	}
}
