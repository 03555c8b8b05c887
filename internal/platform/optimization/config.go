// Package optimization provides concurrency tuning for high load.
// Channel buffers, the SQLite pool and broadcast cadence live here.
package optimization

import (
	"fmt"
	"runtime"
	"time"
)

// Config holds tuned parameters for high-load scenarios.
type Config struct {
	// Channel buffer sizes
	EventChannelBuffer     int `json:"event_channel_buffer"`
	BroadcastChannelBuffer int `json:"broadcast_channel_buffer"`
	ClientSendBuffer       int `json:"client_send_buffer"`

	// Connection pools
	DBMaxOpenConns int `json:"db_max_open_conns"`
	DBMaxIdleConns int `json:"db_max_idle_conns"`

	// Cadence
	SnapshotInterval   time.Duration `json:"snapshot_interval"`   // Snapshot push to spectators
	EventPollInterval  time.Duration `json:"event_poll_interval"` // Hub and recorder log polling
	CheckpointInterval time.Duration `json:"checkpoint_interval"` // Recorder session checkpoint

	// Rate limiting
	MaxMessagesPerSecond int `json:"max_messages_per_second"`
	MaxClientsPerGame    int `json:"max_clients_per_game"`
}

// DefaultConfig returns sensible defaults for production.
func DefaultConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		// Channel buffers - larger = more memory, less blocking
		EventChannelBuffer:     1024, // Handle bulk bursts
		BroadcastChannelBuffer: 256,
		ClientSendBuffer:       64, // Per WebSocket

		// SQLite serializes writers; extra conns only help readers
		DBMaxOpenConns: numCPU * 2,
		DBMaxIdleConns: numCPU,

		SnapshotInterval:   100 * time.Millisecond,
		EventPollInterval:  100 * time.Millisecond,
		CheckpointInterval: 30 * time.Second,

		// Rate limits
		MaxMessagesPerSecond: 30, // Per client, a fast clicker
		MaxClientsPerGame:    200,
	}
}

// StressTestConfig returns aggressive settings for stress testing.
func StressTestConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		EventChannelBuffer:     4096,
		BroadcastChannelBuffer: 512,
		ClientSendBuffer:       128,

		DBMaxOpenConns: numCPU * 4,
		DBMaxIdleConns: numCPU * 2,

		SnapshotInterval:   250 * time.Millisecond,
		EventPollInterval:  50 * time.Millisecond,
		CheckpointInterval: 10 * time.Second,

		MaxMessagesPerSecond: 500,
		MaxClientsPerGame:    500,
	}
}

// LowResourceConfig returns minimal settings for development.
func LowResourceConfig() *Config {
	return &Config{
		EventChannelBuffer:     64,
		BroadcastChannelBuffer: 16,
		ClientSendBuffer:       8,

		DBMaxOpenConns: 2,
		DBMaxIdleConns: 1,

		SnapshotInterval:   500 * time.Millisecond,
		EventPollInterval:  250 * time.Millisecond,
		CheckpointInterval: time.Minute,

		MaxMessagesPerSecond: 10,
		MaxClientsPerGame:    20,
	}
}

// Clone returns an independent copy.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// ByName returns the profile selected on the command line.
func ByName(profile string) (*Config, error) {
	switch profile {
	case "", "default":
		return DefaultConfig(), nil
	case "stress":
		return StressTestConfig(), nil
	case "low":
		return LowResourceConfig(), nil
	}
	return nil, fmt.Errorf("unknown tuning profile %q (want default, stress or low)", profile)
}

// Recommendations provides suggestions based on observed metrics.
type Recommendations struct {
	IncreaseEventBuffer     bool     `json:"increase_event_buffer"`
	IncreaseBroadcastBuffer bool     `json:"increase_broadcast_buffer"`
	IncreaseDBConnections   bool     `json:"increase_db_connections"`
	SlowSnapshots           bool     `json:"slow_snapshots"`
	Notes                   []string `json:"notes"`
}

// TickBudget is the tick latency above which the simulation falls behind
// its 50 ms frame clock.
const TickBudget = 50.0 // ms

// Analyze examines current metrics and returns optimization recommendations.
func Analyze(metrics map[string]interface{}) *Recommendations {
	rec := &Recommendations{
		Notes: make([]string, 0),
	}

	// Check tick latency
	if tick, ok := metrics["tick"].(map[string]interface{}); ok {
		if maxLat, ok := tick["max_latency_ms"].(float64); ok && maxLat > TickBudget {
			rec.IncreaseEventBuffer = true
			rec.SlowSnapshots = true
			rec.Notes = append(rec.Notes, fmt.Sprintf("Tick latency exceeds %.0fms - buffer events and push snapshots less often", TickBudget))
		}
	}

	// Check event write latency
	if events, ok := metrics["events"].(map[string]interface{}); ok {
		if maxLat, ok := events["max_write_lat_ms"].(float64); ok && maxLat > 50 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Event write latency exceeds 50ms - increase DB connections")
		}
		if errors, ok := events["errors"].(int64); ok && errors > 0 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Event write errors detected - check DB connection pool")
		}
	}

	// Check WebSocket backpressure
	if ws, ok := metrics["websocket"].(map[string]interface{}); ok {
		if errors, ok := ws["errors"].(int64); ok && errors > 0 {
			rec.IncreaseBroadcastBuffer = true
			rec.Notes = append(rec.Notes, "WebSocket errors detected - increase client send buffer")
		}
	}

	return rec
}

// ApplyRecommendations modifies config based on recommendations.
func ApplyRecommendations(config *Config, rec *Recommendations) *Config {
	if rec.IncreaseEventBuffer {
		config.EventChannelBuffer *= 2
	}
	if rec.IncreaseBroadcastBuffer {
		config.BroadcastChannelBuffer *= 2
		config.ClientSendBuffer *= 2
	}
	if rec.IncreaseDBConnections {
		config.DBMaxOpenConns = int(float64(config.DBMaxOpenConns) * 1.5)
		config.DBMaxIdleConns = int(float64(config.DBMaxIdleConns) * 1.5)
	}
	if rec.SlowSnapshots {
		config.SnapshotInterval *= 2
	}
	return config
}
