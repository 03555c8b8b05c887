package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	for _, name := range []string{"", "default", "stress", "low"} {
		cfg, err := ByName(name)
		require.NoError(t, err, name)
		assert.Positive(t, cfg.ClientSendBuffer)
		assert.Positive(t, cfg.SnapshotInterval)
	}
	_, err := ByName("turbo")
	assert.Error(t, err)
}

func TestAnalyzeAndApply(t *testing.T) {
	metrics := map[string]interface{}{
		"tick":      map[string]interface{}{"max_latency_ms": 75.0},
		"events":    map[string]interface{}{"max_write_lat_ms": 1.0, "errors": int64(2)},
		"websocket": map[string]interface{}{"errors": int64(0)},
	}

	rec := Analyze(metrics)
	assert.True(t, rec.IncreaseEventBuffer)
	assert.True(t, rec.SlowSnapshots)
	assert.True(t, rec.IncreaseDBConnections)
	assert.False(t, rec.IncreaseBroadcastBuffer)
	assert.Len(t, rec.Notes, 2)

	cfg := LowResourceConfig()
	interval := cfg.SnapshotInterval
	ApplyRecommendations(cfg, rec)
	assert.Equal(t, 128, cfg.EventChannelBuffer)
	assert.Equal(t, 2*interval, cfg.SnapshotInterval)
	assert.Equal(t, 3, cfg.DBMaxOpenConns)
}

func TestAnalyzeQuietMetrics(t *testing.T) {
	rec := Analyze(map[string]interface{}{})
	assert.Empty(t, rec.Notes)
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := DefaultConfig()
	cp := cfg.Clone()
	cp.ClientSendBuffer = 1
	assert.NotEqual(t, cfg.ClientSendBuffer, cp.ClientSendBuffer)
}
