package metrics

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounters(t *testing.T) {
	c := New()
	c.RecordTick(2 * time.Millisecond)
	c.RecordTick(4 * time.Millisecond)
	c.RecordGameEvent("ITEM_CONSUMED")
	c.RecordGameEvent("ITEM_CONSUMED")
	c.RecordGameEvent("PURCHASE")
	c.RecordPurchase(true)
	c.RecordSession(false)
	c.RecordSession(true)

	assert.Equal(t, int64(2), c.TickCount)
	assert.Equal(t, int64(4*time.Millisecond), c.TickLatencyMax)
	assert.Equal(t, int64(2), c.ItemsConsumed)
	assert.Equal(t, int64(2), c.EventCount("ITEM_CONSUMED"))
	assert.Equal(t, int64(1), c.BulkEvents)
	assert.Equal(t, int64(1), c.SessionsFailed)
}

func TestHandlers(t *testing.T) {
	c := New()
	c.RecordGameEvent("ITEM_SPAWNED")

	rec := httptest.NewRecorder()
	HandlerFor(c)(rec, httptest.NewRequest("GET", "/metrics", nil))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	gameplay := body["gameplay"].(map[string]interface{})
	assert.Equal(t, 1.0, gameplay["items_spawned"])

	rec = httptest.NewRecorder()
	PrometheusHandlerFor(c)(rec, httptest.NewRequest("GET", "/metrics/prometheus", nil))
	assert.Contains(t, rec.Body.String(), `backlog_game_events_total{type="ITEM_SPAWNED"} 1`)
}
