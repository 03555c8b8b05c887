package network

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/session"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/engine"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/events"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/infra/storage"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/logger"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/metrics"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/optimization"
)

func newTestEngine(t *testing.T) (*engine.Engine, *events.EventLog) {
	t.Helper()
	cfg := engine.DefaultConfig()
	cfg.Seed = 3
	cfg.InitialItems = 0
	cfg.SpawnInterval = 0
	cfg.DayLength = time.Hour
	el := events.NewEventLog(nil)
	return engine.NewEngine(cfg, nil, el, logger.NewDiscard()), el
}

func TestApplyActionLifecycle(t *testing.T) {
	eng, _ := newTestEngine(t)

	res := ApplyAction(eng, PlayerAction{Type: ActionPurchase})
	assert.False(t, res.OK)
	assert.Equal(t, engine.ErrNotPlaying.Error(), res.Error)

	res = ApplyAction(eng, PlayerAction{Type: ActionStart})
	require.True(t, res.OK)
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, session.StatePlaying, eng.State())

	res = ApplyAction(eng, PlayerAction{Type: ActionStart})
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Error)

	res = ApplyAction(eng, PlayerAction{Type: ActionFail})
	assert.True(t, res.OK)
	assert.Equal(t, session.StateFailed, eng.State())

	res = ApplyAction(eng, PlayerAction{Type: ActionRestart})
	assert.True(t, res.OK)
	assert.Equal(t, session.StatePlaying, eng.State())

	res = ApplyAction(eng, PlayerAction{Type: "JUGGLE"})
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "JUGGLE")
}

func TestApplyActionItemFlow(t *testing.T) {
	eng, _ := newTestEngine(t)
	_, err := eng.StartSession()
	require.NoError(t, err)

	id, err := eng.SpawnRandom()
	require.NoError(t, err)

	assert.True(t, ApplyAction(eng, PlayerAction{Type: ActionDrag, ItemID: id}).OK)
	res := ApplyAction(eng, PlayerAction{Type: ActionDropStack, ItemID: id, StackID: 1})
	require.True(t, res.OK)
	require.NotNil(t, res.StackID)
	assert.Equal(t, 1, *res.StackID)

	assert.True(t, ApplyAction(eng, PlayerAction{Type: ActionEnqueue, ItemID: id}).OK)
	assert.False(t, ApplyAction(eng, PlayerAction{Type: ActionEnqueue, ItemID: id}).OK)
	assert.Len(t, eng.Snapshot().Queue, 1)

	res = ApplyAction(eng, PlayerAction{Type: ActionPurchase})
	require.True(t, res.OK)
	require.NotNil(t, res.Purchase)
	assert.GreaterOrEqual(t, res.Purchase.Spawned, 1)
}

func TestClientRateLimit(t *testing.T) {
	tuning := optimization.LowResourceConfig()
	tuning.MaxMessagesPerSecond = 2
	hub := NewHub(nil, tuning, nil, metrics.New())
	c := &Client{hub: hub, send: make(chan []byte, 1)}

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, c.allow(t0))
	assert.True(t, c.allow(t0.Add(100*time.Millisecond)))
	assert.False(t, c.allow(t0.Add(200*time.Millisecond)))
	assert.True(t, c.allow(t0.Add(1100*time.Millisecond)))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestControlAPI(t *testing.T) {
	eng, _ := newTestEngine(t)
	mux := http.NewServeMux()
	NewControlAPI(eng, nil, nil).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/purchase", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session/start", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/session/start", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "PLAYING", body["state"])
	assert.Equal(t, eng.SessionID(), body["session_id"])

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/session/start", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/purchase", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var snap engine.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, session.StatePlaying, snap.State)
	assert.Len(t, snap.Stacks, 4)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tuning", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeBody(t, rec), "max_messages_per_second")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tuning/recommendations", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	advice := decodeBody(t, rec)
	assert.Contains(t, advice, "recommendations")
	assert.Contains(t, advice, "suggested")
}

func TestReplayAPI(t *testing.T) {
	eng, el := newTestEngine(t)
	_, err := eng.StartSession()
	require.NoError(t, err)
	_, err = eng.Purchase()
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewReplayHandler(storage.NewLogEventRepository(el), nil, eng, nil).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/replay", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var replay ReplayResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&replay))
	assert.Equal(t, eng.SessionID(), replay.SessionID)
	assert.Equal(t, len(el.GetBySession(eng.SessionID())), replay.TotalEvents)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/replay?type=PURCHASE", nil))
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&replay))
	assert.Equal(t, 1, replay.TotalEvents)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/replay?day=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody(t, rec)
	byType := stats["by_type"].(map[string]interface{})
	assert.Equal(t, 1.0, byType["PURCHASE"])

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/best", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/recap", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	recap := decodeBody(t, rec)
	assert.Contains(t, recap, "summary")
	assert.NotEmpty(t, recap["recap"])

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/recap?session_id=nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestWebsocketSessionRoundTrip(t *testing.T) {
	eng, _ := newTestEngine(t)
	collector := metrics.New()
	hub := NewHub(eng, optimization.LowResourceConfig(), nil, collector)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
	})

	first := readMessage(t, conn)
	assert.Equal(t, MsgTypeSnapshot, first.Type)

	require.NoError(t, conn.WriteJSON(PlayerAction{Type: ActionStart}))
	reply := readMessage(t, conn)
	require.Equal(t, MsgTypeResult, reply.Type)
	result := reply.Payload.(map[string]interface{})
	assert.Equal(t, true, result["ok"])
	assert.Equal(t, eng.SessionID(), result["session_id"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	reply = readMessage(t, conn)
	assert.Equal(t, "malformed action", reply.Payload.(map[string]interface{})["error"])

	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt64(&collector.WSMessagesIn), int64(2))
}
