// Package network bridges the simulation to browsers and tools: a websocket
// hub that streams events and snapshots, and small REST APIs.
package network

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/events"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/logger"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/metrics"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/optimization"
)

// Message types pushed to clients.
const (
	MsgTypeEvent    = "event"
	MsgTypeSnapshot = "snapshot"
	MsgTypeResult   = "result"
)

// Message is the envelope of every server push.
type Message struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	sim        Simulation
	tuning     *optimization.Config
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
	logger     *logger.Logger
	metrics    *metrics.Collector
	upgrader   websocket.Upgrader
	done       chan struct{} // Closed when Run returns
}

// NewHub initializes a new WebSocket Hub. A nil tuning profile means the default one.
func NewHub(sim Simulation, tuning *optimization.Config, log *logger.Logger, collector *metrics.Collector) *Hub {
	if tuning == nil {
		tuning = optimization.DefaultConfig()
	}
	if log == nil {
		log = logger.NewDiscard()
	}
	if collector == nil {
		collector = metrics.Get()
	}
	return &Hub{
		sim:        sim,
		tuning:     tuning,
		broadcast:  make(chan []byte, tuning.BroadcastChannelBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		logger:     log,
		metrics:    collector,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket Hub shutting down.")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.metrics.RecordWSConnection(-1)
				h.logger.Info("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					h.metrics.RecordWSMessage(false)
				default:
					// Slow consumer; drop it rather than stall the hub
					close(client.send)
					delete(h.clients, client)
					h.metrics.RecordWSConnection(-1)
					h.metrics.RecordWSError()
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount returns how many clients are connected.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast serializes a message and queues it for every client.
func (h *Hub) Broadcast(msgType string, payload interface{}) {
	data, err := json.Marshal(Message{Type: msgType, Timestamp: time.Now().UnixMilli(), Payload: payload})
	if err != nil {
		h.logger.Errorf("Failed to serialize %s message for WebSocket broadcast: %v", msgType, err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.metrics.RecordWSError()
		h.logger.Warn("Broadcast buffer full, dropping " + msgType + " message")
	}
}

// BroadcastEvent pushes one GameEvent to all connected clients.
func (h *Hub) BroadcastEvent(event events.GameEvent) {
	h.Broadcast(MsgTypeEvent, event)
}

// StartEventPoller polls the EventLog and pushes new events to the Hub.
// This allows the Hub to run independently from the tick while picking up the same events.
func (h *Hub) StartEventPoller(ctx context.Context, eventLog *events.EventLog) {
	go func() {
		pollInterval := time.NewTicker(h.tuning.EventPollInterval)
		defer pollInterval.Stop()

		lastProcessedEvent := eventLog.Len()

		for {
			select {
			case <-ctx.Done():
				return
			case <-pollInterval.C:
				var batch []events.GameEvent
				batch, lastProcessedEvent = eventLog.Since(lastProcessedEvent)
				for _, event := range batch {
					h.BroadcastEvent(event)
				}
			}
		}
	}()
}

// StartSnapshotPusher pushes a full snapshot on the tuning cadence while
// anyone is watching.
func (h *Hub) StartSnapshotPusher(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(h.tuning.SnapshotInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if h.ClientCount() == 0 {
					continue
				}
				h.Broadcast(MsgTypeSnapshot, h.sim.Snapshot())
			}
		}
	}()
}

// ServeWs upgrades an HTTP request and attaches the connection to the hub.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	if h.ClientCount() >= h.tuning.MaxClientsPerGame {
		http.Error(w, "too many clients", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.metrics.RecordWSError()
		h.logger.Warn("WebSocket upgrade failed: " + err.Error())
		return
	}

	// Every client starts from a full picture
	data, err := json.Marshal(Message{Type: MsgTypeSnapshot, Timestamp: time.Now().UnixMilli(), Payload: h.sim.Snapshot()})
	if err == nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		err = conn.WriteMessage(websocket.TextMessage, data)
	}
	if err != nil {
		h.metrics.RecordWSError()
		h.logger.Warn("Failed to send initial snapshot: " + err.Error())
		conn.Close()
		return
	}
	h.metrics.RecordWSMessage(false)

	client := NewClient(h, conn)
	client.Register()

	go client.WritePump()
	go client.ReadPump()
}
