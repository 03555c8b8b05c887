package network

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Client is one websocket connection. Any connected client may act on the
// simulation; the engine serializes their inputs.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// Fixed one-second window for the per-client rate limit
	windowStart time.Time
	windowCount int
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, hub.tuning.ClientSendBuffer),
	}
}

// Register adds the client to the hub.
func (c *Client) Register() {
	select {
	case c.hub.register <- c:
	case <-c.hub.done:
		close(c.send)
	}
}

func (c *Client) unregister() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
}

// ReadPump pumps actions from the websocket connection into the simulation.
func (c *Client) ReadPump() {
	defer func() {
		c.unregister()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.metrics.RecordWSError()
				c.hub.logger.Warn("WebSocket read error: " + err.Error())
			}
			break
		}
		c.hub.metrics.RecordWSMessage(true)

		var action PlayerAction
		if err := json.Unmarshal(message, &action); err != nil {
			c.hub.logger.Warn("Failed to parse PlayerAction from WebSocket. err: " + err.Error())
			c.sendMessage(MsgTypeResult, ActionResult{Error: "malformed action"})
			continue
		}

		c.handlePlayerAction(action, time.Now())
	}
}

func (c *Client) handlePlayerAction(action PlayerAction, now time.Time) {
	if !c.allow(now) {
		c.hub.logger.Warn("Rate limit exceeded for client action " + action.Type)
		c.sendMessage(MsgTypeResult, ActionResult{Type: action.Type, Error: "rate limited"})
		return
	}

	res := ApplyAction(c.hub.sim, action)
	if res.Error != "" {
		c.hub.logger.Event("PLAYER_ACTION_REJECTED", "PLAYER", action.Type+": "+res.Error)
	}
	c.sendMessage(MsgTypeResult, res)
}

// allow applies MaxMessagesPerSecond over a fixed window. Zero disables it.
func (c *Client) allow(now time.Time) bool {
	limit := c.hub.tuning.MaxMessagesPerSecond
	if limit <= 0 {
		return true
	}
	if now.Sub(c.windowStart) >= time.Second {
		c.windowStart = now
		c.windowCount = 0
	}
	if c.windowCount >= limit {
		return false
	}
	c.windowCount++
	return true
}

// sendMessage queues a reply for this client only. It is dropped when the
// client has gone or its buffer is full.
func (c *Client) sendMessage(msgType string, payload interface{}) {
	data, err := json.Marshal(Message{Type: msgType, Timestamp: time.Now().UnixMilli(), Payload: payload})
	if err != nil {
		c.hub.logger.Errorf("Failed to serialize %s reply: %v", msgType, err)
		return
	}

	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- data:
		c.hub.metrics.RecordWSMessage(false)
	default:
		c.hub.metrics.RecordWSError()
	}
}

// WritePump pumps messages from the hub to the websocket connection.
// Each message goes out as its own text frame.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.metrics.RecordWSError()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
