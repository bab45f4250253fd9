// Package ws implements the real-time fan-out hub: it bridges the pub/sub bus
// to connected WebSocket clients according to their channel subscriptions.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lumenfi/perpindex/internal/domain"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 256
)

// busChannels are the bus channels the hub forwards to clients.
var busChannels = []string{
	domain.ChannelPositions,
	domain.ChannelTrades,
}

// wildcard subscribes a client to every channel.
const wildcard = "*"

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins. In production, restrict this to known origins.
		return true
	},
}

// clientMsg is the JSON message clients send for subscription management.
type clientMsg struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

// serverMsg is the JSON envelope for hub-originated control messages.
type serverMsg struct {
	Type      string `json:"type"`
	Channel   string `json:"channel,omitempty"`
	ClientID  string `json:"clientId,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// client represents a single WebSocket connection.
type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	subs map[string]bool // subscribed channels, may contain the wildcard
	mu   sync.RWMutex
}

// broadcastMsg carries a bus payload along with its source channel so the hub
// routes it only to clients subscribed to that channel.
type broadcastMsg struct {
	channel string
	data    []byte
}

// Hub maintains the registry of connected clients and fans bus messages out
// to them. All registry mutation happens in Run's loop or under the single
// registry mutex; no other code touches the clients map.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan broadcastMsg
	register   chan *client
	unregister chan *client
	bus        domain.SignalBus
	mu         sync.RWMutex
	logger     *slog.Logger
}

// NewHub creates a hub that bridges the given bus to WebSocket clients.
func NewHub(bus domain.SignalBus, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan broadcastMsg, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		bus:        bus,
		logger:     logger,
	}
}

// Run starts the hub's main event loop: client registration, unregistration,
// and message broadcasting. It blocks until the context is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for _, ch := range busChannels {
		go h.pumpChannel(ctx, ch)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Info("ws: client connected",
				slog.String("client_id", c.id),
				slog.Int("total_clients", h.ClientCount()),
			)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("ws: client disconnected",
				slog.String("client_id", c.id),
				slog.Int("total_clients", h.ClientCount()),
			)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// deliver writes one bus payload to every client subscribed to its channel.
// A client whose send buffer is full is evicted; delivery to the others is
// unaffected.
func (h *Hub) deliver(msg broadcastMsg) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if !c.isSubscribed(msg.channel) {
			continue
		}
		select {
		case c.send <- msg.data:
		default:
			h.logger.Warn("ws: evicting slow client", slog.String("client_id", c.id))
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// pumpChannel subscribes to a single bus channel and forwards received
// payloads to the hub's broadcast channel.
func (h *Hub) pumpChannel(ctx context.Context, channel string) {
	msgCh, err := h.bus.Subscribe(ctx, channel)
	if err != nil {
		h.logger.Error("ws: failed to subscribe to channel",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}

	h.logger.Info("ws: subscribed to channel", slog.String("channel", channel))

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgCh:
			if !ok {
				h.logger.Warn("ws: channel subscription closed",
					slog.String("channel", channel),
				)
				return
			}
			h.broadcast <- broadcastMsg{channel: channel, data: data}
		}
	}
}

// HandleWS upgrades an HTTP request to a WebSocket connection and registers
// the client with the hub.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]bool),
	}

	h.register <- c
	c.enqueue(serverMsg{
		Type:      "CONNECTED",
		ClientID:  c.id,
		Timestamp: time.Now().UnixMilli(),
	})

	go c.writePump()
	go c.readPump()
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump reads messages from the WebSocket connection and handles the
// SUBSCRIBE / UNSUBSCRIBE / PING protocol. Malformed or unknown messages are
// silently ignored.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("ws: unexpected close error",
					slog.String("client_id", c.id),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var msg clientMsg
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "SUBSCRIBE":
			if msg.Channel == "" {
				continue
			}
			c.mu.Lock()
			c.subs[msg.Channel] = true
			c.mu.Unlock()
			c.enqueue(serverMsg{Type: "SUBSCRIBED", Channel: msg.Channel})

		case "UNSUBSCRIBE":
			if msg.Channel == "" {
				continue
			}
			c.mu.Lock()
			delete(c.subs, msg.Channel)
			c.mu.Unlock()
			c.enqueue(serverMsg{Type: "UNSUBSCRIBED", Channel: msg.Channel})

		case "PING":
			c.enqueue(serverMsg{Type: "PONG"})
		}
	}
}

// enqueue marshals a control message onto the client's send queue. Best
// effort: a full queue drops the control message rather than blocking the
// reader.
func (c *client) enqueue(msg serverMsg) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// isSubscribed reports whether the client subscribed to the channel or to the
// wildcard. Callers must not rely on hub locking; the subs map has its own
// mutex because readPump mutates it concurrently with broadcasts.
func (c *client) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subs[channel] || c.subs[wildcard]
}

// writePump pumps messages from the hub to the WebSocket connection as text
// frames and sends periodic ping frames for keepalive. Any write failure
// closes the connection, which evicts the client via readPump.
func (c *client) writePump() {
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
