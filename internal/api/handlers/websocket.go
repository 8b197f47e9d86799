package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/onnwee/metro-map/backend/internal/apierr"
	"github.com/onnwee/metro-map/backend/internal/city"
	"github.com/onnwee/metro-map/backend/internal/logger"
	"github.com/onnwee/metro-map/backend/internal/metrics"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 512

	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are checked by the CORS middleware.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocketMessage is the envelope of every frame exchanged with clients.
// Server types are "snapshot", "drag" and "error".
type WebSocketMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// clientMessage is a pointer event sent by a client: drag_start,
// drag_move or drag_end.
type clientMessage struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// LiveCity is what the hub needs from a city: snapshots for new clients and
// the drag controller for pointer events. Drags are held by client id.
type LiveCity interface {
	Snapshot() city.Snapshot
	DragStartAs(owner string, x, y float64) (city.DragResult, error)
	DragMoveAs(owner string, x, y float64) (city.DragResult, error)
	DragEndAs(owner string) (city.DragResult, error)
}

// Client is one websocket connection.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	log  *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Hub fans snapshots out to every connected client.
type Hub struct {
	city LiveCity

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}

	mu sync.RWMutex
}

// NewHub creates a hub; call Run before serving connections.
func NewHub(c LiveCity) *Hub {
	return &Hub{
		city:       c,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is cancelled, then disconnects
// everyone.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.closeSend()
				metrics.WebSocketConnections.Dec()
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketConnections.Inc()
			client.log.Info("WebSocket client connected", "total_clients", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
				metrics.WebSocketConnections.Dec()
				client.log.Info("WebSocket client disconnected", "total_clients", len(h.clients))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				// A slow client misses this snapshot; the next one supersedes it.
				if client.trySend(message) {
					metrics.WebSocketMessagesSent.Inc()
				} else {
					metrics.WebSocketMessagesDropped.Inc()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish broadcasts a snapshot. It never blocks the simulation job: when
// the broadcast queue is full the snapshot is dropped.
func (h *Hub) Publish(_ context.Context, s city.Snapshot) {
	data, err := json.Marshal(WebSocketMessage{Type: "snapshot", Payload: s})
	if err != nil {
		logger.Error("Failed to marshal snapshot", "error", err, "version", s.Version)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		metrics.WebSocketMessagesDropped.Inc()
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the connection and registers the client.
// GET /api/ws
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied when the handshake is invalid.
		logger.WarnContext(r.Context(), "Failed to upgrade to WebSocket", "error", err)
		return
	}

	id := uuid.NewString()
	client := &Client{
		id:   id,
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		log:  logger.FromContext(r.Context()).With("client_id", id),
	}
	client.reply("snapshot", h.city.Snapshot())

	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// reply queues a message for this client only.
func (c *Client) reply(kind string, payload any) {
	data, err := json.Marshal(WebSocketMessage{Type: kind, Payload: payload})
	if err != nil {
		c.log.Error("Failed to marshal WebSocket message", "error", err, "type", kind)
		return
	}
	if !c.trySend(data) {
		metrics.WebSocketMessagesDropped.Inc()
	}
}

// trySend queues data without blocking. It reports false when the buffer
// is full or the client is gone.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// handle applies one pointer event to the city.
func (c *Client) handle(msg clientMessage) {
	var (
		res city.DragResult
		err error
	)
	switch msg.Type {
	case "drag_start":
		res, err = c.hub.city.DragStartAs(c.id, msg.X, msg.Y)
	case "drag_move":
		res, err = c.hub.city.DragMoveAs(c.id, msg.X, msg.Y)
	case "drag_end":
		res, err = c.hub.city.DragEndAs(c.id)
	default:
		c.reply("error", apierr.ValidationInvalidValue("type", "unknown message type "+msg.Type))
		return
	}
	if err != nil {
		c.reply("error", apierr.FromError(err))
		return
	}
	c.reply("drag", res)
}

// readPump pumps messages from the WebSocket connection to the city. A drag
// the client still holds when it goes away is ended.
func (c *Client) readPump() {
	defer func() {
		if res, err := c.hub.city.DragEndAs(c.id); err == nil {
			c.log.Info("Released drag of disconnected client", "polygon", res.Polygon, "node", res.Node.Index)
		}
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("WebSocket unexpected close", "error", err)
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.reply("error", apierr.ValidationInvalidJSON())
			continue
		}
		c.handle(msg)
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
