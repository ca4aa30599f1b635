// Package websocket carries event frames between browsers and the gateway.
// Each connection gets a uuid connection id; the hub keeps the room
// subscriptions used for broadcasts.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"qwixxserver/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 64

	// upper bound for handling one inbound frame, including the room lock wait
	handleTimeout = 10 * time.Second
)

// Dispatcher receives the frames of every connection. Handle is called
// sequentially per connection; Disconnect once, after the last Handle.
type Dispatcher interface {
	Handle(ctx context.Context, connID string, msg models.Message)
	Disconnect(ctx context.Context, connID string)
}

// Hub tracks live connections and their room subscriptions.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	rooms    map[string]map[string]*Client // roomId -> connId -> client
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub returns a hub accepting upgrades from allowOrigins. An empty list or
// "*" accepts any origin.
func NewHub(allowOrigins []string, logger *zap.Logger) *Hub {
	h := &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		logger:  logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowOrigins),
	}
	return h
}

func originChecker(allowOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(allowOrigins))
	for _, o := range allowOrigins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return len(allowed) == 0 || origin == "" || allowed[origin]
	}
}

// ServeWS upgrades the request and pumps frames to d until the connection
// closes.
func (h *Hub) ServeWS(d Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade has already answered the request
			h.logger.Error("Error upgrading WebSocket", zap.Error(err))
			return
		}

		client := newClient(uuid.New().String(), h, conn)
		h.register(client)
		h.logger.Info("New client added", zap.String("connId", client.id), zap.String("remote", c.Request.RemoteAddr))

		go client.writePump()
		client.readPump(d)
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

// remove forgets c and closes its send channel.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	h.unsubscribeLocked(c.id)
	delete(h.clients, c.id)
	close(c.send)
}

// EmitTo sends msg to a single connection. Unknown ids are ignored.
func (h *Hub) EmitTo(connID string, msg models.Message) {
	frame, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode message", zap.String("event", msg.Event), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[connID]; ok {
		c.enqueue(frame)
	}
}

// EmitRoom sends msg to every connection subscribed to roomID.
func (h *Hub) EmitRoom(roomID string, msg models.Message) {
	frame, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode message", zap.String("event", msg.Event), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[roomID] {
		c.enqueue(frame)
	}
}

// Subscribe moves connID into roomID, leaving any previous room.
func (h *Hub) Subscribe(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	h.unsubscribeLocked(connID)
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][connID] = c
	c.room = roomID
}

func (h *Hub) Unsubscribe(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribeLocked(connID)
}

func (h *Hub) unsubscribeLocked(connID string) {
	c, ok := h.clients[connID]
	if !ok || c.room == "" {
		return
	}
	if members := h.rooms[c.room]; members != nil {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, c.room)
		}
	}
	c.room = ""
}

// Connections reports the number of live connections.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close drops every connection. Their read pumps then run the usual
// disconnect handling.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.conn.Close()
	}
}
