package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"qwixxserver/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client is one browser connection.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	room string // guarded by hub.mu

	dropOnce sync.Once
}

func newClient(id string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   id,
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

// enqueue hands a frame to the write pump. A client that cannot keep up is
// disconnected rather than stalling the sender. The caller holds hub.mu so
// that send cannot be closed underneath it.
func (c *Client) enqueue(frame []byte) {
	select {
	case c.send <- frame:
	default:
		c.dropOnce.Do(func() {
			c.hub.logger.Warn("Send buffer full, dropping client", zap.String("connId", c.id))
			c.conn.Close()
		})
	}
}

// readPump decodes frames and hands them to d in arrival order. It returns
// when the connection fails.
func (c *Client) readPump(d Dispatcher) {
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		d.Disconnect(ctx, c.id)
		cancel()
		c.hub.remove(c)
		c.conn.Close()
		c.hub.logger.Info("Client removed", zap.String("connId", c.id))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("WebSocket error", zap.String("connId", c.id), zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg models.Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Event == "" {
			c.hub.logger.Info("Error decoding message", zap.String("connId", c.id), zap.Error(err))
			c.hub.EmitTo(c.id, models.NewErrorMessage(models.ErrCodeBadRequest, "frames must be {\"event\": string, \"args\": [...]}"))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		d.Handle(ctx, c.id, msg)
		cancel()
	}
}

// writePump writes queued frames and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.hub.logger.Error("Failed to write message", zap.String("connId", c.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.logger.Error("Error sending ping", zap.String("connId", c.id), zap.Error(err))
				return
			}
		}
	}
}
