// Package gateway turns inbound connection events into session store and
// game module calls, and routes the resulting messages back out.
package gateway

import (
	"context"
	"errors"
	"sync"

	"qwixxserver/database"
	"qwixxserver/games"
	"qwixxserver/models"

	"go.uber.org/zap"
)

const (
	EventCreateRoom  = "createRoom"
	EventCreatedRoom = "createdRoom"
	EventJoinRoom    = "joinRoom"
	EventJoinedRoom  = "joinedRoom"
	EventUserJoin    = "userJoin"
	EventLeaveRoom   = "leaveRoom"
	EventUserLeave   = "userLeave"
	EventStartGame   = "startGame"
	EventHostChanged = "hostChanged"
	EventPing        = "ping"
	EventPong        = "pong"
)

var errUnknownEvent = errors.New("unknown event")

// Emitter delivers messages to connections. internal/websocket.Hub is the
// production implementation.
type Emitter interface {
	EmitTo(connID string, msg models.Message)
	EmitRoom(roomID string, msg models.Message)
	Subscribe(connID, roomID string)
	Unsubscribe(connID string)
}

// Gateway handles every event of every connection. Room-scoped
// read-modify-write sequences run under the room's lock.
type Gateway struct {
	store    database.SessionStore
	registry *games.Registry
	locker   database.RoomLocker
	emitter  Emitter
	logger   *zap.Logger

	mu     sync.Mutex
	tables map[string]map[string]games.Handler // connId -> event -> handler
}

func New(store database.SessionStore, registry *games.Registry, locker database.RoomLocker, emitter Emitter, logger *zap.Logger) *Gateway {
	return &Gateway{
		store:    store,
		registry: registry,
		locker:   locker,
		emitter:  emitter,
		logger:   logger,
		tables:   make(map[string]map[string]games.Handler),
	}
}

// userLeave is the payload of a userLeave event.
type userLeave struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId"`
}

// Handle processes one inbound message. Failures are reported to connID only.
func (g *Gateway) Handle(ctx context.Context, connID string, msg models.Message) {
	var (
		out []games.Outbound
		err error
	)
	switch msg.Event {
	case EventCreateRoom:
		out, err = g.createRoom(ctx, msg)
	case EventJoinRoom:
		out, err = g.joinRoom(ctx, connID, msg)
	case EventLeaveRoom:
		err = g.leaveRoom(ctx, connID)
	case EventStartGame:
		out, err = g.startGame(ctx, msg)
	case EventPing:
		out, err = g.ping(ctx, connID)
	default:
		out, err = g.gameEvent(ctx, connID, msg)
	}

	g.deliver(connID, out)
	if err != nil {
		g.reportError(connID, msg.Event, err)
	}
}

// Disconnect runs when the transport loses connID.
func (g *Gateway) Disconnect(ctx context.Context, connID string) {
	if err := g.leaveRoom(ctx, connID); err != nil {
		g.logger.Error("Failed to clean up after disconnect", zap.String("connId", connID), zap.Error(err))
	}
	g.mu.Lock()
	delete(g.tables, connID)
	g.mu.Unlock()
}

func (g *Gateway) deliver(connID string, out []games.Outbound) {
	for _, o := range out {
		if o.ToRoom {
			g.emitter.EmitRoom(o.RoomID, o.Message)
		} else {
			g.emitter.EmitTo(connID, o.Message)
		}
	}
}

func (g *Gateway) reportError(connID, event string, err error) {
	code, message := errorCode(err)
	if code == models.ErrCodeInternal {
		g.logger.Error("Event failed", zap.String("connId", connID), zap.String("event", event), zap.Error(err))
	} else {
		g.logger.Info("Event rejected", zap.String("connId", connID), zap.String("event", event), zap.String("code", code), zap.Error(err))
	}
	g.emitter.EmitTo(connID, models.NewErrorMessage(code, message))
}

// errorCode maps err to a wire code. Unexpected errors are reported without
// their detail.
func errorCode(err error) (string, string) {
	codes := []struct {
		target error
		code   string
	}{
		{database.ErrRoomNotFound, models.ErrCodeRoomNotFound},
		{database.ErrUserNotFound, models.ErrCodeUserNotFound},
		{database.ErrRoomStarted, models.ErrCodeRoomStarted},
		{games.ErrNotAuthorized, models.ErrCodeNotAuthorized},
		{games.ErrAlreadyPlayed, models.ErrCodeAlreadyPlayed},
		{games.ErrInvalidMove, models.ErrCodeInvalidMove},
		{games.ErrConfiguration, models.ErrCodeConfiguration},
		{games.ErrGameNotStarted, models.ErrCodeNotStarted},
		{games.ErrBadRequest, models.ErrCodeBadRequest},
		{errUnknownEvent, models.ErrCodeUnknownEvent},
	}
	for _, c := range codes {
		if errors.Is(err, c.target) {
			return c.code, err.Error()
		}
	}
	return models.ErrCodeInternal, "internal error"
}

func (g *Gateway) setTable(connID string, table map[string]games.Handler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if table == nil {
		delete(g.tables, connID)
		return
	}
	g.tables[connID] = table
}

func (g *Gateway) handler(connID, event string) (games.Handler, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, ok := g.tables[connID][event]
	return h, ok
}
