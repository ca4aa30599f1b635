package gateway

import (
	"context"
	"errors"
	"fmt"

	"qwixxserver/database"
	"qwixxserver/games"
	"qwixxserver/models"

	"go.uber.org/zap"
)

func stringArg(msg models.Message, i int, name string) (string, error) {
	var s string
	if err := msg.Arg(i, &s); err != nil {
		return "", fmt.Errorf("%w: %s: %v", games.ErrBadRequest, name, err)
	}
	return s, nil
}

func reply(event string, args ...interface{}) ([]games.Outbound, error) {
	msg, err := models.NewMessage(event, args...)
	if err != nil {
		return nil, err
	}
	return []games.Outbound{games.Reply(msg)}, nil
}

func (g *Gateway) createRoom(ctx context.Context, msg models.Message) ([]games.Outbound, error) {
	var gameID string
	if len(msg.Args) > 0 {
		if err := msg.Arg(0, &gameID); err != nil {
			return nil, fmt.Errorf("%w: gameId: %v", games.ErrBadRequest, err)
		}
	}
	room, err := CreateRoom(ctx, g.store, g.registry, gameID)
	if err != nil {
		return nil, err
	}
	g.logger.Info("Room created", zap.String("roomId", room.RoomID), zap.String("gameId", room.GameID))
	return reply(EventCreatedRoom, room.RoomID)
}

// CreateRoom validates gameID against the registry and stores a new room.
// The websocket event and the HTTP endpoint share it.
func CreateRoom(ctx context.Context, store database.SessionStore, registry *games.Registry, gameID string) (*models.Room, error) {
	if err := registry.Validate(gameID); err != nil {
		return nil, err
	}
	return store.CreateRoom(ctx, gameID)
}

func (g *Gateway) joinRoom(ctx context.Context, connID string, msg models.Message) ([]games.Outbound, error) {
	roomID, err := stringArg(msg, 0, "roomId")
	if err != nil {
		return nil, err
	}
	roomID = database.NormalizeRoomID(roomID)
	target, err := g.store.FetchRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	// checked before the current room is left
	if !target.IsWaiting {
		return nil, database.ErrRoomStarted
	}

	// leave the previous room under its own lock before taking the new one
	if err := g.leaveRoom(ctx, connID); err != nil {
		return nil, err
	}

	unlock, err := g.locker.Lock(ctx, roomID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	user, room, err := g.store.JoinRoom(ctx, roomID, connID)
	if err != nil {
		return nil, err
	}

	var table map[string]games.Handler
	if module, ok := g.registry.Lookup(room.GameID); ok {
		table = module.Handlers()
	}
	g.setTable(connID, table)
	g.emitter.Subscribe(connID, room.RoomID)
	g.logger.Info("User joined", zap.String("roomId", room.RoomID), zap.String("userId", user.UserID), zap.Bool("isHost", user.IsHost))

	joined, err := models.NewMessage(EventJoinedRoom, user.UserID, user.UserKey)
	if err != nil {
		return nil, err
	}
	announce, err := models.NewMessage(EventUserJoin, user.UserID)
	if err != nil {
		return nil, err
	}
	return []games.Outbound{games.Reply(joined), games.Broadcast(room.RoomID, announce)}, nil
}

// leaveRoom removes the user bound to connID, if any. The former room learns
// about it, gets a new host if needed, and its game re-checks the round.
func (g *Gateway) leaveRoom(ctx context.Context, connID string) error {
	user, err := g.store.FetchUserByConnection(ctx, connID)
	if errors.Is(err, database.ErrUserNotFound) {
		g.setTable(connID, nil)
		g.emitter.Unsubscribe(connID)
		return nil
	}
	if err != nil {
		return err
	}
	roomID := user.RoomID

	unlock, err := g.locker.Lock(ctx, roomID)
	if err != nil {
		return err
	}
	defer unlock()

	left, err := g.store.LeaveRoom(ctx, connID)
	if errors.Is(err, database.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	g.setTable(connID, nil)
	g.emitter.Unsubscribe(connID)
	g.logger.Info("User left", zap.String("roomId", roomID), zap.String("userId", left.UserID))

	out, err := g.afterLeave(ctx, left, roomID)
	if err != nil {
		return err
	}
	g.deliver(connID, out)
	return nil
}

// afterLeave builds the messages that follow a departure. Nothing is
// returned unless every step succeeded.
func (g *Gateway) afterLeave(ctx context.Context, left *models.User, roomID string) ([]games.Outbound, error) {
	msg, err := models.NewMessage(EventUserLeave, userLeave{UserID: left.UserID, RoomID: roomID})
	if err != nil {
		return nil, err
	}
	out := []games.Outbound{games.Broadcast(roomID, msg)}

	if left.IsHost {
		host, err := g.store.PromoteHost(ctx, roomID)
		switch {
		case err == nil:
			msg, err := models.NewMessage(EventHostChanged, host.UserID)
			if err != nil {
				return nil, err
			}
			out = append(out, games.Broadcast(roomID, msg))
			g.logger.Info("Host migrated", zap.String("roomId", roomID), zap.String("userId", host.UserID))
		case errors.Is(err, database.ErrUserNotFound), errors.Is(err, database.ErrRoomNotFound):
			// nobody left to promote
		default:
			return nil, err
		}
	}

	room, err := g.store.FetchRoom(ctx, roomID)
	if errors.Is(err, database.ErrRoomNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	module, ok := g.registry.Lookup(room.GameID)
	if !ok {
		return out, nil
	}
	more, err := module.OnLeave(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return append(out, more...), nil
}

// lockUser resolves userKey, locks the user's room and re-reads the user
// under the lock.
func (g *Gateway) lockUser(ctx context.Context, userKey string) (*models.User, func(), error) {
	user, err := g.store.FetchUserByToken(ctx, userKey)
	if err != nil {
		return nil, nil, err
	}
	unlock, err := g.locker.Lock(ctx, user.RoomID)
	if err != nil {
		return nil, nil, err
	}
	user, err = g.store.FetchUserByToken(ctx, userKey)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return user, unlock, nil
}

func (g *Gateway) startGame(ctx context.Context, msg models.Message) ([]games.Outbound, error) {
	userKey, err := stringArg(msg, 0, "userKey")
	if err != nil {
		return nil, err
	}
	user, unlock, err := g.lockUser(ctx, userKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !user.IsHost {
		return nil, fmt.Errorf("%w: only the host can start the game", games.ErrNotAuthorized)
	}
	room, err := g.store.FetchRoom(ctx, user.RoomID)
	if err != nil {
		return nil, err
	}
	if !room.IsWaiting {
		return nil, database.ErrRoomStarted
	}
	module, ok := g.registry.Lookup(room.GameID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", games.ErrConfiguration, room.GameID)
	}
	members, err := g.store.ListRoomUsers(ctx, room.RoomID)
	if err != nil {
		return nil, err
	}

	seed, err := module.InitRoomState(ctx, room, members)
	if err != nil {
		return nil, err
	}
	if err := g.store.StartRoom(ctx, room.RoomID, seed.RoomData, seed.UserData); err != nil {
		return nil, err
	}
	g.logger.Info("Game started", zap.String("roomId", room.RoomID), zap.String("gameId", room.GameID), zap.Int("players", len(members)))

	started, err := models.NewMessage(EventStartGame, room.RoomID)
	if err != nil {
		return nil, err
	}
	return append([]games.Outbound{games.Broadcast(room.RoomID, started)}, seed.Announce...), nil
}

func (g *Gateway) ping(ctx context.Context, connID string) ([]games.Outbound, error) {
	if err := g.store.UpdatePing(ctx, connID); err != nil && !errors.Is(err, database.ErrUserNotFound) {
		return nil, err
	}
	return reply(EventPong)
}

// gameEvent runs an event from the connection's dispatch table. The first
// argument is always the acting user's key.
func (g *Gateway) gameEvent(ctx context.Context, connID string, msg models.Message) ([]games.Outbound, error) {
	handler, ok := g.handler(connID, msg.Event)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownEvent, msg.Event)
	}
	userKey, err := stringArg(msg, 0, "userKey")
	if err != nil {
		return nil, err
	}
	user, unlock, err := g.lockUser(ctx, userKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return handler(ctx, games.Request{ConnectionID: connID, User: user, Args: msg.Args[1:]})
}
