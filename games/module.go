// Package games defines the contract between the connection gateway and the
// per-game rule sets, and the registry that selects one by gameId.
package games

import (
	"context"
	"encoding/json"

	"qwixxserver/models"
)

// Request is one game event from a connection. The gateway has already
// resolved the acting user from the userKey in the first argument and holds
// the lock of the user's room.
type Request struct {
	ConnectionID string
	User         *models.User
	Args         []json.RawMessage // arguments after the userKey
}

// Handler processes one game event and returns the messages to deliver.
type Handler func(ctx context.Context, req Request) ([]Outbound, error)

// Outbound is a message addressed either to the acting connection or to every
// connection in a room.
type Outbound struct {
	ToRoom  bool
	RoomID  string
	Message models.Message
}

// Reply addresses msg to the acting connection.
func Reply(msg models.Message) Outbound { return Outbound{Message: msg} }

// Broadcast addresses msg to every connection in roomID.
func Broadcast(roomID string, msg models.Message) Outbound {
	return Outbound{ToRoom: true, RoomID: roomID, Message: msg}
}

// Seed is the initial state of a room that is starting.
type Seed struct {
	RoomData []byte
	UserData map[string][]byte // keyed by userId
	Announce []Outbound
}

// Module is one game's server-side rules.
type Module interface {
	GameID() string
	// Handlers is the dispatch table attached to every connection that joins
	// a room of this game, keyed by event name.
	Handlers() map[string]Handler
	// InitRoomState produces the room and member state for a room whose host
	// started the game. members are in join order.
	InitRoomState(ctx context.Context, room *models.Room, members []models.User) (Seed, error)
	// OnLeave runs after a member left roomID, with the room lock held.
	OnLeave(ctx context.Context, roomID string) ([]Outbound, error)
}
