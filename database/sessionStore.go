package database

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"qwixxserver/models"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrUserNotFound = errors.New("user not found")
	// ErrRoomStarted is returned when joining a room whose game is under way.
	ErrRoomStarted = errors.New("room is no longer accepting players")
	// ErrRoomIDExhausted means no free room code was found after several attempts.
	ErrRoomIDExhausted = errors.New("could not allocate a free room code")
)

const (
	roomIDBytes  = 2
	userIDBytes  = 8
	userKeyBytes = 12

	maxRoomIDAttempts = 16
)

// SessionStore is keyed storage for rooms and their users. It holds no game
// rules; RoomData and UserData are stored and returned verbatim.
type SessionStore interface {
	CreateRoom(ctx context.Context, gameID string) (*models.Room, error)
	FetchRoom(ctx context.Context, roomID string) (*models.Room, error)

	// JoinRoom replaces any user already bound to connectionID and inserts a
	// new one. The new user is host iff nobody else is in the room.
	JoinRoom(ctx context.Context, roomID, connectionID string) (*models.User, *models.Room, error)
	// LeaveRoom deletes the user bound to connectionID. A second call returns ErrUserNotFound.
	LeaveRoom(ctx context.Context, connectionID string) (*models.User, error)

	FetchUserByToken(ctx context.Context, userKey string) (*models.User, error)
	FetchUserByID(ctx context.Context, userID string) (*models.User, error)
	FetchUserByConnection(ctx context.Context, connectionID string) (*models.User, error)
	// ListRoomUsers returns the members of a room in join order.
	ListRoomUsers(ctx context.Context, roomID string) ([]models.User, error)

	UpdateRoomData(ctx context.Context, roomID string, data []byte) error
	UpdateUserData(ctx context.Context, userID string, data []byte) error
	// StartRoom closes the room to joins and seeds room and member state in one step.
	StartRoom(ctx context.Context, roomID string, roomData []byte, userData map[string][]byte) error

	UpdatePing(ctx context.Context, connectionID string) error
	// PromoteHost makes the earliest remaining member host and returns it.
	PromoteHost(ctx context.Context, roomID string) (*models.User, error)
	// DeleteIdleRooms removes rooms without members created before olderThan.
	DeleteIdleRooms(ctx context.Context, olderThan time.Time) (int64, error)
}

// NormalizeRoomID turns user input into the canonical room code.
func NormalizeRoomID(roomID string) string {
	return strings.ToLower(strings.TrimSpace(roomID))
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func newRoomID() (string, error) { return randomHex(roomIDBytes) }

func newUserCredentials() (userID, userKey string, err error) {
	if userID, err = randomHex(userIDBytes); err != nil {
		return "", "", err
	}
	if userKey, err = randomHex(userKeyBytes); err != nil {
		return "", "", err
	}
	return userID, userKey, nil
}
