package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"qwixxserver/models"
)

// MemoryStore keeps rooms and users in process memory. State is lost on
// restart. Records are copied in and out so callers never share them.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]*models.Room // keyed by RoomID
	users map[string]*models.User // keyed by UserID
	seq   uint
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms: make(map[string]*models.Room),
		users: make(map[string]*models.User),
		now:   time.Now,
	}
}

func (m *MemoryStore) CreateRoom(ctx context.Context, gameID string) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i < maxRoomIDAttempts; i++ {
		roomID, err := newRoomID()
		if err != nil {
			return nil, fmt.Errorf("memory: generate room id: %w", err)
		}
		if _, taken := m.rooms[roomID]; taken {
			continue
		}
		m.seq++
		room := &models.Room{ID: m.seq, RoomID: roomID, GameID: gameID, IsWaiting: true, CreatedAt: m.now()}
		m.rooms[roomID] = room
		return copyRoom(room), nil
	}
	return nil, ErrRoomIDExhausted
}

func (m *MemoryStore) FetchRoom(ctx context.Context, roomID string) (*models.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[NormalizeRoomID(roomID)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return copyRoom(room), nil
}

func (m *MemoryStore) JoinRoom(ctx context.Context, roomID, connectionID string) (*models.User, *models.Room, error) {
	roomID = NormalizeRoomID(roomID)
	userID, userKey, err := newUserCredentials()
	if err != nil {
		return nil, nil, fmt.Errorf("memory: generate user credentials: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return nil, nil, ErrRoomNotFound
	}
	if !room.IsWaiting {
		return nil, nil, ErrRoomStarted
	}

	for id, u := range m.users {
		if u.ConnectionID == connectionID {
			delete(m.users, id)
		}
	}
	isHost := true
	for _, u := range m.users {
		if u.RoomID == roomID {
			isHost = false
			break
		}
	}

	now := m.now()
	m.seq++
	user := &models.User{
		ID:           m.seq,
		UserID:       userID,
		UserKey:      userKey,
		RoomID:       roomID,
		ConnectionID: connectionID,
		IsHost:       isHost,
		CreatedAt:    now,
		LastPingAt:   now,
	}
	m.users[userID] = user
	return copyUser(user), copyRoom(room), nil
}

func (m *MemoryStore) LeaveRoom(ctx context.Context, connectionID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.ConnectionID == connectionID {
			delete(m.users, id)
			return copyUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryStore) FetchUserByToken(ctx context.Context, userKey string) (*models.User, error) {
	return m.findUser(func(u *models.User) bool { return u.UserKey == userKey })
}

func (m *MemoryStore) FetchUserByID(ctx context.Context, userID string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyUser(u), nil
}

func (m *MemoryStore) FetchUserByConnection(ctx context.Context, connectionID string) (*models.User, error) {
	return m.findUser(func(u *models.User) bool { return u.ConnectionID == connectionID })
}

func (m *MemoryStore) findUser(match func(*models.User) bool) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryStore) ListRoomUsers(ctx context.Context, roomID string) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roomUsersLocked(NormalizeRoomID(roomID)), nil
}

func (m *MemoryStore) roomUsersLocked(roomID string) []models.User {
	users := make([]models.User, 0)
	for _, u := range m.users {
		if u.RoomID == roomID {
			users = append(users, *copyUser(u))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func (m *MemoryStore) UpdateRoomData(ctx context.Context, roomID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[NormalizeRoomID(roomID)]
	if !ok {
		return ErrRoomNotFound
	}
	room.RoomData = copyBytes(data)
	return nil
}

func (m *MemoryStore) UpdateUserData(ctx context.Context, userID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.UserData = copyBytes(data)
	return nil
}

func (m *MemoryStore) StartRoom(ctx context.Context, roomID string, roomData []byte, userData map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[NormalizeRoomID(roomID)]
	if !ok {
		return ErrRoomNotFound
	}
	for userID := range userData {
		if u, ok := m.users[userID]; !ok || u.RoomID != room.RoomID {
			return fmt.Errorf("memory: seed user %s: %w", userID, ErrUserNotFound)
		}
	}
	room.IsWaiting = false
	room.RoomData = copyBytes(roomData)
	for userID, data := range userData {
		m.users[userID].UserData = copyBytes(data)
	}
	return nil
}

func (m *MemoryStore) UpdatePing(ctx context.Context, connectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ConnectionID == connectionID {
			u.LastPingAt = m.now()
			return nil
		}
	}
	return ErrUserNotFound
}

func (m *MemoryStore) PromoteHost(ctx context.Context, roomID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	roomID = NormalizeRoomID(roomID)
	if _, ok := m.rooms[roomID]; !ok {
		return nil, ErrRoomNotFound
	}
	members := m.roomUsersLocked(roomID)
	if len(members) == 0 {
		return nil, ErrUserNotFound
	}
	for i := range members {
		m.users[members[i].UserID].IsHost = i == 0
	}
	return copyUser(m.users[members[0].UserID]), nil
}

func (m *MemoryStore) DeleteIdleRooms(ctx context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	occupied := make(map[string]bool)
	for _, u := range m.users {
		occupied[u.RoomID] = true
	}
	var deleted int64
	for id, room := range m.rooms {
		if !occupied[id] && room.CreatedAt.Before(olderThan) {
			delete(m.rooms, id)
			deleted++
		}
	}
	return deleted, nil
}

func copyRoom(r *models.Room) *models.Room {
	c := *r
	c.RoomData = copyBytes(r.RoomData)
	return &c
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.UserData = copyBytes(u.UserData)
	return &c
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
