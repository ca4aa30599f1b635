package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"qwixxserver/models"

	"gorm.io/gorm"
)

// GormStore is the SessionStore backed by a relational database (postgres in
// production, sqlite for local runs and tests).
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	if db == nil {
		panic("database connection cannot be nil for GormStore")
	}
	return &GormStore{db: db}
}

func (s *GormStore) CreateRoom(ctx context.Context, gameID string) (*models.Room, error) {
	for i := 0; i < maxRoomIDAttempts; i++ {
		roomID, err := newRoomID()
		if err != nil {
			return nil, fmt.Errorf("gorm: generate room id: %w", err)
		}
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Room{}).Where("room_id = ?", roomID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("gorm: check room id %s: %w", roomID, err)
		}
		if count > 0 {
			continue
		}

		room := models.Room{RoomID: roomID, GameID: gameID, IsWaiting: true}
		if err := s.db.WithContext(ctx).Create(&room).Error; err != nil {
			// lost a race for the same code
			if isDuplicateEntryError(err) {
				continue
			}
			return nil, fmt.Errorf("gorm: create room: %w", err)
		}
		return &room, nil
	}
	return nil, ErrRoomIDExhausted
}

func (s *GormStore) FetchRoom(ctx context.Context, roomID string) (*models.Room, error) {
	return fetchRoom(s.db.WithContext(ctx), NormalizeRoomID(roomID))
}

func fetchRoom(tx *gorm.DB, roomID string) (*models.Room, error) {
	var room models.Room
	if err := tx.Where("room_id = ?", roomID).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room %s: %w", roomID, err)
	}
	return &room, nil
}

func (s *GormStore) JoinRoom(ctx context.Context, roomID, connectionID string) (*models.User, *models.Room, error) {
	roomID = NormalizeRoomID(roomID)
	userID, userKey, err := newUserCredentials()
	if err != nil {
		return nil, nil, fmt.Errorf("gorm: generate user credentials: %w", err)
	}

	var user models.User
	var room *models.Room
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		room, err = fetchRoom(tx, roomID)
		if err != nil {
			return err
		}
		if !room.IsWaiting {
			return ErrRoomStarted
		}

		if err := tx.Where("connection_id = ?", connectionID).Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("gorm: clear users of connection %s: %w", connectionID, err)
		}

		var others int64
		if err := tx.Model(&models.User{}).Where("room_id = ?", roomID).Count(&others).Error; err != nil {
			return fmt.Errorf("gorm: count users of room %s: %w", roomID, err)
		}

		now := time.Now()
		user = models.User{
			UserID:       userID,
			UserKey:      userKey,
			RoomID:       roomID,
			ConnectionID: connectionID,
			IsHost:       others == 0,
			CreatedAt:    now,
			LastPingAt:   now,
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("gorm: create user in room %s: %w", roomID, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &user, room, nil
}

func (s *GormStore) LeaveRoom(ctx context.Context, connectionID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("connection_id = ?", connectionID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("gorm: find user of connection %s: %w", connectionID, err)
		}
		if err := tx.Delete(&user).Error; err != nil {
			return fmt.Errorf("gorm: delete user %s: %w", user.UserID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) FetchUserByToken(ctx context.Context, userKey string) (*models.User, error) {
	return s.findUser(ctx, "user_key = ?", userKey)
}

func (s *GormStore) FetchUserByID(ctx context.Context, userID string) (*models.User, error) {
	return s.findUser(ctx, "user_id = ?", userID)
}

func (s *GormStore) FetchUserByConnection(ctx context.Context, connectionID string) (*models.User, error) {
	return s.findUser(ctx, "connection_id = ?", connectionID)
}

func (s *GormStore) findUser(ctx context.Context, query string, arg string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("gorm: find user (%s): %w", query, err)
	}
	return &user, nil
}

func (s *GormStore) ListRoomUsers(ctx context.Context, roomID string) ([]models.User, error) {
	users := make([]models.User, 0)
	if err := s.db.WithContext(ctx).Where("room_id = ?", NormalizeRoomID(roomID)).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("gorm: list users of room %s: %w", roomID, err)
	}
	return users, nil
}

func (s *GormStore) UpdateRoomData(ctx context.Context, roomID string, data []byte) error {
	result := s.db.WithContext(ctx).Model(&models.Room{}).
		Where("room_id = ?", NormalizeRoomID(roomID)).
		Update("room_data", data)
	if result.Error != nil {
		return fmt.Errorf("gorm: update room data of %s: %w", roomID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (s *GormStore) UpdateUserData(ctx context.Context, userID string, data []byte) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", userID).
		Update("user_data", data)
	if result.Error != nil {
		return fmt.Errorf("gorm: update user data of %s: %w", userID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *GormStore) StartRoom(ctx context.Context, roomID string, roomData []byte, userData map[string][]byte) error {
	roomID = NormalizeRoomID(roomID)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Room{}).Where("room_id = ?", roomID).
			Updates(map[string]interface{}{"is_waiting": false, "room_data": roomData})
		if result.Error != nil {
			return fmt.Errorf("gorm: start room %s: %w", roomID, result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrRoomNotFound
		}
		for userID, data := range userData {
			result := tx.Model(&models.User{}).
				Where("user_id = ? AND room_id = ?", userID, roomID).
				Update("user_data", data)
			if result.Error != nil {
				return fmt.Errorf("gorm: seed user %s: %w", userID, result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("gorm: seed user %s: %w", userID, ErrUserNotFound)
			}
		}
		return nil
	})
}

func (s *GormStore) UpdatePing(ctx context.Context, connectionID string) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("connection_id = ?", connectionID).
		Update("last_ping_at", time.Now())
	if result.Error != nil {
		return fmt.Errorf("gorm: update ping of %s: %w", connectionID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *GormStore) PromoteHost(ctx context.Context, roomID string) (*models.User, error) {
	roomID = NormalizeRoomID(roomID)
	var host models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := fetchRoom(tx, roomID); err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Order("id").First(&host).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("gorm: find earliest member of %s: %w", roomID, err)
		}
		if err := tx.Model(&models.User{}).Where("room_id = ? AND id <> ?", roomID, host.ID).Update("is_host", false).Error; err != nil {
			return fmt.Errorf("gorm: clear hosts of %s: %w", roomID, err)
		}
		if err := tx.Model(&host).Update("is_host", true).Error; err != nil {
			return fmt.Errorf("gorm: promote %s: %w", host.UserID, err)
		}
		host.IsHost = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &host, nil
}

func (s *GormStore) DeleteIdleRooms(ctx context.Context, olderThan time.Time) (int64, error) {
	occupied := s.db.WithContext(ctx).Model(&models.User{}).Select("room_id")
	result := s.db.WithContext(ctx).Where("created_at < ? AND room_id NOT IN (?)", olderThan, occupied).Delete(&models.Room{})
	if result.Error != nil {
		return 0, fmt.Errorf("gorm: delete idle rooms: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// isDuplicateEntryError matches unique constraint failures across drivers.
func isDuplicateEntryError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
