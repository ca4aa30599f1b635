package models

import (
	"time"
)

// User is a room participant. ID is the insertion sequence and doubles as the
// join order inside a room.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	UserID       string    `gorm:"uniqueIndex;size:32;not null" json:"userId"`
	UserKey      string    `gorm:"uniqueIndex;size:32;not null" json:"-"` // only ever sent to the owning connection
	RoomID       string    `gorm:"index;size:16;not null" json:"roomId"`
	ConnectionID string    `gorm:"index;not null" json:"-"`
	IsHost       bool      `gorm:"not null" json:"isHost"`
	UserData     []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	LastPingAt   time.Time `json:"lastPingAt"`
}
