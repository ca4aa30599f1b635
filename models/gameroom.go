package models

import (
	"time"
)

// Room is one play session. RoomData is owned by the room's game module and
// stored verbatim.
type Room struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	RoomID    string    `gorm:"uniqueIndex;size:16;not null" json:"roomId"`
	GameID    string    `gorm:"not null" json:"gameId"`
	IsWaiting bool      `gorm:"not null" json:"isWaiting"`
	RoomData  []byte    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}
