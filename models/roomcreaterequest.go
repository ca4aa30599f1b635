package models

import "time"

// RoomCreateRequest is the body of POST /rooms.
type RoomCreateRequest struct {
	GameID string `json:"gameId"`
}

// RoomSummary is the public view of a room returned by GET /rooms/:roomId.
type RoomSummary struct {
	RoomID    string          `json:"roomId"`
	GameID    string          `json:"gameId"`
	IsWaiting bool            `json:"isWaiting"`
	Members   []MemberSummary `json:"members"`
	CreatedAt time.Time       `json:"createdAt"`
}

type MemberSummary struct {
	UserID string `json:"userId"`
	IsHost bool   `json:"isHost"`
}

// NewRoomSummary lists members in join order without their keys.
func NewRoomSummary(room *Room, members []User) RoomSummary {
	summary := RoomSummary{
		RoomID:    room.RoomID,
		GameID:    room.GameID,
		IsWaiting: room.IsWaiting,
		Members:   make([]MemberSummary, 0, len(members)),
		CreatedAt: room.CreatedAt,
	}
	for _, m := range members {
		summary.Members = append(summary.Members, MemberSummary{UserID: m.UserID, IsHost: m.IsHost})
	}
	return summary
}
