package screens

import (
	"errors"
	"net/http"

	"qwixxserver/database"
	"qwixxserver/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RoomInfo answers whether a room code exists and who is in it.
func RoomInfo(c *gin.Context, store database.SessionStore, logger *zap.Logger) {
	ctx := c.Request.Context()
	room, err := store.FetchRoom(ctx, c.Param("roomId"))
	if err != nil {
		if errors.Is(err, database.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": models.ErrCodeRoomNotFound, "error": "Room not found"})
			return
		}
		logger.Error("Failed to fetch room", zap.String("roomId", c.Param("roomId")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": models.ErrCodeInternal, "error": "internal error"})
		return
	}

	members, err := store.ListRoomUsers(ctx, room.RoomID)
	if err != nil {
		logger.Error("Failed to list room members", zap.String("roomId", room.RoomID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": models.ErrCodeInternal, "error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, models.NewRoomSummary(room, members))
}

// Health reports liveness and the number of open realtime connections.
func Health(c *gin.Context, connections func() int) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": connections()})
}
