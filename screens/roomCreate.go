package screens

import (
	"errors"
	"net/http"

	"qwixxserver/database"
	"qwixxserver/games"
	"qwixxserver/gateway"
	"qwixxserver/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RoomCreate creates a room over HTTP so that an invite link can be shared
// before anyone opens a realtime connection.
func RoomCreate(c *gin.Context, store database.SessionStore, registry *games.Registry, logger *zap.Logger) {
	var request models.RoomCreateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		logger.Info("Failed to bind room create request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"status": models.ErrCodeBadRequest,
			"error":  "Invalid request body",
		})
		return
	}

	room, err := gateway.CreateRoom(c.Request.Context(), store, registry, request.GameID)
	switch {
	case err == nil:
	case errors.Is(err, games.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"status": models.ErrCodeBadRequest, "error": err.Error()})
		return
	case errors.Is(err, games.ErrConfiguration):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status": models.ErrCodeConfiguration,
			"error":  err.Error(),
			"games":  registry.GameIDs(),
		})
		return
	default:
		logger.Error("Failed to create room", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": models.ErrCodeInternal, "error": "internal error"})
		return
	}

	logger.Info("Room created", zap.String("roomId", room.RoomID), zap.String("gameId", room.GameID))
	c.JSON(http.StatusCreated, gin.H{"roomId": room.RoomID})
}
