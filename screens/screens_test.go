package screens

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"qwixxserver/database"
	"qwixxserver/games"
	"qwixxserver/models"
	"qwixxserver/qwixx"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRouter(store database.SessionStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	registry := games.NewRegistry(qwixx.New(store, logger))

	router := gin.New()
	router.POST("/rooms", func(c *gin.Context) { RoomCreate(c, store, registry, logger) })
	router.GET("/rooms/:roomId", func(c *gin.Context) { RoomInfo(c, store, logger) })
	router.GET("/health", func(c *gin.Context) { Health(c, func() int { return 3 }) })
	return router
}

func postRoom(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/rooms", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRoomCreate(t *testing.T) {
	store := database.NewMemoryStore()
	router := newRouter(store)

	w := postRoom(router, `{"gameId":"qwixx"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		RoomID string `json:"roomId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	room, err := store.FetchRoom(context.Background(), created.RoomID)
	require.NoError(t, err)
	assert.True(t, room.IsWaiting)

	assert.Equal(t, http.StatusBadRequest, postRoom(router, `{"gameId":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, postRoom(router, `not json`).Code)

	w = postRoom(router, `{"gameId":"chess"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeConfiguration)
}

func TestRoomInfo(t *testing.T) {
	store := database.NewMemoryStore()
	router := newRouter(store)
	ctx := context.Background()

	room, err := store.CreateRoom(ctx, qwixx.GameID)
	require.NoError(t, err)
	host, _, err := store.JoinRoom(ctx, room.RoomID, "c1")
	require.NoError(t, err)
	guest, _, err := store.JoinRoom(ctx, room.RoomID, "c2")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms/"+room.RoomID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), host.UserKey)

	var summary models.RoomSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, room.RoomID, summary.RoomID)
	assert.Equal(t, qwixx.GameID, summary.GameID)
	assert.True(t, summary.IsWaiting)
	assert.Equal(t, []models.MemberSummary{
		{UserID: host.UserID, IsHost: true},
		{UserID: guest.UserID, IsHost: false},
	}, summary.Members)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms/zzzz", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	router := newRouter(database.NewMemoryStore())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","connections":3}`, w.Body.String())
}
