package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"qwixxserver/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// roomDispatcher subscribes on "join" and echoes everything else.
type roomDispatcher struct {
	hub          *Hub
	disconnected chan string
}

func (d *roomDispatcher) Handle(ctx context.Context, connID string, msg models.Message) {
	if msg.Event != "join" {
		d.hub.EmitTo(connID, msg)
		return
	}
	var room string
	if err := msg.Arg(0, &room); err != nil {
		d.hub.EmitTo(connID, models.NewErrorMessage(models.ErrCodeBadRequest, err.Error()))
		return
	}
	d.hub.Subscribe(connID, room)
	joined, _ := models.NewMessage("joined", connID)
	d.hub.EmitRoom(room, joined)
}

func (d *roomDispatcher) Disconnect(ctx context.Context, connID string) {
	d.disconnected <- connID
}

func startHub(t *testing.T) (*Hub, *roomDispatcher, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil, zap.NewNop())
	d := &roomDispatcher{hub: hub, disconnected: make(chan string, 4)}

	router := gin.New()
	router.GET("/ws", hub.ServeWS(d))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return hub, d, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, args ...interface{}) {
	t.Helper()
	msg, err := models.NewMessage(event, args...)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(msg))
}

func receive(t *testing.T, conn *websocket.Conn) models.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg models.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubEchoAndMalformedFrames(t *testing.T) {
	_, _, url := startHub(t)
	conn := dial(t, url)

	send(t, conn, "hello", "world", 3)
	msg := receive(t, conn)
	assert.Equal(t, "hello", msg.Event)
	var word string
	require.NoError(t, msg.Arg(0, &word))
	assert.Equal(t, "world", word)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	msg = receive(t, conn)
	assert.Equal(t, models.EventError, msg.Event)
	var payload models.ErrorPayload
	require.NoError(t, msg.Arg(0, &payload))
	assert.Equal(t, models.ErrCodeBadRequest, payload.Code)
}

func TestHubRoomBroadcastAndDisconnect(t *testing.T) {
	hub, d, url := startHub(t)
	alice := dial(t, url)
	bob := dial(t, url)

	send(t, alice, "join", "ab12")
	joined := receive(t, alice)
	var aliceID string
	require.NoError(t, joined.Arg(0, &aliceID))

	send(t, bob, "join", "ab12")
	var bobID string
	require.NoError(t, receive(t, bob).Arg(0, &bobID))
	var seen string
	require.NoError(t, receive(t, alice).Arg(0, &seen))
	assert.Equal(t, bobID, seen)
	assert.NotEqual(t, aliceID, bobID)

	hub.Unsubscribe(aliceID)
	hub.EmitRoom("ab12", models.Message{Event: "only-bob"})
	assert.Equal(t, "only-bob", receive(t, bob).Event)

	require.NoError(t, bob.Close())
	select {
	case id := <-d.disconnected:
		assert.Equal(t, bobID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect was not dispatched")
	}
	assert.Eventually(t, func() bool { return hub.Connections() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:5173"})
	req := httptest.NewRequest("GET", "/ws", nil)
	assert.True(t, check(req), "requests without Origin are not browsers")

	req.Header.Set("Origin", "http://localhost:5173")
	assert.True(t, check(req))
	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
	assert.True(t, originChecker(nil)(req))
}
