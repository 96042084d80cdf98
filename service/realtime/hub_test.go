package realtime

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KAsare1/socialfeed-server/cmd/utils"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := NewHub()
	go hub.Run(ctx)
	return hub
}

func TestHubDeliversToUser(t *testing.T) {
	hub := startHub(t)

	mine := &Client{Hub: hub, Send: make(chan []byte, 1), UserID: 1}
	other := &Client{Hub: hub, Send: make(chan []byte, 1), UserID: 2}
	hub.Register <- mine
	hub.Register <- other

	hub.Notify(1, Event{Type: EventLike, ActorID: 2, PostID: 10})

	select {
	case msg := <-mine.Send:
		var ev Event
		require.NoError(t, json.Unmarshal(msg, &ev))
		assert.Equal(t, EventLike, ev.Type)
		assert.Equal(t, uint(10), ev.PostID)
		assert.False(t, ev.CreatedAt.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	select {
	case <-other.Send:
		t.Fatal("event leaked to another user")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := startHub(t)

	slow := &Client{Hub: hub, Send: make(chan []byte), UserID: 3}
	hub.Register <- slow
	require.True(t, hub.Connected(3))

	hub.Notify(3, Event{Type: EventFollow, ActorID: 4})

	require.Eventually(t, func() bool { return !hub.Connected(3) }, time.Second, 10*time.Millisecond)
	_, ok := <-slow.Send
	assert.False(t, ok, "send channel closed")
}

func TestHubUnregister(t *testing.T) {
	hub := startHub(t)

	c := &Client{Hub: hub, Send: make(chan []byte, 1), UserID: 5}
	hub.Register <- c
	hub.Unregister <- c
	hub.Unregister <- c

	assert.False(t, hub.Connected(5))
}

func TestWebSocketEndpoint(t *testing.T) {
	hub := startHub(t)
	auth := utils.NewAuthenticator("secret", time.Minute)

	router := mux.NewRouter()
	NewHandler(hub, auth, []string{"*"}).RegisterRoutes(router)
	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)

	token, _, err := auth.GenerateAccessToken(8)
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Connected(8) }, time.Second, 10*time.Millisecond)
	hub.Notify(8, Event{Type: EventComment, ActorID: 1, PostID: 2, CommentID: 3})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventComment, ev.Type)
	assert.Equal(t, uint(3), ev.CommentID)
}
