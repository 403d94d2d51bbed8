package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/playmatatu/minigolf/internal/course"
	"github.com/playmatatu/minigolf/internal/game"
	"github.com/stretchr/testify/require"
)

type received struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
}

func startHub(t *testing.T) (*Hub, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := NewHub()
	go h.Run(ctx)
	return h, ctx
}

func dial(t *testing.T, h *Hub, sess *game.Session) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Serve(w, r, sess)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until one has the wanted type.
func readUntil(t *testing.T, conn *websocket.Conn, want string) received {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg received
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == want {
			return msg
		}
	}
}

func TestLobbyReceivesLocalEvents(t *testing.T) {
	h, _ := startHub(t)
	conn := dial(t, h, nil)
	require.Eventually(t, func() bool { return h.RoomSize("") == 1 }, time.Second, 5*time.Millisecond)

	h.Event("golf_abc", game.Event{Type: game.EventWon, Level: 2, Strokes: 3})

	msg := readUntil(t, conn, "event")
	require.Equal(t, "golf_abc", msg.SessionID)

	var e game.Event
	require.NoError(t, json.Unmarshal(msg.Data, &e))
	require.Equal(t, game.EventWon, e.Type)
	require.Equal(t, 2, e.Level)
}

func TestLobbyIsReadOnly(t *testing.T) {
	h, _ := startHub(t)
	conn := dial(t, h, nil)

	require.NoError(t, conn.WriteJSON(Message{Type: "hit", Data: json.RawMessage(`{"aim":0,"power":10}`)}))
	msg := readUntil(t, conn, "error")
	require.Contains(t, msg.Message, "read-only")
}

func TestRelayToLobby(t *testing.T) {
	h, _ := startHub(t)
	conn := dial(t, h, nil)
	require.Eventually(t, func() bool { return h.RoomSize("") == 1 }, time.Second, 5*time.Millisecond)

	h.RelayToLobby([]byte(`not json`))
	h.RelayToLobby([]byte(`{"session_id":"golf_remote","event":{"type":"stopped","level":1}}`))

	msg := readUntil(t, conn, "event")
	require.Equal(t, "golf_remote", msg.SessionID)
	require.JSONEq(t, `{"type":"stopped","level":1}`, string(msg.Data))
}

func TestSessionSocketHitAndPing(t *testing.T) {
	h, ctx := startHub(t)

	c, err := course.DefaultCatalog(0.5)
	require.NoError(t, err)
	m, err := game.NewManager(ctx, c, game.DefaultTuning(), game.DefaultSessionOptions(), h, nil)
	require.NoError(t, err)
	t.Cleanup(m.Shutdown)

	sess, err := m.Create(1)
	require.NoError(t, err)

	conn := dial(t, h, sess)
	first := readUntil(t, conn, "frame")
	require.Equal(t, sess.ID, first.SessionID)

	var snap game.Snapshot
	require.NoError(t, json.Unmarshal(first.Data, &snap))
	require.Equal(t, 1, snap.Level)
	require.True(t, snap.Stopped)

	require.NoError(t, conn.WriteJSON(Message{Type: "ping"}))
	readUntil(t, conn, "pong")

	require.NoError(t, conn.WriteJSON(Message{Type: "hit", Data: json.RawMessage(`{"aim":1.57,"power":30}`)}))
	hit := readUntil(t, conn, "event")
	var e game.Event
	require.NoError(t, json.Unmarshal(hit.Data, &e))
	require.Equal(t, game.EventHit, e.Type)
	require.Equal(t, 1, e.Strokes)

	require.NoError(t, conn.WriteJSON(Message{Type: "time_scale", Data: json.RawMessage(`{"scale":"fast"}`)}))
	bad := readUntil(t, conn, "error")
	require.Contains(t, bad.Message, "time_scale")

	require.NoError(t, conn.WriteJSON(Message{Type: "teleport"}))
	unknown := readUntil(t, conn, "error")
	require.Contains(t, unknown.Message, "teleport")
}

func TestHubShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub()
	go h.Run(ctx)

	conn := dial(t, h, nil)
	require.Eventually(t, func() bool { return h.RoomSize("") == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-h.done
	require.Equal(t, 0, h.RoomSize(""))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}
