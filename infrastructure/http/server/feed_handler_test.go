package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"presence-chat/auth"
	"presence-chat/repositories"
	"presence-chat/runtime"
	"presence-chat/services"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newFeedServer(t *testing.T) (*httptest.Server, *runtime.Feed) {
	t.Helper()
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	messages, err := repositories.NewMessageRepository(db, log)
	req.NoError(err)
	participants := repositories.NewParticipantRepository(db, log, messages)

	feed := runtime.NewFeed(log, 16)
	tokens := auth.NewTokenIssuer("secret", time.Hour)
	service := services.NewChatService(log, participants, messages, nil, nil).WithPublisher(feed).WithSessions(tokens)
	server := httptest.NewServer(NewChatServer(log, service, tokens, false, feed).Routes())
	t.Cleanup(func() {
		feed.Close()
		server.Close()
		_ = messages.Close()
		_ = db.Close()
	})
	return server, feed
}

func post(t *testing.T, server *httptest.Server, path, user string, body any) int {
	t.Helper()
	var payload bytes.Buffer
	require.NoError(t, json.NewEncoder(&payload).Encode(body))
	r, err := http.NewRequest(http.MethodPost, server.URL+path, &payload)
	require.NoError(t, err)
	if user != "" {
		r.Header.Set(auth.UserHeader, user)
	}
	resp, err := server.Client().Do(r)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp.StatusCode
}

func dialFeed(t *testing.T, server *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/feed"
	header := http.Header{}
	header.Set(auth.UserHeader, user)
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func nextEvent(t *testing.T, conn *websocket.Conn) feedEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e feedEvent
	require.NoError(t, conn.ReadJSON(&e))
	return e
}

func TestFeed_Streams_Visible_Messages(t *testing.T) {
	req := require.New(t)
	server, _ := newFeedServer(t)
	req.Equal(http.StatusCreated, post(t, server, "/participants", "", joinRequest{Name: "alice"}))

	bob := dialFeed(t, server, "bob")
	carol := dialFeed(t, server, "carol")

	req.Equal(http.StatusCreated, post(t, server, "/messages", "alice",
		sendMessageRequest{To: "bob", Text: "secret", Type: "private_message"}))
	req.Equal(http.StatusCreated, post(t, server, "/messages", "alice",
		sendMessageRequest{To: "Todos", Text: "hi", Type: "message"}))

	first := nextEvent(t, bob)
	req.Equal("created", first.Event)
	req.Equal("secret", first.Message.Text)
	req.Equal("hi", nextEvent(t, bob).Message.Text)

	// carol never sees the private message
	e := nextEvent(t, carol)
	req.Equal("hi", e.Message.Text)
	req.Equal("alice", e.Message.From)
}

func TestFeed_Requires_Identity(t *testing.T) {
	server, _ := newFeedServer(t)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/feed"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFeed_Closes_Connections_On_Shutdown(t *testing.T) {
	req := require.New(t)
	server, feed := newFeedServer(t)
	conn := dialFeed(t, server, "bob")
	req.Eventually(func() bool { return feed.Len() == 1 }, time.Second, 10*time.Millisecond)

	feed.Close()

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := conn.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.CloseGoingAway))
}
