package server

import (
	"fmt"
	"net/http"
	"presence-chat/auth"
	"presence-chat/domain"
	"presence-chat/errors"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type feedEvent struct {
	Event   string          `json:"event"`
	Message messageResponse `json:"message"`
}

// streamFeed upgrades the connection and pushes every message the caller may
// see until either side goes away. Inbound frames are only read to track
// liveness.
func (s *ChatServer) streamFeed(w http.ResponseWriter, r *http.Request) {
	viewer := auth.IdentityFromContext(r.Context())
	if viewer == "" {
		s.writeError(w, fmt.Errorf("%w: the feed needs a caller identity", errors.ErrUnauthorized))
		return
	}
	sub, err := s.feed.Subscribe(viewer)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", errors.ErrInternal, err))
		return
	}
	defer s.feed.Unsubscribe(sub)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the request.
		s.log.Debug("Feed upgrade failed", "viewer", viewer, "error", err)
		return
	}
	defer func() { _ = conn.Close() }()
	s.log.Info("Feed connected", "viewer", viewer, "addr", r.RemoteAddr)

	gone := make(chan struct{})
	go s.readFeed(conn, gone)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-gone:
			s.log.Info("Feed disconnected", "viewer", viewer)
			return
		case e, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"))
				return
			}
			if err := conn.WriteJSON(toFeedEvent(e)); err != nil {
				s.log.Debug("Feed write failed", "viewer", viewer, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *ChatServer) readFeed(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)
	conn.SetReadLimit(maxInboundSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("Feed read failed", "error", err)
			}
			return
		}
	}
}

func toFeedEvent(e domain.FeedEvent) feedEvent {
	return feedEvent{Event: string(e.Type), Message: toMessageResponse([]domain.Message{e.Message})[0]}
}
