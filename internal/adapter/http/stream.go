package http

import (
	"net/http"
	"time"

	"github.com/couchcryptid/flood-replay-service/internal/domain"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

const (
	streamBuffer = 32
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The replay view is served from other origins during development.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleStream pushes every PlaybackUpdate to a websocket client, starting
// with a snapshot of the current state. A client that falls behind misses
// updates rather than slowing playback.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.deps.Metrics.StreamClients.Inc()
	defer s.deps.Metrics.StreamClients.Dec()

	updates, unsubscribe := s.deps.Replay.Subscribe(streamBuffer)
	defer unsubscribe()

	logger := s.logger.With("request_id", middleware.GetReqID(r.Context()), "remote", r.RemoteAddr)
	logger.Info("stream client connected")
	defer logger.Info("stream client disconnected")

	// Only the reader goroutine reads; only this goroutine writes.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.writeUpdate(conn, s.currentUpdate()); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-readDone:
			return
		case u, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "replay closed"),
					time.Now().Add(writeWait))
				return
			}
			if err := s.writeUpdate(conn, u); err != nil {
				logger.Debug("stream write failed", "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeUpdate(conn *websocket.Conn, u domain.PlaybackUpdate) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(u)
}

// currentUpdate builds the snapshot sent when a client connects.
func (s *Server) currentUpdate() domain.PlaybackUpdate {
	u := domain.PlaybackUpdate{
		SessionID: s.deps.Replay.SessionID(),
		Reason:    domain.ReasonSnapshot,
		State:     s.deps.Replay.State(),
		At:        time.Now().UTC(),
	}
	if frame, err := s.deps.Replay.CurrentFrame(); err == nil {
		u.Frame = &frame
	}
	return u
}
