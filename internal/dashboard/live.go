package dashboard

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The feed is read-only; any origin may subscribe.
	CheckOrigin: func(*http.Request) bool { return true },
}

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
)

// liveFrame is one websocket push: the global summary plus a timestamp so
// clients can plot a time series without trusting their own clocks.
type liveFrame struct {
	At      time.Time `json:"at"`
	Summary any       `json:"summary"`
}

// handleLive upgrades the connection and pushes summary frames on the
// configured interval until the client goes away.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	// Reader goroutine: the feed is push-only, but reads must be drained
	// to process control frames and notice the peer closing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.cfg.LiveInterval)
	defer ticker.Stop()

	// First frame immediately so the page renders without waiting a tick.
	if err := s.writeFrame(conn); err != nil {
		return
	}
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := s.writeFrame(conn); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(liveFrame{
		At:      time.Now(),
		Summary: s.svc.Summary(),
	})
}
