package httpsse

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/stepherg/catenago/pkg/wire"
)

// wsbridge offers the Connect push-update stream over a websocket instead of
// SSE, for clients that already speak gorilla/websocket and would rather not
// parse an event-stream framing. It carries the same payload as the SSE
// "push_update" event, one JSON text frame per PushUpdates.

const (
	wsPongWait   = 75 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsWriteWait  = 10 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// handleConnectWS upgrades /connect/ws to a websocket and drives the same
// connect.Session as handleConnect, pushing each update as a JSON frame
// tagged with its event name so a client can dispatch on it without
// event-stream parsing.
func (s *Server) handleConnectWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	payload := wire.ConnectPayload{
		Language:        q.Get("language"),
		DetailLevel:     parseDetailLevel(q.Get("detail_level")),
		UserAgent:       r.Header.Get("User-Agent"),
		ForceConnection: q.Get("force_connection") == "true",
	}

	bearer := r.Header.Get("Authorization")
	if bearer == "" {
		if tok := q.Get("access_token"); tok != "" {
			bearer = "Bearer " + tok
		}
	}

	sess, err := s.Service.Connect(bearer, payload)
	if err != nil {
		writeErr(w, err)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger().Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	wc := &wsConn{conn: conn}
	defer conn.Close()

	conn.SetReadLimit(64 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	// Drain and discard client frames; the bridge is push-only, but reading
	// keeps the pong handler firing and detects client-initiated close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := wc.ping(); err != nil {
					return
				}
			case <-pingDone:
				return
			case <-closed:
				return
			}
		}
	}()
	defer close(pingDone)

	if err := sess.Run(r.Context(), func(u *wire.PushUpdates) error {
		return wc.writeJSON(wsPushFrame{Event: "push_update", Payload: u})
	}); err != nil {
		_ = wc.writeJSON(wsPushFrame{Event: "error", Payload: err.Error()})
	}
}

type wsPushFrame struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

func (s *Server) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}
