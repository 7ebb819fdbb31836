package realtime

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reviewcash/backend/internal/token"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

// TokenVerifier verifies admin panel tokens for admin session upgrades.
type TokenVerifier interface {
	Verify(tokenString string) (*token.Identity, error)
}

// WSHandler upgrades GET /ws connections into hub sessions. A request
// carrying a valid admin token joins as an admin session; otherwise a uid
// query parameter joins as that user's session.
type WSHandler struct {
	Hub      *Hub
	Tokens   TokenVerifier
	Logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *Hub, tokens TokenVerifier, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		Hub:    hub,
		Tokens: tokens,
		Logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The panel is a Telegram webview; origin checks happen at
			// the CORS layer for the REST surface, tokens gate admin data.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var session *Session
	if raw := r.URL.Query().Get("token"); raw != "" {
		if _, err := h.Tokens.Verify(raw); err != nil {
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
			return
		}
		session = NewSession(0, true)
	} else {
		uid, err := strconv.ParseInt(r.URL.Query().Get("uid"), 10, 64)
		if err != nil || uid == 0 {
			http.Error(w, `{"error":"uid or token required"}`, http.StatusBadRequest)
			return
		}
		session = NewSession(uid, false)
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.Hub.Register(session)
	go h.writePump(conn, session)
	go h.readPump(conn, session)
}

// writePump forwards hub events to the wire and keeps the connection
// alive with pings. Exits when the session channel closes.
func (h *WSHandler) writePump(conn *websocket.Conn, s *Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case ev, ok := <-s.Events():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				h.Logger.Warn("websocket write failed", "session_id", s.ID, "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; its job is to notice the close.
func (h *WSHandler) readPump(conn *websocket.Conn, s *Session) {
	defer h.Hub.Unregister(s)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
