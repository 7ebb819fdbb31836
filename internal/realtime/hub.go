// Package realtime fans lifecycle events out to connected WebSocket
// sessions: every admin session sees every event, a user session sees
// only events for its own records. Delivery is best-effort and at most
// once per session; a slow or disconnected session misses events and is
// expected to re-read the authoritative store on reconnect.
package realtime

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const sessionBuffer = 32

// Session is one connected recipient. Events arrive on a buffered
// channel; when the buffer is full the event is dropped for this session
// rather than blocking the publisher.
type Session struct {
	ID     uuid.UUID
	UserID int64
	Admin  bool
	send   chan Event

	closeOnce sync.Once
}

func NewSession(userID int64, admin bool) *Session {
	return &Session{
		ID:     uuid.New(),
		UserID: userID,
		Admin:  admin,
		send:   make(chan Event, sessionBuffer),
	}
}

// Events is the stream the transport layer writes to the wire.
func (s *Session) Events() <-chan Event { return s.send }

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.send) })
}

// Hub tracks connected sessions. One session per user id: a newer
// connection for the same user replaces the older one.
type Hub struct {
	mu      sync.RWMutex
	admins  map[uuid.UUID]*Session
	users   map[int64]*Session
	logger  *slog.Logger
	dropped atomic.Int64
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		admins: make(map[uuid.UUID]*Session),
		users:  make(map[int64]*Session),
		logger: logger,
	}
}

func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.Admin {
		h.admins[s.ID] = s
		return
	}
	if old, ok := h.users[s.UserID]; ok && old.ID != s.ID {
		old.close()
	}
	h.users[s.UserID] = s
}

func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.Admin {
		delete(h.admins, s.ID)
	} else if cur, ok := h.users[s.UserID]; ok && cur.ID == s.ID {
		delete(h.users, s.UserID)
	}
	s.close()
}

// Publish delivers the event to all admin sessions and to the owning
// user's session if connected. It never blocks and never fails the
// caller; undeliverable events are counted and logged.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.admins {
		h.offer(s, ev)
	}
	if ev.UserID != 0 {
		if s, ok := h.users[ev.UserID]; ok {
			h.offer(s, ev)
		}
	}
}

func (h *Hub) offer(s *Session, ev Event) {
	select {
	case s.send <- ev:
	default:
		h.dropped.Add(1)
		h.logger.Warn("event dropped for slow session", "session_id", s.ID, "event_type", ev.Type)
	}
}

// Dropped returns the count of events that could not be delivered.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Connected returns the number of admin and user sessions.
func (h *Hub) Connected() (admins, users int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.admins), len(h.users)
}
