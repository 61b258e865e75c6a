package gateway

import (
	"log/slog"
	"sync"

	"canvasd/internal/history"
	"canvasd/internal/store"
)

// Session pairs a SessionHistory with the set of websocket clients
// currently joined to it, so a broadcast can reach every member.
type Session struct {
	History *history.SessionHistory

	mu      sync.RWMutex
	clients map[string]*Client // by Client.SessionID
}

func newSession(h *history.SessionHistory) *Session {
	return &Session{History: h, clients: make(map[string]*Client)}
}

// Join adds client to the session's broadcast set.
func (s *Session) Join(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client.SessionID] = client
}

// Leave removes the client identified by sessionID from the broadcast set.
func (s *Session) Leave(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, sessionID)
}

// Broadcast enqueues env on every joined client's send queue, except the
// client identified by except (typically the originator). Clients whose
// queue is full are skipped rather than blocking the broadcaster.
func (s *Session) Broadcast(env Envelope, except string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, c := range s.clients {
		if id == except {
			continue
		}
		select {
		case c.Send <- env:
		default:
		}
	}
}

// MemberCount reports how many clients are currently joined.
func (s *Session) MemberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Hub owns the in-memory registry of active canvas sessions, keyed by
// session id. Persistence lives behind each Session's history.Backend.
type Hub struct {
	log *slog.Logger

	baseSizeLimit  uint
	emergencyExtra uint
	maxInvites     int
	maxInviteUses  int

	backendFactory func(sessionID string) history.Backend

	mu       sync.RWMutex
	sessions map[string]*Session
}

// HubOption configures a Hub at construction time.
type HubOption func(*Hub)

// WithBackendFactory overrides how a Session's history.Backend is built.
// The default constructs a fresh store.MemoryBackend per session.
func WithBackendFactory(f func(sessionID string) history.Backend) HubOption {
	return func(h *Hub) { h.backendFactory = f }
}

// WithSizeLimits overrides the base/emergency byte budgets new sessions are
// created with.
func WithSizeLimits(base, emergencyExtra uint) HubOption {
	return func(h *Hub) {
		h.baseSizeLimit = base
		h.emergencyExtra = emergencyExtra
	}
}

// WithInviteLimits overrides the per-session invite caps new sessions are
// created with.
func WithInviteLimits(maxInvites, maxInviteUses int) HubOption {
	return func(h *Hub) {
		h.maxInvites = maxInvites
		h.maxInviteUses = maxInviteUses
	}
}

// NewHub constructs a Hub instance.
func NewHub(log *slog.Logger, opts ...HubOption) *Hub {
	if log == nil {
		log = slog.Default()
	}
	h := &Hub{
		log:      log,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.backendFactory == nil {
		h.backendFactory = func(string) history.Backend { return store.NewMemoryBackend() }
	}
	return h
}

// GetOrCreateSession returns the Session for id, creating a fresh
// SessionHistory (and backend) the first time it is requested.
func (h *Hub) GetOrCreateSession(id string) *Session {
	h.mu.RLock()
	s, ok := h.sessions[id]
	h.mu.RUnlock()
	if ok {
		return s
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.sessions[id]; ok {
		return s
	}

	hist := history.New(history.Config{
		ID:             id,
		BaseSizeLimit:  h.baseSizeLimit,
		EmergencyExtra: h.emergencyExtra,
		MaxInvites:     h.maxInvites,
		MaxInviteUses:  h.maxInviteUses,
	}, h.backendFactory(id))

	s = newSession(hist)
	h.sessions[id] = s
	h.log.Info("session.created", "session_id", id)
	return s
}

// Lookup returns the Session for id without creating one.
func (h *Hub) Lookup(id string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}

// RemoveIfEmpty drops the session with the given id when it has no joined
// clients, so idle sessions don't accumulate in memory forever.
func (h *Hub) RemoveIfEmpty(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	if !ok {
		return
	}
	if s.MemberCount() == 0 {
		delete(h.sessions, id)
		h.log.Info("session.closed", "session_id", id)
	}
}
