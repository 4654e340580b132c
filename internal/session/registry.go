package session

import (
	"fmt"
	"sync"

	"github.com/rickfu415/landing-control/internal/metrics"
)

// ErrNotFound is returned by Registry.Get for unknown session ids.
var ErrNotFound = fmt.Errorf("session not found")

// Registry owns the live sessions, keyed by id. Sessions are created
// on client request and removed on delete or server shutdown; lookup
// of a removed session is an ordinary miss, not an error condition of
// the registry.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	maxLive  int
}

// NewRegistry returns an empty registry capped at maxLive concurrent
// sessions (0 means unlimited).
func NewRegistry(maxLive int) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		maxLive:  maxLive,
	}
}

// Add registers a session. Fails when the live-session cap is reached.
func (r *Registry) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.maxLive > 0 && len(r.sessions) >= r.maxLive {
		return fmt.Errorf("session limit reached (%d live)", r.maxLive)
	}
	r.sessions[s.ID] = s
	metrics.SetSessionsActive(len(r.sessions))
	return nil
}

// Get looks up a session by id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Remove closes and deregisters a session. Removing an unknown id is a
// no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	n := len(r.sessions)
	r.mu.Unlock()

	if ok {
		s.Close()
		metrics.SetSessionsActive(n)
	}
}

// List returns the live sessions in unspecified order.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll closes every session, for shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	metrics.SetSessionsActive(0)
}
