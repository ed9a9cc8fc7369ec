package im

import "sync"

// Registry maps a user id to its live session. At most one entry exists per
// user id: a later registration for the same id replaces the earlier one
// (last-connected-wins, no multi-device fan-out). Entries are never persisted.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[int64]*Session),
	}
}

// Register associates userID with the session, replacing any prior entry for
// that id. Overwriting is intentional: it is what makes reconnect work.
func (r *Registry) Register(userID int64, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[userID] = s
}

// Unregister removes the entry for userID if present. No-op if absent.
func (r *Registry) Unregister(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, userID)
}

// UnregisterSession removes the entry for userID only if it still points at s,
// and reports whether it did. A session replaced by a newer connection must
// not evict its successor during its own teardown.
func (r *Registry) UnregisterSession(userID int64, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[userID]
	if !ok || current != s {
		return false
	}

	delete(r.sessions, userID)
	return true
}

// Lookup returns the live session for userID, or false when the user has no
// registered connection. A miss is an expected outcome, never an error.
func (r *Registry) Lookup(userID int64) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[userID]
	return s, ok
}

// ActiveCount returns the number of registered sessions.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

// snapshot returns the current sessions for shutdown iteration.
func (r *Registry) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// clear drops every entry.
func (r *Registry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions = make(map[int64]*Session)
}
