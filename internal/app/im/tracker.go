package im

import "sync"

// Tracker maintains the set of user ids currently believed to be online. It is
// pure in-memory soft state: a process restart resets all presence to offline,
// which is an accepted limitation of the single-process design. The durable
// is_online flag kept by the store is bookkeeping parallel to, and independent
// of, this set.
type Tracker struct {
	mu     sync.RWMutex
	online map[int64]struct{}
}

// NewTracker constructs an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		online: make(map[int64]struct{}),
	}
}

// MarkOnline adds userID to the online set. Idempotent.
func (t *Tracker) MarkOnline(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.online[userID] = struct{}{}
}

// MarkOffline removes userID from the online set. Idempotent.
func (t *Tracker) MarkOffline(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.online, userID)
}

// IsOnline reports whether userID is in the online set.
func (t *Tracker) IsOnline(userID int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.online[userID]
	return ok
}

// OnlineCount returns the size of the online set.
func (t *Tracker) OnlineCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.online)
}

// clear empties the online set.
func (t *Tracker) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.online = make(map[int64]struct{})
}
