package realtime

import "sync"

// Registry is the process-wide table of live sessions keyed by
// authenticated user. It is owned by the server process and injected
// into connection handlers; registration, lookup and broadcast may be
// called concurrently from independent connection goroutines.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]map[*Session]struct{}
}

// NewRegistry constructs an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]map[*Session]struct{})}
}

// Register records a live session for the user. A user may hold any
// number of concurrent sessions (tabs, devices); all of them receive
// broadcasts.
func (r *Registry) Register(userID string, s *Session) {
	if userID == "" || s == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[userID]
	if !ok {
		set = make(map[*Session]struct{})
		r.sessions[userID] = set
	}
	set[s] = struct{}{}
}

// Unregister removes a session. Safe to call for sessions that never
// authenticated or were already removed.
func (r *Registry) Unregister(userID string, s *Session) {
	if userID == "" || s == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[userID]
	if !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(r.sessions, userID)
	}
}

// SessionsFor returns the live sessions registered for a user, possibly
// none. The returned slice is a snapshot.
func (r *Registry) SessionsFor(userID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.sessions[userID]
	out := make([]*Session, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

// Broadcast pushes an event to every live session of every listed user.
// Duplicate user ids are delivered once. Delivery is best-effort: a
// user with no live session is skipped.
func (r *Registry) Broadcast(ev Event, userIDs ...string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(userIDs))
	for _, userID := range userIDs {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		for s := range r.sessions[userID] {
			s.Push(ev)
		}
	}
}
