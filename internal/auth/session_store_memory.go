package auth

import (
	"context"
	"sync"
)

// NewInMemorySessionStore returns a refresh-token store backed by a
// mutex-guarded map.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]Session)}
}

// InMemorySessionStore implements SessionStore for tests and for
// running the relay without a database (RUDCHAT_STORE=memory).
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// Save persists the token record, replacing any record already stored
// under the same refresh token.
func (s *InMemorySessionStore) Save(_ context.Context, session Session) error {
	s.mu.Lock()
	s.sessions[session.RefreshToken] = session
	s.mu.Unlock()
	return nil
}

// Find retrieves a token record by refresh token.
func (s *InMemorySessionStore) Find(_ context.Context, refreshToken string) (Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[refreshToken]
	s.mu.RUnlock()
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

// Delete removes the record for the refresh token. Deleting an absent
// token is not an error.
func (s *InMemorySessionStore) Delete(_ context.Context, refreshToken string) error {
	s.mu.Lock()
	delete(s.sessions, refreshToken)
	s.mu.Unlock()
	return nil
}

// Has reports whether a refresh token is currently stored. Useful for
// asserting rotation in tests.
func (s *InMemorySessionStore) Has(refreshToken string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[refreshToken]
	return ok
}
