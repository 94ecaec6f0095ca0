// Package memory provides in-process implementations of the application
// ports. Sessions are live simulations, so the registry holds handles to
// running goroutines rather than serialized state.
package memory

import (
	"context"
	"sync"

	"lifetree-backend/application/ports"
)

// SessionStore is an in-memory session registry
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]ports.SessionHandle
}

// NewSessionStore creates a new in-memory session store
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]ports.SessionHandle),
	}
}

// Put registers a session handle under its id
func (s *SessionStore) Put(ctx context.Context, handle ports.SessionHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[handle.ID()] = handle
	return nil
}

// Get retrieves a session handle by id
func (s *SessionStore) Get(ctx context.Context, id string) (ports.SessionHandle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	handle, exists := s.sessions[id]
	return handle, exists
}

// List returns all registered session handles
func (s *SessionStore) List(ctx context.Context) []ports.SessionHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	handles := make([]ports.SessionHandle, 0, len(s.sessions))
	for _, handle := range s.sessions {
		handles = append(handles, handle)
	}
	return handles
}

// Remove deletes a session handle from the registry. Stopping the
// session is the caller's responsibility.
func (s *SessionStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Count returns the number of registered sessions
func (s *SessionStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}
