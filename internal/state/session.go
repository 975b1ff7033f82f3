// internal/state/session.go
package state

import (
	"context"
	"sync"

	"github.com/user/vendbot/internal/types"
)

// MemorySessionStore keeps authoring sessions in process memory. Sessions
// are lost on restart.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[types.ActorID]types.Session
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[types.ActorID]types.Session)}
}

// Get returns a copy of the actor's session, if any.
func (s *MemorySessionStore) Get(_ context.Context, actor types.ActorID) (*types.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[actor]
	if !ok {
		return nil, false, nil
	}
	return &sess, true, nil
}

// Set stores the session, replacing any existing one for the actor.
func (s *MemorySessionStore) Set(_ context.Context, session *types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ActorID] = *session
	return nil
}

// Delete removes the actor's session. Deleting a missing session is not an error.
func (s *MemorySessionStore) Delete(_ context.Context, actor types.ActorID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, actor)
	return nil
}
