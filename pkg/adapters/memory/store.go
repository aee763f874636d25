package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/compass/pkg/domain"
)

// Store implements ports.CheckpointStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.SessionState
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.SessionState),
	}
}

// Save persists a deep copy of the state.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.SessionState) error {
	copied := state.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = copied
	return nil
}

// Load returns a copy so callers cannot mutate stored state through the pointer.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return state.Clone(), nil
}

// Delete removes the state.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns stored session IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}
