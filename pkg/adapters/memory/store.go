package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/reroll/pkg/domain"
)

// Store implements ports.HistoryStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]*domain.Entry
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]*domain.Entry),
	}
}

// Append stores a deep copy of the entry, similar to serialization.
func (s *Store) Append(ctx context.Context, entry *domain.Entry) error {
	copied := entry.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[entry.SessionID] = append(s.data[entry.SessionID], copied)
	return nil
}

// Get returns a copy of the entry so callers can't mutate store state by pointer.
func (s *Store) Get(ctx context.Context, sessionID, entryID string) (*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.data[sessionID] {
		if e.ID == entryID {
			return e.Clone(), nil
		}
	}
	return nil, domain.ErrEntryNotFound
}

// List returns copies of the session's entries, oldest first.
func (s *Store) List(ctx context.Context, sessionID string) ([]*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	out := make([]*domain.Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out, nil
}

// Trim evicts the oldest entries beyond keep.
func (s *Store) Trim(ctx context.Context, sessionID string, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.data[sessionID]
	if keep < 0 || len(entries) <= keep {
		return nil
	}
	if keep == 0 {
		delete(s.data, sessionID)
		return nil
	}
	kept := make([]*domain.Entry, keep)
	copy(kept, entries[len(entries)-keep:])
	s.data[sessionID] = kept
	return nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// Sessions returns the sessions with history, sorted.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}
