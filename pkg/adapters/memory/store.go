package memory

import (
	"context"
	"sync"

	"github.com/aretw0/lemon/pkg/domain"
)

// Store implements ports.Storage in memory.
// Safe for concurrent use. Everything is lost when the process exits.
type Store struct {
	data map[string]map[string]string
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]map[string]string),
	}
}

// GetItem returns the value of key for the session.
func (s *Store) GetItem(ctx context.Context, sessionID, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, ok := s.data[sessionID]
	if !ok {
		return "", domain.ErrItemNotFound
	}
	val, ok := items[key]
	if !ok {
		return "", domain.ErrItemNotFound
	}
	return val, nil
}

// SetItem stores value under key.
func (s *Store) SetItem(ctx context.Context, sessionID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, ok := s.data[sessionID]
	if !ok {
		items = make(map[string]string)
		s.data[sessionID] = items
	}
	items[key] = value
	return nil
}

// RemoveItem deletes key.
func (s *Store) RemoveItem(ctx context.Context, sessionID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if items, ok := s.data[sessionID]; ok {
		delete(items, key)
		if len(items) == 0 {
			delete(s.data, sessionID)
		}
	}
	return nil
}

// Clear drops the whole session.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// Sessions returns the IDs of sessions holding at least one key.
func (s *Store) Sessions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids
}
