package trips

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps trips in process memory. Used in tests and on
// installs without persistent storage.
type MemoryStore struct {
	mu    sync.RWMutex
	trips map[string]Trip
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trips: make(map[string]Trip),
	}
}

// Save inserts or replaces a trip.
func (s *MemoryStore) Save(_ context.Context, trip *Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trips[trip.ID] = *trip
	return nil
}

// Get returns one trip by ID.
func (s *MemoryStore) Get(_ context.Context, id string) (*Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trip, ok := s.trips[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &trip, nil
}

// List returns trips most recently started first.
func (s *MemoryStore) List(_ context.Context, limit int) ([]*Trip, error) {
	s.mu.RLock()
	out := make([]*Trip, 0, len(s.trips))
	for _, trip := range s.trips {
		t := trip
		out = append(out, &t)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
