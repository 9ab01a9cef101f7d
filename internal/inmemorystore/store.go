package inmemorystore

import (
	"context"
	"sync"
	"time"

	"github.com/RoJaebl/portfolio/internal/runstore"
)

// Store is an in-memory implementation of runstore.Store. A single mutex is
// enough: writes happen once per successful run and the compare-and-set of
// RecordSuccess has to be atomic per key.
type Store struct {
	mu   sync.Mutex
	last map[string]time.Time
}

var _ runstore.Store = (*Store)(nil)

// New creates a new, empty in-memory store.
func New() *Store {
	return &Store{last: make(map[string]time.Time)}
}

// LastSuccess implements runstore.Store.
func (s *Store) LastSuccess(ctx context.Context, task string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.last[task]
	return at, ok, nil
}

// RecordSuccess implements runstore.Store.
func (s *Store) RecordSuccess(ctx context.Context, task string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.last[task]; ok && prev.After(startedAt) {
		return nil
	}
	s.last[task] = startedAt
	return nil
}
