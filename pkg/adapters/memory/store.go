package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/manas360/stepwise/pkg/domain"
	"github.com/manas360/stepwise/pkg/ports"
)

// Store implements ports.RecordStore in memory.
// Safe for concurrent use.
type Store struct {
	records []*domain.FinalizedRecord
	mu      sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{}
}

// Append stores a deep copy of the record.
func (s *Store) Append(_ context.Context, record *domain.FinalizedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(record.ID) >= 0 {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateRecord, record.ID)
	}
	s.records = append(s.records, record.Clone())
	return nil
}

// Get retrieves a copy of the record so callers can't mutate the store.
func (s *Store) Get(_ context.Context, id string) (*domain.FinalizedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrRecordNotFound, id)
	}
	return s.records[i].Clone(), nil
}

// List returns matching records, newest first. Records with equal timestamps
// are returned most recently appended first.
func (s *Store) List(_ context.Context, filter ports.RecordFilter) ([]*domain.FinalizedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.FinalizedRecord, 0)
	for i := len(s.records) - 1; i >= 0; i-- {
		if filter.Matches(s.records[i]) {
			out = append(out, s.records[i].Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Delete removes the record.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", domain.ErrRecordNotFound, id)
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	return nil
}

func (s *Store) indexOf(id string) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}
