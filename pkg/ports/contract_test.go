package ports_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/manas360/stepwise/pkg/domain"
	"github.com/manas360/stepwise/pkg/ports"
	"github.com/stretchr/testify/assert"
)

// sliceStore is a minimal RecordStore used to check the contract suite itself.
type sliceStore struct {
	mu      sync.Mutex
	records []*domain.FinalizedRecord
}

func (s *sliceStore) Append(_ context.Context, r *domain.FinalizedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.records {
		if existing.ID == r.ID {
			return domain.ErrDuplicateRecord
		}
	}
	s.records = append(s.records, r.Clone())
	return nil
}

func (s *sliceStore) Get(_ context.Context, id string) (*domain.FinalizedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			return r.Clone(), nil
		}
	}
	return nil, domain.ErrRecordNotFound
}

func (s *sliceStore) List(_ context.Context, f ports.RecordFilter) ([]*domain.FinalizedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.FinalizedRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		if f.Matches(s.records[i]) {
			out = append(out, s.records[i].Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *sliceStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.records {
		if r.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return domain.ErrRecordNotFound
}

func TestRecordStoreContract_SliceStore(t *testing.T) {
	ports.RunRecordStoreContract(t, &sliceStore{})
}

func TestRecordFilter_Matches(t *testing.T) {
	rec := &domain.FinalizedRecord{PatientIdentifier: "Asha", TemplateID: "cr"}

	assert.True(t, ports.RecordFilter{}.Matches(rec))
	assert.True(t, ports.RecordFilter{PatientIdentifier: "Asha", Limit: 1}.Matches(rec))
	assert.False(t, ports.RecordFilter{PatientIdentifier: "Ravi"}.Matches(rec))
	assert.False(t, ports.RecordFilter{TemplateID: "other"}.Matches(rec))
}
