package ports

import (
	"context"

	"github.com/manas360/stepwise/pkg/domain"
)

// RecordFilter narrows a record listing. Zero values match everything.
type RecordFilter struct {
	PatientIdentifier string
	TemplateID        string
	// Limit caps the number of records returned; 0 means no limit.
	Limit int
}

// Matches reports whether a record passes the filter, ignoring Limit.
func (f RecordFilter) Matches(r *domain.FinalizedRecord) bool {
	if f.PatientIdentifier != "" && r.PatientIdentifier != f.PatientIdentifier {
		return false
	}
	if f.TemplateID != "" && r.TemplateID != f.TemplateID {
		return false
	}
	return true
}

// RecordStore persists finalized session records.
// Records are immutable once appended; key order inside Data must survive a
// round trip through the store.
type RecordStore interface {
	// Append stores a new record.
	// Returns domain.ErrDuplicateRecord if a record with the same ID exists.
	Append(ctx context.Context, record *domain.FinalizedRecord) error

	// Get retrieves a record by ID.
	// Returns domain.ErrRecordNotFound if the record does not exist.
	Get(ctx context.Context, id string) (*domain.FinalizedRecord, error)

	// List returns matching records, newest first.
	List(ctx context.Context, filter RecordFilter) ([]*domain.FinalizedRecord, error)

	// Delete removes a record.
	// Returns domain.ErrRecordNotFound if the record does not exist.
	Delete(ctx context.Context, id string) error
}
