package domain

import "time"

// RecordStatus is the lifecycle status of a finalized record.
type RecordStatus string

// StatusCompleted is the only status the engine produces.
const StatusCompleted RecordStatus = "completed"

// FinalizedRecord is the immutable result of a completed session.
type FinalizedRecord struct {
	ID                string       `json:"id"`
	TemplateID        string       `json:"template_id"`
	PatientIdentifier string       `json:"patient_identifier"`
	Timestamp         time.Time    `json:"timestamp"`
	Data              *Values      `json:"data"`
	Status            RecordStatus `json:"status"`
}

// Clone returns a deep copy so stores and callers never share Data.
func (r *FinalizedRecord) Clone() *FinalizedRecord {
	if r == nil {
		return nil
	}
	next := *r
	next.Data = r.Data.Clone()
	return &next
}
