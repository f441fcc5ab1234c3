package domain

import "time"

// Patient is the optional binding chosen when a session starts.
// ID is empty for ad-hoc sessions that only carry a name.
type Patient struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Identifier returns the opaque identifier written into the finalized record.
func (p Patient) Identifier() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// SessionState is the snapshot of one active session.
// Engine operations never mutate a state in place; they return a new one.
type SessionState struct {
	// ProtocolID identifies the schema this session runs.
	ProtocolID string `json:"protocol_id"`

	Patient Patient `json:"patient"`

	// CurrentStep is the 1-based step cursor.
	CurrentStep int `json:"current_step"`

	// Fields holds every answer collected so far, for any step.
	Fields *Values `json:"fields"`

	StartedAt time.Time `json:"started_at"`

	// History records the step indexes visited, in order.
	History []int `json:"history,omitempty"`

	// Schema is attached at runtime and never serialized.
	Schema *StepSchema `json:"-"`
}

// NewSessionState creates a state positioned at step 1 with group fields initialized.
func NewSessionState(schema *StepSchema, patient Patient, startedAt time.Time) *SessionState {
	return &SessionState{
		ProtocolID:  schema.ProtocolID,
		Patient:     patient,
		CurrentStep: 1,
		Fields:      InitialValues(schema),
		StartedAt:   startedAt,
		History:     []int{1},
		Schema:      schema,
	}
}

// InitialValues builds the starting field store for a schema: empty, except
// that every group field holds all of its declared keys as empty strings.
func InitialValues(schema *StepSchema) *Values {
	values := NewValues()
	for _, step := range schema.Steps {
		for _, f := range step.Fields {
			if f.Kind != FieldGroup {
				continue
			}
			group := NewValues()
			for _, k := range f.Keys {
				group.Set(k.Key, "")
			}
			if f.Other != nil {
				group.Set(f.Other.ValueKey, "")
				if f.Other.LabelKey != "" {
					group.Set(f.Other.LabelKey, "")
				}
			}
			values.Set(f.Name, group)
		}
	}
	return values
}

// StepCount returns N for the bound schema, or 0 when unbound.
func (s *SessionState) StepCount() int {
	if s.Schema == nil {
		return 0
	}
	return s.Schema.Len()
}

// AtTerminal reports whether the cursor is on the last step.
func (s *SessionState) AtTerminal() bool {
	return s.Schema != nil && s.CurrentStep == s.Schema.Len()
}

// Step returns the definition of the current step.
func (s *SessionState) Step() (StepDefinition, bool) {
	if s.Schema == nil {
		return StepDefinition{}, false
	}
	return s.Schema.Step(s.CurrentStep)
}

// Clone returns a deep copy. The schema pointer is shared.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	next := *s
	next.Fields = s.Fields.Clone()
	if next.Fields == nil {
		next.Fields = NewValues()
	}
	next.History = make([]int, len(s.History))
	copy(next.History, s.History)
	return &next
}
