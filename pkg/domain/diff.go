package domain

import (
	"reflect"
)

// StateDiff represents the changes between two session states.
// It is serialized to JSON so clients can patch their local copy.
type StateDiff struct {
	ProtocolID string `json:"protocol_id"`

	CurrentStep *int `json:"current_step,omitempty"`

	// Fields contains only changed, added or deleted top-level fields, in the
	// order of the new state. Deleted fields are present with a nil value.
	Fields *Values `json:"fields,omitempty"`

	// HistoryAppended contains the step indexes appended to History.
	HistoryAppended []int `json:"history_appended,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState.
// It returns nil when nothing changed.
func Diff(oldState, newState *SessionState) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{
		ProtocolID: newState.ProtocolID,
	}

	if oldState == nil || oldState.CurrentStep != newState.CurrentStep {
		step := newState.CurrentStep
		diff.CurrentStep = &step
	}

	diff.Fields = diffFields(oldState, newState)
	diff.HistoryAppended = diffHistory(oldState, newState)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffFields(old, new *SessionState) *Values {
	delta := NewValues()

	if old == nil {
		new.Fields.Range(func(k string, v any) bool {
			delta.Set(k, cloneValue(v))
			return true
		})
		return nilIfEmpty(delta)
	}

	new.Fields.Range(func(k string, newVal any) bool {
		oldVal, exists := old.Fields.Get(k)
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta.Set(k, cloneValue(newVal))
		}
		return true
	})

	old.Fields.Range(func(k string, _ any) bool {
		if _, exists := new.Fields.Get(k); !exists {
			delta.Set(k, nil)
		}
		return true
	})

	return nilIfEmpty(delta)
}

func nilIfEmpty(v *Values) *Values {
	if v.Len() == 0 {
		return nil
	}
	return v
}

// diffHistory assumes append-only history.
func diffHistory(old, new *SessionState) []int {
	if len(new.History) == 0 {
		return nil
	}
	if old == nil {
		return append([]int(nil), new.History...)
	}
	if len(new.History) > len(old.History) {
		return append([]int(nil), new.History[len(old.History):]...)
	}
	return nil
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.CurrentStep == nil &&
		d.Fields.Len() == 0 &&
		len(d.HistoryAppended) == 0
}
