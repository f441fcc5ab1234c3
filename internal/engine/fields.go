package engine

import (
	"fmt"

	"github.com/manas360/stepwise/pkg/domain"
	"github.com/manas360/stepwise/pkg/schema"
)

// SetField stores value at a dotted path, last write wins. Values are not
// validated; any field of any step may be written from any step.
// It fails only when the path is malformed or descends through a non-group.
func (e *Engine) SetField(state *domain.SessionState, path string, value any) (*domain.SessionState, error) {
	if state == nil {
		return nil, fmt.Errorf("%w: nil state", domain.ErrUnboundState)
	}
	fp, err := domain.ParsePath(path)
	if err != nil {
		return nil, err
	}

	next := state.Clone()
	if err := next.Fields.SetPath(fp, domain.NormalizeValue(value)); err != nil {
		return nil, err
	}
	return next, nil
}

// ToggleOption adds optionID to the selection at path when absent and
// removes it when present. Selection order is the order of first selection.
func (e *Engine) ToggleOption(state *domain.SessionState, path, optionID string) (*domain.SessionState, error) {
	if state == nil {
		return nil, fmt.Errorf("%w: nil state", domain.ErrUnboundState)
	}
	fp, err := domain.ParsePath(path)
	if err != nil {
		return nil, err
	}

	var current []string
	if existing, ok := state.Fields.Lookup(fp); ok {
		switch v := existing.(type) {
		case []string:
			current = v
		case nil:
		case string:
			if v != "" {
				return nil, fmt.Errorf("%w: %q holds text, not a selection", domain.ErrInvalidFieldPath, fp)
			}
		default:
			return nil, fmt.Errorf("%w: %q holds %T, not a selection", domain.ErrInvalidFieldPath, fp, existing)
		}
	}

	selection := make([]string, 0, len(current)+1)
	removed := false
	for _, id := range current {
		if id == optionID {
			removed = true
			continue
		}
		selection = append(selection, id)
	}
	if !removed {
		selection = append(selection, optionID)
	}

	next := state.Clone()
	if err := next.Fields.SetPath(fp, selection); err != nil {
		return nil, err
	}
	return next, nil
}

// Check reports advisory problems with the answers captured so far: scale
// values out of range or not numeric, unknown option ids. It never blocks a
// transition and returns nil or a *schema.AggregateError.
func (e *Engine) Check(state *domain.SessionState) error {
	if err := requireBound(state); err != nil {
		return err
	}
	return schema.Check(schema.FromProtocol(state.Schema), state.Fields.ToMap())
}

// Unanswered lists the fields of the current step that have no answer yet.
func (e *Engine) Unanswered(state *domain.SessionState) ([]string, error) {
	if err := requireBound(state); err != nil {
		return nil, err
	}
	step, _ := state.Step()
	return schema.Unanswered(schema.ForStep(step), state.Fields.ToMap()), nil
}
