package domain

import (
	"fmt"
	"strings"
)

// FieldKind defines the shape of a field's answer.
type FieldKind string

const (
	// FieldText is a free-form answer.
	FieldText FieldKind = "text"
	// FieldScale is a numeric rating, 0..10 unless bounds are declared.
	FieldScale FieldKind = "scale"
	// FieldMultiSelect is a set of option IDs chosen from a fixed list.
	FieldMultiSelect FieldKind = "multi_select"
	// FieldGroup is a keyed sub-map with schema-defined keys.
	FieldGroup FieldKind = "group"
)

// Default bounds for FieldScale.
const (
	DefaultScaleMin = 0
	DefaultScaleMax = 10
)

// Option is one choice of a multi-select field.
type Option struct {
	ID          string `json:"id" yaml:"id"`
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// GroupKey is one named entry of a group field.
type GroupKey struct {
	Key   string    `json:"key" yaml:"key"`
	Label string    `json:"label,omitempty" yaml:"label,omitempty"`
	Kind  FieldKind `json:"kind,omitempty" yaml:"kind,omitempty"` // defaults to scale
}

// OtherSlot is the free-form "other" entry of a group: a value whose label is
// itself editable. The label lives either inside the group (LabelKey) or in
// another field (LabelRef, a dotted path).
type OtherSlot struct {
	ValueKey string `json:"value_key" yaml:"value_key"`
	LabelKey string `json:"label_key,omitempty" yaml:"label_key,omitempty"`
	LabelRef string `json:"label_ref,omitempty" yaml:"label_ref,omitempty"`
}

// FieldDescriptor describes one input of a step.
type FieldDescriptor struct {
	Name    string     `json:"name" yaml:"name"`
	Label   string     `json:"label,omitempty" yaml:"label,omitempty"`
	Kind    FieldKind  `json:"kind" yaml:"kind"`
	Help    string     `json:"help,omitempty" yaml:"help,omitempty"`
	Options []Option   `json:"options,omitempty" yaml:"options,omitempty"`
	Keys    []GroupKey `json:"keys,omitempty" yaml:"keys,omitempty"`
	Other   *OtherSlot `json:"other,omitempty" yaml:"other,omitempty"`
	Min     *int       `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *int       `json:"max,omitempty" yaml:"max,omitempty"`
}

// Bounds returns the scale bounds, falling back to 0..10.
func (f FieldDescriptor) Bounds() (int, int) {
	lo, hi := DefaultScaleMin, DefaultScaleMax
	if f.Min != nil {
		lo = *f.Min
	}
	if f.Max != nil {
		hi = *f.Max
	}
	return lo, hi
}

// Option returns the option with the given ID.
func (f FieldDescriptor) Option(id string) (Option, bool) {
	for _, o := range f.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// Key returns the group key with the given name.
func (f FieldDescriptor) Key(name string) (GroupKey, bool) {
	for _, k := range f.Keys {
		if k.Key == name {
			return k, true
		}
	}
	return GroupKey{}, false
}

// StepDefinition is one stage of a protocol.
type StepDefinition struct {
	Index       int               `json:"index" yaml:"index"`
	ID          string            `json:"id,omitempty" yaml:"id,omitempty"`
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []FieldDescriptor `json:"fields,omitempty" yaml:"fields,omitempty"`
	Terminal    bool              `json:"terminal,omitempty" yaml:"terminal,omitempty"`
}

// StepSchema is the static definition of a protocol.
// Schemas are configuration: they are shared read-only between sessions.
type StepSchema struct {
	ProtocolID  string           `json:"protocol_id" yaml:"protocol_id"`
	Title       string           `json:"title" yaml:"title"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Duration    string           `json:"duration,omitempty" yaml:"duration,omitempty"`
	Difficulty  string           `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Focus       string           `json:"focus,omitempty" yaml:"focus,omitempty"`
	Steps       []StepDefinition `json:"steps" yaml:"steps"`
}

// Len returns N, the number of steps.
func (s *StepSchema) Len() int {
	return len(s.Steps)
}

// Step returns the definition at a 1-based index.
func (s *StepSchema) Step(index int) (StepDefinition, bool) {
	if index < 1 || index > len(s.Steps) {
		return StepDefinition{}, false
	}
	return s.Steps[index-1], true
}

// Field finds a top-level field descriptor by name across all steps.
func (s *StepSchema) Field(name string) (FieldDescriptor, bool) {
	for _, step := range s.Steps {
		for _, f := range step.Fields {
			if f.Name == name {
				return f, true
			}
		}
	}
	return FieldDescriptor{}, false
}

// Validate checks the structural invariants of the schema.
// Every failure wraps ErrInvalidSchema.
func (s *StepSchema) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil schema", ErrInvalidSchema)
	}
	if strings.TrimSpace(s.ProtocolID) == "" {
		return fmt.Errorf("%w: protocol id is required", ErrInvalidSchema)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: protocol %q has no steps", ErrInvalidSchema, s.ProtocolID)
	}

	seen := make(map[string]int)
	for i, step := range s.Steps {
		want := i + 1
		if step.Index != want {
			return fmt.Errorf("%w: protocol %q step %d has index %d", ErrInvalidSchema, s.ProtocolID, want, step.Index)
		}
		isLast := want == len(s.Steps)
		if step.Terminal != isLast {
			if isLast {
				return fmt.Errorf("%w: protocol %q last step %d is not terminal", ErrInvalidSchema, s.ProtocolID, want)
			}
			return fmt.Errorf("%w: protocol %q step %d is terminal but not last", ErrInvalidSchema, s.ProtocolID, want)
		}
		for _, f := range step.Fields {
			if err := validateField(f); err != nil {
				return fmt.Errorf("%w: protocol %q step %d: %v", ErrInvalidSchema, s.ProtocolID, want, err)
			}
			if prev, dup := seen[f.Name]; dup {
				return fmt.Errorf("%w: protocol %q field %q declared in steps %d and %d", ErrInvalidSchema, s.ProtocolID, f.Name, prev, want)
			}
			seen[f.Name] = want
		}
	}
	return nil
}

func validateField(f FieldDescriptor) error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("field name is required")
	}
	if strings.Contains(f.Name, ".") {
		return fmt.Errorf("field %q: name must not contain '.'", f.Name)
	}
	switch f.Kind {
	case FieldText:
	case FieldScale:
		lo, hi := f.Bounds()
		if lo > hi {
			return fmt.Errorf("field %q: min %d > max %d", f.Name, lo, hi)
		}
	case FieldMultiSelect:
		if len(f.Options) == 0 {
			return fmt.Errorf("field %q: multi-select requires options", f.Name)
		}
	case FieldGroup:
		if len(f.Keys) == 0 {
			return fmt.Errorf("field %q: group requires keys", f.Name)
		}
		keys := make(map[string]bool, len(f.Keys))
		for _, k := range f.Keys {
			if k.Key == "" || keys[k.Key] {
				return fmt.Errorf("field %q: empty or duplicate group key %q", f.Name, k.Key)
			}
			keys[k.Key] = true
		}
		if f.Other != nil {
			if f.Other.ValueKey == "" {
				return fmt.Errorf("field %q: other slot requires a value key", f.Name)
			}
			if keys[f.Other.ValueKey] || (f.Other.LabelKey != "" && keys[f.Other.LabelKey]) {
				return fmt.Errorf("field %q: other slot collides with a named key", f.Name)
			}
		}
	default:
		return fmt.Errorf("field %q: unknown kind %q", f.Name, f.Kind)
	}
	return nil
}
