package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Type defines the contract for field validation.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "text", "scale(0..10)").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
}

// TextType accepts free-form strings.
type TextType struct{}

func (t *TextType) Name() string { return "text" }

func (t *TextType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected text, got %T", value)
	}
	return nil
}

// ScaleType accepts numeric ratings within inclusive bounds.
// Answers arrive as typed text, so numeric strings are accepted; the empty
// string means "not rated yet".
type ScaleType struct {
	Min, Max int
}

func (t *ScaleType) Name() string { return fmt.Sprintf("scale(%d..%d)", t.Min, t.Max) }

func (t *ScaleType) Validate(value any) error {
	var n float64
	switch v := value.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return fmt.Errorf("expected a number between %d and %d", t.Min, t.Max)
		}
		n = parsed
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case float64:
		n = v
	default:
		return fmt.Errorf("expected a number, got %T", value)
	}
	if n < float64(t.Min) || n > float64(t.Max) {
		return fmt.Errorf("out of range %d..%d", t.Min, t.Max)
	}
	return nil
}

// ChoiceType accepts a list of known option IDs.
type ChoiceType struct {
	options map[string]bool
}

func (t *ChoiceType) Name() string {
	ids := make([]string, 0, len(t.options))
	for id := range t.options {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return fmt.Sprintf("choice[%s]", strings.Join(ids, "|"))
}

func (t *ChoiceType) Validate(value any) error {
	var ids []string
	switch v := value.(type) {
	case []string:
		ids = v
	case []any:
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("element %d: expected option id, got %T", i, item)
			}
			ids = append(ids, s)
		}
	default:
		return fmt.Errorf("expected a list of option ids, got %T", value)
	}

	var unknown []string
	for _, id := range ids {
		if !t.options[id] {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown option(s) %s", strings.Join(unknown, ", "))
	}
	return nil
}

// GroupType validates a keyed sub-map. Keys without a declared type are
// rejected unless the group is open.
type GroupType struct {
	Fields Schema
	Open   bool
}

func (t *GroupType) Name() string { return "group" }

func (t *GroupType) Validate(value any) error {
	data, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("expected group, got %T", value)
	}
	return checkData(t.Fields, data, "", t.Open)
}

// --- Factory Functions ---

// Text creates a free-text validator.
func Text() Type { return &TextType{} }

// Scale creates a numeric rating validator with inclusive bounds.
func Scale(min, max int) Type { return &ScaleType{Min: min, Max: max} }

// Choice creates a validator for lists of the given option IDs.
func Choice(ids ...string) Type {
	options := make(map[string]bool, len(ids))
	for _, id := range ids {
		options[id] = true
	}
	return &ChoiceType{options: options}
}

// Group creates a validator for a keyed group with fixed keys.
func Group(fields Schema) Type { return &GroupType{Fields: fields} }
