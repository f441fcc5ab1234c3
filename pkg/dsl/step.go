package dsl

import "github.com/manas360/stepwise/pkg/domain"

// StepBuilder provides a fluent API for configuring a step.
// Field modifiers (Help, Other, OtherLabelledBy, Bounds) apply to the most
// recently added field.
type StepBuilder struct {
	step domain.StepDefinition
}

// Describe sets the instructions shown for the step.
func (s *StepBuilder) Describe(description string) *StepBuilder {
	s.step.Description = description
	return s
}

// Text adds a free-text field.
func (s *StepBuilder) Text(name, label string) *StepBuilder {
	return s.add(domain.FieldDescriptor{Name: name, Label: label, Kind: domain.FieldText})
}

// Scale adds a numeric rating with inclusive bounds.
func (s *StepBuilder) Scale(name, label string, min, max int) *StepBuilder {
	return s.add(domain.FieldDescriptor{Name: name, Label: label, Kind: domain.FieldScale, Min: &min, Max: &max})
}

// Choices adds a multi-select field.
func (s *StepBuilder) Choices(name, label string, options ...domain.Option) *StepBuilder {
	return s.add(domain.FieldDescriptor{Name: name, Label: label, Kind: domain.FieldMultiSelect, Options: options})
}

// Group adds a keyed group. Keys default to 0..10 scales.
func (s *StepBuilder) Group(name, label string, keys ...domain.GroupKey) *StepBuilder {
	return s.add(domain.FieldDescriptor{Name: name, Label: label, Kind: domain.FieldGroup, Keys: keys})
}

// Help attaches a hint to the last field.
func (s *StepBuilder) Help(text string) *StepBuilder {
	if f := s.last(); f != nil {
		f.Help = text
	}
	return s
}

// Bounds overrides the scale bounds of the last field (scale or group).
func (s *StepBuilder) Bounds(min, max int) *StepBuilder {
	if f := s.last(); f != nil {
		f.Min, f.Max = &min, &max
	}
	return s
}

// Other adds a free-form slot to the last group field whose label is stored
// in the same group under labelKey.
func (s *StepBuilder) Other(valueKey, labelKey string) *StepBuilder {
	if f := s.last(); f != nil {
		f.Other = &domain.OtherSlot{ValueKey: valueKey, LabelKey: labelKey}
	}
	return s
}

// OtherLabelledBy adds a free-form slot to the last group field whose label
// is read from another field (a dotted path such as "emotions.otherName").
func (s *StepBuilder) OtherLabelledBy(valueKey, labelRef string) *StepBuilder {
	if f := s.last(); f != nil {
		f.Other = &domain.OtherSlot{ValueKey: valueKey, LabelRef: labelRef}
	}
	return s
}

func (s *StepBuilder) add(f domain.FieldDescriptor) *StepBuilder {
	s.step.Fields = append(s.step.Fields, f)
	return s
}

func (s *StepBuilder) last() *domain.FieldDescriptor {
	if len(s.step.Fields) == 0 {
		return nil
	}
	return &s.step.Fields[len(s.step.Fields)-1]
}

// Key declares a scale-valued group key.
func Key(key, label string) domain.GroupKey {
	return domain.GroupKey{Key: key, Label: label}
}

// TextKey declares a text-valued group key.
func TextKey(key, label string) domain.GroupKey {
	return domain.GroupKey{Key: key, Label: label, Kind: domain.FieldText}
}

// Opt declares a multi-select option.
func Opt(id, label, description string) domain.Option {
	return domain.Option{ID: id, Label: label, Description: description}
}
