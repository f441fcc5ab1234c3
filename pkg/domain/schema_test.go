package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func twoStepSchema() *StepSchema {
	return &StepSchema{
		ProtocolID: "demo",
		Title:      "Demo",
		Steps: []StepDefinition{
			{Index: 1, Title: "Ask", Fields: []FieldDescriptor{{Name: "answer", Kind: FieldText}}},
			{Index: 2, Title: "Done", Terminal: true},
		},
	}
}

func TestStepSchema_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *StepSchema)
		wantErr bool
	}{
		{name: "valid", mutate: func(s *StepSchema) {}},
		{name: "no steps", mutate: func(s *StepSchema) { s.Steps = nil }, wantErr: true},
		{name: "missing protocol id", mutate: func(s *StepSchema) { s.ProtocolID = " " }, wantErr: true},
		{name: "gap in indices", mutate: func(s *StepSchema) { s.Steps[1].Index = 3 }, wantErr: true},
		{name: "zero based", mutate: func(s *StepSchema) { s.Steps[0].Index = 0 }, wantErr: true},
		{name: "terminal not last", mutate: func(s *StepSchema) { s.Steps[0].Terminal = true }, wantErr: true},
		{name: "no terminal", mutate: func(s *StepSchema) { s.Steps[1].Terminal = false }, wantErr: true},
		{name: "duplicate field", mutate: func(s *StepSchema) {
			s.Steps[1].Fields = []FieldDescriptor{{Name: "answer", Kind: FieldText}}
		}, wantErr: true},
		{name: "dotted field name", mutate: func(s *StepSchema) { s.Steps[0].Fields[0].Name = "a.b" }, wantErr: true},
		{name: "unknown kind", mutate: func(s *StepSchema) { s.Steps[0].Fields[0].Kind = "slider" }, wantErr: true},
		{name: "multi select without options", mutate: func(s *StepSchema) { s.Steps[0].Fields[0].Kind = FieldMultiSelect }, wantErr: true},
		{name: "group without keys", mutate: func(s *StepSchema) { s.Steps[0].Fields[0].Kind = FieldGroup }, wantErr: true},
		{name: "other slot collides", mutate: func(s *StepSchema) {
			s.Steps[0].Fields[0] = FieldDescriptor{
				Name:  "emotions",
				Kind:  FieldGroup,
				Keys:  []GroupKey{{Key: "anxiety"}},
				Other: &OtherSlot{ValueKey: "anxiety"},
			}
		}, wantErr: true},
		{name: "inverted scale", mutate: func(s *StepSchema) {
			lo, hi := 5, 1
			s.Steps[0].Fields[0] = FieldDescriptor{Name: "mood", Kind: FieldScale, Min: &lo, Max: &hi}
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := twoStepSchema()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSchema)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStepSchema_SingleStepIsTerminal(t *testing.T) {
	s := &StepSchema{ProtocolID: "one", Steps: []StepDefinition{{Index: 1, Title: "Only", Terminal: true}}}
	assert.NoError(t, s.Validate())
}

func TestStepSchema_Lookups(t *testing.T) {
	s := twoStepSchema()

	step, ok := s.Step(2)
	assert.True(t, ok)
	assert.Equal(t, "Done", step.Title)
	_, ok = s.Step(0)
	assert.False(t, ok)
	_, ok = s.Step(3)
	assert.False(t, ok)

	f, ok := s.Field("answer")
	assert.True(t, ok)
	assert.Equal(t, FieldText, f.Kind)
}

func TestInitialValues_PopulatesGroups(t *testing.T) {
	s := twoStepSchema()
	s.Steps[0].Fields = append(s.Steps[0].Fields, FieldDescriptor{
		Name: "emotions",
		Kind: FieldGroup,
		Keys: []GroupKey{{Key: "anxiety"}, {Key: "sadness"}, {Key: "anger"}, {Key: "shame"}},
		Other: &OtherSlot{
			ValueKey: "other",
			LabelKey: "otherName",
		},
	})

	values := InitialValues(s)
	assert.Equal(t, []string{"emotions"}, values.Keys(), "only groups are pre-populated")

	group, _ := values.Get("emotions")
	assert.Equal(t, map[string]any{
		"anxiety": "", "sadness": "", "anger": "", "shame": "", "other": "", "otherName": "",
	}, group.(*Values).ToMap())
	assert.Equal(t, []string{"anxiety", "sadness", "anger", "shame", "other", "otherName"}, group.(*Values).Keys())
}
