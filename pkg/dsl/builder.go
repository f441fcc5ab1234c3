package dsl

import (
	"fmt"

	"github.com/manas360/stepwise/pkg/domain"
)

// Builder manages the protocol construction.
type Builder struct {
	schema domain.StepSchema
	steps  []*StepBuilder
}

// New creates a new protocol builder.
func New(protocolID string) *Builder {
	return &Builder{
		schema: domain.StepSchema{ProtocolID: protocolID},
	}
}

// Title sets the display title.
func (b *Builder) Title(title string) *Builder {
	b.schema.Title = title
	return b
}

// Describe sets the protocol description.
func (b *Builder) Describe(description string) *Builder {
	b.schema.Description = description
	return b
}

// Meta sets the catalog card metadata.
func (b *Builder) Meta(duration, difficulty, focus string) *Builder {
	b.schema.Duration = duration
	b.schema.Difficulty = difficulty
	b.schema.Focus = focus
	return b
}

// Step appends a new step. Steps are numbered in the order they are added.
func (b *Builder) Step(id, title string) *StepBuilder {
	sb := &StepBuilder{
		step: domain.StepDefinition{
			ID:    id,
			Title: title,
		},
	}
	b.steps = append(b.steps, sb)
	return sb
}

// Build compiles and validates the protocol.
func (b *Builder) Build() (*domain.StepSchema, error) {
	out := b.schema
	out.Steps = make([]domain.StepDefinition, len(b.steps))
	for i, sb := range b.steps {
		step := sb.step
		step.Index = i + 1
		step.Terminal = i == len(b.steps)-1
		step.Fields = append([]domain.FieldDescriptor(nil), sb.step.Fields...)
		out.Steps[i] = step
	}

	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("failed to build protocol %q: %w", b.schema.ProtocolID, err)
	}
	return &out, nil
}

// MustBuild is Build for protocols declared at init time. It panics on error.
func (b *Builder) MustBuild() *domain.StepSchema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
