package loam

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/manas360/stepwise/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Open initializes a read-only Loam repository at path and wraps it in a Catalog.
func Open(path string) (*Catalog, error) {
	repo, err := loam.Init(path,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[ProtocolMetadata](repo)), nil
}

// Document renders a schema as a Markdown document with YAML front matter.
// The description becomes the document body.
func Document(schema *domain.StepSchema) (core.Document, error) {
	meta := ProtocolMetadata{
		ID:         schema.ProtocolID,
		Title:      schema.Title,
		Duration:   schema.Duration,
		Difficulty: schema.Difficulty,
		Focus:      schema.Focus,
	}
	for _, step := range schema.Steps {
		meta.Steps = append(meta.Steps, stepMetadata(step))
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(meta); err != nil {
		return core.Document{}, fmt.Errorf("failed to encode protocol %s: %w", schema.ProtocolID, err)
	}
	if err := enc.Close(); err != nil {
		return core.Document{}, err
	}
	buf.WriteString("---\n")
	if schema.Description != "" {
		buf.WriteString(schema.Description)
		buf.WriteString("\n")
	}

	return core.Document{
		ID:      schema.ProtocolID + ".md",
		Content: buf.String(),
	}, nil
}

// Export saves every schema into a writable repository.
func Export(ctx context.Context, repo core.Repository, schemas ...*domain.StepSchema) error {
	for _, schema := range schemas {
		doc, err := Document(schema)
		if err != nil {
			return err
		}
		if err := repo.Save(ctx, doc); err != nil {
			return fmt.Errorf("failed to save protocol %s: %w", schema.ProtocolID, err)
		}
	}
	return nil
}

func stepMetadata(step domain.StepDefinition) StepMetadata {
	out := StepMetadata{
		ID:          step.ID,
		Title:       step.Title,
		Description: step.Description,
	}
	for _, f := range step.Fields {
		field := FieldMetadata{
			Name:  f.Name,
			Label: f.Label,
			Kind:  string(f.Kind),
			Help:  f.Help,
			Min:   f.Min,
			Max:   f.Max,
		}
		for _, o := range f.Options {
			field.Options = append(field.Options, OptionMetadata{ID: o.ID, Label: o.Label, Description: o.Description})
		}
		for _, k := range f.Keys {
			if k.Label == "" && k.Kind == "" {
				field.Keys = append(field.Keys, k.Key)
				continue
			}
			field.Keys = append(field.Keys, KeyMetadata{Key: k.Key, Label: k.Label, Kind: string(k.Kind)})
		}
		if f.Other != nil {
			field.Other = &OtherMetadata{ValueKey: f.Other.ValueKey, LabelKey: f.Other.LabelKey, LabelRef: f.Other.LabelRef}
		}
		out.Fields = append(out.Fields, field)
	}
	return out
}
