// Package loam serves protocol definitions stored as Markdown, YAML or JSON
// documents in a Loam repository.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/manas360/stepwise/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Catalog adapts a Loam repository to ports.Catalog.
type Catalog struct {
	Repo *loam.TypedRepository[ProtocolMetadata]
}

// New creates a new Loam catalog.
func New(repo *loam.TypedRepository[ProtocolMetadata]) *Catalog {
	return &Catalog{
		Repo: repo,
	}
}

// Lookup loads and validates the protocol with the given ID.
// The ID is the metadata id, or the document name without extension.
func (c *Catalog) Lookup(ctx context.Context, protocolID string) (*domain.StepSchema, error) {
	docs, err := c.index(ctx)
	if err != nil {
		return nil, err
	}
	doc, ok := docs[protocolID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProtocol, protocolID)
	}

	schema, err := buildSchema(protocolID, doc.meta, doc.content)
	if err != nil {
		return nil, fmt.Errorf("failed to load protocol %s from %s: %w", protocolID, doc.path, err)
	}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("protocol document %s: %w", doc.path, err)
	}
	return schema, nil
}

// List returns every protocol ID in the repository, sorted.
func (c *Catalog) List(ctx context.Context) ([]string, error) {
	docs, err := c.index(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type indexedDoc struct {
	path    string
	meta    ProtocolMetadata
	content string
}

func (c *Catalog) index(ctx context.Context) (map[string]indexedDoc, error) {
	docs, err := c.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	out := make(map[string]indexedDoc, len(docs))
	for _, doc := range docs {
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existing, ok := out[id]; ok {
			return nil, fmt.Errorf("collision detected: protocol '%s' is defined in both '%s' and '%s'", id, existing.path, doc.ID)
		}
		out[id] = indexedDoc{path: doc.ID, meta: doc.Data, content: doc.Content}
	}
	return out, nil
}

func buildSchema(id string, meta ProtocolMetadata, content string) (*domain.StepSchema, error) {
	description := meta.Description
	if description == "" {
		description = strings.TrimSpace(content)
	}
	schema := &domain.StepSchema{
		ProtocolID:  id,
		Title:       meta.Title,
		Description: description,
		Duration:    meta.Duration,
		Difficulty:  meta.Difficulty,
		Focus:       meta.Focus,
		Steps:       make([]domain.StepDefinition, 0, len(meta.Steps)),
	}
	if schema.Title == "" {
		schema.Title = id
	}

	for i, raw := range meta.Steps {
		var step StepMetadata
		if err := decode(raw, &step); err != nil {
			return nil, fmt.Errorf("failed to decode step %d: %w", i+1, err)
		}
		def := domain.StepDefinition{
			Index:       i + 1,
			ID:          step.ID,
			Title:       step.Title,
			Description: step.Description,
			Terminal:    i == len(meta.Steps)-1,
		}
		for _, f := range step.Fields {
			field, err := convertField(f)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
			def.Fields = append(def.Fields, field)
		}
		schema.Steps = append(schema.Steps, def)
	}
	return schema, nil
}

func convertField(f FieldMetadata) (domain.FieldDescriptor, error) {
	kind := domain.FieldKind(f.Kind)
	if kind == "" {
		kind = domain.FieldText
	}
	field := domain.FieldDescriptor{
		Name:  f.Name,
		Label: f.Label,
		Kind:  kind,
		Help:  f.Help,
		Min:   f.Min,
		Max:   f.Max,
	}
	for _, o := range f.Options {
		label := o.Label
		if label == "" {
			label = o.ID
		}
		field.Options = append(field.Options, domain.Option{ID: o.ID, Label: label, Description: o.Description})
	}

	for _, item := range f.Keys {
		switch v := item.(type) {
		case string:
			field.Keys = append(field.Keys, domain.GroupKey{Key: v})
		case map[string]any, map[any]any:
			var key KeyMetadata
			if err := decode(v, &key); err != nil {
				return field, fmt.Errorf("field %q: failed to decode key: %w", f.Name, err)
			}
			field.Keys = append(field.Keys, domain.GroupKey{Key: key.Key, Label: key.Label, Kind: domain.FieldKind(key.Kind)})
		default:
			return field, fmt.Errorf("field %q: invalid key definition type: %T", f.Name, v)
		}
	}

	if f.Other != nil {
		field.Other = &domain.OtherSlot{
			ValueKey: f.Other.ValueKey,
			LabelKey: f.Other.LabelKey,
			LabelRef: f.Other.LabelRef,
		}
	}
	return field, nil
}

func decode(input any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable. It emits the ID of every changed document.
func (c *Catalog) Watch(ctx context.Context) (<-chan string, error) {
	events, err := c.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
