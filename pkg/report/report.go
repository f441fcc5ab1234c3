package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/manas360/stepwise/pkg/domain"
)

// Conventional other-slot keys, used when no schema describes a group.
const (
	OtherValueKey = "other"
	OtherLabelKey = "otherName"
)

// Entry is one labeled line of a report. Groups carry Items instead of a Value.
type Entry struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value string  `json:"value,omitempty"`
	Items []Entry `json:"items,omitempty"`
}

// IsGroup reports whether the entry renders as a nested list.
func (e Entry) IsGroup() bool {
	return e.Items != nil
}

// Report is the display projection of a FinalizedRecord.
type Report struct {
	RecordID   string    `json:"record_id"`
	TemplateID string    `json:"template_id"`
	Title      string    `json:"title"`
	Patient    string    `json:"patient"`
	Date       time.Time `json:"date"`
	Status     string    `json:"status"`
	Entries    []Entry   `json:"entries"`
}

// Build projects a record into a report. schema may be nil; labels then fall
// back to humanized keys and the other/otherName convention.
func Build(record *domain.FinalizedRecord, schema *domain.StepSchema) *Report {
	r := &Report{
		RecordID:   record.ID,
		TemplateID: record.TemplateID,
		Title:      record.TemplateID,
		Patient:    record.PatientIdentifier,
		Date:       record.Timestamp,
		Status:     string(record.Status),
	}
	if schema != nil && schema.Title != "" {
		r.Title = schema.Title
	}

	b := builder{data: record.Data, schema: schema}
	for _, key := range b.orderedKeys() {
		val, _ := record.Data.Get(key)
		r.Entries = append(r.Entries, b.entry(key, val))
	}
	return r
}

type builder struct {
	data   *domain.Values
	schema *domain.StepSchema
}

// orderedKeys lists schema fields in step order, then keys the schema does not declare.
func (b builder) orderedKeys() []string {
	keys := make([]string, 0, b.data.Len())
	seen := make(map[string]bool)
	if b.schema != nil {
		for _, step := range b.schema.Steps {
			for _, f := range step.Fields {
				if _, ok := b.data.Get(f.Name); ok && !seen[f.Name] {
					keys = append(keys, f.Name)
					seen[f.Name] = true
				}
			}
		}
	}
	for _, k := range b.data.Keys() {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	return keys
}

func (b builder) field(name string) (domain.FieldDescriptor, bool) {
	if b.schema == nil {
		return domain.FieldDescriptor{}, false
	}
	return b.schema.Field(name)
}

func (b builder) entry(key string, val any) Entry {
	e := Entry{Key: key, Label: Humanize(key)}
	field, known := b.field(key)

	switch v := val.(type) {
	case *domain.Values:
		if known && field.Kind == domain.FieldGroup {
			e.Items = b.group(field, v)
		} else {
			e.Items = b.conventionGroup(v)
		}
	case []string:
		e.Value = joinOptions(field, v)
	default:
		e.Value = renderValue(val)
	}
	return e
}

// group renders declared keys first, always, then the other slot when its
// label is set, then any undeclared keys.
func (b builder) group(field domain.FieldDescriptor, values *domain.Values) []Entry {
	items := make([]Entry, 0, values.Len())
	seen := make(map[string]bool)

	for _, k := range field.Keys {
		seen[k.Key] = true
		val, _ := values.Get(k.Key)
		label := k.Label
		if label == "" {
			label = Humanize(k.Key)
		}
		items = append(items, Entry{Key: k.Key, Label: label, Value: renderValue(val)})
	}

	if other := field.Other; other != nil {
		seen[other.ValueKey] = true
		label := ""
		if other.LabelKey != "" {
			seen[other.LabelKey] = true
			raw, _ := values.Get(other.LabelKey)
			label = renderValue(raw)
		} else if other.LabelRef != "" {
			label = b.lookupText(other.LabelRef)
		}
		if strings.TrimSpace(label) != "" {
			val, _ := values.Get(other.ValueKey)
			items = append(items, Entry{Key: other.ValueKey, Label: label, Value: renderValue(val)})
		}
	}

	values.Range(func(k string, val any) bool {
		if !seen[k] {
			items = append(items, b.nested(k, val))
		}
		return true
	})
	return items
}

// conventionGroup renders a group with no schema. A sibling otherName labels
// the other value and is dropped when empty.
func (b builder) conventionGroup(values *domain.Values) []Entry {
	items := make([]Entry, 0, values.Len())
	rawLabel, hasLabel := values.Get(OtherLabelKey)
	label := strings.TrimSpace(renderValue(rawLabel))

	values.Range(func(k string, val any) bool {
		switch {
		case hasLabel && k == OtherLabelKey:
		case hasLabel && k == OtherValueKey:
			if label != "" {
				items = append(items, Entry{Key: k, Label: label, Value: renderValue(val)})
			}
		default:
			items = append(items, b.nested(k, val))
		}
		return true
	})
	return items
}

func (b builder) nested(key string, val any) Entry {
	e := Entry{Key: key, Label: Humanize(key)}
	switch v := val.(type) {
	case *domain.Values:
		e.Items = b.conventionGroup(v)
	default:
		e.Value = renderValue(val)
	}
	return e
}

func (b builder) lookupText(ref string) string {
	path, err := domain.ParsePath(ref)
	if err != nil {
		return ""
	}
	val, ok := b.data.Lookup(path)
	if !ok {
		return ""
	}
	return renderValue(val)
}

func joinOptions(field domain.FieldDescriptor, ids []string) string {
	labels := make([]string, len(ids))
	for i, id := range ids {
		labels[i] = id
		if opt, ok := field.Option(id); ok && opt.Label != "" {
			labels[i] = opt.Label
		}
	}
	return strings.Join(labels, ", ")
}

func renderValue(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ", ")
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = renderValue(item)
		}
		return strings.Join(parts, ", ")
	case *domain.Values:
		parts := make([]string, 0, v.Len())
		v.Range(func(k string, item any) bool {
			parts = append(parts, fmt.Sprintf("%s: %s", Humanize(k), renderValue(item)))
			return true
		})
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(v)
	}
}
