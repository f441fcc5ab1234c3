package schema

import (
	"errors"
	"sort"
	"strings"

	"github.com/manas360/stepwise/pkg/domain"
)

// Schema is a map of field names to their expected types.
// Example: {"situation": Text(), "distortions": Choice("labeling", "shoulds")}
type Schema map[string]Type

// FromProtocol derives the field schema of every step of a protocol.
func FromProtocol(p *domain.StepSchema) Schema {
	out := make(Schema)
	if p == nil {
		return out
	}
	for _, step := range p.Steps {
		for name, t := range ForStep(step) {
			out[name] = t
		}
	}
	return out
}

// ForStep derives the field schema of a single step.
func ForStep(step domain.StepDefinition) Schema {
	out := make(Schema, len(step.Fields))
	for _, f := range step.Fields {
		out[f.Name] = fieldType(f)
	}
	return out
}

func fieldType(f domain.FieldDescriptor) Type {
	switch f.Kind {
	case domain.FieldScale:
		lo, hi := f.Bounds()
		return Scale(lo, hi)
	case domain.FieldMultiSelect:
		ids := make([]string, len(f.Options))
		for i, o := range f.Options {
			ids[i] = o.ID
		}
		return Choice(ids...)
	case domain.FieldGroup:
		fields := make(Schema, len(f.Keys)+2)
		for _, k := range f.Keys {
			kind := k.Kind
			if kind == "" {
				kind = domain.FieldScale
			}
			fields[k.Key] = fieldType(domain.FieldDescriptor{Name: k.Key, Kind: kind, Min: f.Min, Max: f.Max})
		}
		if f.Other != nil {
			lo, hi := f.Bounds()
			fields[f.Other.ValueKey] = Scale(lo, hi)
			if f.Other.LabelKey != "" {
				fields[f.Other.LabelKey] = Text()
			}
		}
		return Group(fields)
	default:
		return Text()
	}
}

// Check validates only the values present in data. Absent fields and empty
// answers pass. Unknown top-level fields are ignored.
// Returns an *AggregateError listing every failure, sorted by field path.
func Check(schema Schema, data map[string]any) error {
	if len(schema) == 0 {
		return nil
	}
	return checkData(schema, data, "", true)
}

func checkData(schema Schema, data map[string]any, prefix string, open bool) error {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		value := data[key]
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		fieldType, declared := schema[key]
		if !declared {
			if !open {
				errs = append(errs, &ValidationError{Key: path, Reason: "not defined in schema"})
			}
			continue
		}

		if group, ok := fieldType.(*GroupType); ok {
			nested, isMap := value.(map[string]any)
			if !isMap {
				errs = append(errs, &ValidationError{Key: path, Reason: "expected group", Value: value})
				continue
			}
			if err := checkData(group.Fields, nested, path, group.Open); err != nil {
				errs = append(errs, ValidationErrors(err)...)
			}
			continue
		}

		if err := fieldType.Validate(value); err != nil {
			errs = append(errs, &ValidationError{
				Key:    path,
				Reason: err.Error(),
				Value:  value,
			})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// Unanswered lists the declared fields with no answer yet, in sorted order.
// Group fields count as unanswered while every key is empty.
func Unanswered(schema Schema, data map[string]any) []string {
	var missing []string
	for name := range schema {
		if isBlank(data[name]) {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case map[string]any:
		for _, item := range v {
			if !isBlank(item) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IsValidationError reports whether err carries field validation failures.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
