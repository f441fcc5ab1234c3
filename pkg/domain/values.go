package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/buger/jsonparser"
)

// FieldPath addresses a value inside Values. Each segment descends into one group.
type FieldPath []string

// ParsePath splits a dotted path such as "emotions.otherName".
func ParsePath(raw string) (FieldPath, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidFieldPath)
	}
	parts := strings.Split(raw, ".")
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("%w: %q has an empty segment", ErrInvalidFieldPath, raw)
		}
	}
	return FieldPath(parts), nil
}

func (p FieldPath) String() string {
	return strings.Join(p, ".")
}

// Values is an insertion-ordered map of field answers.
// Entries are scalars (string, int, float64, bool), []string for multi-select
// answers or *Values for keyed groups. Key order is part of the data: it is
// kept through Clone and through JSON round trips.
type Values struct {
	keys []string
	data map[string]any
}

// NewValues creates an empty store.
func NewValues() *Values {
	return &Values{
		keys: make([]string, 0),
		data: make(map[string]any),
	}
}

func (v *Values) init() {
	if v.data == nil {
		v.data = make(map[string]any)
		v.keys = make([]string, 0)
	}
}

// Len returns the number of top-level keys.
func (v *Values) Len() int {
	if v == nil {
		return 0
	}
	return len(v.keys)
}

// Keys returns the keys in insertion order.
func (v *Values) Keys() []string {
	if v == nil {
		return nil
	}
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// Get returns the value stored under a top-level key.
func (v *Values) Get(key string) (any, bool) {
	if v == nil {
		return nil, false
	}
	val, ok := v.data[key]
	return val, ok
}

// Set stores a value. New keys are appended; existing keys keep their position.
func (v *Values) Set(key string, val any) {
	v.init()
	if _, exists := v.data[key]; !exists {
		v.keys = append(v.keys, key)
	}
	v.data[key] = val
}

// Delete removes a top-level key.
func (v *Values) Delete(key string) {
	if v == nil {
		return
	}
	if _, exists := v.data[key]; !exists {
		return
	}
	delete(v.data, key)
	for i, k := range v.keys {
		if k == key {
			v.keys = append(v.keys[:i], v.keys[i+1:]...)
			break
		}
	}
}

// Range calls fn for every entry in order until fn returns false.
func (v *Values) Range(fn func(key string, val any) bool) {
	if v == nil {
		return
	}
	for _, k := range v.keys {
		if !fn(k, v.data[k]) {
			return
		}
	}
}

// Lookup resolves a path through nested groups.
func (v *Values) Lookup(path FieldPath) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	current := v
	for i, segment := range path {
		val, ok := current.Get(segment)
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			return val, true
		}
		group, isGroup := val.(*Values)
		if !isGroup {
			return nil, false
		}
		current = group
	}
	return nil, false
}

// SetPath stores a value at a nested path, creating missing groups on the way.
// It fails when an intermediate segment holds a non-group value.
func (v *Values) SetPath(path FieldPath, val any) error {
	if len(path) == 0 {
		return fmt.Errorf("%w: empty path", ErrInvalidFieldPath)
	}
	current := v
	for i, segment := range path[:len(path)-1] {
		existing, ok := current.Get(segment)
		if !ok {
			group := NewValues()
			current.Set(segment, group)
			current = group
			continue
		}
		group, isGroup := existing.(*Values)
		if !isGroup {
			return fmt.Errorf("%w: %q is not a group", ErrInvalidFieldPath, path[:i+1].String())
		}
		current = group
	}
	current.Set(path[len(path)-1], val)
	return nil
}

// Clone returns a deep copy.
func (v *Values) Clone() *Values {
	if v == nil {
		return nil
	}
	out := &Values{
		keys: make([]string, len(v.keys)),
		data: make(map[string]any, len(v.data)),
	}
	copy(out.keys, v.keys)
	for k, val := range v.data {
		out.data[k] = cloneValue(val)
	}
	return out
}

func cloneValue(val any) any {
	switch t := val.(type) {
	case *Values:
		return t.Clone()
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}

// ToMap converts the store into plain nested maps. Order is lost.
func (v *Values) ToMap() map[string]any {
	if v == nil {
		return nil
	}
	out := make(map[string]any, len(v.keys))
	for _, k := range v.keys {
		val := v.data[k]
		if group, ok := val.(*Values); ok {
			out[k] = group.ToMap()
			continue
		}
		out[k] = cloneValue(val)
	}
	return out
}

// MarshalJSON writes the entries as a JSON object in insertion order.
func (v *Values) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range v.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(v.data[k])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field %q: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping the key order of every nested object.
func (v *Values) UnmarshalJSON(data []byte) error {
	v.keys = make([]string, 0)
	v.data = make(map[string]any)

	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) || isEmptyContainer(trimmed) {
		return nil
	}

	return jsonparser.ObjectEach(trimmed, func(rawKey []byte, value []byte, dataType jsonparser.ValueType, _ int) error {
		key, err := jsonparser.ParseString(rawKey)
		if err != nil {
			return fmt.Errorf("failed to parse key: %w", err)
		}
		decoded, err := decodeJSONValue(value, dataType)
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		v.Set(key, decoded)
		return nil
	})
}

func decodeJSONValue(value []byte, dataType jsonparser.ValueType) (any, error) {
	switch dataType {
	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Number:
		if n, err := jsonparser.ParseInt(value); err == nil {
			return int(n), nil
		}
		return jsonparser.ParseFloat(value)
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(value)
	case jsonparser.Null:
		return nil, nil
	case jsonparser.Object:
		nested := NewValues()
		if err := nested.UnmarshalJSON(value); err != nil {
			return nil, err
		}
		return nested, nil
	case jsonparser.Array:
		return decodeJSONArray(value)
	default:
		return nil, fmt.Errorf("unsupported JSON value %q", string(value))
	}
}

// decodeJSONArray yields []string when every element is a string (multi-select
// answers) and []any otherwise.
func decodeJSONArray(value []byte) (any, error) {
	if isEmptyContainer(bytes.TrimSpace(value)) {
		return []string{}, nil
	}

	items := make([]any, 0)
	allStrings := true
	var firstErr error
	_, err := jsonparser.ArrayEach(value, func(elem []byte, dataType jsonparser.ValueType, _ int, err error) {
		if firstErr != nil {
			return
		}
		if err != nil {
			firstErr = err
			return
		}
		decoded, err := decodeJSONValue(elem, dataType)
		if err != nil {
			firstErr = err
			return
		}
		if _, ok := decoded.(string); !ok {
			allStrings = false
		}
		items = append(items, decoded)
	})
	if err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}

	if !allStrings {
		return items, nil
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.(string)
	}
	return out, nil
}

func isEmptyContainer(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	open, closing := b[0], b[len(b)-1]
	if !(open == '{' && closing == '}') && !(open == '[' && closing == ']') {
		return false
	}
	return len(bytes.TrimSpace(b[1:len(b)-1])) == 0
}

// NormalizeValue converts loosely typed input (decoded JSON, YAML or form
// data) into the shapes Values stores: maps become *Values with sorted keys and
// lists of strings become []string.
func NormalizeValue(val any) any {
	switch t := val.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		group := NewValues()
		for _, k := range keys {
			group.Set(k, NormalizeValue(t[k]))
		}
		return group
	case []any:
		strs := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				out := make([]any, len(t))
				for i, item := range t {
					out[i] = NormalizeValue(item)
				}
				return out
			}
			strs = append(strs, s)
		}
		return strs
	case *Values:
		return t.Clone()
	default:
		return cloneValue(val)
	}
}
