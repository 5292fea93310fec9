package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ValueKind identifies the shape of a normalized snapshot value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindBool
	KindList
)

// NullText is how a null value is rendered for humans.
const NullText = "None"

// Value is a normalized snapshot value: null, a string, a bool, or a
// sorted lower-cased list of strings.
type Value struct {
	kind ValueKind
	str  string
	b    bool
	list []string
}

// Null returns the null value.
func Null() Value {
	return Value{kind: KindNull}
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// List returns a list value. Items are lower-cased and sorted so two lists
// holding the same members compare equal regardless of order or casing.
func List(items []string) Value {
	folded := make([]string, len(items))
	for i, item := range items {
		folded[i] = strings.ToLower(item)
	}
	sort.Strings(folded)
	return Value{kind: KindList, list: folded}
}

// Kind reports the value kind.
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Str returns the string payload (empty for non-string kinds).
func (v Value) Str() string {
	return v.str
}

// BoolValue returns the boolean payload.
func (v Value) BoolValue() bool {
	return v.b
}

// Items returns a copy of the list payload.
func (v Value) Items() []string {
	if v.kind != KindList {
		return nil
	}
	out := make([]string, len(v.list))
	copy(out, v.list)
	return out
}

// Equal reports exact equality of two normalized values.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == other.str
	case KindBool:
		return v.b == other.b
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != other.list[i] {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the value for notification bodies and tables.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindList:
		return "[" + strings.Join(v.list, ", ") + "]"
	default:
		return NullText
	}
}

// Any returns the value as a plain Go value (nil, string, bool, []string).
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindBool:
		return v.b
	case KindList:
		return v.Items()
	default:
		return nil
	}
}

// MarshalJSON encodes the value as its natural JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindList && v.list == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v.Any())
}

// UnmarshalJSON decodes null, strings, booleans, numbers and string arrays.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = Null()
		return nil
	}

	var raw any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("decode snapshot value: %w", err)
	}

	switch typed := raw.(type) {
	case string:
		*v = String(typed)
	case bool:
		*v = Bool(typed)
	case float64:
		*v = String(string(trimmed))
	case []any:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok {
				items = append(items, s)
				continue
			}
			items = append(items, fmt.Sprint(item))
		}
		*v = List(items)
	default:
		return fmt.Errorf("unsupported snapshot value: %s", string(trimmed))
	}
	return nil
}
