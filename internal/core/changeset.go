package core

import (
	"encoding/json"
	"fmt"
)

// Change is a single field transition. A null From means the field appeared;
// a null To means it disappeared.
type Change struct {
	From Value `json:"from"`
	To   Value `json:"to"`
}

// ChangeSet is the ordered field-by-field diff between two snapshots.
type ChangeSet struct {
	keys    []string
	changes map[string]Change
}

// NewChangeSet returns an empty change set.
func NewChangeSet() *ChangeSet {
	return &ChangeSet{changes: map[string]Change{}}
}

// Set records a change for a field.
func (c *ChangeSet) Set(key string, change Change) {
	if c.changes == nil {
		c.changes = map[string]Change{}
	}
	if _, ok := c.changes[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.changes[key] = change
}

// Get returns the change recorded for a field.
func (c *ChangeSet) Get(key string) (Change, bool) {
	if c == nil || c.changes == nil {
		return Change{}, false
	}
	change, ok := c.changes[key]
	return change, ok
}

// Has reports whether a field has a recorded change.
func (c *ChangeSet) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Keys returns changed field names in detection order.
func (c *ChangeSet) Keys() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of entries.
func (c *ChangeSet) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// MarshalJSON encodes the change set as an ordered JSON object.
func (c *ChangeSet) MarshalJSON() ([]byte, error) {
	return marshalOrdered(c.Keys(), func(key string) (any, bool) {
		change, ok := c.Get(key)
		return change, ok
	})
}

// UnmarshalJSON decodes an ordered JSON object of {from, to} pairs.
func (c *ChangeSet) UnmarshalJSON(data []byte) error {
	*c = ChangeSet{changes: map[string]Change{}}
	return decodeOrdered(data, func(key string, raw json.RawMessage) error {
		var change Change
		if err := json.Unmarshal(raw, &change); err != nil {
			return fmt.Errorf("change %q: %w", key, err)
		}
		c.Set(key, change)
		return nil
	})
}
