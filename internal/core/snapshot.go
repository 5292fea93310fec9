package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Snapshot field names.
const (
	FieldRegistered     = "registered"
	FieldAvailability   = "availability"
	FieldDomainName     = "domain_name"
	FieldRegistrar      = "registrar"
	FieldWhoisServer    = "whois_server"
	FieldStatus         = "status"
	FieldNameServers    = "name_servers"
	FieldCreationDate   = "creation_date"
	FieldExpirationDate = "expiration_date"
	FieldUpdatedDate    = "updated_date"
	FieldDNSSEC         = "dnssec"
	FieldCheckTime      = "check_time"
	FieldRawText        = "raw_text"
	FieldError          = "error"
	FieldMessage        = "message"
)

// trackedFields are the registry attributes compared between checks, in
// snapshot order.
var trackedFields = []string{
	FieldDomainName,
	FieldRegistrar,
	FieldWhoisServer,
	FieldStatus,
	FieldNameServers,
	FieldCreationDate,
	FieldExpirationDate,
	FieldUpdatedDate,
	FieldDNSSEC,
}

// TrackedFields returns the registry attributes copied into a snapshot.
func TrackedFields() []string {
	out := make([]string, len(trackedFields))
	copy(out, trackedFields)
	return out
}

// Snapshot is the canonical, comparison-ready view of a domain's registry
// state. Keys keep insertion order.
type Snapshot struct {
	keys   []string
	values map[string]Value
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{values: map[string]Value{}}
}

// Set stores a field, keeping its original position when it already exists.
func (s *Snapshot) Set(key string, value Value) {
	if s.values == nil {
		s.values = map[string]Value{}
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Get returns a field value.
func (s *Snapshot) Get(key string) (Value, bool) {
	if s == nil || s.values == nil {
		return Value{}, false
	}
	v, ok := s.values[key]
	return v, ok
}

// Has reports whether a field is present.
func (s *Snapshot) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Keys returns field names in insertion order.
func (s *Snapshot) Keys() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of fields.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// IsError reports whether the snapshot records a failed lookup.
func (s *Snapshot) IsError() bool {
	return s.Has(FieldError)
}

// Registered reports the registration flag (false when absent).
func (s *Snapshot) Registered() bool {
	v, ok := s.Get(FieldRegistered)
	return ok && v.Kind() == KindBool && v.BoolValue()
}

// MarshalJSON encodes the snapshot as a JSON object in field order.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return marshalOrdered(s.Keys(), func(key string) (any, bool) {
		v, ok := s.Get(key)
		return v, ok
	})
}

// UnmarshalJSON decodes a JSON object, preserving key order.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	*s = Snapshot{values: map[string]Value{}}
	return decodeOrdered(data, func(key string, raw json.RawMessage) error {
		var v Value
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		s.Set(key, v)
		return nil
	})
}

func marshalOrdered(keys []string, get func(string) (any, bool)) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	wrote := false
	for _, key := range keys {
		value, ok := get(key)
		if !ok {
			continue
		}
		if wrote {
			buf.WriteByte(',')
		}
		wrote = true
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(encoded)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func decodeOrdered(data []byte, visit func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("expected JSON object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return errors.New("expected object key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := visit(key, raw); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
