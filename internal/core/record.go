package core

import "strings"

// RegistryRecord is the raw result of a registry lookup. Fields holds the
// loosely-typed registry attributes keyed by snapshot field name; a key mapped
// to nil is present but empty.
type RegistryRecord struct {
	Fields  map[string]any
	RawText string
	Source  string
	Server  string
}

// DomainName returns the registered domain name, if the record has one.
func (r *RegistryRecord) DomainName() (string, bool) {
	if r == nil || r.Fields == nil {
		return "", false
	}
	switch v := r.Fields[FieldDomainName].(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return "", false
		}
		return v, true
	case []string:
		if len(v) == 0 || strings.TrimSpace(v[0]) == "" {
			return "", false
		}
		return v[0], true
	default:
		return "", false
	}
}
