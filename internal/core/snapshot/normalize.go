// Package snapshot turns raw registry records into canonical snapshots.
package snapshot

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/namelens/domainwatch/internal/core"
)

const (
	// DateLayout is the fixed textual form for registry timestamps.
	DateLayout = "2006-01-02 15:04:05"

	// RawTextPlaceholder is stored when the registry response text is unavailable.
	RawTextPlaceholder = "raw registry response unavailable"

	// UnregisteredAvailability describes a domain with no registration data.
	UnregisteredAvailability = "available or no registration data"

	rawTextTruncatedSuffix = "\n[truncated]"
)

// Normalizer converts registry records into snapshots.
type Normalizer struct {
	Clock func() time.Time

	// RawTextMaxBytes caps the persisted raw response; zero means unbounded.
	RawTextMaxBytes int
}

// Normalize builds a snapshot from a registry record.
func (n *Normalizer) Normalize(record *core.RegistryRecord) *core.Snapshot {
	snap := core.NewSnapshot()

	if _, ok := record.DomainName(); !ok {
		snap.Set(core.FieldRegistered, core.Bool(false))
		snap.Set(core.FieldAvailability, core.String(UnregisteredAvailability))
	} else {
		snap.Set(core.FieldRegistered, core.Bool(true))
		for _, field := range core.TrackedFields() {
			raw, present := record.Fields[field]
			if !present {
				continue
			}
			snap.Set(field, Value(raw))
		}
	}

	snap.Set(core.FieldCheckTime, core.String(n.now().Format(time.RFC3339)))
	snap.Set(core.FieldRawText, core.String(n.rawText(record)))
	return snap
}

// ErrorSnapshot records a failed lookup for the cycle.
func (n *Normalizer) ErrorSnapshot(err error) *core.Snapshot {
	msg := "unknown lookup error"
	if err != nil {
		msg = err.Error()
	}
	snap := core.NewSnapshot()
	snap.Set(core.FieldError, core.String(msg))
	snap.Set(core.FieldCheckTime, core.String(n.now().Format(time.RFC3339)))
	return snap
}

// Value normalizes a single raw registry value.
func Value(raw any) core.Value {
	switch v := raw.(type) {
	case nil:
		return core.Null()
	case core.Value:
		return v
	case string:
		return core.String(v)
	case *string:
		if v == nil {
			return core.Null()
		}
		return core.String(*v)
	case bool:
		return core.String(boolText(v))
	case time.Time:
		return core.String(FormatTime(v))
	case *time.Time:
		if v == nil {
			return core.Null()
		}
		return core.String(FormatTime(*v))
	case []string:
		return core.List(v)
	case []time.Time:
		items := make([]string, len(v))
		for i, t := range v {
			items[i] = FormatTime(t)
		}
		return core.List(items)
	case []any:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = scalarText(item)
		}
		return core.List(items)
	case fmt.Stringer:
		return core.String(v.String())
	default:
		return core.String(fmt.Sprint(v))
	}
}

// FormatTime renders a timestamp in UTC without zone or sub-second precision.
func FormatTime(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func scalarText(raw any) string {
	switch v := raw.(type) {
	case nil:
		return core.NullText
	case string:
		return v
	case time.Time:
		return FormatTime(v)
	case bool:
		return boolText(v)
	default:
		return fmt.Sprint(v)
	}
}

func boolText(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func (n *Normalizer) rawText(record *core.RegistryRecord) string {
	if record == nil || strings.TrimSpace(record.RawText) == "" {
		return RawTextPlaceholder
	}
	text := record.RawText
	if n.RawTextMaxBytes > 0 && len(text) > n.RawTextMaxBytes {
		cut := n.RawTextMaxBytes
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + rawTextTruncatedSuffix
	}
	return text
}

func (n *Normalizer) now() time.Time {
	if n != nil && n.Clock != nil {
		return n.Clock()
	}
	return time.Now().UTC()
}
