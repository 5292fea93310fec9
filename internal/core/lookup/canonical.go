package lookup

import (
	"strings"
	"unicode"

	"github.com/namelens/domainwatch/internal/core"
)

// rdapStatusToEPP covers the RDAP status values whose EPP name is not a
// plain camel-casing of the words (RFC 8056 section 2).
var rdapStatusToEPP = map[string]string{
	"active": "ok",
}

// newFields returns a field map with every tracked field present and nil.
// Both sources start from it so a missing attribute looks the same whichever
// source answered.
func newFields() map[string]any {
	fields := make(map[string]any, len(core.TrackedFields()))
	for _, field := range core.TrackedFields() {
		fields[field] = nil
	}
	return fields
}

// canonicalDomainName folds a registry-reported domain name to lower case
// without the root dot. Empty input yields nil.
func canonicalDomainName(name string) any {
	name = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
	if name == "" {
		return nil
	}
	return name
}

// eppStatus maps an RDAP status ("client transfer prohibited") to its EPP
// form ("clientTransferProhibited"). Values already in EPP form pass through.
func eppStatus(status string) string {
	status = strings.TrimSpace(status)
	lower := strings.ToLower(status)
	if mapped, ok := rdapStatusToEPP[lower]; ok {
		return mapped
	}
	words := strings.Fields(lower)
	if len(words) < 2 {
		return status
	}

	var b strings.Builder
	b.WriteString(words[0])
	for _, word := range words[1:] {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}
