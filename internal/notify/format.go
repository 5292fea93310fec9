package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/namelens/domainwatch/internal/core"
)

const (
	subjectTemplate  = "Domain change detected for %s"
	headerTimeLayout = "2006-01-02 15:04:05"
)

// statusFields is the footer subset of the current snapshot, in display order.
var statusFields = []string{
	core.FieldRegistered,
	core.FieldDomainName,
	core.FieldRegistrar,
	core.FieldExpirationDate,
	core.FieldStatus,
}

// Formatter renders change sets into notification text.
type Formatter struct {
	Clock func() time.Time
}

// Format renders with the wall clock.
func Format(domain string, changes *core.ChangeSet, current *core.Snapshot) (string, string) {
	return Formatter{}.Format(domain, changes, current)
}

// Format returns the subject and body for a change set.
func (f Formatter) Format(domain string, changes *core.ChangeSet, current *core.Snapshot) (subject, body string) {
	subject = fmt.Sprintf(subjectTemplate, domain)

	var b strings.Builder
	fmt.Fprintf(&b, "Changes detected for %s at %s:\n\n", domain, f.now().Format(headerTimeLayout))

	for _, field := range changes.Keys() {
		change, _ := changes.Get(field)
		fmt.Fprintf(&b, "%s:\n", field)
		fmt.Fprintf(&b, "  - Before: %s\n", change.From)
		fmt.Fprintf(&b, "  - After: %s\n\n", change.To)
	}

	b.WriteString("\nCurrent domain status:\n")
	for _, field := range statusFields {
		value, ok := current.Get(field)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", field, value)
	}

	return subject, b.String()
}

// Compose formats a change set into a ready-to-send message.
func (f Formatter) Compose(domain string, changes *core.ChangeSet, current *core.Snapshot) Message {
	subject, body := f.Format(domain, changes, current)
	return Message{
		Domain:  domain,
		Subject: subject,
		Body:    body,
		Changes: changes,
		Current: current,
	}
}

func (f Formatter) now() time.Time {
	if f.Clock != nil {
		return f.Clock()
	}
	return time.Now()
}
