// Package output renders check results and notification outcomes for the CLI.
package output

import (
	"fmt"
	"strings"

	"github.com/namelens/domainwatch/internal/core"
	"github.com/namelens/domainwatch/internal/notify"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// CheckView is a single lookup as shown by the check and snapshot commands.
type CheckView struct {
	Domain   string          `json:"domain"`
	Source   string          `json:"source,omitempty"`
	Server   string          `json:"server,omitempty"`
	Snapshot *core.Snapshot  `json:"snapshot"`
	Changes  *core.ChangeSet `json:"changes,omitempty"`
	Saved    bool            `json:"saved"`
}

// Formatter renders check views and dispatch results.
type Formatter interface {
	FormatCheck(view *CheckView) (string, error)
	FormatDispatch(result notify.DispatchResult) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatMarkdown:
		return &TableFormatter{Markdown: true}
	default:
		return &TableFormatter{}
	}
}
