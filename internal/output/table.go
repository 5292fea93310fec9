package output

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/namelens/domainwatch/internal/core"
	"github.com/namelens/domainwatch/internal/notify"
)

// TableFormatter renders results as an ASCII table, or a Markdown table when
// Markdown is set.
type TableFormatter struct {
	Markdown bool
}

// FormatCheck renders the snapshot fields, then the changes if any.
func (f *TableFormatter) FormatCheck(view *CheckView) (string, error) {
	if view == nil || view.Snapshot == nil {
		return "", nil
	}

	t := f.newWriter()
	t.SetTitle(view.Domain)
	t.AppendHeader(table.Row{"Field", "Value"})
	for _, key := range view.Snapshot.Keys() {
		value, _ := view.Snapshot.Get(key)
		t.AppendRow(table.Row{key, displayValue(key, value)})
	}

	footer := view.Source
	if view.Server != "" {
		footer = fmt.Sprintf("%s via %s", view.Source, view.Server)
	}
	if footer != "" {
		t.AppendFooter(table.Row{"source", footer})
	}

	rendered := f.render(t)
	if view.Changes == nil || view.Changes.Len() == 0 {
		return rendered, nil
	}

	changes := f.newWriter()
	changes.SetTitle("Changes")
	changes.AppendHeader(table.Row{"Field", "Before", "After"})
	for _, key := range view.Changes.Keys() {
		change, _ := view.Changes.Get(key)
		changes.AppendRow(table.Row{key, change.From.String(), change.To.String()})
	}

	return rendered + "\n\n" + f.render(changes), nil
}

// FormatDispatch renders one row per channel with a success summary.
func (f *TableFormatter) FormatDispatch(result notify.DispatchResult) (string, error) {
	t := f.newWriter()
	t.AppendHeader(table.Row{"Channel", "Status", "Error"})
	for _, outcome := range result {
		t.AppendRow(table.Row{outcome.Channel, statusLabel(outcome.Success), outcome.Error})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d/%d succeeded", result.Succeeded(), len(result)), ""})
	return f.render(t), nil
}

func (f *TableFormatter) newWriter() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) render(t table.Writer) string {
	if f.Markdown {
		return t.RenderMarkdown()
	}
	return t.Render()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// displayValue keeps raw registry text out of the table.
func displayValue(key string, value core.Value) string {
	if key == core.FieldRawText && value.Kind() == core.KindString {
		return "(" + humanize.Bytes(uint64(len(value.Str()))) + ")"
	}
	return value.String()
}
