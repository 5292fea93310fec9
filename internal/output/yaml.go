package output

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/namelens/domainwatch/internal/core"
	"github.com/namelens/domainwatch/internal/notify"
)

// YAMLFormatter renders results as YAML, keeping snapshot field order.
type YAMLFormatter struct{}

// FormatCheck renders a check view as a YAML document.
func (f *YAMLFormatter) FormatCheck(view *CheckView) (string, error) {
	if view == nil {
		return "", nil
	}

	doc := mapping()
	addScalar(doc, "domain", view.Domain)
	if view.Source != "" {
		addScalar(doc, "source", view.Source)
	}
	if view.Server != "" {
		addScalar(doc, "server", view.Server)
	}
	addNode(doc, "snapshot", snapshotNode(view.Snapshot))
	if view.Changes != nil && view.Changes.Len() > 0 {
		addNode(doc, "changes", changesNode(view.Changes))
	}
	addNode(doc, "saved", boolNode(view.Saved))

	return encode(doc)
}

// FormatDispatch renders dispatch outcomes as a YAML sequence.
func (f *YAMLFormatter) FormatDispatch(result notify.DispatchResult) (string, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, outcome := range result {
		item := mapping()
		addScalar(item, "channel", outcome.Channel)
		addNode(item, "success", boolNode(outcome.Success))
		if outcome.Error != "" {
			addScalar(item, "error", outcome.Error)
		}
		seq.Content = append(seq.Content, item)
	}
	return encode(seq)
}

func encode(node *yaml.Node) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func mapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func addNode(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, strNode(key), value)
}

func addScalar(m *yaml.Node, key, value string) {
	addNode(m, key, strNode(value))
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func boolNode(b bool) *yaml.Node {
	value := "false"
	if b {
		value = "true"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: value}
}

func valueNode(v core.Value) *yaml.Node {
	switch v.Kind() {
	case core.KindString:
		return strNode(v.Str())
	case core.KindBool:
		return boolNode(v.BoolValue())
	case core.KindList:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.Items() {
			seq.Content = append(seq.Content, strNode(item))
		}
		return seq
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

func snapshotNode(s *core.Snapshot) *yaml.Node {
	m := mapping()
	for _, key := range s.Keys() {
		value, _ := s.Get(key)
		addNode(m, key, valueNode(value))
	}
	return m
}

func changesNode(c *core.ChangeSet) *yaml.Node {
	m := mapping()
	for _, key := range c.Keys() {
		change, _ := c.Get(key)
		entry := mapping()
		addNode(entry, "from", valueNode(change.From))
		addNode(entry, "to", valueNode(change.To))
		addNode(m, key, entry)
	}
	return m
}
