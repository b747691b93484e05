package output

import (
	"encoding/json"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// KeyValue is one key=value field.
type KeyValue struct {
	Key   string
	Value string
}

// KeyValues is an ordered list of fields, such as a CLIENT INFO line.
type KeyValues []KeyValue

// ParseKeyValues splits a space separated key=value line. A field without
// '=' gets an empty value.
func ParseKeyValues(line string) KeyValues {
	return lo.Map(strings.Fields(line), func(field string, _ int) KeyValue {
		k, v, _ := strings.Cut(field, "=")
		return KeyValue{Key: k, Value: v}
	})
}

// ParseKeyValueLines parses one KeyValues per non-empty line, as returned
// by CLIENT LIST.
func ParseKeyValueLines(text string) []KeyValues {
	lines := lo.Filter(strings.Split(text, "\n"), func(l string, _ int) bool {
		return strings.TrimSpace(l) != ""
	})
	return lo.Map(lines, func(l string, _ int) KeyValues { return ParseKeyValues(l) })
}

// Get returns the value of key.
func (kv KeyValues) Get(key string) (string, bool) {
	f, ok := lo.Find(kv, func(f KeyValue) bool { return f.Key == key })
	return f.Value, ok
}

// Map returns the fields as a map. Later duplicates win.
func (kv KeyValues) Map() map[string]string {
	return lo.Associate(kv, func(f KeyValue) (string, string) { return f.Key, f.Value })
}

// Table renders the fields as KEY/VALUE rows.
func (kv KeyValues) Table() *Table {
	t := &Table{Headers: []string{"KEY", "VALUE"}}
	for _, f := range kv {
		t.AddRow(f.Key, f.Value)
	}
	return t
}

// ListTable renders one row per entry, with columns taken from the first.
func ListTable(list []KeyValues) *Table {
	t := &Table{}
	if len(list) == 0 {
		return t
	}
	t.Headers = lo.Map(list[0], func(f KeyValue, _ int) string { return strings.ToUpper(f.Key) })
	for _, kv := range list {
		m := kv.Map()
		t.AddRow(lo.Map(list[0], func(f KeyValue, _ int) string { return m[f.Key] })...)
	}
	return t
}

// MarshalJSON encodes the fields as an object in their original order.
func (kv KeyValues) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range kv {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// MarshalYAML encodes the fields as a mapping in their original order.
// Values are double quoted so YAML readers keep them as strings.
func (kv KeyValues) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, f := range kv {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Value, Style: yaml.DoubleQuotedStyle},
		)
	}
	return node, nil
}
