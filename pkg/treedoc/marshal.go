package treedoc

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/wI2L/jsondiff"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

// MarshalYAML encodes the document in the same shape Parse accepts, with
// keys in a fixed order.
func (d *Doc) MarshalYAML() (any, error) {
	return d.yamlNode(), nil
}

// MarshalJSON encodes the document as a JSON object.
func (d *Doc) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.jsonValue())
}

// Encode renders d as YAML.
func Encode(d *Doc) ([]byte, error) {
	return yaml.Marshal(d)
}

func (d *Doc) yamlNode() *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, value *yaml.Node) {
		m.Content = append(m.Content, strNode(key), value)
	}

	switch d.Kind {
	case vdom.KindElement:
		add("element", strNode(d.Tag))
		if len(d.Attrs) > 0 {
			add("attrs", mapNode(d.Attrs))
		}
		if len(d.On) > 0 {
			add("on", mapNode(d.On))
		}
		if len(d.Children) > 0 {
			add("children", d.childrenNode())
		}
	case vdom.KindText:
		add("text", strNode(d.Text))
	case vdom.KindFragment:
		add("fragment", d.childrenNode())
	case vdom.KindComponent:
		add("component", strNode(d.Name))
		if d.Render != d.Name {
			add("render", strNode(d.Render))
		}
		if len(d.Props) > 0 {
			add("props", mapNode(d.Props))
		}
		if len(d.State) > 0 {
			s := &yaml.Node{Kind: yaml.MappingNode}
			for _, k := range d.State.Keys() {
				s.Content = append(s.Content, strNode(k), valueNode(d.State[k]))
			}
			add("state", s)
		}
	}
	return m
}

func (d *Doc) childrenNode() *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, c := range d.Children {
		seq.Content = append(seq.Content, c.yamlNode())
	}
	return seq
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func mapNode(m map[string]string) *yaml.Node {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		n.Content = append(n.Content, strNode(k), strNode(m[k]))
	}
	return n
}

func valueNode(v vdom.Value) *yaml.Node {
	switch v.Kind() {
	case vdom.ValueInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v.IntValue(), 10)}
	case vdom.ValueFloat:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatFloat(v.FloatValue())}
	case vdom.ValueBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.BoolValue())}
	default:
		return strNode(v.Str())
	}
}

// formatFloat always keeps a float-looking form so the value reads back as
// a float.
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		s += ".0"
	}
	return s
}

func (d *Doc) jsonValue() map[string]any {
	out := map[string]any{}
	switch d.Kind {
	case vdom.KindElement:
		out["element"] = d.Tag
		if len(d.Attrs) > 0 {
			out["attrs"] = d.Attrs
		}
		if len(d.On) > 0 {
			out["on"] = d.On
		}
		if len(d.Children) > 0 {
			out["children"] = d.childrenJSON()
		}
	case vdom.KindText:
		out["text"] = d.Text
	case vdom.KindFragment:
		out["fragment"] = d.childrenJSON()
	case vdom.KindComponent:
		out["component"] = d.Name
		out["render"] = d.Render
		if len(d.Props) > 0 {
			out["props"] = d.Props
		}
		if len(d.State) > 0 {
			state := make(map[string]any, len(d.State))
			for k, v := range d.State {
				state[k] = jsonScalar(v)
			}
			out["state"] = state
		}
	}
	return out
}

func (d *Doc) childrenJSON() []any {
	children := make([]any, 0, len(d.Children))
	for _, c := range d.Children {
		children = append(children, c.jsonValue())
	}
	return children
}

// jsonScalar maps non-finite floats to strings, which JSON cannot carry.
func jsonScalar(v vdom.Value) any {
	if v.Kind() == vdom.ValueFloat {
		f := v.FloatValue()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return formatFloat(f)
		}
	}
	return v.Any()
}

// Compare returns the RFC 6902 JSON Patch turning the document of a into the
// document of b. An empty patch means the trees are equal as documents.
func Compare(a, b vdom.Ref) (jsondiff.Patch, error) {
	var src, dst any
	if d := Export(a); d != nil {
		src = d.jsonValue()
	}
	if d := Export(b); d != nil {
		dst = d.jsonValue()
	}
	patch, err := jsondiff.Compare(src, dst)
	if err != nil {
		return nil, fmt.Errorf("treedoc: compare: %w", err)
	}
	return patch, nil
}
