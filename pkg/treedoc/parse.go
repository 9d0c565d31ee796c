package treedoc

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

// maxDepth bounds document nesting.
const maxDepth = 512

// Parse parses a YAML or JSON document.
func Parse(data []byte) (*Doc, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &Error{Msg: err.Error(), Err: ErrInvalidDocument}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, &Error{Msg: "empty document", Err: ErrInvalidDocument}
	}
	return parseNode(root.Content[0], 0)
}

// Load reads the document at path and builds it into a fresh arena.
func Load(path string) (*vdom.Arena, vdom.NodeID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, vdom.NoNode, fmt.Errorf("read %s: %w", path, err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, vdom.NoNode, fmt.Errorf("%s: %w", path, err)
	}
	a := vdom.NewArena()
	return a, Build(a, d), nil
}

func errorAt(n *yaml.Node, sentinel error, format string, args ...any) *Error {
	return &Error{
		Line:   n.Line,
		Column: n.Column,
		Msg:    fmt.Sprintf(format, args...),
		Err:    sentinel,
	}
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

var nodeKeys = map[string]vdom.Kind{
	"element":   vdom.KindElement,
	"text":      vdom.KindText,
	"fragment":  vdom.KindFragment,
	"component": vdom.KindComponent,
}

// allowedKeys lists the keys each kind accepts besides its own.
var allowedKeys = map[vdom.Kind]map[string]bool{
	vdom.KindElement:   {"attrs": true, "on": true, "children": true},
	vdom.KindText:      {},
	vdom.KindFragment:  {},
	vdom.KindComponent: {"render": true, "props": true, "state": true},
}

func parseNode(n *yaml.Node, depth int) (*Doc, error) {
	n = resolveAlias(n)
	if depth > maxDepth {
		return nil, errorAt(n, ErrInvalidDocument, "nesting exceeds %d levels", maxDepth)
	}

	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return nil, errorAt(n, ErrUnknownShape, "null is not a node")
		}
		return &Doc{Kind: vdom.KindText, Text: n.Value}, nil
	case yaml.MappingNode:
	default:
		return nil, errorAt(n, ErrUnknownShape, "expected a node mapping or text")
	}

	fields := make(map[string]*yaml.Node, len(n.Content)/2)
	kind, found := vdom.Kind(0), ""
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i]
		if _, dup := fields[key.Value]; dup {
			return nil, errorAt(key, ErrInvalidDocument, "duplicate key %q", key.Value)
		}
		fields[key.Value] = resolveAlias(n.Content[i+1])
		if k, ok := nodeKeys[key.Value]; ok {
			if found != "" {
				return nil, errorAt(key, ErrUnknownShape, "node has both %q and %q", found, key.Value)
			}
			kind, found = k, key.Value
		}
	}
	if found == "" {
		return nil, errorAt(n, ErrUnknownShape, "node needs one of element, text, fragment or component")
	}
	for i := 0; i < len(n.Content); i += 2 {
		key := n.Content[i]
		if key.Value != found && !allowedKeys[kind][key.Value] {
			return nil, errorAt(key, ErrUnknownShape, "unexpected key %q in %s node", key.Value, found)
		}
	}

	d := &Doc{Kind: kind}
	var err error
	switch kind {
	case vdom.KindElement:
		if d.Tag, err = scalar(fields["element"], "element"); err != nil {
			return nil, err
		}
		if d.Tag == "" {
			return nil, errorAt(fields["element"], ErrInvalidDocument, "element tag is empty")
		}
		if d.Attrs, err = stringMap(fields["attrs"], "attrs"); err != nil {
			return nil, err
		}
		if d.On, err = stringMap(fields["on"], "on"); err != nil {
			return nil, err
		}
		if d.Children, err = parseChildren(fields["children"], depth); err != nil {
			return nil, err
		}
	case vdom.KindText:
		if d.Text, err = scalar(fields["text"], "text"); err != nil {
			return nil, err
		}
	case vdom.KindFragment:
		if d.Children, err = parseChildren(fields["fragment"], depth); err != nil {
			return nil, err
		}
	case vdom.KindComponent:
		if d.Name, err = scalar(fields["component"], "component"); err != nil {
			return nil, err
		}
		d.Render = d.Name
		if r, ok := fields["render"]; ok {
			if d.Render, err = scalar(r, "render"); err != nil {
				return nil, err
			}
		}
		if d.Props, err = stringMap(fields["props"], "props"); err != nil {
			return nil, err
		}
		if d.State, err = parseState(fields["state"]); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func scalar(n *yaml.Node, field string) (string, error) {
	if n.Kind != yaml.ScalarNode || n.ShortTag() == "!!null" {
		return "", errorAt(n, ErrInvalidDocument, "%s must be a scalar", field)
	}
	return n.Value, nil
}

func stringMap(n *yaml.Node, field string) (map[string]string, error) {
	if n == nil {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, errorAt(n, ErrInvalidDocument, "%s must be a mapping", field)
	}
	if len(n.Content) == 0 {
		return nil, nil
	}
	m := make(map[string]string, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		v, err := scalar(resolveAlias(n.Content[i+1]), field+"."+n.Content[i].Value)
		if err != nil {
			return nil, err
		}
		m[n.Content[i].Value] = v
	}
	return m, nil
}

func parseChildren(n *yaml.Node, depth int) ([]*Doc, error) {
	if n == nil {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, errorAt(n, ErrInvalidDocument, "children must be a sequence")
	}
	if len(n.Content) == 0 {
		return nil, nil
	}
	children := make([]*Doc, 0, len(n.Content))
	for _, c := range n.Content {
		d, err := parseNode(c, depth+1)
		if err != nil {
			return nil, err
		}
		children = append(children, d)
	}
	return children, nil
}

func parseState(n *yaml.Node) (vdom.State, error) {
	if n == nil {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, errorAt(n, ErrInvalidDocument, "state must be a mapping")
	}
	if len(n.Content) == 0 {
		return nil, nil
	}
	state := make(vdom.State, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		v, err := parseValue(resolveAlias(n.Content[i+1]), key)
		if err != nil {
			return nil, err
		}
		state[key] = v
	}
	return state, nil
}

func parseValue(n *yaml.Node, key string) (vdom.Value, error) {
	if n.Kind != yaml.ScalarNode {
		return vdom.Value{}, errorAt(n, ErrUnsupportedValue, "state %q must be a scalar", key)
	}
	switch n.ShortTag() {
	case "!!str":
		return vdom.String(n.Value), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return vdom.Value{}, errorAt(n, ErrUnsupportedValue, "state %q: %v", key, err)
		}
		return vdom.Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return vdom.Value{}, errorAt(n, ErrUnsupportedValue, "state %q: %v", key, err)
		}
		return vdom.Float(f), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return vdom.Value{}, errorAt(n, ErrUnsupportedValue, "state %q: %v", key, err)
		}
		return vdom.Bool(b), nil
	default:
		return vdom.Value{}, errorAt(n, ErrUnsupportedValue, "state %q has unsupported type %s", key, n.ShortTag())
	}
}
