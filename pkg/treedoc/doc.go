// Package treedoc reads and writes vdom trees as YAML documents.
//
// A document is one node. Nodes are mappings with exactly one of the keys
// element, text, fragment or component:
//
//	element: ul
//	attrs: {class: list}
//	on: {click: select}
//	children:
//	  - element: li
//	    children: [a]
//	  - text: b
//	  - fragment: [x, y]
//	  - component: Counter
//	    render: counter
//	    props: {step: "1"}
//	    state: {count: 3, label: hi, ratio: 0.5, open: true}
//
// A plain string in a child list is shorthand for a text node. JSON is valid
// YAML, so JSON documents are accepted too. Component state values keep
// their YAML type: integers, floats, booleans and strings map to the
// matching vdom.Value kind.
package treedoc

import (
	"errors"
	"fmt"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

var (
	// ErrInvalidDocument is returned for syntactically invalid or empty
	// documents.
	ErrInvalidDocument = errors.New("treedoc: invalid document")

	// ErrUnknownShape is returned for nodes that match no node kind.
	ErrUnknownShape = errors.New("treedoc: unknown node shape")

	// ErrUnsupportedValue is returned for state values that are not scalars.
	ErrUnsupportedValue = errors.New("treedoc: unsupported state value")
)

// Error describes a problem at a position in a document.
type Error struct {
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%v: %s", e.Err, e.Msg)
	}
	return fmt.Sprintf("%v: line %d, column %d: %s", e.Err, e.Line, e.Column, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Doc is a parsed node description.
type Doc struct {
	Kind     vdom.Kind
	Tag      string            // element
	Attrs    map[string]string // element
	On       map[string]string // element
	Children []*Doc            // element, fragment
	Text     string            // text
	Name     string            // component
	Render   string            // component
	Props    map[string]string // component
	State    vdom.State        // component
}

// Build materializes d into a and returns the new, unowned root.
func Build(a *vdom.Arena, d *Doc) vdom.NodeID {
	switch d.Kind {
	case vdom.KindText:
		return a.Text(d.Text)
	case vdom.KindComponent:
		return a.Component(d.Name, d.Props, d.State, d.Render)
	}

	children := make([]vdom.NodeID, 0, len(d.Children))
	for _, c := range d.Children {
		children = append(children, Build(a, c))
	}
	if d.Kind == vdom.KindFragment {
		return a.Fragment(children...)
	}

	var handlers vdom.Handlers
	if len(d.On) > 0 {
		handlers = make(vdom.Handlers, len(d.On))
		for event, key := range d.On {
			handlers[event] = vdom.HandlerKey(key)
		}
	}
	return a.Element(d.Tag, d.Attrs, handlers, children...)
}

// Export describes the tree named by r. It returns nil for an invalid
// reference.
func Export(r vdom.Ref) *Doc {
	n := r.Node()
	if n == nil {
		return nil
	}

	d := &Doc{Kind: n.Kind}
	switch n.Kind {
	case vdom.KindText:
		d.Text = n.Text
		return d
	case vdom.KindComponent:
		d.Name = n.Name
		d.Render = n.Render
		d.Props = cloneStrings(n.Props)
		d.State = n.State.Clone()
		return d
	case vdom.KindElement:
		d.Tag = n.Tag
		d.Attrs = cloneStrings(n.Attrs)
		if len(n.Handlers) > 0 {
			d.On = make(map[string]string, len(n.Handlers))
			for event, key := range n.Handlers {
				d.On[event] = string(key)
			}
		}
	}
	for i := range n.Children {
		if c := Export(r.Child(i)); c != nil {
			d.Children = append(d.Children, c)
		}
	}
	return d
}

func cloneStrings(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
