package vdom

// Builder describes a subtree without allocating it. Builders are handy for
// tests and examples; Build materializes them into an arena.
type Builder struct {
	node     Node
	children []Builder
}

// El describes an element. Arguments may be Attrs, Handlers, Builder or
// string (a text child); anything else is ignored.
func El(tag string, args ...any) Builder {
	b := Builder{node: Node{Kind: KindElement, Tag: tag}}
	for _, arg := range args {
		switch v := arg.(type) {
		case Attrs:
			if b.node.Attrs == nil {
				b.node.Attrs = make(Attrs, len(v))
			}
			for k, val := range v {
				b.node.Attrs[k] = val
			}
		case Handlers:
			if b.node.Handlers == nil {
				b.node.Handlers = make(Handlers, len(v))
			}
			for k, h := range v {
				b.node.Handlers[k] = h
			}
		case Builder:
			b.children = append(b.children, v)
		case []Builder:
			b.children = append(b.children, v...)
		case string:
			b.children = append(b.children, T(v))
		}
	}
	return b
}

// T describes a text node.
func T(content string) Builder {
	return Builder{node: Node{Kind: KindText, Text: content}}
}

// Frag describes a fragment.
func Frag(children ...Builder) Builder {
	return Builder{node: Node{Kind: KindFragment}, children: children}
}

// Comp describes a component.
func Comp(name string, props Attrs, state State, render string) Builder {
	return Builder{node: Node{
		Kind:   KindComponent,
		Name:   name,
		Props:  props,
		State:  state,
		Render: render,
	}}
}

// Build allocates the described subtree in a and returns its unowned root.
func (b Builder) Build(a *Arena) NodeID {
	children := make([]NodeID, 0, len(b.children))
	for _, c := range b.children {
		children = append(children, c.Build(a))
	}

	n := b.node
	switch n.Kind {
	case KindElement:
		return a.Element(n.Tag, n.Attrs, n.Handlers, children...)
	case KindText:
		return a.Text(n.Text)
	case KindFragment:
		return a.Fragment(children...)
	default:
		return a.Component(n.Name, n.Props, n.State, n.Render)
	}
}

// Tree builds b into a fresh arena and returns a reference to its root.
func Tree(b Builder) Ref {
	a := NewArena()
	return a.Ref(b.Build(a))
}
