package vdom

import "fmt"

// Arena owns a set of nodes addressed by NodeID. Released slots are reused
// by later allocations.
//
// An Arena is not safe for concurrent mutation. Reconciliation cycles on the
// same arena must be serialized by the caller.
type Arena struct {
	nodes []Node
	free  []NodeID
	count int
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{nodes: make([]Node, 0, 64)}
}

// Len returns the number of live nodes.
func (a *Arena) Len() int {
	return a.count
}

// Valid reports whether id addresses a live node.
func (a *Arena) Valid(id NodeID) bool {
	return id >= 0 && int(id) < len(a.nodes) && a.nodes[id].live
}

// Node returns the node for id, or nil if id is not live.
// The pointer is invalidated by the next allocation.
func (a *Arena) Node(id NodeID) *Node {
	if !a.Valid(id) {
		return nil
	}
	return &a.nodes[id]
}

// Ref returns a reference to id in this arena.
func (a *Arena) Ref(id NodeID) Ref {
	return Ref{Arena: a, ID: id}
}

// Parent returns the parent of id, or NoNode for roots and invalid ids.
func (a *Arena) Parent(id NodeID) NodeID {
	if !a.Valid(id) {
		return NoNode
	}
	return a.nodes[id].parent
}

// Element creates an element node owning the given children. The maps are
// copied; later changes to them do not affect the node.
func (a *Arena) Element(tag string, attrs Attrs, handlers Handlers, children ...NodeID) NodeID {
	id := a.alloc(Node{
		Kind:     KindElement,
		Tag:      tag,
		Attrs:    copyMap(attrs),
		Handlers: copyMap(handlers),
	})
	a.adopt(id, children)
	return id
}

// Text creates a text node.
func (a *Arena) Text(content string) NodeID {
	return a.alloc(Node{Kind: KindText, Text: content})
}

// Textf creates a formatted text node.
func (a *Arena) Textf(format string, args ...any) NodeID {
	return a.Text(fmt.Sprintf(format, args...))
}

// Fragment creates a fragment node owning the given children.
func (a *Arena) Fragment(children ...NodeID) NodeID {
	id := a.alloc(Node{Kind: KindFragment})
	a.adopt(id, children)
	return id
}

// Component creates a component node. render is the key of the component's
// render function in a Registry; it may be empty.
func (a *Arena) Component(name string, props Attrs, state State, render string) NodeID {
	return a.alloc(Node{
		Kind:   KindComponent,
		Name:   name,
		Props:  copyMap(props),
		State:  state.compact().Clone(),
		Render: render,
	})
}

// AppendChild attaches an unowned node as the last child of parent.
func (a *Arena) AppendChild(parent, child NodeID) {
	p := a.Node(parent)
	if p == nil || !p.Kind.IsContainer() {
		panic(fmt.Sprintf("vdom: node %d cannot hold children", parent))
	}
	a.adopt(parent, []NodeID{child})
}

// Clone deep-copies the subtree named by src into this arena and returns the
// new, unowned root. src may belong to this arena.
func (a *Arena) Clone(src Ref) NodeID {
	n := src.Node()
	if n == nil {
		return NoNode
	}

	c := Node{
		Kind:     n.Kind,
		Tag:      n.Tag,
		Attrs:    copyMap(n.Attrs),
		Handlers: copyMap(n.Handlers),
		Text:     n.Text,
		Name:     n.Name,
		Props:    copyMap(n.Props),
		State:    n.State.Clone(),
		Render:   n.Render,
	}
	children := n.Children

	id := a.alloc(c)
	if len(children) == 0 {
		return id
	}

	// Cloning may grow a.nodes, so children are collected before adoption
	// and the source slice is read through src on every step.
	copies := make([]NodeID, 0, len(children))
	for i := range children {
		copies = append(copies, a.Clone(src.Child(i)))
	}
	a.adopt(id, copies)
	return id
}

// Release frees id and its whole subtree. The node must be detached from
// its parent first; Release does not touch the parent's child list.
func (a *Arena) Release(id NodeID) {
	n := a.Node(id)
	if n == nil {
		return
	}
	children := n.Children
	*n = Node{parent: NoNode}
	a.free = append(a.free, id)
	a.count--
	for _, c := range children {
		a.Release(c)
	}
}

// Walk visits id and its descendants depth-first, pre-order. Returning false
// from fn skips the node's children.
func (a *Arena) Walk(id NodeID, fn func(id NodeID, n *Node) bool) {
	n := a.Node(id)
	if n == nil {
		return
	}
	if !fn(id, n) {
		return
	}
	for _, c := range a.nodes[id].Children {
		a.Walk(c, fn)
	}
}

// Size returns the number of nodes in the subtree rooted at id.
func (a *Arena) Size(id NodeID) int {
	count := 0
	a.Walk(id, func(NodeID, *Node) bool {
		count++
		return true
	})
	return count
}

func (a *Arena) alloc(n Node) NodeID {
	n.parent = NoNode
	n.live = true
	a.count++
	if last := len(a.free) - 1; last >= 0 {
		id := a.free[last]
		a.free = a.free[:last]
		a.nodes[id] = n
		return id
	}
	a.nodes = append(a.nodes, n)
	return NodeID(len(a.nodes) - 1)
}

// adopt appends children to parent, enforcing single ownership.
func (a *Arena) adopt(parent NodeID, children []NodeID) {
	for _, c := range children {
		child := a.Node(c)
		if child == nil {
			panic(fmt.Sprintf("vdom: child %d is not a live node", c))
		}
		if child.parent != NoNode {
			panic(fmt.Sprintf("vdom: node %d is already owned by %d", c, child.parent))
		}
		for anc := parent; anc != NoNode; anc = a.nodes[anc].parent {
			if anc == c {
				panic(fmt.Sprintf("vdom: node %d cannot own its ancestor %d", parent, c))
			}
		}
		child.parent = parent
	}
	p := &a.nodes[parent]
	p.Children = append(p.Children, children...)
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
