package vdom

// Kind is the node type discriminator.
type Kind uint8

const (
	KindElement   Kind = iota // <div>, <button>, etc.
	KindText                  // Plain text node
	KindFragment              // Grouping without wrapper
	KindComponent             // Nested component
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	case KindComponent:
		return "Component"
	default:
		return "Unknown"
	}
}

// IsContainer reports whether nodes of this kind hold a child list.
func (k Kind) IsContainer() bool {
	return k == KindElement || k == KindFragment
}

// NodeID addresses a node inside an Arena.
type NodeID int32

// NoNode is the zero reference; it never addresses a live node.
const NoNode NodeID = -1

// HandlerKey names an event handler registered in a Registry.
type HandlerKey string

// Attrs maps attribute names to values.
type Attrs map[string]string

// Handlers maps event names ("click", "input") to handler keys.
type Handlers map[string]HandlerKey

// Node is a single virtual DOM node. Which fields are meaningful depends on
// Kind.
type Node struct {
	Kind     Kind
	Tag      string   // KindElement
	Attrs    Attrs    // KindElement
	Handlers Handlers // KindElement
	Children []NodeID // KindElement, KindFragment
	Text     string   // KindText
	Name     string   // KindComponent
	Props    Attrs    // KindComponent
	State    State    // KindComponent
	Render   string   // KindComponent: render function key

	parent NodeID
	live   bool
}

// Parent returns the owning node, or NoNode for a root.
func (n *Node) Parent() NodeID {
	return n.parent
}

// Ref names a subtree: a node inside a specific arena.
type Ref struct {
	Arena *Arena
	ID    NodeID
}

// Valid reports whether the reference points at a live node.
func (r Ref) Valid() bool {
	return r.Arena != nil && r.Arena.Valid(r.ID)
}

// Node returns the referenced node, or nil if the reference is not valid.
func (r Ref) Node() *Node {
	if r.Arena == nil {
		return nil
	}
	return r.Arena.Node(r.ID)
}

// Child returns a reference to the i-th child of the referenced node.
func (r Ref) Child(i int) Ref {
	n := r.Node()
	if n == nil || i < 0 || i >= len(n.Children) {
		return Ref{Arena: r.Arena, ID: NoNode}
	}
	return Ref{Arena: r.Arena, ID: n.Children[i]}
}
