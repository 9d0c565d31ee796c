// Package vdom provides the virtual DOM node model, diff algorithm and patch
// applier.
//
// The virtual DOM is an in-memory representation of a UI tree. Two trees
// (the live one and a freshly rendered one) are compared by Diff, which
// returns an ordered list of Patch operations. Apply consumes that list and
// mutates the live tree in place so it matches the new one, without
// rebuilding unchanged subtrees.
//
// # Core Types
//
// Nodes live in an Arena and are addressed by NodeID. A tree is the set of
// nodes reachable from a root ID; every node is owned by exactly one parent.
// A Ref pairs an arena with a node ID and names a subtree.
//
// Node has four kinds: elements, text, fragments and components. Event
// handlers are stored as HandlerKey values and resolved through a Registry
// owned by the application. Component state is a State map of closed Value
// scalars.
//
// # Building Trees
//
//	a := vdom.NewArena()
//	root := a.Element("ul", vdom.Attrs{"class": "list"}, nil,
//	    a.Text("a"),
//	    a.Text("b"),
//	)
//
// # Diffing
//
// Diff compares children by position, not by key. Attribute and handler
// changes of one element are batched into a single patch each. Every patch
// carries a Path, the child-index address of its target from the root.
//
//	patches := vdom.Diff(live.Ref(root), next.Ref(nextRoot))
//	if err := vdom.Apply(live, root, patches); err != nil {
//	    // errors.Is(err, vdom.ErrInvalidPatchTarget)
//	}
package vdom
