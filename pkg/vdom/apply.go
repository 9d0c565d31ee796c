package vdom

// Apply mutates the tree rooted at root in a so that it reflects patches.
// Patches are consumed in order; each Path is resolved from root.
//
// Node payloads are deep-copied into a, so the arena the patches reference
// is not retained. Replaced and removed subtrees are released.
//
// Apply stops at the first patch that does not fit the tree and returns a
// *PatchError wrapping ErrInvalidPatchTarget. Patches before it have already
// been applied; the caller decides whether to discard the tree.
func Apply(a *Arena, root NodeID, patches []Patch) error {
	if !a.Valid(root) {
		return &PatchError{
			Index:  -1,
			Reason: "root is not a live node",
			Err:    ErrInvalidPatchTarget,
		}
	}

	for i := range patches {
		if err := applyPatch(a, root, i, &patches[i]); err != nil {
			return err
		}
	}
	return nil
}

func applyPatch(a *Arena, root NodeID, index int, p *Patch) error {
	fail := func(err error, want, reason string) *PatchError {
		return &PatchError{
			Index:  index,
			Op:     p.Op,
			Path:   p.Path,
			Want:   want,
			Reason: reason,
			Err:    err,
		}
	}

	target, ok := resolve(a, root, p.Path)
	if !ok {
		return fail(ErrInvalidPatchTarget, "", "path does not resolve")
	}
	n := a.Node(target)

	mismatch := func(want string) *PatchError {
		e := fail(ErrInvalidPatchTarget, want, "wrong target kind")
		e.Found = true
		e.Got = n.Kind
		return e
	}

	switch p.Op {
	case PatchReplace:
		if !p.Node.Valid() {
			return fail(ErrInvalidPatch, "", "missing node payload")
		}
		replaceNode(a, root, target, p.Path, p.Node)

	case PatchAdd:
		if !n.Kind.IsContainer() {
			return mismatch("Element or Fragment")
		}
		if !p.Node.Valid() {
			return fail(ErrInvalidPatch, "", "missing node payload")
		}
		a.adopt(target, []NodeID{a.Clone(p.Node)})

	case PatchRemove:
		if !n.Kind.IsContainer() {
			return mismatch("Element or Fragment")
		}
		if len(n.Children) == 0 {
			e := fail(ErrInvalidPatchTarget, "", "container has no children")
			e.Found = true
			e.Got = n.Kind
			return e
		}
		last := n.Children[len(n.Children)-1]
		n.Children = n.Children[:len(n.Children)-1]
		a.nodes[last].parent = NoNode
		a.Release(last)

	case PatchUpdateAttributes:
		if n.Kind != KindElement {
			return mismatch("Element")
		}
		if n.Attrs == nil {
			n.Attrs = make(Attrs, len(p.Attrs))
		}
		for k, d := range p.Attrs {
			if d.Deleted {
				delete(n.Attrs, k)
			} else {
				n.Attrs[k] = d.Value
			}
		}

	case PatchUpdateEventHandlers:
		if n.Kind != KindElement {
			return mismatch("Element")
		}
		if n.Handlers == nil {
			n.Handlers = make(Handlers, len(p.Handlers))
		}
		for event, d := range p.Handlers {
			if d.Deleted {
				delete(n.Handlers, event)
			} else {
				n.Handlers[event] = d.Value
			}
		}

	case PatchUpdateState:
		if n.Kind != KindComponent {
			return mismatch("Component")
		}
		if p.Value.IsNone() {
			delete(n.State, p.Key)
			break
		}
		if n.State == nil {
			n.State = make(State)
		}
		n.State[p.Key] = p.Value

	default:
		return fail(ErrInvalidPatch, "", "unknown op")
	}

	return nil
}

// resolve walks path from root and returns the addressed node.
func resolve(a *Arena, root NodeID, path Path) (NodeID, bool) {
	id := root
	for _, i := range path {
		n := a.Node(id)
		if n == nil || !n.Kind.IsContainer() || i < 0 || i >= len(n.Children) {
			return NoNode, false
		}
		id = n.Children[i]
	}
	return id, a.Valid(id)
}

// replaceNode swaps target for a copy of src. The root keeps its NodeID so
// callers holding it stay valid.
func replaceNode(a *Arena, root, target NodeID, path Path, src Ref) {
	// Copy first: src may live inside the subtree being released.
	copied := a.Clone(src)

	if target == root {
		for _, c := range a.nodes[root].Children {
			a.nodes[c].parent = NoNode
			a.Release(c)
		}
		moved := a.nodes[copied]
		moved.parent = a.nodes[root].parent
		a.nodes[root] = moved
		for _, c := range moved.Children {
			a.nodes[c].parent = root
		}
		a.nodes[copied] = Node{parent: NoNode}
		a.free = append(a.free, copied)
		a.count--
		return
	}

	parent := a.nodes[target].parent
	a.nodes[target].parent = NoNode
	a.Release(target)
	a.nodes[copied].parent = parent
	a.nodes[parent].Children[path[len(path)-1]] = copied
}
