package vdom

// Diff compares two trees and returns the patches needed to transform prev
// into next. Children are matched by position.
//
// Patch payloads reference nodes of next's arena; next must stay unchanged
// until the patches have been applied.
func Diff(prev, next Ref) []Patch {
	var patches []Patch
	diff(prev, next, nil, &patches)
	return patches
}

// diff recursively compares nodes at the same position and appends patches.
func diff(prev, next Ref, path Path, patches *[]Patch) {
	p, n := prev.Node(), next.Node()

	if p == nil && n == nil {
		return
	}

	// Additions and removals below the root are emitted by the parent;
	// here a missing side can only happen at the root.
	if n == nil {
		return
	}
	if p == nil {
		replace(next, path, patches)
		return
	}

	// Different kinds never reconcile partially
	if p.Kind != n.Kind {
		replace(next, path, patches)
		return
	}

	switch p.Kind {
	case KindElement:
		diffElement(prev, next, path, patches)
	case KindText:
		if p.Text != n.Text {
			replace(next, path, patches)
		}
	case KindFragment:
		diffChildren(prev, next, path, patches)
	case KindComponent:
		diffComponent(p, n, next, path, patches)
	default:
		replace(next, path, patches)
	}
}

func replace(next Ref, path Path, patches *[]Patch) {
	*patches = append(*patches, Patch{
		Op:   PatchReplace,
		Path: path,
		Node: next,
	})
}

// diffElement compares element nodes.
func diffElement(prev, next Ref, path Path, patches *[]Patch) {
	p, n := prev.Node(), next.Node()

	// Different tag - replace entire node
	if p.Tag != n.Tag {
		replace(next, path, patches)
		return
	}

	if attrs := diffMap(p.Attrs, n.Attrs); len(attrs) > 0 {
		*patches = append(*patches, Patch{
			Op:    PatchUpdateAttributes,
			Path:  path,
			Attrs: attrs,
		})
	}

	if handlers := diffMap(p.Handlers, n.Handlers); len(handlers) > 0 {
		*patches = append(*patches, Patch{
			Op:       PatchUpdateEventHandlers,
			Path:     path,
			Handlers: handlers,
		})
	}

	diffChildren(prev, next, path, patches)
}

// diffMap stages one delta per added, changed or removed key.
// Returns nil when both maps hold the same entries.
func diffMap[V comparable](prev, next map[string]V) map[string]Delta[V] {
	var out map[string]Delta[V]
	stage := func(k string, d Delta[V]) {
		if out == nil {
			out = make(map[string]Delta[V])
		}
		out[k] = d
	}

	for k, nv := range next {
		if pv, ok := prev[k]; !ok || pv != nv {
			stage(k, Set(nv))
		}
	}
	for k := range prev {
		if _, ok := next[k]; !ok {
			stage(k, Delete[V]())
		}
	}
	return out
}

// diffChildren compares child lists by position. Common indices are diffed
// recursively, extra old children are removed from the end, and extra new
// children are appended in order.
func diffChildren(prev, next Ref, path Path, patches *[]Patch) {
	prevChildren := prev.Node().Children
	nextChildren := next.Node().Children

	common := min(len(prevChildren), len(nextChildren))
	for i := 0; i < common; i++ {
		diff(prev.Child(i), next.Child(i), path.Child(i), patches)
	}

	for i := len(nextChildren); i < len(prevChildren); i++ {
		*patches = append(*patches, Patch{
			Op:   PatchRemove,
			Path: path,
		})
	}

	for i := len(prevChildren); i < len(nextChildren); i++ {
		*patches = append(*patches, Patch{
			Op:   PatchAdd,
			Path: path,
			Node: next.Child(i),
		})
	}
}

// diffComponent compares component identity and state. Props are not
// compared and render functions are never invoked here; re-rendering is
// the caller's decision.
func diffComponent(p, n *Node, next Ref, path Path, patches *[]Patch) {
	if p.Name != n.Name {
		replace(next, path, patches)
		return
	}

	for _, key := range n.State.Keys() {
		nv := n.State[key]
		if pv, ok := p.State[key]; ok && pv.Equal(nv) {
			continue
		}
		*patches = append(*patches, Patch{
			Op:    PatchUpdateState,
			Path:  path,
			Key:   key,
			Value: nv,
		})
	}
	for _, key := range p.State.Keys() {
		if _, ok := n.State[key]; ok {
			continue
		}
		*patches = append(*patches, Patch{
			Op:   PatchUpdateState,
			Path: path,
			Key:  key,
		})
	}
}
