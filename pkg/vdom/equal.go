package vdom

// Equal reports whether two subtrees are structurally identical: same kinds,
// tags, text, attributes, handler keys, component identity, props and state,
// and pairwise-equal children. NodeIDs and arenas are not compared.
func Equal(a, b Ref) bool {
	x, y := a.Node(), b.Node()
	if x == nil || y == nil {
		return x == nil && y == nil
	}
	if x.Kind != y.Kind {
		return false
	}

	switch x.Kind {
	case KindText:
		return x.Text == y.Text
	case KindComponent:
		return x.Name == y.Name &&
			x.Render == y.Render &&
			mapsEqual(x.Props, y.Props) &&
			x.State.Equal(y.State)
	case KindElement:
		if x.Tag != y.Tag || !mapsEqual(x.Attrs, y.Attrs) || !mapsEqual(x.Handlers, y.Handlers) {
			return false
		}
	}

	if len(x.Children) != len(y.Children) {
		return false
	}
	for i := range x.Children {
		if !Equal(a.Child(i), b.Child(i)) {
			return false
		}
	}
	return true
}

func mapsEqual[V comparable](x, y map[string]V) bool {
	if len(x) != len(y) {
		return false
	}
	for k, v := range x {
		if w, ok := y[k]; !ok || w != v {
			return false
		}
	}
	return true
}
