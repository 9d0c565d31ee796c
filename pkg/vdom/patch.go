package vdom

import (
	"fmt"
	"strconv"
	"strings"
)

// PatchOp is the type of patch operation.
type PatchOp uint8

const (
	PatchReplace             PatchOp = 0x01 // Replace the target subtree
	PatchAdd                 PatchOp = 0x02 // Append a child to the target container
	PatchRemove              PatchOp = 0x03 // Drop the target container's last child
	PatchUpdateAttributes    PatchOp = 0x04 // Set/delete element attributes
	PatchUpdateEventHandlers PatchOp = 0x05 // Set/delete element event handlers
	PatchUpdateState         PatchOp = 0x06 // Set/delete a component state slot
)

// String returns the string representation of the PatchOp.
func (op PatchOp) String() string {
	switch op {
	case PatchReplace:
		return "Replace"
	case PatchAdd:
		return "Add"
	case PatchRemove:
		return "Remove"
	case PatchUpdateAttributes:
		return "UpdateAttributes"
	case PatchUpdateEventHandlers:
		return "UpdateEventHandlers"
	case PatchUpdateState:
		return "UpdateState"
	default:
		return "Unknown"
	}
}

// Path addresses a node by child indices from the root. The empty path is
// the root itself.
type Path []int

// Child returns a new path extended by index i.
func (p Path) Child(i int) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = i
	return out
}

// String formats the path as "/0/2". The root is "/".
func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, i := range p {
		b.WriteByte('/')
		b.WriteString(strconv.Itoa(i))
	}
	return b.String()
}

// Equal reports whether both paths address the same position.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Delta is a per-key change: either a new value or a deletion.
type Delta[V any] struct {
	Value   V
	Deleted bool
}

// Set returns a delta that sets v.
func Set[V any](v V) Delta[V] {
	return Delta[V]{Value: v}
}

// Delete returns a delta that removes the key.
func Delete[V any]() Delta[V] {
	return Delta[V]{Deleted: true}
}

// Patch is a single edit produced by Diff and consumed by Apply.
//
// For Replace and the Update ops, Path addresses the target node. For Add and
// Remove, Path addresses the container whose child list changes.
type Patch struct {
	Op       PatchOp
	Path     Path
	Node     Ref                         // Replace, Add
	Attrs    map[string]Delta[string]    // UpdateAttributes
	Handlers map[string]Delta[HandlerKey] // UpdateEventHandlers
	Key      string                      // UpdateState
	Value    Value                       // UpdateState; ValueNone deletes
}

// String returns a compact, deterministic description of the patch.
func (p Patch) String() string {
	var b strings.Builder
	b.WriteString(p.Op.String())
	b.WriteByte(' ')
	b.WriteString(p.Path.String())

	switch p.Op {
	case PatchReplace, PatchAdd:
		b.WriteByte(' ')
		b.WriteString(Describe(p.Node))
	case PatchUpdateAttributes:
		for _, k := range sortedKeys(p.Attrs) {
			d := p.Attrs[k]
			if d.Deleted {
				fmt.Fprintf(&b, " -%s", k)
			} else {
				fmt.Fprintf(&b, " %s=%q", k, d.Value)
			}
		}
	case PatchUpdateEventHandlers:
		for _, k := range sortedKeys(p.Handlers) {
			d := p.Handlers[k]
			if d.Deleted {
				fmt.Fprintf(&b, " -on%s", k)
			} else {
				fmt.Fprintf(&b, " on%s=%s", k, d.Value)
			}
		}
	case PatchUpdateState:
		fmt.Fprintf(&b, " %s=%s", p.Key, p.Value)
	}
	return b.String()
}

// Describe returns a one-line summary of the node named by r.
func Describe(r Ref) string {
	n := r.Node()
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case KindElement:
		return fmt.Sprintf("<%s> (%d children)", n.Tag, len(n.Children))
	case KindText:
		return fmt.Sprintf("text %q", n.Text)
	case KindFragment:
		return fmt.Sprintf("fragment (%d children)", len(n.Children))
	case KindComponent:
		return fmt.Sprintf("component %s", n.Name)
	default:
		return n.Kind.String()
	}
}
