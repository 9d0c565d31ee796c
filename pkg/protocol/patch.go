package protocol

import (
	"fmt"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

// Node kind bytes on the wire.
const (
	nodeElement   byte = 0x00
	nodeText      byte = 0x01
	nodeFragment  byte = 0x02
	nodeComponent byte = 0x03
)

// PatchesFrame is a sequenced batch of patches.
type PatchesFrame struct {
	Seq     uint64
	Patches []vdom.Patch
}

// EncodePatches encodes a patches frame to bytes.
func EncodePatches(pf *PatchesFrame) []byte {
	e := NewEncoder()
	EncodePatchesTo(e, pf)
	return e.Bytes()
}

// EncodePatchesTo encodes a patches frame using the provided encoder.
func EncodePatchesTo(e *Encoder, pf *PatchesFrame) {
	e.WriteUvarint(pf.Seq)
	e.WriteUvarint(uint64(len(pf.Patches)))
	for i := range pf.Patches {
		encodePatch(e, &pf.Patches[i])
	}
}

func encodePatch(e *Encoder, p *vdom.Patch) {
	e.WriteByte(byte(p.Op))
	e.WritePath(p.Path)

	switch p.Op {
	case vdom.PatchReplace, vdom.PatchAdd:
		encodeNode(e, p.Node)
	case vdom.PatchUpdateAttributes:
		writeDeltas(e, p.Attrs)
	case vdom.PatchUpdateEventHandlers:
		writeDeltas(e, p.Handlers)
	case vdom.PatchUpdateState:
		e.WriteString(p.Key)
		e.WriteValue(p.Value)
	}
}

// encodeNode writes the subtree named by r. An invalid reference is written
// as an empty text node.
func encodeNode(e *Encoder, r vdom.Ref) {
	n := r.Node()
	if n == nil {
		e.WriteByte(nodeText)
		e.WriteString("")
		return
	}

	switch n.Kind {
	case vdom.KindElement:
		e.WriteByte(nodeElement)
		e.WriteString(n.Tag)
		e.WriteStringMap(n.Attrs)
		e.WriteUvarint(uint64(len(n.Handlers)))
		for _, k := range sortedKeys(n.Handlers) {
			e.WriteString(k)
			e.WriteString(string(n.Handlers[k]))
		}
		encodeChildren(e, r, n)
	case vdom.KindText:
		e.WriteByte(nodeText)
		e.WriteString(n.Text)
	case vdom.KindFragment:
		e.WriteByte(nodeFragment)
		encodeChildren(e, r, n)
	case vdom.KindComponent:
		e.WriteByte(nodeComponent)
		e.WriteString(n.Name)
		e.WriteString(n.Render)
		e.WriteStringMap(n.Props)
		e.WriteUvarint(uint64(len(n.State)))
		for _, k := range n.State.Keys() {
			e.WriteString(k)
			e.WriteValue(n.State[k])
		}
	}
}

func encodeChildren(e *Encoder, r vdom.Ref, n *vdom.Node) {
	e.WriteUvarint(uint64(len(n.Children)))
	for i := range n.Children {
		encodeNode(e, r.Child(i))
	}
}

// DecodePatches decodes a patches frame. Node payloads are materialized into
// a fresh arena shared by all decoded patches.
func DecodePatches(data []byte) (*PatchesFrame, error) {
	d := NewDecoder(data)
	pf, err := DecodePatchesFrom(d, vdom.NewArena())
	if err != nil {
		return nil, err
	}
	if !d.EOF() {
		return nil, ErrTrailingBytes
	}
	return pf, nil
}

// DecodePatchesFrom decodes a patches frame, building node payloads in a.
func DecodePatchesFrom(d *Decoder, a *vdom.Arena) (*PatchesFrame, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}

	count, err := d.ReadCount()
	if err != nil {
		return nil, err
	}

	pf := &PatchesFrame{
		Seq:     seq,
		Patches: make([]vdom.Patch, 0, count),
	}
	for i := 0; i < count; i++ {
		p, err := decodePatch(d, a)
		if err != nil {
			return nil, fmt.Errorf("patch %d: %w", i, err)
		}
		pf.Patches = append(pf.Patches, p)
	}
	return pf, nil
}

func decodePatch(d *Decoder, a *vdom.Arena) (vdom.Patch, error) {
	var p vdom.Patch

	op, err := d.ReadByte()
	if err != nil {
		return p, err
	}
	p.Op = vdom.PatchOp(op)

	if p.Path, err = d.ReadPath(); err != nil {
		return p, err
	}

	switch p.Op {
	case vdom.PatchReplace, vdom.PatchAdd:
		id, err := decodeNode(d, a, 0)
		if err != nil {
			return p, err
		}
		p.Node = a.Ref(id)
	case vdom.PatchRemove:
	case vdom.PatchUpdateAttributes:
		if p.Attrs, err = readDeltas[string](d); err != nil {
			return p, err
		}
	case vdom.PatchUpdateEventHandlers:
		if p.Handlers, err = readDeltas[vdom.HandlerKey](d); err != nil {
			return p, err
		}
	case vdom.PatchUpdateState:
		if p.Key, err = d.ReadString(); err != nil {
			return p, err
		}
		if p.Value, err = d.ReadValue(); err != nil {
			return p, err
		}
	default:
		return p, fmt.Errorf("%w: 0x%02x", ErrUnknownOp, op)
	}
	return p, nil
}

func decodeNode(d *Decoder, a *vdom.Arena, depth int) (vdom.NodeID, error) {
	if depth > MaxNodeDepth {
		return vdom.NoNode, ErrTooDeep
	}

	kind, err := d.ReadByte()
	if err != nil {
		return vdom.NoNode, err
	}

	switch kind {
	case nodeElement:
		tag, err := d.ReadString()
		if err != nil {
			return vdom.NoNode, err
		}
		attrs, err := d.ReadStringMap()
		if err != nil {
			return vdom.NoNode, err
		}
		raw, err := d.ReadStringMap()
		if err != nil {
			return vdom.NoNode, err
		}
		var handlers vdom.Handlers
		if len(raw) > 0 {
			handlers = make(vdom.Handlers, len(raw))
			for k, v := range raw {
				handlers[k] = vdom.HandlerKey(v)
			}
		}
		children, err := decodeChildren(d, a, depth)
		if err != nil {
			return vdom.NoNode, err
		}
		return a.Element(tag, attrs, handlers, children...), nil

	case nodeText:
		text, err := d.ReadString()
		if err != nil {
			return vdom.NoNode, err
		}
		return a.Text(text), nil

	case nodeFragment:
		children, err := decodeChildren(d, a, depth)
		if err != nil {
			return vdom.NoNode, err
		}
		return a.Fragment(children...), nil

	case nodeComponent:
		name, err := d.ReadString()
		if err != nil {
			return vdom.NoNode, err
		}
		render, err := d.ReadString()
		if err != nil {
			return vdom.NoNode, err
		}
		props, err := d.ReadStringMap()
		if err != nil {
			return vdom.NoNode, err
		}
		count, err := d.ReadCount()
		if err != nil {
			return vdom.NoNode, err
		}
		var state vdom.State
		if count > 0 {
			state = make(vdom.State, count)
		}
		for i := 0; i < count; i++ {
			k, err := d.ReadString()
			if err != nil {
				return vdom.NoNode, err
			}
			v, err := d.ReadValue()
			if err != nil {
				return vdom.NoNode, err
			}
			state[k] = v
		}
		return a.Component(name, props, state, render), nil

	default:
		return vdom.NoNode, fmt.Errorf("%w: 0x%02x", ErrUnknownKind, kind)
	}
}

func decodeChildren(d *Decoder, a *vdom.Arena, depth int) ([]vdom.NodeID, error) {
	count, err := d.ReadCount()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	children := make([]vdom.NodeID, 0, count)
	for i := 0; i < count; i++ {
		id, err := decodeNode(d, a, depth+1)
		if err != nil {
			return nil, err
		}
		children = append(children, id)
	}
	return children, nil
}
