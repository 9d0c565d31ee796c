package protocol

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

// Encoder builds a binary payload. Scalars are varints or fixed-width
// big-endian; strings and collections carry a uvarint length prefix.
type Encoder struct {
	buf []byte
}

// NewEncoder creates an encoder with room for a small frame.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 256)}
}

// Reset empties the encoder, keeping its buffer.
func (e *Encoder) Reset() { e.buf = e.buf[:0] }

// Bytes returns the payload. It aliases the buffer until the next write.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the payload size.
func (e *Encoder) Len() int { return len(e.buf) }

func (e *Encoder) WriteByte(b byte) {
	e.buf = append(e.buf, b)
}

func (e *Encoder) WriteUvarint(v uint64) {
	e.buf = binary.AppendUvarint(e.buf, v)
}

// WriteSvarint writes v ZigZag-encoded.
func (e *Encoder) WriteSvarint(v int64) {
	e.buf = binary.AppendVarint(e.buf, v)
}

func (e *Encoder) WriteString(s string) {
	e.WriteUvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *Encoder) WriteBool(b bool) {
	var v byte
	if b {
		v = 1
	}
	e.buf = append(e.buf, v)
}

func (e *Encoder) WriteFloat64(v float64) {
	e.buf = binary.BigEndian.AppendUint64(e.buf, math.Float64bits(v))
}

// WritePath writes a child-index address: count, then one uvarint per index.
func (e *Encoder) WritePath(path vdom.Path) {
	e.WriteUvarint(uint64(len(path)))
	for _, i := range path {
		e.WriteUvarint(uint64(i))
	}
}

// WriteStringMap writes m in key order so equal maps encode identically.
func (e *Encoder) WriteStringMap(m map[string]string) {
	e.WriteUvarint(uint64(len(m)))
	for _, k := range sortedKeys(m) {
		e.WriteString(k)
		e.WriteString(m[k])
	}
}

// WriteValue writes a state value as its kind byte and payload. The zero
// Value is the kind byte alone.
func (e *Encoder) WriteValue(v vdom.Value) {
	e.WriteByte(byte(v.Kind()))
	switch v.Kind() {
	case vdom.ValueString:
		e.WriteString(v.Str())
	case vdom.ValueInt:
		e.WriteSvarint(v.IntValue())
	case vdom.ValueFloat:
		e.WriteFloat64(v.FloatValue())
	case vdom.ValueBool:
		e.WriteBool(v.BoolValue())
	}
}

// writeDeltas writes a patch's per-key changes: key, deleted flag and, for
// sets, the new value.
func writeDeltas[V ~string](e *Encoder, deltas map[string]vdom.Delta[V]) {
	e.WriteUvarint(uint64(len(deltas)))
	for _, k := range sortedKeys(deltas) {
		d := deltas[k]
		e.WriteString(k)
		e.WriteBool(d.Deleted)
		if !d.Deleted {
			e.WriteString(string(d.Value))
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
