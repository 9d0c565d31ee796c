package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

// Allocation limits to reject hostile length prefixes.
const (
	// MaxStringSize is the largest string the decoder accepts (1MB).
	MaxStringSize = 1 << 20

	// MaxCollectionCount is the maximum number of items in a collection.
	MaxCollectionCount = 100_000

	// MaxNodeDepth limits node nesting inside a patch payload.
	MaxNodeDepth = 256

	// MaxPathLength limits the number of indices in a patch path.
	MaxPathLength = MaxNodeDepth
)

// Decoding errors.
var (
	ErrVarintOverflow     = errors.New("protocol: varint overflow")
	ErrAllocationTooLarge = errors.New("protocol: allocation size exceeds limit")
	ErrCollectionTooLarge = errors.New("protocol: collection count exceeds limit")
	ErrTooDeep            = errors.New("protocol: node nesting exceeds limit")
	ErrUnknownOp          = errors.New("protocol: unknown patch op")
	ErrUnknownKind        = errors.New("protocol: unknown node kind")
	ErrUnknownValueKind   = errors.New("protocol: unknown state value kind")
	ErrTrailingBytes      = errors.New("protocol: trailing bytes after frame")
)

// Decoder reads binary data from a byte slice.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a decoder over buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// EOF reports whether all bytes have been read.
func (d *Decoder) EOF() bool {
	return d.pos >= len(d.buf)
}

// ReadByte reads a single byte.
func (d *Decoder) ReadByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// ReadUvarint reads an unsigned varint.
func (d *Decoder) ReadUvarint() (uint64, error) {
	v, n := binary.Uvarint(d.buf[d.pos:])
	switch {
	case n == 0:
		return 0, io.ErrUnexpectedEOF
	case n < 0:
		return 0, ErrVarintOverflow
	}
	d.pos += n
	return v, nil
}

// ReadSvarint reads a signed ZigZag varint.
func (d *Decoder) ReadSvarint() (int64, error) {
	v, n := binary.Varint(d.buf[d.pos:])
	switch {
	case n == 0:
		return 0, io.ErrUnexpectedEOF
	case n < 0:
		return 0, ErrVarintOverflow
	}
	d.pos += n
	return v, nil
}

// ReadString reads a length-prefixed string.
func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	if length > MaxStringSize {
		return "", ErrAllocationTooLarge
	}
	if length > uint64(d.Remaining()) {
		return "", io.ErrUnexpectedEOF
	}
	n := int(length)
	s := string(d.buf[d.pos : d.pos+n])
	d.pos += n
	return s, nil
}

// ReadBool reads a boolean. Any non-zero byte is true.
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0x00, nil
}

// ReadFloat64 reads a big-endian IEEE 754 float64.
func (d *Decoder) ReadFloat64() (float64, error) {
	if d.Remaining() < 8 {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return math.Float64frombits(v), nil
}

// ReadCount reads a collection count and validates it against limits.
// Every item occupies at least one byte, so counts beyond the remaining
// input are rejected early.
func (d *Decoder) ReadCount() (int, error) {
	count, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if count > MaxCollectionCount {
		return 0, ErrCollectionTooLarge
	}
	if count > uint64(d.Remaining()) {
		return 0, io.ErrUnexpectedEOF
	}
	return int(count), nil
}

// ReadPath reads a child-index address written by WritePath.
func (d *Decoder) ReadPath() (vdom.Path, error) {
	count, err := d.ReadCount()
	if err != nil {
		return nil, err
	}
	if count > MaxPathLength {
		return nil, ErrTooDeep
	}
	if count == 0 {
		return nil, nil
	}
	path := make(vdom.Path, count)
	for i := range path {
		v, err := d.ReadUvarint()
		if err != nil {
			return nil, err
		}
		if v > MaxCollectionCount {
			return nil, ErrCollectionTooLarge
		}
		path[i] = int(v)
	}
	return path, nil
}

// ReadStringMap reads a map written by WriteStringMap. An empty map decodes
// as nil.
func (d *Decoder) ReadStringMap() (map[string]string, error) {
	count, err := d.ReadCount()
	if err != nil || count == 0 {
		return nil, err
	}
	m := make(map[string]string, count)
	for i := 0; i < count; i++ {
		k, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		if m[k], err = d.ReadString(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ReadValue reads a state value written by WriteValue.
func (d *Decoder) ReadValue() (vdom.Value, error) {
	kind, err := d.ReadByte()
	if err != nil {
		return vdom.Value{}, err
	}

	switch vdom.ValueKind(kind) {
	case vdom.ValueNone:
		return vdom.Value{}, nil
	case vdom.ValueString:
		s, err := d.ReadString()
		return vdom.String(s), err
	case vdom.ValueInt:
		i, err := d.ReadSvarint()
		return vdom.Int(i), err
	case vdom.ValueFloat:
		f, err := d.ReadFloat64()
		return vdom.Float(f), err
	case vdom.ValueBool:
		b, err := d.ReadBool()
		return vdom.Bool(b), err
	default:
		return vdom.Value{}, fmt.Errorf("%w: 0x%02x", ErrUnknownValueKind, kind)
	}
}

func readDeltas[V ~string](d *Decoder) (map[string]vdom.Delta[V], error) {
	count, err := d.ReadCount()
	if err != nil {
		return nil, err
	}
	deltas := make(map[string]vdom.Delta[V], count)
	for i := 0; i < count; i++ {
		k, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		deleted, err := d.ReadBool()
		if err != nil {
			return nil, err
		}
		if deleted {
			deltas[k] = vdom.Delta[V]{Deleted: true}
			continue
		}
		v, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		deltas[k] = vdom.Delta[V]{Value: V(v)}
	}
	return deltas, nil
}
