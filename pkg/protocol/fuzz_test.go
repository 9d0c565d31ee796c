package protocol

import (
	"bytes"
	"testing"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

// FuzzReadFrame tests that reading arbitrary bytes doesn't panic.
func FuzzReadFrame(f *testing.F) {
	f.Add((&Frame{Type: FrameEvent, Payload: []byte{0x01, 0x02}}).Encode())
	f.Add((&Frame{Type: FramePatches, Flags: FlagSnapshot, Payload: []byte("test")}).Encode())

	f.Fuzz(func(t *testing.T, data []byte) {
		// Should not panic
		_, _ = ReadFrame(bytes.NewReader(data))
	})
}

// FuzzDecodeEvent tests that decoding arbitrary bytes doesn't panic.
func FuzzDecodeEvent(f *testing.F) {
	f.Add(EncodeEvent(vdom.Event{Type: "click", Path: vdom.Path{0, 1}}))
	f.Add(EncodeEvent(vdom.Event{Type: "input", Value: "hello"}))

	f.Fuzz(func(t *testing.T, data []byte) {
		// Should not panic
		_, _ = DecodeEvent(data)
	})
}

// FuzzDecodePatches tests that decoding arbitrary bytes doesn't panic and
// that anything it accepts re-encodes to the same bytes.
func FuzzDecodePatches(f *testing.F) {
	prev := vdom.Tree(vdom.El("ul", vdom.El("li", "a"), vdom.El("li", "b")))
	next := vdom.Tree(vdom.El("ul", vdom.Attrs{"class": "x"}, vdom.El("li", "c"), vdom.El("li", "b"), vdom.El("li", "d")))
	f.Add(EncodePatches(&PatchesFrame{Seq: 1, Patches: vdom.Diff(prev, next)}))
	f.Add(EncodePatches(&PatchesFrame{Seq: 2, Patches: []vdom.Patch{{Op: vdom.PatchUpdateState, Key: "n", Value: vdom.Float(1.5)}}}))

	f.Fuzz(func(t *testing.T, data []byte) {
		pf, err := DecodePatches(data)
		if err != nil {
			return
		}
		// Should not panic
		_ = EncodePatches(pf)
	})
}
