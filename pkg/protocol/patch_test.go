package protocol

import (
	"errors"
	"testing"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

func TestPatchesRoundTrip(t *testing.T) {
	prev := vdom.Tree(vdom.El("div", vdom.Attrs{"class": "a", "id": "x"}, vdom.Handlers{"click": "old"},
		vdom.El("p", "hello"),
		vdom.Comp("Counter", vdom.Attrs{"step": "1"}, vdom.State{"count": vdom.Int(1), "label": vdom.String("n")}, "counter"),
		vdom.T("tail"),
	))
	next := vdom.Tree(vdom.El("div", vdom.Attrs{"class": "b"}, vdom.Handlers{"click": "new", "focus": "f"},
		vdom.El("p", "world"),
		vdom.Comp("Counter", vdom.Attrs{"step": "1"}, vdom.State{"count": vdom.Int(2), "ratio": vdom.Float(0.5), "on": vdom.Bool(true)}, "counter"),
	))

	patches := vdom.Diff(prev, next)
	pf, err := DecodePatches(EncodePatches(&PatchesFrame{Seq: 7, Patches: patches}))
	if err != nil {
		t.Fatalf("DecodePatches: %v", err)
	}
	if pf.Seq != 7 {
		t.Errorf("Seq = %d, want 7", pf.Seq)
	}
	if len(pf.Patches) != len(patches) {
		t.Fatalf("got %d patches, want %d", len(pf.Patches), len(patches))
	}
	for i := range patches {
		if got, want := pf.Patches[i].String(), patches[i].String(); got != want {
			t.Errorf("patch %d = %s, want %s", i, got, want)
		}
	}

	// Decoded patches are applicable and reach the same tree.
	live := vdom.NewArena()
	root := live.Clone(prev)
	if err := vdom.Apply(live, root, pf.Patches); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !vdom.Equal(live.Ref(root), next) {
		t.Error("applying decoded patches did not reproduce next")
	}
}

func TestPatchesRoundTripNodes(t *testing.T) {
	nodes := []vdom.Builder{
		vdom.El("ul", vdom.Attrs{"class": "list"}, vdom.Handlers{"click": "pick"}, vdom.El("li", "a"), vdom.El("li", "b")),
		vdom.T(""),
		vdom.T("<escaped & raw>"),
		vdom.Frag(vdom.T("x"), vdom.El("br")),
		vdom.Comp("Clock", nil, vdom.State{"tick": vdom.Int(-3)}, "clock"),
	}
	for _, b := range nodes {
		node := vdom.Tree(b)
		in := []vdom.Patch{
			{Op: vdom.PatchReplace, Path: vdom.Path{1, 2}, Node: node},
			{Op: vdom.PatchAdd, Path: nil, Node: node},
		}
		pf, err := DecodePatches(EncodePatches(&PatchesFrame{Patches: in}))
		if err != nil {
			t.Fatalf("DecodePatches(%s): %v", vdom.Describe(node), err)
		}
		for i, p := range pf.Patches {
			if p.Op != in[i].Op || !p.Path.Equal(in[i].Path) {
				t.Errorf("patch %d = %s, want %s", i, p, in[i])
			}
			if !vdom.Equal(p.Node, node) {
				t.Errorf("patch %d node = %s, want %s", i, vdom.Describe(p.Node), vdom.Describe(node))
			}
		}
	}
}

func TestPatchesDeltas(t *testing.T) {
	in := []vdom.Patch{
		{Op: vdom.PatchRemove, Path: vdom.Path{0}},
		{Op: vdom.PatchUpdateAttributes, Path: vdom.Path{2}, Attrs: map[string]vdom.Delta[string]{
			"class": vdom.Set("on"),
			"title": vdom.Delete[string](),
			"empty": vdom.Set(""),
		}},
		{Op: vdom.PatchUpdateEventHandlers, Handlers: map[string]vdom.Delta[vdom.HandlerKey]{
			"click": vdom.Set[vdom.HandlerKey]("save"),
			"blur":  vdom.Delete[vdom.HandlerKey](),
		}},
		{Op: vdom.PatchUpdateState, Key: "gone"},
	}

	pf, err := DecodePatches(EncodePatches(&PatchesFrame{Seq: 1, Patches: in}))
	if err != nil {
		t.Fatalf("DecodePatches: %v", err)
	}
	for i := range in {
		if got, want := pf.Patches[i].String(), in[i].String(); got != want {
			t.Errorf("patch %d = %s, want %s", i, got, want)
		}
	}
	if d := pf.Patches[1].Attrs["empty"]; d.Deleted || d.Value != "" {
		t.Errorf("empty attribute delta = %+v", d)
	}
	if !pf.Patches[3].Value.IsNone() {
		t.Errorf("state delete decoded as %s", pf.Patches[3].Value)
	}
}

func TestEncodePatchesDeterministic(t *testing.T) {
	p := []vdom.Patch{{Op: vdom.PatchUpdateAttributes, Attrs: map[string]vdom.Delta[string]{
		"a": vdom.Set("1"), "b": vdom.Set("2"), "c": vdom.Set("3"), "d": vdom.Delete[string](),
	}}}
	first := string(EncodePatches(&PatchesFrame{Patches: p}))
	for i := 0; i < 20; i++ {
		if got := string(EncodePatches(&PatchesFrame{Patches: p})); got != first {
			t.Fatal("encoding depends on map iteration order")
		}
	}
}

func TestDecodePatchesErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"unknown op", []byte{0x00, 0x01, 0x7F, 0x00}, ErrUnknownOp},
		{"unknown kind", []byte{0x00, 0x01, byte(vdom.PatchAdd), 0x00, 0x09}, ErrUnknownKind},
		{"truncated", []byte{0x00, 0x02, byte(vdom.PatchRemove), 0x00}, errTruncated},
		{"trailing", []byte{0x00, 0x00, 0xAA}, ErrTrailingBytes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePatches(tt.data)
			if tt.want == errTruncated {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

var errTruncated = errors.New("truncated")

func TestDecodePatchesDepthLimit(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(0)
	e.WriteUvarint(1)
	e.WriteByte(byte(vdom.PatchAdd))
	e.WriteUvarint(0)
	for i := 0; i <= MaxNodeDepth+1; i++ {
		e.WriteByte(nodeFragment)
		e.WriteUvarint(1)
	}
	e.WriteByte(nodeText)
	e.WriteString("deep")

	if _, err := DecodePatches(e.Bytes()); !errors.Is(err, ErrTooDeep) {
		t.Errorf("err = %v, want ErrTooDeep", err)
	}
}
