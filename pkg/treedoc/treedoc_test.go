package treedoc

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

const listDoc = `
element: ul
attrs: {class: list}
on: {click: select}
children:
  - element: li
    children: [a]
  - text: b
  - fragment: [x, y]
  - component: Counter
    render: counter
    props: {step: "1"}
    state: {count: 3, label: hi, ratio: 0.5, open: true}
`

func TestParseBuild(t *testing.T) {
	d, err := Parse([]byte(listDoc))
	require.NoError(t, err)

	a := vdom.NewArena()
	got := a.Ref(Build(a, d))

	want := vdom.Tree(vdom.El("ul", vdom.Attrs{"class": "list"}, vdom.Handlers{"click": "select"},
		vdom.El("li", "a"),
		vdom.T("b"),
		vdom.Frag(vdom.T("x"), vdom.T("y")),
		vdom.Comp("Counter", vdom.Attrs{"step": "1"}, vdom.State{
			"count": vdom.Int(3),
			"label": vdom.String("hi"),
			"ratio": vdom.Float(0.5),
			"open":  vdom.Bool(true),
		}, "counter"),
	))
	assert.True(t, vdom.Equal(got, want), "built tree differs from expected")
}

func TestParseJSON(t *testing.T) {
	d, err := Parse([]byte(`{"element": "p", "children": ["hi", {"component": "Clock"}]}`))
	require.NoError(t, err)
	require.Len(t, d.Children, 2)
	assert.Equal(t, vdom.KindText, d.Children[0].Kind)
	assert.Equal(t, "Clock", d.Children[1].Name)
	assert.Equal(t, "Clock", d.Children[1].Render, "render defaults to the component name")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
		line int
	}{
		{"empty", "", ErrInvalidDocument, 0},
		{"syntax", "element: [", ErrInvalidDocument, 0},
		{"no kind", "attrs: {a: b}", ErrUnknownShape, 1},
		{"two kinds", "element: p\ntext: x", ErrUnknownShape, 2},
		{"unexpected key", "text: x\nchildren: []", ErrUnknownShape, 2},
		{"sequence root", "- a\n- b", ErrUnknownShape, 1},
		{"null child", "element: p\nchildren:\n  - null", ErrUnknownShape, 3},
		{"empty tag", "element: ''", ErrInvalidDocument, 1},
		{"children not list", "element: p\nchildren: x", ErrInvalidDocument, 2},
		{"attr not scalar", "element: p\nattrs:\n  a: [1]", ErrInvalidDocument, 3},
		{"state list", "component: C\nstate:\n  items: [1, 2]", ErrUnsupportedValue, 3},
		{"state null", "component: C\nstate:\n  v: null", ErrUnsupportedValue, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var docErr *Error
			require.ErrorAs(t, err, &docErr)
			assert.Equal(t, tt.line, docErr.Line)
		})
	}
}

func TestErrorMessage(t *testing.T) {
	_, err := Parse([]byte("element: p\nbogus: 1"))
	require.Error(t, err)
	assert.Equal(t, `treedoc: unknown node shape: line 2, column 1: unexpected key "bogus" in element node`, err.Error())
}

func TestExportRoundTrip(t *testing.T) {
	d, err := Parse([]byte(listDoc))
	require.NoError(t, err)

	a := vdom.NewArena()
	root := a.Ref(Build(a, d))

	out, err := Encode(Export(root))
	require.NoError(t, err)

	again, err := Parse(out)
	require.NoError(t, err, "re-parse of:\n%s", out)

	b := vdom.NewArena()
	assert.True(t, vdom.Equal(root, b.Ref(Build(b, again))), "export did not round trip:\n%s", out)
}

func TestExportFloatStaysFloat(t *testing.T) {
	tree := vdom.Tree(vdom.Comp("C", nil, vdom.State{"f": vdom.Float(2)}, "c"))
	out, err := Encode(Export(tree))
	require.NoError(t, err)
	assert.Contains(t, string(out), "f: 2.0")

	d, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, vdom.Float(2), d.State["f"])
}

func TestExportInvalid(t *testing.T) {
	assert.Nil(t, Export(vdom.Ref{ID: vdom.NoNode}))
}

func TestMarshalJSON(t *testing.T) {
	tree := vdom.Tree(vdom.El("p", vdom.Attrs{"id": "x"}, "hi", vdom.Comp("C", nil, vdom.State{"n": vdom.Int(1)}, "c")))
	data, err := json.Marshal(Export(tree))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"element": "p",
		"attrs": {"id": "x"},
		"children": [
			{"text": "hi"},
			{"component": "C", "render": "c", "state": {"n": 1}}
		]
	}`, string(data))
}

func TestCompare(t *testing.T) {
	a := vdom.Tree(vdom.El("ul", vdom.El("li", "a"), vdom.El("li", "b")))
	b := vdom.Tree(vdom.El("ul", vdom.El("li", "a"), vdom.El("li", "c")))

	patch, err := Compare(a, a)
	require.NoError(t, err)
	assert.Empty(t, patch)

	patch, err = Compare(a, b)
	require.NoError(t, err)
	require.Len(t, patch, 1)
	assert.Equal(t, "replace", patch[0].Type)
	assert.Equal(t, "/children/1/children/0/text", string(patch[0].Path))
	assert.Equal(t, "c", patch[0].Value)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(listDoc), 0o644))

	a, root, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, a.Size(root))

	_, _, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(path, []byte("text: [x]"), 0o644))
	_, _, err = Load(path)
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.Contains(t, err.Error(), "tree.yaml")
}
