package render

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

// MaxComponentDepth bounds nested component expansion.
const MaxComponentDepth = 64

// ErrComponentDepth is returned when component expansion nests deeper than
// MaxComponentDepth, which usually means a component renders itself.
var ErrComponentDepth = errors.New("render: component nesting too deep")

// RendererConfig configures the HTML renderer.
type RendererConfig struct {
	// Pretty enables indented output. Block elements holding other elements
	// are broken over several lines.
	Pretty bool

	// Indent is the string used for each indentation level in pretty mode.
	// Defaults to two spaces if not specified.
	Indent string

	// Registry resolves component render keys. Without it every component
	// renders as a placeholder comment.
	Registry *vdom.Registry
}

// Renderer renders vdom trees to HTML. A Renderer holds no per-call state and
// is safe for concurrent use.
type Renderer struct {
	config RendererConfig
}

// NewRenderer creates a new Renderer with the given configuration.
func NewRenderer(config RendererConfig) *Renderer {
	if config.Indent == "" {
		config.Indent = "  "
	}
	return &Renderer{config: config}
}

// RenderToString renders the tree named by root to an HTML string.
func (r *Renderer) RenderToString(root vdom.Ref) (string, error) {
	var b strings.Builder
	if err := r.RenderToWriter(&b, root); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderToWriter streams the tree named by root to w. An invalid reference
// renders nothing.
func (r *Renderer) RenderToWriter(w io.Writer, root vdom.Ref) error {
	sw := &stickyWriter{w: w}
	if err := r.renderNode(sw, root, 0, r.config.Pretty, 0); err != nil {
		return err
	}
	return sw.err
}

// stickyWriter remembers the first write error and drops later writes.
type stickyWriter struct {
	w   io.Writer
	err error
}

func (s *stickyWriter) WriteString(str string) {
	if s.err != nil {
		return
	}
	_, s.err = io.WriteString(s.w, str)
}

// renderNode dispatches rendering based on node kind. When line is set the
// node sits on its own line in pretty output.
func (r *Renderer) renderNode(w *stickyWriter, ref vdom.Ref, depth int, line bool, comps int) error {
	node := ref.Node()
	if node == nil {
		return nil
	}

	switch node.Kind {
	case vdom.KindElement:
		return r.renderElement(w, ref, node, depth, line, comps)
	case vdom.KindText:
		r.startLine(w, depth, line)
		w.WriteString(escapeHTML(node.Text))
		r.endLine(w, line)
		return nil
	case vdom.KindFragment:
		return r.renderChildren(w, ref, node, depth, line, comps)
	case vdom.KindComponent:
		return r.renderComponent(w, ref, node, depth, line, comps)
	default:
		return fmt.Errorf("render: unknown node kind: %d", node.Kind)
	}
}

// renderElement renders an element with its attributes and children.
func (r *Renderer) renderElement(w *stickyWriter, ref vdom.Ref, node *vdom.Node, depth int, line bool, comps int) error {
	r.startLine(w, depth, line)
	w.WriteString("<")
	w.WriteString(node.Tag)
	r.renderAttributes(w, node)
	w.WriteString(">")

	if layoutOf(node.Tag) == layoutVoid {
		r.endLine(w, line)
		return nil
	}

	breaks := r.config.Pretty && layoutOf(node.Tag) == layoutBlock && hasNestedChild(ref, node)
	if breaks {
		w.WriteString("\n")
	}
	if err := r.renderChildren(w, ref, node, depth+1, breaks, comps); err != nil {
		return err
	}
	if breaks {
		r.writeIndent(w, depth)
	}

	w.WriteString("</")
	w.WriteString(node.Tag)
	w.WriteString(">")
	r.endLine(w, line)
	return nil
}

func (r *Renderer) renderChildren(w *stickyWriter, ref vdom.Ref, node *vdom.Node, depth int, line bool, comps int) error {
	for i := range node.Children {
		if err := r.renderNode(w, ref.Child(i), depth, line, comps); err != nil {
			return err
		}
	}
	return nil
}

// renderComponent expands a component through the registry into a scratch
// arena and renders the result in its place.
func (r *Renderer) renderComponent(w *stickyWriter, ref vdom.Ref, node *vdom.Node, depth int, line bool, comps int) error {
	var fn vdom.RenderFunc
	if r.config.Registry != nil {
		fn, _ = r.config.Registry.Render(node.Render)
	}
	if fn == nil {
		r.startLine(w, depth, line)
		w.WriteString("<!--component:")
		w.WriteString(escapeHTML(node.Name))
		w.WriteString("-->")
		r.endLine(w, line)
		return nil
	}

	if comps >= MaxComponentDepth {
		return fmt.Errorf("%w: %s", ErrComponentDepth, node.Name)
	}
	scratch := vdom.NewArena()
	out := fn(scratch, node.Props, node.State.Clone())
	return r.renderNode(w, scratch.Ref(out), depth, line, comps+1)
}

// renderAttributes writes sorted attributes followed by sorted handler
// markers.
func (r *Renderer) renderAttributes(w *stickyWriter, node *vdom.Node) {
	for _, name := range sortedKeys(node.Attrs) {
		w.WriteString(" ")
		w.WriteString(name)
		w.WriteString(`="`)
		w.WriteString(escapeAttr(node.Attrs[name]))
		w.WriteString(`"`)
	}
	for _, event := range sortedKeys(node.Handlers) {
		w.WriteString(" data-on-")
		w.WriteString(strings.ToLower(event))
		w.WriteString(`="`)
		w.WriteString(escapeAttr(string(node.Handlers[event])))
		w.WriteString(`"`)
	}
}

// hasNestedChild reports whether any child is something other than text.
func hasNestedChild(ref vdom.Ref, node *vdom.Node) bool {
	for i := range node.Children {
		if c := ref.Child(i).Node(); c != nil && c.Kind != vdom.KindText {
			return true
		}
	}
	return false
}

func (r *Renderer) startLine(w *stickyWriter, depth int, line bool) {
	if line {
		r.writeIndent(w, depth)
	}
}

func (r *Renderer) endLine(w *stickyWriter, line bool) {
	if line {
		w.WriteString("\n")
	}
}

// writeIndent writes indentation for pretty printing.
func (r *Renderer) writeIndent(w *stickyWriter, depth int) {
	for i := 0; i < depth; i++ {
		w.WriteString(r.config.Indent)
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
