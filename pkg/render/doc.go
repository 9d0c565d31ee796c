// Package render converts vdom trees into HTML.
//
// The renderer is used to inspect trees: the CLI prints the result of a
// reconciliation with it, and tests compare rendered output. It produces
// deterministic markup:
//
//   - Attributes are sorted by name and escaped
//   - Event handlers render as data-on-<event>="<handler key>"
//   - Void elements (input, br, img, ...) have no closing tag
//   - Fragments render their children without a wrapper
//   - Components render through a vdom.Registry when their render key is
//     registered, otherwise as a <!--component:Name--> placeholder
//
// # Basic Usage
//
//	renderer := render.NewRenderer(render.RendererConfig{Registry: reg})
//	html, err := renderer.RenderToString(a.Ref(root))
//
// # Pretty Printing
//
// RendererConfig.Pretty indents block elements with RendererConfig.Indent
// (two spaces by default). Inline elements stay on one line.
package render
