package render

// layout is how an element's tag is laid out in HTML output.
type layout uint8

const (
	// layoutBlock elements break their nested children onto indented lines
	// in pretty output.
	layoutBlock layout = iota

	// layoutInline elements stay on one line in pretty output.
	layoutInline

	// layoutVoid elements have no closing tag and render no children.
	layoutVoid
)

func layoutOf(tag string) layout {
	switch tag {
	case "area", "base", "br", "col", "embed", "hr", "img", "input",
		"link", "meta", "source", "track", "wbr":
		return layoutVoid
	case "a", "abbr", "b", "code", "em", "i", "kbd", "label", "mark",
		"small", "span", "strong", "sub", "sup", "time", "u":
		return layoutInline
	default:
		return layoutBlock
	}
}
