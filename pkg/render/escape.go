package render

import "strings"

// textEscaper escapes text for safe inclusion in HTML content.
var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// attrEscaper additionally escapes whitespace that could break attribute
// parsing.
var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"\n", "&#10;",
	"\r", "&#13;",
	"\t", "&#9;",
)

// escapeHTML escapes text content.
func escapeHTML(s string) string {
	return textEscaper.Replace(s)
}

// escapeAttr escapes an attribute value.
func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}

// EscapeHTML escapes text for inclusion in HTML content.
func EscapeHTML(s string) string {
	return escapeHTML(s)
}
