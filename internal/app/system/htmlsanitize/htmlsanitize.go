// internal/app/system/htmlsanitize/htmlsanitize.go
//
// Package htmlsanitize cleans user-authored HTML before storage and display.
// Forum posts and comments accept rich text from the composer; everything
// passes through Sanitize so script, iframes, and event handlers never reach
// the page.
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = buildPolicy()

func buildPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()

	// Extra formatting the composer emits beyond the UGC defaults.
	p.AllowElements("u", "s", "sub", "sup", "mark")

	// Tables keep their classes and inline layout styles.
	p.AllowAttrs("class").OnElements("table", "thead", "tbody", "tr", "td", "th")
	p.AllowAttrs("style").OnElements("table", "tr", "td", "th")

	return p
}

// Sanitize strips unsafe markup and returns the cleaned HTML.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return policy.Sanitize(s)
}

// SanitizeToHTML sanitizes and wraps the result for direct template use.
func SanitizeToHTML(s string) template.HTML {
	return template.HTML(Sanitize(s))
}

// IsPlainText reports whether s contains no HTML tags. A lone < or > (as in
// "5 < 10") still counts as plain text.
func IsPlainText(s string) bool {
	return !(strings.Contains(s, "<") && strings.Contains(s, ">"))
}

// PlainTextToHTML escapes plain text and converts newlines to <br>, wrapping
// the whole thing in a paragraph.
func PlainTextToHTML(s string) string {
	if s == "" {
		return ""
	}
	escaped := html.EscapeString(s)
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")
	return "<p>" + escaped + "</p>"
}

// PrepareForDisplay renders stored content for a template: plain text is
// escaped and paragraph-wrapped, HTML is sanitized.
func PrepareForDisplay(s string) template.HTML {
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		return template.HTML(PlainTextToHTML(s))
	}
	return SanitizeToHTML(s)
}
