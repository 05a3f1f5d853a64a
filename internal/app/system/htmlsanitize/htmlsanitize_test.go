package htmlsanitize_test

import (
	"html/template"
	"strings"
	"testing"

	"github.com/mercatohq/mercato/internal/app/system/htmlsanitize"
)

func TestSanitize_PreservesSafeMarkup(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"plain text", "Hello, World!"},
		{"bold and italic", "<p><strong>Bold</strong> and <em>italic</em></p>"},
		{"text formatting", "<u>underline</u> <s>strikethrough</s> <sub>sub</sub> <sup>sup</sup> <mark>mark</mark>"},
		{"unordered list", "<ul><li>Item 1</li><li>Item 2</li></ul>"},
		{"ordered list", "<ol><li>First</li><li>Second</li></ol>"},
		{"blockquote", "<blockquote>A quote</blockquote>"},
		{"headings", "<h1>Heading 1</h1><h2>Heading 2</h2><h3>Heading 3</h3>"},
		{"code block", "<pre><code>function test() {}</code></pre>"},
		{"table", "<table><thead><tr><th>Header</th></tr></thead><tbody><tr><td>Cell</td></tr></tbody></table>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := htmlsanitize.Sanitize(tt.input)
			if result != tt.input {
				t.Errorf("expected input preserved, got %q", result)
			}
		})
	}
}

func TestSanitize_RemovesDangerousMarkup(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		mustNotHave string
	}{
		{"script tag", "<p>Hello</p><script>alert('xss')</script>", "script"},
		{"onclick handler", `<button onclick="alert('xss')">Click</button>`, "onclick"},
		{"javascript href", `<a href="javascript:alert('xss')">Click</a>`, "javascript:"},
		{"iframe", `<p>Content</p><iframe src="https://evil.com"></iframe>`, "iframe"},
		{"style tag", `<style>body { color: red; }</style><p>Text</p>`, "<style>"},
		{"onerror on image", `<img src="x" onerror="alert('xss')">`, "onerror"},
		{"data url in image", `<img src="data:text/html,<script>alert('xss')</script>">`, "data:text/html"},
		{"form elements", `<form action="/submit"><input type="text" name="data"></form>`, "<input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := htmlsanitize.Sanitize(tt.input)
			if strings.Contains(result, tt.mustNotHave) {
				t.Errorf("expected %q removed, got %q", tt.mustNotHave, result)
			}
		})
	}
}

func TestSanitize_Empty(t *testing.T) {
	if result := htmlsanitize.Sanitize(""); result != "" {
		t.Errorf("expected empty string, got %q", result)
	}
}

func TestSanitize_AllowsSafeLinks(t *testing.T) {
	result := htmlsanitize.Sanitize(`<a href="https://example.com">Link</a>`)
	// bluemonday adds rel="nofollow" to links
	if !strings.Contains(result, "https://example.com") {
		t.Errorf("expected safe link preserved, got %q", result)
	}
}

func TestSanitize_AllowsImages(t *testing.T) {
	result := htmlsanitize.Sanitize(`<img src="https://example.com/image.png" alt="Image">`)
	if !strings.Contains(result, "src=") || !strings.Contains(result, "alt=") {
		t.Errorf("expected image preserved, got %q", result)
	}
}

func TestSanitize_AllowsTableAttributes(t *testing.T) {
	result := htmlsanitize.Sanitize(`<table class="roster"><tr><td colspan="2" style="text-align:center">Cell</td></tr></table>`)
	if !strings.Contains(result, `class="roster"`) {
		t.Errorf("expected class preserved, got %q", result)
	}
	if !strings.Contains(result, `colspan="2"`) {
		t.Errorf("expected colspan preserved, got %q", result)
	}
	if !strings.Contains(result, "style=") {
		t.Errorf("expected style on table cells preserved, got %q", result)
	}
}

func TestSanitizeToHTML(t *testing.T) {
	result := htmlsanitize.SanitizeToHTML("<p>Hello</p><script>alert('xss')</script>")
	if result != template.HTML("<p>Hello</p>") {
		t.Errorf("expected script removed, got %q", result)
	}
	if htmlsanitize.SanitizeToHTML("") != "" {
		t.Error("expected empty template.HTML for empty input")
	}
}

func TestIsPlainText(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"Hello, World!", true},
		{"5 < 10", true},
		{"5 > 3", true},
		{"<p>Hello</p>", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := htmlsanitize.IsPlainText(tt.input); got != tt.want {
				t.Errorf("IsPlainText(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestPlainTextToHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"simple text", "Hello, World!", "<p>Hello, World!</p>"},
		{"newlines converted", "Line 1\nLine 2\nLine 3", "<p>Line 1<br>Line 2<br>Line 3</p>"},
		{"ampersand escaped", "A & B", "<p>A &amp; B</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.PlainTextToHTML(tt.input); got != tt.want {
				t.Errorf("PlainTextToHTML(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPlainTextToHTML_EscapesHTML(t *testing.T) {
	result := htmlsanitize.PlainTextToHTML("<script>alert('xss')</script>")
	if strings.Contains(result, "<script>") {
		t.Error("expected HTML to be escaped")
	}
	if !strings.Contains(result, "&lt;") || !strings.Contains(result, "&gt;") {
		t.Error("expected < and > to be escaped")
	}
}

func TestPrepareForDisplay(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  template.HTML
	}{
		{"empty", "", ""},
		{"plain text", "Hello, World!", template.HTML("<p>Hello, World!</p>")},
		{"plain text with newlines", "Line 1\nLine 2", template.HTML("<p>Line 1<br>Line 2</p>")},
		{"safe html", "<p>Hello</p>", template.HTML("<p>Hello</p>")},
		{"html with script", "<p>Hello</p><script>alert('xss')</script>", template.HTML("<p>Hello</p>")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.PrepareForDisplay(tt.input); got != tt.want {
				t.Errorf("PrepareForDisplay(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
