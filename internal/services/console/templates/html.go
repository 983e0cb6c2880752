package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// htmlWriter accumulates the first write error so components can emit
// markup without checking every call.
type htmlWriter struct {
	w   io.Writer
	err error
}

func newHTML(w io.Writer) *htmlWriter {
	return &htmlWriter{w: w}
}

func (h *htmlWriter) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

// el writes <tag attrs>text</tag> with text escaped.
func (h *htmlWriter) el(tag, attrs, text string) {
	h.open(tag, attrs)
	h.text(text)
	h.raw("</" + tag + ">")
}

func (h *htmlWriter) open(tag, attrs string) {
	if attrs == "" {
		h.raw("<" + tag + ">")
		return
	}
	h.raw("<" + tag + " " + attrs + ">")
}

func (h *htmlWriter) render(ctx context.Context, c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

// attr formats name="value" with value escaped.
func attr(name, value string) string {
	return fmt.Sprintf(`%s="%s"`, name, templ.EscapeString(value))
}

// hiddenInput renders a hidden form field.
func hiddenInput(h *htmlWriter, name, value string) {
	h.raw(`<input type="hidden" ` + attr("name", name) + ` ` + attr("value", value) + `>`)
}

// postButton renders a one-button form posting to action.
func postButton(h *htmlWriter, action, class, label string) {
	h.raw(`<form method="post" class="inline" ` + attr("action", action) + `>`)
	h.raw(`<button type="submit" ` + attr("class", class) + `>`)
	h.text(label)
	h.raw(`</button></form>`)
}
