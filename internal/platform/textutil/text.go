package textutil

import (
	"bytes"
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	strictOnce   sync.Once
	strictPolicy *bluemonday.Policy

	inlineOnce   sync.Once
	inlinePolicy *bluemonday.Policy

	markdown = goldmark.New()
)

func strict() *bluemonday.Policy {
	strictOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

func inline() *bluemonday.Policy {
	inlineOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowElements("strong", "em", "br")
		inlinePolicy = p
	})
	return inlinePolicy
}

// PlainText removes any markup from admin-entered text and trims it. The
// **bold** markers survive since they are plain characters.
func PlainText(value string) string {
	cleaned := strict().Sanitize(value)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

// RenderInline converts the paragraph's **bold** spans into sanitized HTML
// containing only strong/em/br elements.
func RenderInline(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(value), &buf); err != nil {
		return html.EscapeString(value)
	}
	return strings.TrimSpace(inline().Sanitize(buf.String()))
}
