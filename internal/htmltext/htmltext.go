// Package htmltext extracts readable plain text from HTML job
// descriptions delivered by source connectors. It never fetches
// anything; connectors own all HTTP.
package htmltext

import (
	"bytes"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
)

// ExtractText converts an HTML description fragment to cleaned plain
// text. Inputs without markup pass through CleanText unchanged, so
// callers can feed every description through it.
func ExtractText(raw string, sourceURL string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if !looksLikeHTML(trimmed) {
		return CleanText(trimmed)
	}

	base, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil || base.Host == "" {
		base = &url.URL{Scheme: "https", Host: "localhost"}
	}

	article, err := readability.FromReader(bytes.NewReader([]byte(trimmed)), base)
	if err != nil {
		return CleanText(stripTags(trimmed))
	}

	var rendered bytes.Buffer
	if err := article.RenderText(&rendered); err != nil {
		return CleanText(stripTags(trimmed))
	}

	text := CleanText(rendered.String())
	if text == "" {
		text = CleanText(stripTags(trimmed))
	}
	return text
}

func looksLikeHTML(text string) bool {
	lowered := strings.ToLower(text)
	for _, marker := range []string{"<p", "<br", "<div", "<ul", "<li", "<html", "<body", "<span", "<h1", "<h2", "<h3", "<strong", "<em"} {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// stripTags is the fallback when readability rejects a fragment: drop
// anything between angle brackets.
func stripTags(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	inTag := false
	for _, r := range raw {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CleanText normalizes line endings and collapses extra in-line whitespace.
func CleanText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		clean := strings.Join(strings.Fields(strings.TrimSpace(line)), " ")
		if clean == "" {
			continue
		}
		paragraphs = append(paragraphs, clean)
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}
