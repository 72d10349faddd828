package moderation

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// Sanitize strips markup and control characters from s and trims surrounding
// whitespace. Text inside script and style elements is dropped. Entities are
// kept as written, so Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(s string) string {
	// Each pass only removes runes, so the loop ends once a pass is a no-op.
	for {
		next := sanitizeOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func sanitizeOnce(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skipping := ""
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF is the only error a strings.Reader can produce
			return strings.TrimSpace(stripControl(b.String()))
		case html.TextToken:
			if skipping == "" {
				b.Write(z.Raw())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skipping = tag
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == skipping {
				skipping = ""
			}
		}
	}
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
