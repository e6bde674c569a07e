package extract

import (
	"html"
	"strings"
	"unicode"
)

// Normalize decodes HTML entities, collapses whitespace runs (including
// line breaks and non-breaking spaces) to single spaces, and trims.
func Normalize(raw string) string {
	s := html.UnescapeString(raw)
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// stripTrailingPunct removes trailing punctuation and whitespace. Title
// fragments like "Wireless Mouse -" compare equal to the body text
// "Wireless Mouse" after stripping.
func stripTrailingPunct(s string) string {
	return strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r)
	})
}
