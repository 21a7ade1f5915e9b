package capture

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ExcerptLength is the maximum length in runes of the content stored for a
// spilled text payload.
const ExcerptLength = 4096

// Excerpt returns s truncated to at most maxLen runes. If truncation is
// needed, "..." is appended within the limit.
func Excerpt(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return strings.Repeat(".", maxLen)
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}

// Sanitize removes control characters and collapses whitespace, making the
// result safe for single-line display in terminals.
func Sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
