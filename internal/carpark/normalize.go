package carpark

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// Token normalizes a carpark identifier for matching:
// - trims Unicode whitespace + invisible edge characters
// - uppercases for case-insensitive comparisons
func Token(s string) string {
	return strings.ToUpper(strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) ||
			r == '\u200B' || // Zero Width Space
			r == '\u200C' || // Zero Width Non-Joiner
			r == '\u200D' || // Zero Width Joiner
			r == '\uFEFF' // Zero Width No-Break Space (BOM)
	}))
}

// DisplayName converts the all-caps development names URA publishes
// into title case for display. Already mixed-case names are left alone.
func DisplayName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if s != strings.ToUpper(s) {
		return s
	}
	return titleCaser.String(strings.ToLower(s))
}
