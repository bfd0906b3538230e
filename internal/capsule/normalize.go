package capsule

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// CleanField trims surrounding whitespace from a single-line form field.
func CleanField(s string) string {
	return strings.TrimSpace(s)
}

// Excerpt returns the first max runes of text with whitespace collapsed,
// adding an ellipsis when truncated.
func Excerpt(text string, max int) string {
	s := strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
	if max <= 0 || CountChars(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max])) + "…"
}

// CountChars returns the character count as runes (not bytes).
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}
