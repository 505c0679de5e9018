package normalization

import (
	"strings"
	"unicode"
)

// Separator joins the words of a normalized identifier.
const Separator = '_'

func ParseInputString(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// ID maps a free-text label to a stable graph identifier: trimmed, lowercased,
// with every whitespace rune and hyphen replaced by Separator. Empty output means
// the label is missing. ID(ID(x)) == ID(x).
func ID(label string) string {
	s := ParseInputString(label)
	if s == "" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return Separator
		}
		return r
	}, s)
}

// CourseKey is the case-insensitive scope key for a course name.
func CourseKey(course string) string {
	return ParseInputString(course)
}
