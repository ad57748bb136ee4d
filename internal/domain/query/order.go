package query

import (
	"strings"
	"unicode"
)

// Reorder moves lines that start with q ahead of the rest. The partition is
// stable: retrieval order is kept inside each half.
func Reorder(lines []string, q string) []string {
	if len(lines) == 0 {
		return lines
	}
	out := make([]string, 0, len(lines))
	var rest []string
	for _, l := range lines {
		if strings.HasPrefix(l, q) {
			out = append(out, l)
		} else {
			rest = append(rest, l)
		}
	}
	return append(out, rest...)
}

// NormalizeInput strips surrounding whitespace from a line typed at the
// prompt. Spaces and tabs are kept: they are part of what the user searches
// for.
func NormalizeInput(line string) string {
	return strings.TrimFunc(line, func(r rune) bool {
		return r != ' ' && r != '\t' && unicode.IsSpace(r)
	})
}
