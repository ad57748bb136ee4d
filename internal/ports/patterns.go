package ports

// TextScanner finds a fixed set of literal patterns in text in one pass
// (Aho-Corasick). The presentation layer uses it to rewrite entry markup
// and highlight the query together.
type TextScanner interface {
	// Scan returns the non-overlapping, leftmost-longest matches in text,
	// ordered by position. Returns nil if nothing matches.
	Scan(text string) []PatternMatch

	// Rebuild replaces the pattern set and reconstructs the automaton.
	// Empty patterns are rejected.
	Rebuild(patterns []string) error
}

// PatternMatch is one hit: the index of the pattern in the set passed to
// Rebuild, and its byte span in the scanned text.
type PatternMatch struct {
	Pattern int
	Start   int
	End     int
}
