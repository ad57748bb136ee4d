// Package ahocorasick provides multi-pattern string matching using an Aho-Corasick automaton.
// It wraps the petar-dambovaliev/aho-corasick library for O(n + m + z) matching.
package ahocorasick

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	aho "github.com/petar-dambovaliev/aho-corasick"

	"github.com/corey/eiji/internal/ports"
)

// ErrEmptyPattern rejects a pattern set containing "".
var ErrEmptyPattern = errors.New("empty pattern")

// TextScanner implements ports.TextScanner. Matches are leftmost-longest and
// never overlap, so a caller can splice replacements in a single pass.
type TextScanner struct {
	automaton aho.AhoCorasick
	patterns  []string
}

var _ ports.TextScanner = (*TextScanner)(nil)

// NewTextScanner builds a scanner over patterns.
func NewTextScanner(patterns []string) (*TextScanner, error) {
	s := &TextScanner{}
	if err := s.Rebuild(patterns); err != nil {
		return nil, err
	}
	return s, nil
}

// Rebuild replaces the automaton with a new set of patterns.
func (s *TextScanner) Rebuild(patterns []string) error {
	for i, p := range patterns {
		if p == "" {
			return fmt.Errorf("%w at index %d", ErrEmptyPattern, i)
		}
	}
	p := make([]string, len(patterns))
	copy(p, patterns)

	builder := aho.NewAhoCorasickBuilder(aho.Opts{
		MatchKind: aho.LeftMostLongestMatch,
		DFA:       true,
	})
	s.automaton = builder.Build(p)
	s.patterns = p
	return nil
}

// Scan returns the matches in text with byte offsets, ordered by start and
// never overlapping: at each position the longest pattern wins and scanning
// resumes after it. The automaton can report overlapping hits, which are
// dropped here.
func (s *TextScanner) Scan(text string) []ports.PatternMatch {
	if len(s.patterns) == 0 || text == "" {
		return nil
	}
	found := s.automaton.FindAll(text)
	if len(found) == 0 {
		return nil
	}
	all := make([]ports.PatternMatch, len(found))
	for i, m := range found {
		all[i] = ports.PatternMatch{
			Pattern: m.Pattern(),
			Start:   m.Start(),
			End:     m.End(),
		}
	}
	slices.SortStableFunc(all, func(a, b ports.PatternMatch) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(b.End, a.End)
	})

	matches := all[:0]
	end := 0
	for _, m := range all {
		if m.Start < end || m.End <= m.Start {
			continue
		}
		matches = append(matches, m)
		end = m.End
	}
	return matches
}

// Pattern returns the pattern string at the given index.
func (s *TextScanner) Pattern(idx int) string {
	if idx < 0 || idx >= len(s.patterns) {
		return ""
	}
	return s.patterns[idx]
}
