// Package search finds case-insensitive matches in wrapped document lines
// and moves between the pages that contain them.
package search

import (
	"regexp"
)

// Marker surrounds highlighted occurrences of the search term.
const Marker = "█"

// Match is an occurrence of the search term. Start and End are byte offsets
// into the line.
type Match struct {
	Line  int
	Start int
	End   int
}

func compile(term string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(term))
}

// Find returns every non-overlapping case-insensitive occurrence of term in
// lines, in line order.
func Find(lines []string, term string) []Match {
	if term == "" {
		return nil
	}
	re := compile(term)
	var matches []Match
	for i, line := range lines {
		for _, loc := range re.FindAllStringIndex(line, -1) {
			matches = append(matches, Match{Line: i, Start: loc[0], End: loc[1]})
		}
	}
	return matches
}

// State is the active search of one browsing frame. When Term is set,
// Matches is non-empty.
type State struct {
	Term    string
	Matches []Match
	Index   int
}

// Set runs a new search and returns the number of matches. A search without
// matches clears the state.
func (s *State) Set(lines []string, term string) int {
	matches := Find(lines, term)
	if len(matches) == 0 {
		s.Clear()
		return 0
	}
	s.Term = term
	s.Matches = matches
	s.Index = 0
	return len(matches)
}

// Clear drops the active search.
func (s *State) Clear() {
	s.Term = ""
	s.Matches = nil
	s.Index = 0
}

// Active reports whether a search term is set.
func (s *State) Active() bool {
	return s.Term != "" && len(s.Matches) > 0
}

// Next returns the page of the first match after page cur, wrapping to the
// start of the document. It reports false when every match is on page cur.
func (s *State) Next(cur, pageSize int) (int, bool) {
	if !s.Active() || pageSize < 1 {
		return 0, false
	}
	end := (cur + 1) * pageSize
	for i, m := range s.Matches {
		if m.Line >= end {
			return s.pick(i, pageSize), true
		}
	}
	start := cur * pageSize
	for i, m := range s.Matches {
		if m.Line < start {
			return s.pick(i, pageSize), true
		}
	}
	return 0, false
}

// Prev returns the page of the last match before page cur, wrapping to the
// end of the document. It reports false when every match is on page cur.
func (s *State) Prev(cur, pageSize int) (int, bool) {
	if !s.Active() || pageSize < 1 {
		return 0, false
	}
	start := cur * pageSize
	for i := len(s.Matches) - 1; i >= 0; i-- {
		if s.Matches[i].Line < start {
			return s.pick(i, pageSize), true
		}
	}
	end := (cur + 1) * pageSize
	for i := len(s.Matches) - 1; i >= 0; i-- {
		if s.Matches[i].Line >= end {
			return s.pick(i, pageSize), true
		}
	}
	return 0, false
}

func (s *State) pick(i, pageSize int) int {
	s.Index = i
	return s.Matches[i].Line / pageSize
}

// Highlight wraps every occurrence of term in line with Marker. It is a
// display transform only; stored offsets refer to the unhighlighted line.
func Highlight(line, term string) string {
	if term == "" {
		return line
	}
	return compile(term).ReplaceAllStringFunc(line, func(m string) string {
		return Marker + m + Marker
	})
}
