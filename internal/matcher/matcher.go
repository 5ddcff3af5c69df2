// Package matcher wraps a compiled pattern with the name and line predicates
// used by search tasks.
//
// Both predicates XOR the raw regex result with the invert flag, so an
// inverted matcher reports exactly what a plain one would not.
package matcher

import (
	"regexp"
	"unicode/utf8"

	"github.com/harrison/rgrep/internal/models"
)

// Matcher is immutable after construction and safe for concurrent use.
type Matcher struct {
	re     *regexp.Regexp
	invert bool
}

// New creates a Matcher. re must already be compiled.
func New(re *regexp.Regexp, invert bool) *Matcher {
	return &Matcher{re: re, invert: invert}
}

// FromConfig creates the Matcher described by a search configuration.
func FromConfig(cfg *models.SearchConfig) *Matcher {
	return New(cfg.Pattern, cfg.InvertMatch)
}

// NameMatches tests the entry's base name. An entry without a usable name
// (the walk root "." or a name that is not valid UTF-8) never matches,
// whatever the invert flag says.
func (m *Matcher) NameMatches(entry models.Entry) bool {
	name := entry.Name()
	if name == "" || !utf8.ValidString(name) {
		return false
	}
	return m.re.MatchString(name) != m.invert
}

// LineMatches tests whether the pattern occurs anywhere in line.
func (m *Matcher) LineMatches(line string) bool {
	return m.re.MatchString(line) != m.invert
}

// Spans returns every non-overlapping occurrence of the pattern in line.
// Empty matches are dropped since there is nothing to highlight.
func (m *Matcher) Spans(line string) []models.Span {
	locs := m.re.FindAllStringIndex(line, -1)
	if len(locs) == 0 {
		return nil
	}
	spans := make([]models.Span, 0, len(locs))
	for _, loc := range locs {
		if loc[1] > loc[0] {
			spans = append(spans, models.Span{Start: loc[0], End: loc[1]})
		}
	}
	if len(spans) == 0 {
		return nil
	}
	return spans
}
