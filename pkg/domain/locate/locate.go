// Package locate finds target excerpts inside a plain-text projection.
//
// Matching is deliberately conservative: an exact search first, then a
// search that only tolerates differences in whitespace. Nothing looser is
// attempted, so a miss never turns into an edit of unrelated text.
package locate

import (
	"regexp"
	"strings"
)

// whitespaceRun matches one or more whitespace characters, including
// Unicode separators such as the no-break space produced by &nbsp;.
const whitespaceRun = `[\s\v\p{Z}\x{0085}]+`

// Match is a half-open [Start, End) byte span in plain text.
type Match struct {
	Start int  `json:"start"`
	End   int  `json:"end"`
	Found bool `json:"found"`
}

// NotFound is the result of an unsuccessful search.
var NotFound = Match{}

// Len returns the width of the match in bytes.
func (m Match) Len() int {
	return m.End - m.Start
}

// In returns the matched excerpt of text.
func (m Match) In(text string) string {
	if !m.Found {
		return ""
	}
	return text[m.Start:m.End]
}

// Normalize collapses every whitespace run to a single space and trims the
// ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Locate returns the first span of text matching target. Exact matches win;
// otherwise target is matched with every whitespace run widened to "one or
// more whitespace characters". Empty targets never match.
func Locate(text, target string) Match {
	if strings.TrimSpace(target) == "" {
		return NotFound
	}

	if i := strings.Index(text, target); i >= 0 {
		return Match{Start: i, End: i + len(target), Found: true}
	}

	re, err := Pattern(target)
	if err != nil {
		return NotFound
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return NotFound
	}
	return Match{Start: loc[0], End: loc[1], Found: true}
}

// Pattern compiles the whitespace-tolerant expression used by Locate's
// fallback search.
func Pattern(target string) (*regexp.Regexp, error) {
	words := strings.Fields(target)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.Compile(strings.Join(words, whitespaceRun))
}
