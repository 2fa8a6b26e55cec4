// Package markup projects rich-text markup into plain text while keeping a
// byte-accurate map from every plain-text byte back to the markup it came from.
package markup

import (
	"html"
	"strings"
	"unicode/utf8"
)

// maxEntityLen bounds how far an entity token may extend from its '&'.
const maxEntityLen = 32

// Span is a half-open [Start, End) byte range in a markup string.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the width of the span in bytes.
func (s Span) Len() int {
	return s.End - s.Start
}

// CharacterMap holds one markup Span per byte of a plain-text projection.
//
// Bytes decoded from the same token (an entity or a multi-byte rune) all
// carry that token's full span, so any plain-text boundary maps onto a token
// boundary in the markup.
type CharacterMap []Span

// Range maps the plain-text span [start, end) onto markup offsets.
// It reports false for empty or out-of-range spans.
func (c CharacterMap) Range(start, end int) (int, int, bool) {
	if start < 0 || end > len(c) || start >= end {
		return 0, 0, false
	}
	return c[start].Start, c[end-1].End, true
}

// Projection is the plain-text rendering of a markup string.
type Projection struct {
	Text string
	Map  CharacterMap
}

// MarkupRange maps a plain-text span onto markup offsets.
func (p Projection) MarkupRange(start, end int) (int, int, bool) {
	return p.Map.Range(start, end)
}

// Project scans src as a flat sequence of tags, entities and literal runes.
// Tags contribute nothing to the plain text, entities contribute their
// decoded form, and literals contribute themselves. Tag balance is never
// checked.
func Project(src string) Projection {
	var b strings.Builder
	b.Grow(len(src))
	cmap := make(CharacterMap, 0, len(src))

	emit := func(text string, span Span) {
		b.WriteString(text)
		for range len(text) {
			cmap = append(cmap, span)
		}
	}

	for i := 0; i < len(src); {
		switch src[i] {
		case '<':
			if end, ok := tagEnd(src, i); ok {
				i = end
				continue
			}
		case '&':
			if end, decoded, ok := entityEnd(src, i); ok {
				emit(decoded, Span{Start: i, End: end})
				i = end
				continue
			}
		}

		_, size := utf8.DecodeRuneInString(src[i:])
		emit(src[i:i+size], Span{Start: i, End: i + size})
		i += size
	}

	return Projection{Text: b.String(), Map: cmap}
}

// tagEnd returns the offset just past the tag starting at src[i], which must
// be '<'. Only '<' followed by a letter, '/', '!' or '?' opens a tag.
func tagEnd(src string, i int) (int, bool) {
	if i+1 >= len(src) {
		return 0, false
	}

	if strings.HasPrefix(src[i:], "<!--") {
		if j := strings.Index(src[i+4:], "-->"); j >= 0 {
			return i + 4 + j + 3, true
		}
		return 0, false
	}

	c := src[i+1]
	if !isASCIILetter(c) && c != '/' && c != '!' && c != '?' {
		return 0, false
	}

	j := strings.IndexByte(src[i+1:], '>')
	if j < 0 {
		return 0, false
	}
	return i + 1 + j + 1, true
}

// entityEnd decodes the character reference starting at src[i], which must
// be '&'. It reports false when the text is not a recognised reference.
func entityEnd(src string, i int) (int, string, bool) {
	limit := min(len(src), i+maxEntityLen)
	j := strings.IndexByte(src[i+1:limit], ';')
	if j < 1 {
		return 0, "", false
	}

	end := i + 1 + j + 1
	body := src[i+1 : end-1]
	if !isEntityBody(body) {
		return 0, "", false
	}

	token := src[i:end]
	decoded := html.UnescapeString(token)
	if decoded == token {
		return 0, "", false
	}
	return end, decoded, true
}

func isEntityBody(body string) bool {
	if body[0] == '#' {
		digits := body[1:]
		hex := false
		if len(digits) > 0 && (digits[0] == 'x' || digits[0] == 'X') {
			digits = digits[1:]
			hex = true
		}
		if digits == "" {
			return false
		}
		for k := 0; k < len(digits); k++ {
			c := digits[k]
			if isDigit(c) || (hex && isHexLetter(c)) {
				continue
			}
			return false
		}
		return true
	}

	for k := 0; k < len(body); k++ {
		c := body[k]
		if !isASCIILetter(c) && !isDigit(c) {
			return false
		}
	}
	return true
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexLetter(c byte) bool {
	return (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
