package markup

import (
	"html"
	"strings"
	"time"
)

// Default marker element and attribute.
const (
	DefaultMarkerTag  = "mark"
	DefaultMarkerAttr = "data-redline"
)

// HighlightSpan locates one marker instance in the markup.
type HighlightSpan struct {
	ID     string    `json:"id"`
	Start  int       `json:"start"`
	End    int       `json:"end"`
	Expiry time.Time `json:"expiry,omitempty"`
}

// Marker is the transient element wrapped around freshly patched text.
// Each instance carries the id of the suggestion that produced it, e.g.
// <mark data-redline="s1">new text</mark>.
type Marker struct {
	Tag  string `yaml:"tag" json:"tag"`
	Attr string `yaml:"attr" json:"attr"`
}

// DefaultMarker returns the <mark data-redline="..."> marker.
func DefaultMarker() Marker {
	return Marker{Tag: DefaultMarkerTag, Attr: DefaultMarkerAttr}
}

// Open returns the opening token for the instance owned by id.
func (m Marker) Open(id string) string {
	return m.openPrefix() + html.EscapeString(id) + `">`
}

// Close returns the closing token.
func (m Marker) Close() string {
	return "</" + m.Tag + ">"
}

// Wrap surrounds inner with an instance owned by id.
func (m Marker) Wrap(id, inner string) string {
	return m.Open(id) + inner + m.Close()
}

// Contains reports whether src holds any marker instance.
func (m Marker) Contains(src string) bool {
	return strings.Contains(src, m.openPrefix())
}

// Count returns the number of marker instances in src.
func (m Marker) Count(src string) int {
	return strings.Count(src, m.openPrefix())
}

// Strip removes the instance owned by id, keeping its inner text.
// It reports false when no such instance exists.
func (m Marker) Strip(src, id string) (string, bool) {
	i := strings.Index(src, m.Open(id))
	if i < 0 {
		return src, false
	}
	return m.unwrapAt(src, i), true
}

// StripAll removes every marker instance, keeping inner text.
func (m Marker) StripAll(src string) string {
	prefix := m.openPrefix()
	for {
		i := strings.Index(src, prefix)
		if i < 0 {
			return src
		}
		src = m.unwrapAt(src, i)
	}
}

// StripSpan removes the instance described by span. When that instance can
// no longer be found, every marker instance is removed instead and fallback
// is true. Stripping markup that holds no markers returns it unchanged.
func (m Marker) StripSpan(src string, span HighlightSpan) (out string, fallback bool) {
	if m.isInstanceAt(src, span) {
		return m.unwrapAt(src, span.Start), false
	}
	if out, ok := m.Strip(src, span.ID); ok {
		return out, false
	}
	return m.StripAll(src), true
}

// Release unwraps every marker instance that [start,end) cuts through, so
// replacing the range cannot leave one of its tokens behind. Instances the
// range contains whole, or that contain the range in their text, are kept.
// It returns the new markup and the range moved to match it.
func (m Marker) Release(src string, start, end int) (string, int, int) {
	for {
		a, openEnd, c, b, ok := m.cutBy(src, start, end)
		if !ok {
			return src, start, end
		}
		src = src[:a] + src[openEnd:c] + src[b:]
		start = shiftPast(start, a, openEnd, c, b)
		end = shiftPast(end, a, openEnd, c, b)
	}
}

// cutBy finds an instance, open token [a,openEnd) and close token [c,b),
// that [start,end) overlaps without containing it or lying inside its text.
func (m Marker) cutBy(src string, start, end int) (a, openEnd, c, b int, ok bool) {
	prefix := m.openPrefix()
	for from := 0; ; {
		j := strings.Index(src[from:], prefix)
		if j < 0 {
			return 0, 0, 0, 0, false
		}
		a = from + j
		from = a + len(prefix)

		gt := strings.IndexByte(src[a:], '>')
		if gt < 0 {
			continue
		}
		openEnd = a + gt + 1
		if c = m.closeIndex(src, openEnd); c < 0 {
			continue
		}
		b = c + len(m.Close())

		overlaps := start < b && end > a
		contains := start <= a && end >= b
		inside := start >= openEnd && end <= c
		if overlaps && !contains && !inside {
			return a, openEnd, c, b, true
		}
	}
}

// shiftPast maps pos to its offset once the tokens [a,openEnd) and [c,b)
// are removed. Offsets inside a token move to where the token was.
func shiftPast(pos, a, openEnd, c, b int) int {
	open := openEnd - a
	switch {
	case pos >= b:
		return pos - open - (b - c)
	case pos > c:
		return c - open
	case pos >= openEnd:
		return pos - open
	case pos > a:
		return a
	default:
		return pos
	}
}

func (m Marker) openPrefix() string {
	return "<" + m.Tag + " " + m.Attr + `="`
}

func (m Marker) isInstanceAt(src string, span HighlightSpan) bool {
	open, closeTag := m.Open(span.ID), m.Close()
	if span.Start < 0 || span.End > len(src) || span.End-span.Start < len(open)+len(closeTag) {
		return false
	}
	if !strings.HasPrefix(src[span.Start:], open) || !strings.HasSuffix(src[:span.End], closeTag) {
		return false
	}
	return m.closeIndex(src, span.Start+len(open)) == span.End-len(closeTag)
}

// unwrapAt removes the opening token at i and its matching close.
func (m Marker) unwrapAt(src string, i int) string {
	gt := strings.IndexByte(src[i:], '>')
	if gt < 0 {
		return src[:i] + src[i+len(m.openPrefix()):]
	}
	openEnd := i + gt + 1

	c := m.closeIndex(src, openEnd)
	if c < 0 {
		return src[:i] + src[openEnd:]
	}
	return src[:i] + src[openEnd:c] + src[c+len(m.Close()):]
}

// closeIndex finds the close token balancing an element opened before from,
// skipping nested elements with the same tag name.
func (m Marker) closeIndex(src string, from int) int {
	openTag := "<" + m.Tag
	closeTag := m.Close()
	depth := 0

	for i := from; i < len(src); {
		j := strings.IndexByte(src[i:], '<')
		if j < 0 {
			return -1
		}
		i += j

		switch {
		case strings.HasPrefix(src[i:], closeTag):
			if depth == 0 {
				return i
			}
			depth--
			i += len(closeTag)
		case strings.HasPrefix(src[i:], openTag) && endsTagName(src, i+len(openTag)):
			depth++
			i += len(openTag)
		default:
			i++
		}
	}
	return -1
}

func endsTagName(src string, i int) bool {
	if i >= len(src) {
		return false
	}
	switch src[i] {
	case ' ', '>', '/', '\t', '\n', '\r':
		return true
	}
	return false
}
