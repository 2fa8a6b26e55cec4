// Package patch turns a located plain-text span and an edit into new markup.
//
// Offsets always come from a markup.CharacterMap, so every splice falls on a
// token boundary: a patch never cuts a tag or an entity in half. Tags that sit
// inside a replaced span are dropped along with it, and the result is not
// re-checked for well-formedness.
package patch

import (
	"html"

	"github.com/felixgeelhaar/redline/pkg/domain/locate"
	"github.com/felixgeelhaar/redline/pkg/domain/markup"
	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
)

// DefaultSeparator is placed between an anchor and the text added after it.
const DefaultSeparator = " "

// Reasons reported when an edit is not applied automatically.
const (
	ReasonSourceNotFound = "source text not found"
	ReasonManualReorder  = "reorder must be applied manually"
	ReasonUnsupported    = "unsupported edit type"
)

// Edit is the part of a suggestion the engine needs.
type Edit struct {
	ID        string
	Type      suggestion.EditType
	Anchor    string
	Original  string
	Suggested string
	Note      string
}

// FromSuggestion extracts the edit carried by s.
func FromSuggestion(s suggestion.Suggestion) Edit {
	return Edit{
		ID:        s.ID,
		Type:      s.Type,
		Anchor:    s.Anchor,
		Original:  s.Original,
		Suggested: s.Suggested,
		Note:      s.Note,
	}
}

// Target returns the text that has to be located before the edit applies.
func (e Edit) Target() string {
	if e.Type.LocatesAnchor() {
		return e.Anchor
	}
	return e.Original
}

// Options controls how inserted text is presented.
type Options struct {
	// Marker wraps inserted text when set. Removals are never marked.
	Marker *markup.Marker
	// Separator goes before text added after an anchor. Empty means
	// DefaultSeparator.
	Separator string
}

func (o Options) separator() string {
	if o.Separator == "" {
		return DefaultSeparator
	}
	return o.Separator
}

// Result is the outcome of one patch.
type Result struct {
	Markup  string
	Applied bool
	// Reason explains why Applied is false.
	Reason string
	// Note is surfaced for edits that need a human, such as reorder.
	Note string
	// Appended is set when an add edit lost its anchor and went to the end.
	Appended bool
	// Highlight locates the marker instance around the inserted text.
	Highlight *markup.HighlightSpan
}

// Changed reports whether the markup differs from src.
func (r Result) Changed(src string) bool {
	return r.Markup != src
}

// Run projects src, locates the edit's target and applies it.
func Run(src string, edit Edit, opts Options) Result {
	if edit.Type == suggestion.EditReorder {
		return manual(src, edit)
	}
	proj := markup.Project(src)
	match := locate.Locate(proj.Text, edit.Target())
	return Apply(src, proj.Map, match, edit, opts)
}

// Apply patches src at match, a span of the projection described by cmap.
// A missing match is an outcome, not an error: rewrite, replace and remove
// leave src unchanged, add appends at the end of the document.
func Apply(src string, cmap markup.CharacterMap, match locate.Match, edit Edit, opts Options) Result {
	switch edit.Type {
	case suggestion.EditRewrite, suggestion.EditReplace:
		start, end, ok := resolve(cmap, match)
		if !ok {
			return notFound(src)
		}
		src, start, end = release(src, start, end, opts.Marker)
		return splice(src, start, end, edit.ID, html.EscapeString(edit.Suggested), opts.Marker)

	case suggestion.EditRemove:
		start, end, ok := resolve(cmap, match)
		if !ok {
			return notFound(src)
		}
		src, start, end = release(src, start, end, opts.Marker)
		return splice(src, start, end, edit.ID, "", nil)

	case suggestion.EditAdd:
		at, appended := len(src), true
		if _, end, ok := resolve(cmap, match); ok {
			at, appended = end, false
		}
		res := insert(src, at, edit.ID, opts.separator(), html.EscapeString(edit.Suggested), opts.Marker)
		res.Appended = appended
		return res

	case suggestion.EditReorder:
		return manual(src, edit)

	default:
		return Result{Markup: src, Reason: ReasonUnsupported}
	}
}

func resolve(cmap markup.CharacterMap, match locate.Match) (int, int, bool) {
	if !match.Found {
		return 0, 0, false
	}
	return cmap.Range(match.Start, match.End)
}

// release drops the tokens of marker instances the span would cut in half.
func release(src string, start, end int, marker *markup.Marker) (string, int, int) {
	if marker == nil {
		return src, start, end
	}
	return marker.Release(src, start, end)
}

func splice(src string, start, end int, id, text string, marker *markup.Marker) Result {
	if marker == nil || text == "" {
		return Result{Markup: src[:start] + text + src[end:], Applied: true}
	}

	wrapped := marker.Wrap(id, text)
	return Result{
		Markup:  src[:start] + wrapped + src[end:],
		Applied: true,
		Highlight: &markup.HighlightSpan{
			ID:    id,
			Start: start,
			End:   start + len(wrapped),
		},
	}
}

func insert(src string, at int, id, sep, text string, marker *markup.Marker) Result {
	res := splice(src, at, at, id, text, marker)
	res.Markup = res.Markup[:at] + sep + res.Markup[at:]
	if res.Highlight != nil {
		res.Highlight.Start += len(sep)
		res.Highlight.End += len(sep)
	}
	return res
}

func notFound(src string) Result {
	return Result{Markup: src, Reason: ReasonSourceNotFound}
}

func manual(src string, edit Edit) Result {
	return Result{Markup: src, Reason: ReasonManualReorder, Note: edit.Note}
}
