package patch_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/redline/pkg/domain/locate"
	"github.com/felixgeelhaar/redline/pkg/domain/markup"
	"github.com/felixgeelhaar/redline/pkg/domain/patch"
	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
)

func plain(src string) string {
	return markup.Project(src).Text
}

func TestRun_ReplaceAcrossInlineFormatting(t *testing.T) {
	src := `<p>Built <b>scalable</b> systems.</p>`
	edit := patch.Edit{
		ID:        "s1",
		Type:      suggestion.EditReplace,
		Original:  "Built scalable systems.",
		Suggested: "Architected 3 scalable distributed systems.",
	}

	res := patch.Run(src, edit, patch.Options{})

	require.True(t, res.Applied)
	assert.Equal(t, `<p>Architected 3 scalable distributed systems.</p>`, res.Markup)
	assert.Contains(t, plain(res.Markup), "Architected 3 scalable distributed systems.")
	assert.NotContains(t, plain(res.Markup), "Built scalable systems.")
	assert.NotContains(t, res.Markup, "<b>", "inner tag inside the match is dropped")
	assert.Nil(t, res.Highlight)
}

func TestRun_RewriteWithMarker(t *testing.T) {
	src := `<ul><li>Managed servers</li></ul>`
	marker := markup.DefaultMarker()
	edit := patch.Edit{ID: "s7", Type: suggestion.EditRewrite, Original: "Managed servers", Suggested: "Ran 40 servers"}

	res := patch.Run(src, edit, patch.Options{Marker: &marker})

	require.True(t, res.Applied)
	assert.Equal(t, `<ul><li><mark data-redline="s7">Ran 40 servers</mark></li></ul>`, res.Markup)
	require.NotNil(t, res.Highlight)
	assert.Equal(t, "s7", res.Highlight.ID)
	assert.Equal(t, marker.Wrap("s7", "Ran 40 servers"), res.Markup[res.Highlight.Start:res.Highlight.End])
	assert.Equal(t, "Ran 40 servers", plain(res.Markup))
}

func TestRun_SuggestedTextIsEscaped(t *testing.T) {
	src := `<p>Tom &amp; Jerry</p>`
	edit := patch.Edit{ID: "e", Type: suggestion.EditReplace, Original: "Tom & Jerry", Suggested: "Tom <3 Jerry"}

	res := patch.Run(src, edit, patch.Options{})

	require.True(t, res.Applied)
	assert.Equal(t, `<p>Tom &lt;3 Jerry</p>`, res.Markup)
	assert.Equal(t, "Tom <3 Jerry", plain(res.Markup))
}

func TestRun_Remove(t *testing.T) {
	src := `<p>Hard-working and <i>very</i> motivated team player.</p>`
	marker := markup.DefaultMarker()
	edit := patch.Edit{ID: "r", Type: suggestion.EditRemove, Original: "Hard-working and very motivated "}

	res := patch.Run(src, edit, patch.Options{Marker: &marker})

	require.True(t, res.Applied)
	assert.Equal(t, `<p>team player.</p>`, res.Markup)
	assert.NotContains(t, plain(res.Markup), "motivated")
	assert.Nil(t, res.Highlight, "removals are never marked")
}

func TestRun_RemoveWholeEntity(t *testing.T) {
	res := patch.Run(`a &amp; b`, patch.Edit{Type: suggestion.EditRemove, Original: "&"}, patch.Options{})

	require.True(t, res.Applied)
	assert.Equal(t, `a  b`, res.Markup, "entity is removed as one token")
}

func TestRun_AddAfterAnchor(t *testing.T) {
	src := `<p>Skills: Go</p>`
	edit := patch.Edit{ID: "a1", Type: suggestion.EditAdd, Anchor: "Skills:", Suggested: "Kubernetes,"}

	res := patch.Run(src, edit, patch.Options{})

	require.True(t, res.Applied)
	assert.False(t, res.Appended)
	assert.Equal(t, `<p>Skills: Kubernetes, Go</p>`, res.Markup)
	assert.GreaterOrEqual(t, len(res.Markup)-len(src), len(edit.Suggested))
}

func TestRun_AddWithoutAnchorAppends(t *testing.T) {
	tests := []struct {
		name   string
		anchor string
	}{
		{"anchor missing from document", "Certifications"},
		{"no anchor", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := `<p>Go</p>`
			edit := patch.Edit{ID: "a2", Type: suggestion.EditAdd, Anchor: tt.anchor, Suggested: "Rust"}

			res := patch.Run(src, edit, patch.Options{})

			require.True(t, res.Applied)
			assert.True(t, res.Appended)
			assert.Equal(t, `<p>Go</p> Rust`, res.Markup)
			assert.Greater(t, len(res.Markup), len(src))
			assert.GreaterOrEqual(t, len(res.Markup)-len(src), len(edit.Suggested))
		})
	}
}

func TestRun_AddWithMarkerAndSeparator(t *testing.T) {
	marker := markup.Marker{Tag: "span", Attr: "data-hl"}
	edit := patch.Edit{ID: "a3", Type: suggestion.EditAdd, Anchor: "Go", Suggested: "Rust"}

	res := patch.Run(`<p>Go</p>`, edit, patch.Options{Marker: &marker, Separator: ", "})

	require.True(t, res.Applied)
	assert.Equal(t, `<p>Go, <span data-hl="a3">Rust</span></p>`, res.Markup)
	require.NotNil(t, res.Highlight)
	assert.True(t, strings.HasPrefix(res.Markup[res.Highlight.Start:], marker.Open("a3")))
	assert.Equal(t, marker.Close(), res.Markup[res.Highlight.End-len(marker.Close()):res.Highlight.End])
}

func TestRun_Reorder(t *testing.T) {
	src := `<h2>Skills</h2><h2>Experience</h2>`
	edit := patch.Edit{ID: "o", Type: suggestion.EditReorder, Original: "Skills", Note: "Move Experience above Skills"}

	res := patch.Run(src, edit, patch.Options{})

	assert.False(t, res.Applied)
	assert.Equal(t, src, res.Markup)
	assert.Equal(t, patch.ReasonManualReorder, res.Reason)
	assert.Equal(t, "Move Experience above Skills", res.Note)
}

func TestRun_SourceNotFound(t *testing.T) {
	src := `<p>Led a team.</p>`

	for _, et := range []suggestion.EditType{suggestion.EditRewrite, suggestion.EditReplace, suggestion.EditRemove} {
		t.Run(string(et), func(t *testing.T) {
			res := patch.Run(src, patch.Edit{Type: et, Original: "Managed a budget", Suggested: "x"}, patch.Options{})

			assert.False(t, res.Applied)
			assert.Equal(t, patch.ReasonSourceNotFound, res.Reason)
			assert.Equal(t, src, res.Markup)
			assert.False(t, res.Changed(src))
		})
	}
}

func TestRun_WhitespaceDrift(t *testing.T) {
	src := "<p>Delivered   the\n<em>project</em> early.</p>"
	edit := patch.Edit{Type: suggestion.EditRewrite, Original: "Delivered the project early.", Suggested: "Shipped 2 weeks early."}

	res := patch.Run(src, edit, patch.Options{})

	require.True(t, res.Applied)
	assert.Equal(t, `<p>Shipped 2 weeks early.</p>`, res.Markup)
}

func TestApply_UsesGivenMatch(t *testing.T) {
	src := `<p>one two one</p>`
	proj := markup.Project(src)
	second := locate.Match{Start: 8, End: 11, Found: true}
	require.Equal(t, "one", second.In(proj.Text))

	res := patch.Apply(src, proj.Map, second, patch.Edit{Type: suggestion.EditReplace, Suggested: "three"}, patch.Options{})

	require.True(t, res.Applied)
	assert.Equal(t, `<p>one two three</p>`, res.Markup)
}

func TestApply_UnsupportedType(t *testing.T) {
	res := patch.Apply("x", nil, locate.NotFound, patch.Edit{Type: "shuffle"}, patch.Options{})

	assert.False(t, res.Applied)
	assert.Equal(t, patch.ReasonUnsupported, res.Reason)
}

func TestRun_FirstOccurrenceWins(t *testing.T) {
	res := patch.Run(`<p>ok ok</p>`, patch.Edit{Type: suggestion.EditReplace, Original: "ok", Suggested: "fine"}, patch.Options{})

	assert.Equal(t, `<p>fine ok</p>`, res.Markup)
}

// Each edit re-derives its offsets from the live markup, so overlapping
// targets give different documents depending on which edit lands first.
func TestRun_OverlappingTargetsAreOrderDependent(t *testing.T) {
	src := `<p>Led a team of five engineers.</p>`
	grow := patch.Edit{ID: "grow", Type: suggestion.EditReplace, Original: "team of five", Suggested: "team of eight"}
	trim := patch.Edit{ID: "trim", Type: suggestion.EditRemove, Original: " of five engineers"}

	first := patch.Run(src, grow, patch.Options{})
	require.True(t, first.Applied)
	then := patch.Run(first.Markup, trim, patch.Options{})
	assert.False(t, then.Applied)
	assert.Equal(t, `<p>Led a team of eight engineers.</p>`, then.Markup)

	first = patch.Run(src, trim, patch.Options{})
	require.True(t, first.Applied)
	then = patch.Run(first.Markup, grow, patch.Options{})
	assert.False(t, then.Applied)
	assert.Equal(t, `<p>Led a team.</p>`, then.Markup)
}

func TestRun_ReplaceCuttingIntoHighlight(t *testing.T) {
	marker := markup.DefaultMarker()
	src := "<p>Alpha " + marker.Wrap("up", "BETA GAMMA") + ".</p>"
	edit := patch.Edit{ID: "cut", Type: suggestion.EditReplace, Original: "Alpha BETA", Suggested: "X"}

	res := patch.Run(src, edit, patch.Options{Marker: &marker})

	require.True(t, res.Applied)
	assert.Equal(t, "<p>"+marker.Wrap("cut", "X")+" GAMMA.</p>", res.Markup)
	assert.Equal(t, strings.Count(res.Markup, marker.Close()), marker.Count(res.Markup))
	require.NotNil(t, res.Highlight)
	assert.Equal(t, marker.Wrap("cut", "X"), res.Markup[res.Highlight.Start:res.Highlight.End])
}

func TestRun_RemoveCuttingIntoHighlight(t *testing.T) {
	marker := markup.DefaultMarker()
	src := "<p>Alpha " + marker.Wrap("up", "beta gamma") + ".</p>"
	edit := patch.Edit{ID: "rm", Type: suggestion.EditRemove, Original: "gamma."}

	res := patch.Run(src, edit, patch.Options{Marker: &marker})

	require.True(t, res.Applied)
	assert.Equal(t, "<p>Alpha beta </p>", res.Markup)
}

func TestFromSuggestion(t *testing.T) {
	s := suggestion.Suggestion{ID: "x", Type: suggestion.EditAdd, Anchor: "A", Original: "O", Suggested: "S", Note: "N"}
	e := patch.FromSuggestion(s)

	assert.Equal(t, "A", e.Target())
	assert.Equal(t, patch.Edit{ID: "x", Type: suggestion.EditAdd, Anchor: "A", Original: "O", Suggested: "S", Note: "N"}, e)
}
