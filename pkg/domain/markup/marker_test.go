package markup_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/redline/pkg/domain/markup"
)

func TestMarker_Tokens(t *testing.T) {
	m := markup.DefaultMarker()

	assert.Equal(t, `<mark data-redline="s1">`, m.Open("s1"))
	assert.Equal(t, `</mark>`, m.Close())
	assert.Equal(t, `<mark data-redline="s1">new</mark>`, m.Wrap("s1", "new"))
	assert.Equal(t, `<mark data-redline="a&#34;b">`, m.Open(`a"b`))
}

func TestMarker_ProjectsToInnerText(t *testing.T) {
	m := markup.DefaultMarker()
	src := "<p>Old " + m.Wrap("s1", "new") + " text</p>"

	assert.Equal(t, "Old new text", markup.Project(src).Text)
}

func TestMarker_StripByID(t *testing.T) {
	m := markup.DefaultMarker()
	src := "<p>" + m.Wrap("s1", "one") + " and " + m.Wrap("s2", "two") + "</p>"

	out, ok := m.Strip(src, "s1")
	require.True(t, ok)
	assert.Equal(t, "<p>one and "+m.Wrap("s2", "two")+"</p>", out)

	_, ok = m.Strip(out, "s1")
	assert.False(t, ok)
}

func TestMarker_StripKeepsNestedUserMarks(t *testing.T) {
	m := markup.DefaultMarker()
	src := m.Wrap("s1", "a <mark>b</mark> c") + " <mark>d</mark>"

	out, ok := m.Strip(src, "s1")
	require.True(t, ok)
	assert.Equal(t, "a <mark>b</mark> c <mark>d</mark>", out)
}

func TestMarker_StripAll(t *testing.T) {
	m := markup.DefaultMarker()
	src := m.Wrap("s1", "x") + m.Wrap("s2", "y"+m.Wrap("s3", "z")) + "<mark>keep</mark>"

	out := m.StripAll(src)
	assert.Equal(t, "xyz<mark>keep</mark>", out)
	assert.False(t, m.Contains(out))
	assert.Equal(t, out, m.StripAll(out))
}

func TestMarker_StripAllOrphanOpen(t *testing.T) {
	m := markup.DefaultMarker()
	src := `a<mark data-redline="s1">b`

	assert.Equal(t, "ab", m.StripAll(src))
}

func TestMarker_StripSpan(t *testing.T) {
	m := markup.DefaultMarker()
	wrapped := m.Wrap("s1", "new")
	src := "<p>" + wrapped + "</p>"
	span := markup.HighlightSpan{ID: "s1", Start: 3, End: 3 + len(wrapped)}

	t.Run("exact instance", func(t *testing.T) {
		out, fallback := m.StripSpan(src, span)
		assert.False(t, fallback)
		assert.Equal(t, "<p>new</p>", out)
	})

	t.Run("shifted instance found by id", func(t *testing.T) {
		shifted := "<h1>Title</h1>" + src
		out, fallback := m.StripSpan(shifted, span)
		assert.False(t, fallback)
		assert.Equal(t, "<h1>Title</h1><p>new</p>", out)
	})

	t.Run("instance gone strips everything", func(t *testing.T) {
		other := "<p>" + m.Wrap("s9", "left") + "</p>"
		out, fallback := m.StripSpan(other, span)
		assert.True(t, fallback)
		assert.Equal(t, "<p>left</p>", out)
	})

	t.Run("idempotent", func(t *testing.T) {
		once, _ := m.StripSpan(src, span)
		twice, _ := m.StripSpan(once, span)
		assert.Equal(t, once, twice)
	})
}

func TestMarker_Count(t *testing.T) {
	m := markup.Marker{Tag: "span", Attr: "data-hl"}
	src := m.Wrap("a", "1") + m.Wrap("b", "2")

	assert.Equal(t, 2, m.Count(src))
	assert.Equal(t, `<span data-hl="a">1</span><span data-hl="b">2</span>`, src)
}

func TestMarker_Release(t *testing.T) {
	m := markup.DefaultMarker()
	src := "<p>Alpha " + m.Wrap("s1", "beta gamma") + ".</p>"
	at := func(s string) (int, int) {
		i := strings.Index(src, s)
		require.GreaterOrEqual(t, i, 0, s)
		return i, i + len(s)
	}

	t.Run("range cuts into the instance", func(t *testing.T) {
		start, _ := at("Alpha")
		_, end := at("beta")

		out, s, e := m.Release(src, start, end)
		assert.Equal(t, "<p>Alpha beta gamma.</p>", out)
		assert.Equal(t, "Alpha beta", out[s:e])
	})

	t.Run("range starts inside the instance", func(t *testing.T) {
		start, _ := at("gamma")
		_, end := at(".</p>")

		out, s, e := m.Release(src, start, end-len("</p>"))
		assert.Equal(t, "<p>Alpha beta gamma.</p>", out)
		assert.Equal(t, "gamma.", out[s:e])
	})

	t.Run("instance contained whole", func(t *testing.T) {
		out, s, e := m.Release(src, 3, len(src)-len("</p>"))
		assert.Equal(t, src, out)
		assert.Equal(t, 3, s)
		assert.Equal(t, len(src)-len("</p>"), e)
	})

	t.Run("range inside the instance text", func(t *testing.T) {
		start, end := at("gamma")
		out, s, e := m.Release(src, start, end)
		assert.Equal(t, src, out)
		assert.Equal(t, "gamma", out[s:e])
	})
}
