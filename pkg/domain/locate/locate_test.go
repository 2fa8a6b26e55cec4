package locate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/redline/pkg/domain/locate"
	"github.com/felixgeelhaar/redline/pkg/domain/markup"
)

func TestLocate_ExactSubstrings(t *testing.T) {
	text := markup.Project("<h1>Jane Doe</h1><p>Built scalable systems. Led a team of 5.</p>").Text

	// every substring that is present verbatim is found at a span holding it
	for s := 0; s < len(text); s++ {
		for e := s + 1; e <= len(text); e++ {
			sub := text[s:e]
			if sub == "" || locate.Normalize(sub) == "" {
				continue
			}
			m := locate.Locate(text, sub)
			require.True(t, m.Found, "substring %q", sub)
			assert.Equal(t, sub, text[m.Start:m.End])
		}
	}
}

func TestLocate_FirstOccurrenceWins(t *testing.T) {
	text := "fix bug. fix bug. fix bug."

	m := locate.Locate(text, "fix bug")
	require.True(t, m.Found)
	assert.Equal(t, 0, m.Start)
	assert.Equal(t, 7, m.End)

	m = locate.Locate("a  fix\nbug, fix bug", "fix bug")
	require.True(t, m.Found)
	assert.Equal(t, 12, m.Start, "exact path wins over an earlier whitespace-drifted occurrence")
}

func TestLocate_WhitespaceDrift(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		target string
	}{
		{"double space in document", "Built  scalable systems.", "Built scalable systems."},
		{"newline in document", "Built\nscalable systems.", "Built scalable systems."},
		{"double space in target", "Built scalable systems.", "Built  scalable   systems."},
		{"newline in target", "Built scalable systems.", "Built\nscalable systems."},
		{"surrounding whitespace in target", "Built scalable systems.", "  Built scalable systems.\n"},
		{"tabs", "Built\tscalable\t\tsystems.", "Built scalable systems."},
		{"no-break space", "Built\u00a0scalable systems.", "Built scalable systems."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := locate.Locate(tt.text, tt.target)
			require.True(t, m.Found)
			assert.Equal(t, locate.Normalize(tt.target), locate.Normalize(m.In(tt.text)))
		})
	}
}

func TestLocate_SpecialCharactersAreLiteral(t *testing.T) {
	text := "Cut costs by 30% (USD $1.2M) [Q3]*"

	m := locate.Locate(text, "30%  (USD $1.2M) [Q3]*")
	require.True(t, m.Found)
	assert.Equal(t, "30% (USD $1.2M) [Q3]*", m.In(text))

	assert.False(t, locate.Locate("a.c", "a.b").Found)
	assert.False(t, locate.Locate("abc", "a c").Found)
}

func TestLocate_NotFound(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		target string
	}{
		{"empty target", "anything", ""},
		{"whitespace target", "anything", "   \n"},
		{"absent", "Built scalable systems.", "Designed resilient systems."},
		{"paraphrase is not matched", "Built scalable systems.", "Built scaleable systems."},
		{"empty text", "", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := locate.Locate(tt.text, tt.target)
			assert.False(t, m.Found)
			assert.Equal(t, locate.NotFound, m)
			assert.Empty(t, m.In(tt.text))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a b c", locate.Normalize("  a \n\t b  c  "))
	assert.Equal(t, "", locate.Normalize(" \n "))
}

func TestPattern(t *testing.T) {
	re, err := locate.Pattern("a+b  c")
	require.NoError(t, err)
	assert.True(t, re.MatchString("a+b \n c"))
	assert.False(t, re.MatchString("aab c"))
}
