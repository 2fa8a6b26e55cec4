package suggestion_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		s    suggestion.Suggestion
		ok   bool
	}{
		{"rewrite complete", suggestion.Suggestion{ID: "1", Type: suggestion.EditRewrite, Original: "a", Suggested: "b"}, true},
		{"rewrite without suggested", suggestion.Suggestion{ID: "1", Type: suggestion.EditRewrite, Original: "a"}, false},
		{"replace without original", suggestion.Suggestion{ID: "1", Type: suggestion.EditReplace, Suggested: "b"}, false},
		{"remove complete", suggestion.Suggestion{ID: "1", Type: suggestion.EditRemove, Original: "a"}, true},
		{"remove blank original", suggestion.Suggestion{ID: "1", Type: suggestion.EditRemove, Original: "  "}, false},
		{"add without anchor", suggestion.Suggestion{ID: "1", Type: suggestion.EditAdd, Suggested: "b"}, true},
		{"add without suggested", suggestion.Suggestion{ID: "1", Type: suggestion.EditAdd, Anchor: "a"}, false},
		{"reorder with note", suggestion.Suggestion{ID: "1", Type: suggestion.EditReorder, Note: "move skills up"}, true},
		{"reorder empty", suggestion.Suggestion{ID: "1", Type: suggestion.EditReorder}, false},
		{"unknown type", suggestion.Suggestion{ID: "1", Type: "shuffle", Original: "a", Suggested: "b"}, false},
		{"missing type", suggestion.Suggestion{ID: "1", Original: "a", Suggested: "b"}, false},
		{"missing id", suggestion.Suggestion{Type: suggestion.EditRemove, Original: "a"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := suggestion.Validate(tt.s)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, suggestion.ErrMalformedSuggestion)
		})
	}
}

func TestAdmit(t *testing.T) {
	records := []suggestion.Suggestion{
		{ID: "a", Type: suggestion.EditRemove, Original: "x", Status: suggestion.StatusAccepted, Applied: true},
		{ID: "b", Type: suggestion.EditRewrite, Original: "y"},
		{ID: "a", Type: suggestion.EditRemove, Original: "z"},
		{ID: "c", Type: "teleport"},
		{ID: "d", Type: suggestion.EditAdd, Anchor: "x", Suggested: "new"},
	}

	admitted, refused := suggestion.Admit(records)

	require.Len(t, admitted, 2)
	assert.Equal(t, "a", admitted[0].ID)
	assert.Equal(t, suggestion.StatusPending, admitted[0].Status, "status reset on intake")
	assert.False(t, admitted[0].Applied)
	assert.Equal(t, "d", admitted[1].ID)

	require.Len(t, refused, 3)
	assert.Equal(t, 1, refused[0].Index)
	assert.True(t, errors.Is(refused[0], suggestion.ErrMalformedSuggestion))
	assert.Contains(t, refused[0].Error(), "suggested")

	assert.Equal(t, 2, refused[1].Index)
	assert.True(t, errors.Is(refused[1], suggestion.ErrDuplicateID))

	assert.Equal(t, "c", refused[2].ID)
	assert.True(t, errors.Is(refused[2], suggestion.ErrMalformedSuggestion))
}

func TestAdmit_MalformedRecordClaimsID(t *testing.T) {
	records := []suggestion.Suggestion{
		{ID: "x", Type: suggestion.EditReplace, Original: "old"},
		{ID: "x", Type: suggestion.EditReplace, Original: "old", Suggested: "new"},
		{Type: suggestion.EditRemove, Original: "a"},
		{Type: suggestion.EditRemove, Original: "b"},
	}

	admitted, refused := suggestion.Admit(records)

	assert.Empty(t, admitted)
	require.Len(t, refused, 4)
	assert.True(t, errors.Is(refused[0], suggestion.ErrMalformedSuggestion))
	assert.True(t, errors.Is(refused[1], suggestion.ErrDuplicateID))
	// Blank ids claim nothing; each is malformed on its own.
	assert.True(t, errors.Is(refused[2], suggestion.ErrMalformedSuggestion))
	assert.True(t, errors.Is(refused[3], suggestion.ErrMalformedSuggestion))
}

func TestSuggestion_Target(t *testing.T) {
	add := suggestion.Suggestion{Type: suggestion.EditAdd, Anchor: "anchor", Original: "orig"}
	assert.Equal(t, "anchor", add.Target())

	rewrite := suggestion.Suggestion{Type: suggestion.EditRewrite, Anchor: "anchor", Original: "orig"}
	assert.Equal(t, "orig", rewrite.Target())
}

func TestParseEditType(t *testing.T) {
	for _, et := range suggestion.AllEditTypes() {
		got, err := suggestion.ParseEditType(string(et))
		require.NoError(t, err)
		assert.Equal(t, et, got)
	}

	_, err := suggestion.ParseEditType("Rewrite")
	assert.Error(t, err)
	assert.False(t, suggestion.EditReorder.MutatesDocument())
	assert.True(t, suggestion.EditRemove.MutatesDocument())
}
