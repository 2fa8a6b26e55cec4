package webhook

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
	"github.com/felixgeelhaar/redline/pkg/storage"
)

func TestDeadLetterStore_AppendAndRead(t *testing.T) {
	repo := storage.NewFilesystemRepository(t.TempDir())
	require.NoError(t, repo.Initialize())
	store, err := OpenDeadLetterStore(repo)
	require.NoError(t, err)

	for _, id := range []string{"s1", "s2"} {
		require.NoError(t, store.Append(DeadLetter{
			Timestamp:    time.Now(),
			WebhookName:  "ats",
			URL:          "https://example.com/hook",
			SuggestionID: id,
			Status:       suggestion.StatusRejected,
			Error:        "connection refused",
			Attempts:     3,
		}))
	}

	entries, err := store.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "s1", entries[0].SuggestionID)
	assert.Equal(t, "s2", entries[1].SuggestionID)
}

func TestDeadLetterStore_ReadAll_MissingFile(t *testing.T) {
	store := NewDeadLetterStore(filepath.Join(t.TempDir(), "nonexistent.jsonl"))

	entries, err := store.ReadAll()
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestDeadLetterStore_Update(t *testing.T) {
	store := NewDeadLetterStore(filepath.Join(t.TempDir(), storage.DeadLetterFile))
	for _, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, store.Append(DeadLetter{WebhookName: "ats", SuggestionID: id}))
	}

	require.NoError(t, store.Update(func(letters []DeadLetter) []DeadLetter {
		assert.Len(t, letters, 3)
		return []DeadLetter{letters[1]}
	}))

	entries, err := store.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "s2", entries[0].SuggestionID)

	require.NoError(t, store.Update(func([]DeadLetter) []DeadLetter { return nil }))
	entries, err = store.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
