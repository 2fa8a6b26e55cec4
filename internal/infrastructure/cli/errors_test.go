package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/redline/internal/infrastructure/config"
	"github.com/felixgeelhaar/redline/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
	"github.com/felixgeelhaar/redline/pkg/storage"
)

func TestCLIError(t *testing.T) {
	t.Run("Error with cause", func(t *testing.T) {
		cause := errors.New("root cause")
		e := NewCLIError("something failed", "try this", cause)
		assert.Equal(t, "something failed: root cause", e.Error())
		assert.Equal(t, 1, e.ExitCode)
	})

	t.Run("Error without cause", func(t *testing.T) {
		e := NewCLIError("something failed", "try this", nil)
		assert.Equal(t, "something failed", e.Error())
	})

	t.Run("Unwrap returns cause", func(t *testing.T) {
		cause := errors.New("root")
		assert.ErrorIs(t, NewCLIError("msg", "", cause), cause)
	})
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantHint string
		wantCLI  bool
	}{
		{
			name: "nil returns nil",
			err:  nil,
		},
		{
			name:     "ErrNotInitialized",
			err:      storage.ErrNotInitialized,
			wantHint: "Run 'redline init <document.html>' first",
			wantCLI:  true,
		},
		{
			name:     "ErrAlreadyInitialized",
			err:      wiring.ErrAlreadyInitialized,
			wantHint: "Pass --force to replace the document",
			wantCLI:  true,
		},
		{
			name:     "ErrNoDocument",
			err:      wiring.ErrNoDocument,
			wantHint: "Run 'redline init --force <document.html>'",
			wantCLI:  true,
		},
		{
			name:     "wrapped ErrNotFound",
			err:      fmt.Errorf("accept: %w", suggestion.ErrNotFound),
			wantHint: "Run 'redline list' to see the current batch",
			wantCLI:  true,
		},
		{
			name:     "TransitionError",
			err:      &suggestion.TransitionError{SuggestionID: "s1", From: suggestion.StatusRejected, Event: "accept"},
			wantHint: "Suggestion 's1' is 'rejected'; check its status with 'redline list'",
			wantCLI:  true,
		},
		{
			name:     "ErrInvalidFeedback",
			err:      fmt.Errorf("%w: bad json", suggestion.ErrInvalidFeedback),
			wantHint: "Run 'redline doctor' or check the payload against 'redline schema'",
			wantCLI:  true,
		},
		{
			name:     "ErrInvalidConfig",
			err:      fmt.Errorf("%w: marker_tag", config.ErrInvalidConfig),
			wantHint: "Fix .redline/config.yaml and retry",
			wantCLI:  true,
		},
		{
			name: "unmapped error passes through",
			err:  errors.New("something else"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MapError(tt.err)
			if tt.err == nil {
				assert.NoError(t, result)
				return
			}
			if !tt.wantCLI {
				assert.Same(t, tt.err, result)
				return
			}
			var cliErr *CLIError
			require.ErrorAs(t, result, &cliErr)
			assert.Equal(t, tt.wantHint, cliErr.Hint)
			assert.ErrorIs(t, cliErr, tt.err)
		})
	}
}

func TestMapError_KeepsCLIError(t *testing.T) {
	wrapped := fmt.Errorf("wrapped: %w", NewCLIError("custom", "hint", storage.ErrNotInitialized))
	mapped := MapError(wrapped)
	assert.Equal(t, wrapped, mapped)

	var cliErr *CLIError
	require.ErrorAs(t, mapped, &cliErr)
	assert.Equal(t, "hint", cliErr.Hint)
}

func TestPrintErrorAndExitCode(t *testing.T) {
	var buf bytes.Buffer
	err := MapError(storage.ErrNotInitialized)
	PrintError(&buf, err)
	assert.Contains(t, buf.String(), "Error: no redline workspace found")
	assert.Contains(t, buf.String(), "Hint: Run 'redline init <document.html>' first")
	assert.Equal(t, 1, ExitCode(err))

	buf.Reset()
	PrintError(&buf, errors.New("plain"))
	assert.Equal(t, "Error: plain\n", buf.String())
	assert.Zero(t, ExitCode(nil))
}
