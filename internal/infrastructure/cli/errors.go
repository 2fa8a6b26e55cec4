package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/felixgeelhaar/redline/internal/infrastructure/config"
	"github.com/felixgeelhaar/redline/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
	"github.com/felixgeelhaar/redline/pkg/storage"
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// MapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	var transErr *suggestion.TransitionError
	if errors.As(err, &transErr) {
		return NewCLIError(
			"suggestion already decided",
			fmt.Sprintf("Suggestion '%s' is '%s'; check its status with 'redline list'", transErr.SuggestionID, transErr.From),
			err,
		)
	}

	switch {
	case errors.Is(err, storage.ErrNotInitialized):
		return NewCLIError("no redline workspace found", "Run 'redline init <document.html>' first", err)
	case errors.Is(err, wiring.ErrAlreadyInitialized):
		return NewCLIError("workspace already initialized", "Pass --force to replace the document", err)
	case errors.Is(err, wiring.ErrNoDocument):
		return NewCLIError("workspace has no document", "Run 'redline init --force <document.html>'", err)
	case errors.Is(err, suggestion.ErrNotFound):
		return NewCLIError("suggestion not found", "Run 'redline list' to see the current batch", err)
	case errors.Is(err, suggestion.ErrInvalidTransition):
		return NewCLIError("suggestion already decided", "Run 'redline list' to see its status", err)
	case errors.Is(err, suggestion.ErrInvalidFeedback):
		return NewCLIError("feedback could not be read", "Run 'redline doctor' or check the payload against 'redline schema'", err)
	case errors.Is(err, config.ErrInvalidConfig):
		return NewCLIError("invalid configuration", "Fix .redline/config.yaml and retry", err)
	}

	return err
}

// PrintError writes err and, for CLIErrors, its hint.
func PrintError(w io.Writer, err error) {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		_, _ = fmt.Fprintf(w, "Error: %s\n", cliErr.Error())
		if cliErr.Hint != "" {
			_, _ = fmt.Fprintf(w, "Hint: %s\n", cliErr.Hint)
		}
		return
	}
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) && cliErr.ExitCode != 0 {
		return cliErr.ExitCode
	}
	return 1
}
