package suggestion

import (
	"errors"
	"fmt"
)

// Domain errors for suggestion intake and review.
var (
	// ErrNotFound indicates the suggestion id is not part of the batch.
	ErrNotFound = errors.New("suggestion not found")

	// ErrInvalidTransition indicates an accept or reject on a decided suggestion.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicateID indicates a batch repeats a suggestion id.
	ErrDuplicateID = errors.New("duplicate suggestion id")

	// ErrMalformedSuggestion indicates a record misses fields its type requires.
	ErrMalformedSuggestion = errors.New("malformed suggestion")

	// ErrInvalidFeedback indicates the feedback payload itself could not be read.
	ErrInvalidFeedback = errors.New("invalid feedback payload")
)

// TransitionError provides details about a refused status transition.
type TransitionError struct {
	SuggestionID string
	From         Status
	Event        string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s suggestion %s: already %s", e.Event, e.SuggestionID, e.From)
}

// Is allows errors.Is to match ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// IntakeError describes one record refused at batch intake.
type IntakeError struct {
	Index  int
	ID     string
	Reason string
	Err    error
}

func (e *IntakeError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("suggestion #%d: %v: %s", e.Index, e.Err, e.Reason)
	}
	return fmt.Sprintf("suggestion #%d (%s): %v: %s", e.Index, e.ID, e.Err, e.Reason)
}

func (e *IntakeError) Unwrap() error {
	return e.Err
}
