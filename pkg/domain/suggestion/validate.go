package suggestion

import (
	"fmt"
	"strings"
)

// Validate checks that s carries a supported type and every field that type
// needs. Failures wrap ErrMalformedSuggestion.
func Validate(s Suggestion) error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrMalformedSuggestion)
	}
	if !s.Type.IsValid() {
		return fmt.Errorf("%w: unsupported type %q", ErrMalformedSuggestion, s.Type)
	}

	var missing []string
	require := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}

	switch s.Type {
	case EditRewrite, EditReplace:
		require("original", s.Original)
		require("suggested", s.Suggested)
	case EditRemove:
		require("original", s.Original)
	case EditAdd:
		// A missing anchor falls back to appending at the end.
		require("suggested", s.Suggested)
	case EditReorder:
		if strings.TrimSpace(s.Original) == "" && strings.TrimSpace(s.Note) == "" {
			missing = append(missing, "original or note")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s requires %s", ErrMalformedSuggestion, s.Type, strings.Join(missing, ", "))
	}
	return nil
}

// Admit validates records in order. Valid records are returned reset to
// pending and unapplied; every refused record yields an *IntakeError. The
// first record carrying an id claims it, even when that record is itself
// refused as malformed, and later repeats are refused with ErrDuplicateID.
func Admit(records []Suggestion) ([]Suggestion, []*IntakeError) {
	admitted := make([]Suggestion, 0, len(records))
	var refused []*IntakeError
	seen := make(map[string]bool, len(records))

	for i, rec := range records {
		if seen[rec.ID] {
			refused = append(refused, &IntakeError{
				Index:  i,
				ID:     rec.ID,
				Reason: "id already used earlier in the batch",
				Err:    ErrDuplicateID,
			})
			continue
		}
		if strings.TrimSpace(rec.ID) != "" {
			seen[rec.ID] = true
		}

		if err := Validate(rec); err != nil {
			refused = append(refused, &IntakeError{
				Index:  i,
				ID:     rec.ID,
				Reason: strings.TrimPrefix(err.Error(), ErrMalformedSuggestion.Error()+": "),
				Err:    ErrMalformedSuggestion,
			})
			continue
		}

		rec.Status = StatusPending
		rec.Applied = false
		admitted = append(admitted, rec)
	}

	return admitted, refused
}
