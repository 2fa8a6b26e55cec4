// Package suggestion models externally generated edit proposals and their
// accept/reject lifecycle.
package suggestion

import (
	"context"
	"errors"
	"time"
)

// Suggestion is one proposed edit to the document.
type Suggestion struct {
	ID        string   `json:"id"`
	Category  string   `json:"category,omitempty"`
	Type      EditType `json:"type"`
	Anchor    string   `json:"anchor,omitempty"`
	Original  string   `json:"original,omitempty"`
	Suggested string   `json:"suggested,omitempty"`
	Severity  string   `json:"severity,omitempty"`
	Note      string   `json:"note,omitempty"`
	Status    Status   `json:"status,omitempty"`
	Applied   bool     `json:"applied,omitempty"`
}

// Target returns the text the edit must locate in the document.
func (s Suggestion) Target() string {
	if s.Type.LocatesAnchor() {
		return s.Anchor
	}
	return s.Original
}

// StatusRecorder durably records review decisions. Implementations are
// called off the edit path; a failure never undoes a local decision.
type StatusRecorder interface {
	Record(ctx context.Context, id string, status Status) error
}

// RecorderFunc adapts a function to StatusRecorder.
type RecorderFunc func(ctx context.Context, id string, status Status) error

func (f RecorderFunc) Record(ctx context.Context, id string, status Status) error {
	return f(ctx, id, status)
}

// Recorders fans a decision out to several recorders and joins their errors.
type Recorders []StatusRecorder

func (rs Recorders) Record(ctx context.Context, id string, status Status) error {
	var errs []error
	for _, r := range rs {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, id, status); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Decision is a review decision as kept by a persistence service.
type Decision struct {
	Status    Status    `json:"status"`
	Applied   bool      `json:"applied,omitempty"`
	DecidedAt time.Time `json:"decided_at,omitempty"`
}

// DecisionRecorder is implemented by recorders that also keep whether an
// accepted edit could be applied.
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, id string, d Decision) error
}

// RecordDecision hands d to r, using RecordDecision when r supports it.
func RecordDecision(ctx context.Context, r StatusRecorder, id string, d Decision) error {
	if dr, ok := r.(DecisionRecorder); ok {
		return dr.RecordDecision(ctx, id, d)
	}
	return r.Record(ctx, id, d.Status)
}

func (rs Recorders) RecordDecision(ctx context.Context, id string, d Decision) error {
	var errs []error
	for _, r := range rs {
		if r == nil {
			continue
		}
		if err := RecordDecision(ctx, r, id, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
