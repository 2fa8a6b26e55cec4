// Package highlight removes the transient markers that flag freshly patched
// text once their display time is over.
package highlight

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/felixgeelhaar/redline/pkg/domain/markup"
)

// DefaultDuration is how long a marker stays in the document.
const DefaultDuration = 3 * time.Second

// ClearHook is called after a cleanup changed the document.
type ClearHook func(span markup.HighlightSpan, fallback bool)

// Scheduler arms one cleanup timer per suggestion. Cleanups run against the
// live document under its lock, so they may fire while other edits happen.
type Scheduler struct {
	doc      *markup.Document
	marker   markup.Marker
	duration time.Duration
	logger   zerolog.Logger
	onClear  ClearHook
	now      func() time.Time

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]markup.HighlightSpan
	// cleared holds ids whose cleanup already ran, until they are
	// scheduled again.
	cleared map[string]struct{}
	stopped bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithClearHook registers fn to run after each cleanup that changed markup.
func WithClearHook(fn ClearHook) Option {
	return func(s *Scheduler) { s.onClear = fn }
}

// WithClock overrides the clock used to stamp expiries.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler creates a scheduler for doc. A non-positive duration falls
// back to DefaultDuration.
func NewScheduler(doc *markup.Document, marker markup.Marker, duration time.Duration, opts ...Option) *Scheduler {
	if duration <= 0 {
		duration = DefaultDuration
	}
	s := &Scheduler{
		doc:      doc,
		marker:   marker,
		duration: duration,
		logger:   zerolog.Nop(),
		now:      time.Now,
		timers:   make(map[string]*time.Timer),
		pending:  make(map[string]markup.HighlightSpan),
		cleared:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Marker returns the marker the scheduler strips.
func (s *Scheduler) Marker() markup.Marker {
	return s.marker
}

// Duration returns the display time of a marker.
func (s *Scheduler) Duration() time.Duration {
	return s.duration
}

// Schedule arms the cleanup of span and returns it stamped with its expiry.
// Scheduling an id that is already pending replaces the earlier timer.
func (s *Scheduler) Schedule(span markup.HighlightSpan) markup.HighlightSpan {
	span.Expiry = s.now().Add(s.duration)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return span
	}
	if t, ok := s.timers[span.ID]; ok {
		t.Stop()
	}
	delete(s.cleared, span.ID)
	s.pending[span.ID] = span
	s.timers[span.ID] = time.AfterFunc(s.duration, func() { s.Cleanup(span) })

	s.logger.Debug().
		Str("suggestion_id", span.ID).
		Time("expiry", span.Expiry).
		Msg("highlight scheduled")
	return span
}

// Cleanup strips the marker instance described by span, keeping its text.
// When that instance is gone it strips every marker still present. Only the
// first cleanup of an id does anything: later calls leave the document and
// other suggestions' markers alone until the id is scheduled again.
// It reports whether the document changed.
func (s *Scheduler) Cleanup(span markup.HighlightSpan) bool {
	if !s.retire(span.ID) {
		return false
	}

	var fallback bool
	changed := s.doc.Update(func(current string) (string, bool) {
		if !s.marker.Contains(current) {
			return current, false
		}
		var out string
		out, fallback = s.marker.StripSpan(current, span)
		return out, true
	})

	if !changed {
		return false
	}

	ev := s.logger.Debug()
	if fallback {
		ev = s.logger.Warn()
	}
	ev.Str("suggestion_id", span.ID).
		Bool("fallback", fallback).
		Msg("highlight cleared")

	if s.onClear != nil {
		s.onClear(span, fallback)
	}
	return true
}

// Flush runs every pending cleanup now.
func (s *Scheduler) Flush() int {
	s.mu.Lock()
	spans := make([]markup.HighlightSpan, 0, len(s.pending))
	for _, span := range s.pending {
		spans = append(spans, span)
	}
	s.mu.Unlock()

	cleared := 0
	for _, span := range spans {
		if s.Cleanup(span) {
			cleared++
		}
	}
	return cleared
}

// Pending returns the spans whose cleanup has not run yet.
func (s *Scheduler) Pending() []markup.HighlightSpan {
	s.mu.Lock()
	defer s.mu.Unlock()

	spans := make([]markup.HighlightSpan, 0, len(s.pending))
	for _, span := range s.pending {
		spans = append(spans, span)
	}
	return spans
}

// Stop cancels pending timers. Markers they would have removed stay in the
// document; call Flush first to strip them.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.pending = make(map[string]markup.HighlightSpan)
	s.stopped = true
}

// retire stops the timer of id and marks it cleared. It reports false when
// id was already cleared.
func (s *Scheduler) retire(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.cleared[id]; done {
		return false
	}
	s.cleared[id] = struct{}{}
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	delete(s.pending, id)
	return true
}
