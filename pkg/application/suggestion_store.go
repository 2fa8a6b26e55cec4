package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/felixgeelhaar/redline/pkg/domain/events"
	"github.com/felixgeelhaar/redline/pkg/domain/markup"
	"github.com/felixgeelhaar/redline/pkg/domain/patch"
	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
	"github.com/felixgeelhaar/redline/pkg/highlight"
)

// Outcome describes what an accept did to the document.
type Outcome struct {
	ID        string                `json:"id"`
	Status    suggestion.Status     `json:"status"`
	Applied   bool                  `json:"applied"`
	Appended  bool                  `json:"appended,omitempty"`
	Reason    string                `json:"reason,omitempty"`
	Note      string                `json:"note,omitempty"`
	Version   int                   `json:"version"`
	Highlight *markup.HighlightSpan `json:"highlight,omitempty"`
}

// IntakeReport lists what happened to each record of a batch.
type IntakeReport struct {
	BatchID  string                    `json:"batch_id"`
	Admitted []string                  `json:"admitted"`
	Refused  []*suggestion.IntakeError `json:"-"`
}

// RestoreReport counts the persisted decisions merged into a batch.
type RestoreReport struct {
	Restored int
	// Skipped decisions name unknown ids or invalid statuses.
	Skipped int
}

// Counts tallies a batch by status.
type Counts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Applied  int `json:"applied"`
}

// SuggestionStore holds one review session's suggestion batch and applies
// accepted edits to its document.
//
// Each accept projects the live markup afresh, so concurrent accepts are
// serialised by the store lock and the document lock.
type SuggestionStore struct {
	doc        *markup.Document
	scheduler  *highlight.Scheduler
	recorder   suggestion.StatusRecorder
	dispatcher *events.EventDispatcher
	logger     zerolog.Logger
	separator  string
	sessionID  string

	mu      sync.Mutex
	batchID string
	order   []string
	items   map[string]*suggestion.Suggestion
	summary suggestion.Summary

	inflight sync.WaitGroup
}

// StoreOption configures a SuggestionStore.
type StoreOption func(*SuggestionStore)

// WithRecorder sets the persistence service notified of every decision.
func WithRecorder(r suggestion.StatusRecorder) StoreOption {
	return func(s *SuggestionStore) { s.recorder = r }
}

// WithScheduler enables marker-wrapped edits cleaned up by sch.
func WithScheduler(sch *highlight.Scheduler) StoreOption {
	return func(s *SuggestionStore) { s.scheduler = sch }
}

// WithDispatcher routes domain events through d.
func WithDispatcher(d *events.EventDispatcher) StoreOption {
	return func(s *SuggestionStore) { s.dispatcher = d }
}

// WithLogger sets the store's logger.
func WithLogger(l zerolog.Logger) StoreOption {
	return func(s *SuggestionStore) { s.logger = l }
}

// WithSeparator sets the text placed between an anchor and added text.
func WithSeparator(sep string) StoreOption {
	return func(s *SuggestionStore) { s.separator = sep }
}

// WithSessionID tags events with the review session id.
func WithSessionID(id string) StoreOption {
	return func(s *SuggestionStore) { s.sessionID = id }
}

// NewSuggestionStore creates an empty store editing doc.
func NewSuggestionStore(doc *markup.Document, opts ...StoreOption) *SuggestionStore {
	s := &SuggestionStore{
		doc:    doc,
		logger: zerolog.Nop(),
		items:  make(map[string]*suggestion.Suggestion),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessionID == "" {
		s.sessionID = uuid.New().String()
	}
	return s
}

// Intake replaces the batch with records. Valid records are admitted as
// pending; malformed or duplicate ones are refused and reported. The error
// joins every refusal and is nil when all records were admitted.
func (s *SuggestionStore) Intake(ctx context.Context, records []suggestion.Suggestion) (IntakeReport, error) {
	return s.intake(ctx, records, suggestion.Summary{})
}

// IntakeFeedback intakes the suggestions of fb and keeps its summary.
func (s *SuggestionStore) IntakeFeedback(ctx context.Context, fb *suggestion.Feedback) (IntakeReport, error) {
	if fb == nil {
		return IntakeReport{}, fmt.Errorf("%w: empty payload", suggestion.ErrInvalidFeedback)
	}
	return s.intake(ctx, fb.Suggestions, fb.Summary)
}

func (s *SuggestionStore) intake(ctx context.Context, records []suggestion.Suggestion, summary suggestion.Summary) (IntakeReport, error) {
	admitted, refused := suggestion.Admit(records)

	report := IntakeReport{
		BatchID:  uuid.New().String(),
		Admitted: make([]string, 0, len(admitted)),
		Refused:  refused,
	}

	s.mu.Lock()
	s.batchID = report.BatchID
	s.order = s.order[:0]
	s.items = make(map[string]*suggestion.Suggestion, len(admitted))
	for i := range admitted {
		sug := admitted[i]
		s.order = append(s.order, sug.ID)
		s.items[sug.ID] = &sug
		report.Admitted = append(report.Admitted, sug.ID)
	}
	s.summary = summary
	s.mu.Unlock()

	for _, r := range refused {
		s.logger.Warn().
			Int("index", r.Index).
			Str("suggestion_id", r.ID).
			Str("reason", r.Reason).
			Msg("suggestion refused at intake")
	}
	s.logger.Info().
		Str("batch_id", report.BatchID).
		Int("admitted", len(admitted)).
		Int("refused", len(refused)).
		Msg("batch intaken")

	s.dispatch(ctx, &events.BatchIntaken{
		BaseEvent: s.base(events.EventTypeBatchIntaken, events.AggregateTypeBatch, report.BatchID),
		Admitted:  len(admitted),
		Refused:   len(refused),
		Score:     summary.Score,
		IDs:       report.Admitted,
	})

	if len(refused) == 0 {
		return report, nil
	}
	errs := make([]error, len(refused))
	for i, r := range refused {
		errs[i] = r
	}
	return report, errors.Join(errs...)
}

// Restore merges persisted decisions into a freshly intaken batch. Only
// pending suggestions take a restored status; the document is not touched
// since it already carries the edits that were applied before.
func (s *SuggestionStore) Restore(ctx context.Context, decisions map[string]suggestion.Decision) RestoreReport {
	var report RestoreReport

	s.mu.Lock()
	for id, d := range decisions {
		sug, ok := s.items[id]
		if !ok || !d.Status.IsValid() || !sug.Status.IsPending() {
			report.Skipped++
			continue
		}
		sug.Status = d.Status
		sug.Applied = d.Status == suggestion.StatusAccepted && d.Applied
		report.Restored++
	}
	batchID := s.batchID
	s.mu.Unlock()

	if report.Restored > 0 || report.Skipped > 0 {
		s.dispatch(ctx, &events.StatusRestored{
			BaseEvent: s.base(events.EventTypeStatusRestored, events.AggregateTypeBatch, batchID),
			Restored:  report.Restored,
			Skipped:   report.Skipped,
		})
	}
	return report
}

// RestoreStatuses is Restore for callers that only persisted statuses.
func (s *SuggestionStore) RestoreStatuses(ctx context.Context, statuses map[string]suggestion.Status) RestoreReport {
	decisions := make(map[string]suggestion.Decision, len(statuses))
	for id, st := range statuses {
		decisions[id] = suggestion.Decision{Status: st}
	}
	return s.Restore(ctx, decisions)
}

// Accept applies the suggestion's edit and marks it accepted. A target that
// can no longer be located still accepts the suggestion, with Applied false
// and the reason in the outcome. Errors are ErrNotFound and
// ErrInvalidTransition.
func (s *SuggestionStore) Accept(ctx context.Context, id string) (Outcome, error) {
	s.mu.Lock()
	sug, err := s.transition(id, suggestion.EventAccept)
	if err != nil {
		s.mu.Unlock()
		return Outcome{}, err
	}

	opts := patch.Options{Separator: s.separator}
	if s.scheduler != nil {
		m := s.scheduler.Marker()
		opts.Marker = &m
	}

	var res patch.Result
	changed := s.doc.Update(func(current string) (string, bool) {
		res = patch.Run(current, patch.FromSuggestion(*sug), opts)
		return res.Markup, res.Applied
	})

	sug.Status = suggestion.StatusAccepted
	sug.Applied = res.Applied
	version := s.doc.Version()
	s.mu.Unlock()

	out := Outcome{
		ID:       id,
		Status:   suggestion.StatusAccepted,
		Applied:  res.Applied,
		Appended: res.Appended,
		Reason:   res.Reason,
		Note:     res.Note,
		Version:  version,
	}

	if changed && res.Highlight != nil && s.scheduler != nil {
		span := s.scheduler.Schedule(*res.Highlight)
		out.Highlight = &span
	}

	ev := s.logger.Info()
	if !res.Applied {
		ev = s.logger.Warn()
	}
	ev.Str("suggestion_id", id).
		Str("edit_type", sug.Type.String()).
		Bool("applied", res.Applied).
		Str("reason", res.Reason).
		Msg("suggestion accepted")

	s.notify(ctx, id, suggestion.Decision{Status: suggestion.StatusAccepted, Applied: res.Applied, DecidedAt: time.Now().UTC()})

	s.dispatch(ctx, &events.SuggestionAccepted{
		BaseEvent:    s.base(events.EventTypeSuggestionAccepted, events.AggregateTypeSuggestion, id),
		SuggestionID: id,
		EditType:     sug.Type.String(),
		Applied:      res.Applied,
		Appended:     res.Appended,
		Reason:       res.Reason,
		Note:         res.Note,
	})
	if changed {
		s.dispatch(ctx, &events.DocumentPatched{
			BaseEvent:    s.base(events.EventTypeDocumentPatched, events.AggregateTypeDocument, events.DocumentAggregateID),
			SuggestionID: id,
			Length:       s.doc.Len(),
			Highlighted:  out.Highlight != nil,
		})
	}

	return out, nil
}

// Reject marks the suggestion rejected. The document is never touched.
func (s *SuggestionStore) Reject(ctx context.Context, id string) error {
	s.mu.Lock()
	sug, err := s.transition(id, suggestion.EventReject)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	sug.Status = suggestion.StatusRejected
	s.mu.Unlock()

	s.logger.Info().Str("suggestion_id", id).Msg("suggestion rejected")

	s.notify(ctx, id, suggestion.Decision{Status: suggestion.StatusRejected, DecidedAt: time.Now().UTC()})
	s.dispatch(ctx, &events.SuggestionRejected{
		BaseEvent:    s.base(events.EventTypeSuggestionRejected, events.AggregateTypeSuggestion, id),
		SuggestionID: id,
	})
	return nil
}

// transition checks that event may be applied to id. Callers hold s.mu.
func (s *SuggestionStore) transition(id, event string) (*suggestion.Suggestion, error) {
	sug, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", suggestion.ErrNotFound, id)
	}

	fsm, err := suggestion.NewStatusMachine(sug.Status, id)
	if err != nil {
		return nil, err
	}
	if err := fsm.Transition(event); err != nil {
		return nil, err
	}
	return sug, nil
}

// Get returns a copy of the suggestion with the given id.
func (s *SuggestionStore) Get(id string) (suggestion.Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sug, ok := s.items[id]
	if !ok {
		return suggestion.Suggestion{}, fmt.Errorf("%w: %s", suggestion.ErrNotFound, id)
	}
	return *sug, nil
}

// List returns copies of every suggestion in intake order.
func (s *SuggestionStore) List() []suggestion.Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]suggestion.Suggestion, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.items[id])
	}
	return out
}

// Counts tallies the batch.
func (s *SuggestionStore) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := Counts{Total: len(s.items)}
	for _, sug := range s.items {
		switch sug.Status {
		case suggestion.StatusPending:
			c.Pending++
		case suggestion.StatusAccepted:
			c.Accepted++
		case suggestion.StatusRejected:
			c.Rejected++
		}
		if sug.Applied {
			c.Applied++
		}
	}
	return c
}

// Summary returns the overall assessment that came with the batch.
func (s *SuggestionStore) Summary() suggestion.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// BatchID returns the id of the current batch.
func (s *SuggestionStore) BatchID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batchID
}

// SessionID returns the review session id.
func (s *SuggestionStore) SessionID() string {
	return s.sessionID
}

// Document returns the document the store edits.
func (s *SuggestionStore) Document() *markup.Document {
	return s.doc
}

// Scheduler returns the highlight scheduler, or nil when highlighting is off.
func (s *SuggestionStore) Scheduler() *highlight.Scheduler {
	return s.scheduler
}

// Wait blocks until every persistence notification has finished.
func (s *SuggestionStore) Wait() {
	s.inflight.Wait()
}

// Close stops highlight timers and waits for in-flight notifications.
// Markers still in the document stay; flush the scheduler first to remove
// them.
func (s *SuggestionStore) Close() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.Wait()
}

// notify records d off the caller's path. A failure is logged and never
// undoes the local decision.
func (s *SuggestionStore) notify(ctx context.Context, id string, d suggestion.Decision) {
	if s.recorder == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := suggestion.RecordDecision(ctx, s.recorder, id, d); err != nil {
			s.logger.Warn().Err(err).
				Str("suggestion_id", id).
				Str("status", d.Status.String()).
				Msg("failed to record decision")
		}
	}()
}

func (s *SuggestionStore) dispatch(ctx context.Context, event events.DomainEvent) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("event_type", event.EventType()).Msg("event handler failed")
	}
}

func (s *SuggestionStore) base(eventType, aggregateType, aggregateID string) events.BaseEvent {
	b := events.NewBase(eventType, aggregateType, aggregateID)
	b.SessionID = s.sessionID
	b.DocVersion = s.doc.Version()
	return b
}
