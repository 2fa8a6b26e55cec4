package wiring

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/felixgeelhaar/redline/internal/infrastructure/logging"
	"github.com/felixgeelhaar/redline/internal/infrastructure/sse"
	"github.com/felixgeelhaar/redline/internal/infrastructure/watch"
	"github.com/felixgeelhaar/redline/pkg/application"
	"github.com/felixgeelhaar/redline/pkg/domain/events"
	"github.com/felixgeelhaar/redline/pkg/domain/markup"
	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
	"github.com/felixgeelhaar/redline/pkg/highlight"
	"github.com/felixgeelhaar/redline/pkg/storage"
)

// ErrNoDocument is returned when the workspace holds no document.
var ErrNoDocument = errors.New("workspace has no document")

// Session is a review session assembled from a workspace: the live
// document, its highlight scheduler, the suggestion store and the event
// handlers that persist and stream what happens.
type Session struct {
	Workspace  *Workspace
	Info       *storage.Session
	Document   *markup.Document
	Scheduler  *highlight.Scheduler
	Dispatcher *events.EventDispatcher
	Store      *application.SuggestionStore
	Stream     *sse.Handler

	logger zerolog.Logger

	mu             sync.Mutex
	lastSaved      string
	feedbackDigest string
}

// OpenSession loads the workspace under root and replays its feedback and
// persisted decisions into a fresh store. Replay happens before the event
// handlers are attached, so reopening a session journals nothing.
func OpenSession(ctx context.Context, root string) (*Session, error) {
	ws, err := NewWorkspace(root)
	if err != nil {
		return nil, err
	}

	info, err := ws.Repo.LoadSession()
	if err != nil {
		return nil, err
	}
	src, err := ws.Repo.LoadDocument()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoDocument
		}
		return nil, err
	}

	s := &Session{
		Workspace:  ws,
		Info:       info,
		Document:   markup.NewDocument(src),
		Dispatcher: events.NewEventDispatcher(),
		Stream:     sse.NewHandler(logging.Component("sse")),
		logger:     logging.Component("session"),
		lastSaved:  src,
	}
	ctx = logging.WithSessionID(ctx, info.ID)

	cfg := ws.Config
	if cfg.Highlight {
		s.Scheduler = highlight.NewScheduler(s.Document, cfg.Marker(), cfg.HighlightDuration,
			highlight.WithLogger(logging.Component("highlight")),
			highlight.WithClearHook(s.highlightCleared),
		)
	}

	opts := []application.StoreOption{
		application.WithRecorder(ws.recorder(info.ID)),
		application.WithDispatcher(s.Dispatcher),
		application.WithLogger(logging.Component("store")),
		application.WithSeparator(cfg.Separator),
		application.WithSessionID(info.ID),
	}
	if s.Scheduler != nil {
		opts = append(opts, application.WithScheduler(s.Scheduler))
	}
	s.Store = application.NewSuggestionStore(s.Document, opts...)

	if err := s.replay(ctx); err != nil {
		return nil, err
	}

	s.Dispatcher.Register(events.NewLoggingHandler(logging.Component("events")).Registration())
	s.Dispatcher.Register(events.NewJournalHandler(ws.Journal, info.ID).Registration())
	s.Dispatcher.Register(events.NewDocumentSaveHandler(s, s.Document.Markup, logging.Component("document")).Registration())
	s.Dispatcher.Register(s.Stream.Registration())

	return s, nil
}

func (s *Session) replay(ctx context.Context) error {
	repo := s.Workspace.Repo
	if !repo.HasFeedback() {
		return nil
	}

	fb, err := repo.LoadFeedback()
	if err != nil {
		return err
	}
	report, err := s.Store.IntakeFeedback(ctx, fb)
	if err != nil {
		s.logger.Debug().Err(err).Int("refused", len(report.Refused)).Msg("stored feedback has refused records")
	}
	s.setFeedbackDigest(fb)

	decisions, err := repo.LoadDecisions()
	if err != nil {
		return err
	}
	restored := s.Store.Restore(ctx, decisions)
	s.logger.Debug().Ctx(ctx).
		Int("restored", restored.Restored).
		Int("skipped", restored.Skipped).
		Msg("decisions restored")
	return nil
}

// Intake stores fb as the workspace feedback, forgets earlier decisions and
// replaces the batch. The error joins the refused records.
func (s *Session) Intake(ctx context.Context, fb *suggestion.Feedback) (application.IntakeReport, error) {
	repo := s.Workspace.Repo
	if err := repo.SaveFeedback(fb); err != nil {
		return application.IntakeReport{}, err
	}
	return s.intake(ctx, fb)
}

func (s *Session) intake(ctx context.Context, fb *suggestion.Feedback) (application.IntakeReport, error) {
	if err := s.Workspace.Repo.ResetDecisions(); err != nil {
		return application.IntakeReport{}, err
	}
	s.setFeedbackDigest(fb)
	return s.Store.IntakeFeedback(ctx, fb)
}

// SaveDocument writes markup to the workspace. It implements
// events.DocumentSink and remembers what it wrote so that the watcher can
// tell the session's own writes from the host's.
func (s *Session) SaveDocument(markup string) error {
	if err := s.Workspace.Repo.SaveDocument(markup); err != nil {
		return err
	}
	s.mu.Lock()
	s.lastSaved = markup
	s.mu.Unlock()
	return nil
}

// Strip removes every marker instance from the document and saves it. It
// reports how many instances were removed.
func (s *Session) Strip(ctx context.Context) (int, error) {
	marker := s.Workspace.Config.Marker()
	if s.Scheduler != nil {
		s.Scheduler.Flush()
	}

	var removed int
	changed := s.Document.Update(func(current string) (string, bool) {
		removed = marker.Count(current)
		return marker.StripAll(current), removed > 0
	})
	if !changed {
		return 0, nil
	}
	if err := s.SaveDocument(s.Document.Markup()); err != nil {
		return removed, err
	}
	s.logger.Info().Ctx(ctx).Int("removed", removed).Msg("markers stripped")
	return removed, nil
}

// Reload applies a host-side change of a workspace file. It reports whether
// the session changed.
func (s *Session) Reload(ctx context.Context, change watch.ChangeEvent) (bool, error) {
	switch change.Name {
	case storage.DocumentFile:
		return s.reloadDocument(ctx, change.Path)
	case storage.FeedbackFile:
		return s.reloadFeedback(ctx)
	default:
		return false, nil
	}
}

func (s *Session) reloadDocument(ctx context.Context, path string) (bool, error) {
	src, err := s.Workspace.Repo.LoadDocument()
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	own := src == s.lastSaved
	s.mu.Unlock()
	if own || !s.Document.Replace(src) {
		return false, nil
	}

	s.logger.Info().Ctx(ctx).Str("path", path).Int("length", len(src)).Msg("document reloaded")
	s.dispatch(ctx, &events.DocumentReloaded{
		BaseEvent: s.base(events.EventTypeDocumentReloaded, events.AggregateTypeDocument, events.DocumentAggregateID),
		Path:      path,
		Length:    len(src),
	})
	return true, nil
}

func (s *Session) reloadFeedback(ctx context.Context) (bool, error) {
	fb, err := s.Workspace.Repo.LoadFeedback()
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	same := digest(fb) == s.feedbackDigest
	s.mu.Unlock()
	if same {
		return false, nil
	}

	report, err := s.intake(ctx, fb)
	if err != nil {
		s.logger.Warn().Ctx(ctx).Err(err).Int("refused", len(report.Refused)).Msg("reloaded feedback has refused records")
	}
	return true, nil
}

// Watch reloads the document and feedback whenever the host rewrites them.
// It blocks until ctx is cancelled.
func (s *Session) Watch(ctx context.Context) error {
	w, err := watch.NewFSWatcher(watch.DefaultDebounce, func(change watch.ChangeEvent) {
		if _, err := s.Reload(ctx, change); err != nil {
			s.logger.Warn().Ctx(ctx).Err(err).Str("path", change.Path).Msg("reload failed")
		}
	}, watch.WithFilter(watch.Files(storage.DocumentFile, storage.FeedbackFile)), watch.WithLogger(logging.Component("watch")))
	if err != nil {
		return err
	}
	if err := w.Watch(s.Workspace.Repo.Dir()); err != nil {
		return err
	}
	return w.Run(ctx)
}

// Close stops highlight timers and waits for decision notifications. With
// flush set, markers still pending are stripped first.
func (s *Session) Close(flush bool) {
	if flush && s.Scheduler != nil {
		s.Scheduler.Flush()
	}
	s.Store.Close()
}

func (s *Session) highlightCleared(span markup.HighlightSpan, fallback bool) {
	s.dispatch(context.Background(), &events.HighlightCleared{
		BaseEvent:    s.base(events.EventTypeHighlightCleared, events.AggregateTypeDocument, events.DocumentAggregateID),
		SuggestionID: span.ID,
		Fallback:     fallback,
	})
}

func (s *Session) dispatch(ctx context.Context, event events.DomainEvent) {
	if err := s.Dispatcher.Dispatch(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("event_type", event.EventType()).Msg("event handler failed")
	}
}

func (s *Session) base(eventType, aggregateType, aggregateID string) events.BaseEvent {
	b := events.NewBase(eventType, aggregateType, aggregateID)
	b.SessionID = s.Info.ID
	b.DocVersion = s.Document.Version()
	return b
}

func (s *Session) setFeedbackDigest(fb *suggestion.Feedback) {
	d := digest(fb)
	s.mu.Lock()
	s.feedbackDigest = d
	s.mu.Unlock()
}

func digest(fb *suggestion.Feedback) string {
	data, err := json.Marshal(fb)
	if err != nil {
		return fmt.Sprintf("unmarshalable:%p", fb)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
