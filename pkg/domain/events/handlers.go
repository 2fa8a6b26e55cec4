package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LoggingHandler is a catch-all handler that logs all events.
type LoggingHandler struct {
	logger zerolog.Logger
}

// NewLoggingHandler creates a new LoggingHandler.
func NewLoggingHandler(logger zerolog.Logger) *LoggingHandler {
	return &LoggingHandler{logger: logger}
}

// Handle logs the event details.
func (h *LoggingHandler) Handle(ctx context.Context, event DomainEvent) error {
	h.logger.Debug().
		Str("event_type", event.EventType()).
		Str("aggregate_type", event.AggregateType()).
		Str("aggregate_id", event.AggregateID()).
		Int("doc_version", event.Version()).
		Time("occurred_at", event.OccurredAt()).
		Msg("domain event")
	return nil
}

// Registration returns the HandlerRegistration for this handler.
func (h *LoggingHandler) Registration() HandlerRegistration {
	return HandlerRegistration{
		Name:       "LoggingHandler",
		Handler:    h.Handle,
		EventTypes: []string{Wildcard},
	}
}

// JournalHandler appends every event to an EventStore.
type JournalHandler struct {
	store     EventStore
	sessionID string
}

// NewJournalHandler creates a handler that stamps records with sessionID.
func NewJournalHandler(store EventStore, sessionID string) *JournalHandler {
	return &JournalHandler{store: store, sessionID: sessionID}
}

// Handle appends the event's record.
func (h *JournalHandler) Handle(ctx context.Context, event DomainEvent) error {
	rec := event.Record()
	if rec.SessionID == "" {
		rec.SessionID = h.sessionID
	}
	return h.store.Append(rec)
}

// Registration returns the HandlerRegistration for this handler.
func (h *JournalHandler) Registration() HandlerRegistration {
	return HandlerRegistration{
		Name:       "JournalHandler",
		Handler:    h.Handle,
		EventTypes: []string{Wildcard},
	}
}

// DocumentSink receives the markup after the document changed.
type DocumentSink interface {
	SaveDocument(markup string) error
}

// DocumentSaveHandler writes the live document back to its host whenever an
// event reports a markup change.
type DocumentSaveHandler struct {
	sink   DocumentSink
	source func() string
	logger zerolog.Logger
}

// NewDocumentSaveHandler creates a handler that reads markup from source.
func NewDocumentSaveHandler(sink DocumentSink, source func() string, logger zerolog.Logger) *DocumentSaveHandler {
	return &DocumentSaveHandler{sink: sink, source: source, logger: logger}
}

// Handle saves the current markup.
func (h *DocumentSaveHandler) Handle(ctx context.Context, event DomainEvent) error {
	if err := h.sink.SaveDocument(h.source()); err != nil {
		h.logger.Error().Err(err).Str("event_type", event.EventType()).Msg("failed to save document")
		return err
	}
	return nil
}

// Registration returns the HandlerRegistration for this handler.
func (h *DocumentSaveHandler) Registration() HandlerRegistration {
	return HandlerRegistration{
		Name:       "DocumentSaveHandler",
		Handler:    h.Handle,
		EventTypes: []string{EventTypeDocumentPatched, EventTypeHighlightCleared},
	}
}
