package events

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBase(t *testing.T) {
	a := NewBase(EventTypeSuggestionRejected, AggregateTypeSuggestion, "s1")
	b := NewBase(EventTypeSuggestionRejected, AggregateTypeSuggestion, "s1")

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "s1", a.AggregateID())
	assert.Equal(t, AggregateTypeSuggestion, a.AggregateType())
	assert.False(t, a.OccurredAt().IsZero())
}

func TestRecord_CopiesTypedFields(t *testing.T) {
	e := &SuggestionAccepted{
		BaseEvent:    NewBase(EventTypeSuggestionAccepted, AggregateTypeSuggestion, "s1"),
		SuggestionID: "s1",
		EditType:     "reorder",
		Reason:       "reorder must be applied manually",
		Note:         "move skills up",
	}

	rec := e.Record()
	assert.Equal(t, EventTypeSuggestionAccepted, rec.Type)
	assert.Equal(t, false, rec.Metadata["applied"])
	assert.Equal(t, "move skills up", rec.Metadata["note"])
	assert.NotContains(t, rec.Metadata, "appended")
	assert.Nil(t, e.Metadata, "record does not alias the event")
}

func TestRecord_EventWithoutExtraFields(t *testing.T) {
	var e DomainEvent = &SuggestionRejected{
		BaseEvent:    NewBase(EventTypeSuggestionRejected, AggregateTypeSuggestion, "s2"),
		SuggestionID: "s2",
	}

	rec := e.Record()
	assert.Equal(t, "s2", rec.AggregateID_)
	assert.Empty(t, rec.Metadata)
}

func TestVerifyChain(t *testing.T) {
	var records []*BaseEvent
	prev := ""
	for _, typ := range []string{EventTypeBatchIntaken, EventTypeSuggestionAccepted, EventTypeDocumentPatched} {
		rec := NewBase(typ, AggregateTypeDocument, DocumentAggregateID)
		rec.Metadata = map[string]any{"n": len(records)}
		rec.PrevHash = prev
		rec.Hash = rec.CalculateHash()
		prev = rec.Hash
		records = append(records, &rec)
	}

	assert.Equal(t, -1, VerifyChain(records))

	records[1].Metadata["n"] = 42
	assert.Equal(t, 1, VerifyChain(records))
}

type memStore struct {
	records []*BaseEvent
	err     error
}

func (m *memStore) Append(rec *BaseEvent) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memStore) LoadAll() ([]*BaseEvent, error) { return m.records, nil }

func TestJournalHandler(t *testing.T) {
	store := &memStore{}
	d := NewEventDispatcher()
	d.Register(NewJournalHandler(store, "session-1").Registration())

	require.NoError(t, d.Dispatch(context.Background(), &HighlightCleared{
		BaseEvent:    NewBase(EventTypeHighlightCleared, AggregateTypeDocument, DocumentAggregateID),
		SuggestionID: "s1",
		Fallback:     true,
	}))

	require.Len(t, store.records, 1)
	assert.Equal(t, "session-1", store.records[0].SessionID)
	assert.Equal(t, true, store.records[0].Metadata["fallback"])

	store.err = errors.New("disk full")
	assert.Error(t, d.Dispatch(context.Background(), newEvent(EventTypeBatchIntaken)))
}

func TestLoggingHandler(t *testing.T) {
	var buf bytes.Buffer
	h := NewLoggingHandler(zerolog.New(&buf).Level(zerolog.DebugLevel))

	require.NoError(t, h.Handle(context.Background(), newEvent(EventTypeSuggestionAccepted)))
	assert.Contains(t, buf.String(), `"event_type":"suggestion.accepted"`)
	assert.Equal(t, []string{Wildcard}, h.Registration().EventTypes)
}

type sinkFunc func(string) error

func (f sinkFunc) SaveDocument(markup string) error { return f(markup) }

func TestDocumentSaveHandler(t *testing.T) {
	var saved []string
	h := NewDocumentSaveHandler(sinkFunc(func(m string) error {
		saved = append(saved, m)
		return nil
	}), func() string { return "<p>live</p>" }, zerolog.Nop())

	d := NewEventDispatcher()
	d.Register(h.Registration())

	require.NoError(t, d.Dispatch(context.Background(), newEvent(EventTypeDocumentPatched)))
	require.NoError(t, d.Dispatch(context.Background(), newEvent(EventTypeSuggestionRejected)))
	require.NoError(t, d.Dispatch(context.Background(), newEvent(EventTypeHighlightCleared)))

	assert.Equal(t, []string{"<p>live</p>", "<p>live</p>"}, saved)
}
