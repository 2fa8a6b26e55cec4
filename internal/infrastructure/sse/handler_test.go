package sse_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/redline/internal/infrastructure/sse"
	"github.com/felixgeelhaar/redline/pkg/domain/events"
)

func connect(t *testing.T, url string) (*bufio.Reader, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	return bufio.NewReader(resp.Body), func() {
		cancel()
		_ = resp.Body.Close()
	}
}

func readEvent(t *testing.T, r *bufio.Reader) map[string]string {
	t.Helper()
	fields := map[string]string{}
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" {
			return fields
		}
		k, v, _ := strings.Cut(line, ": ")
		fields[k] = v
	}
}

func TestHandler_StreamsDispatchedEvents(t *testing.T) {
	h := sse.NewHandler(zerolog.Nop())
	d := events.NewEventDispatcher()
	d.Register(h.Registration())

	server := httptest.NewServer(h)
	defer server.Close()

	r, closeFn := connect(t, server.URL)
	defer closeFn()
	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 5*time.Millisecond)

	ev := &events.SuggestionAccepted{
		BaseEvent:    events.NewBase(events.EventTypeSuggestionAccepted, events.AggregateTypeSuggestion, "s1"),
		SuggestionID: "s1",
		EditType:     "replace",
		Applied:      true,
	}
	require.NoError(t, d.Dispatch(context.Background(), ev))

	got := readEvent(t, r)
	assert.Equal(t, events.EventTypeSuggestionAccepted, got["event"])
	assert.Equal(t, ev.ID, got["id"])
	assert.Contains(t, got["data"], `"applied":true`)
	assert.Contains(t, got["data"], `"aggregate_id":"s1"`)
}

func TestHandler_TypeFilter(t *testing.T) {
	h := sse.NewHandler(zerolog.Nop())
	server := httptest.NewServer(h)
	defer server.Close()

	r, closeFn := connect(t, server.URL+"?types="+events.EventTypeHighlightCleared)
	defer closeFn()
	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 5*time.Millisecond)

	rejected := events.SuggestionRejected{BaseEvent: events.NewBase(events.EventTypeSuggestionRejected, events.AggregateTypeSuggestion, "s1")}
	cleared := &events.HighlightCleared{
		BaseEvent:    events.NewBase(events.EventTypeHighlightCleared, events.AggregateTypeDocument, events.DocumentAggregateID),
		SuggestionID: "s2",
	}
	require.NoError(t, h.Handle(context.Background(), rejected))
	require.NoError(t, h.Handle(context.Background(), cleared))

	got := readEvent(t, r)
	assert.Equal(t, events.EventTypeHighlightCleared, got["event"])
}

func TestHandler_ClientDisconnect(t *testing.T) {
	h := sse.NewHandler(zerolog.Nop())
	server := httptest.NewServer(h)
	defer server.Close()

	_, closeFn := connect(t, server.URL)
	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 5*time.Millisecond)
	closeFn()
	assert.Eventually(t, func() bool { return h.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHandler_NoClients(t *testing.T) {
	h := sse.NewHandler(zerolog.Nop())
	rec := events.NewBase(events.EventTypeDocumentReloaded, events.AggregateTypeDocument, events.DocumentAggregateID)
	assert.NoError(t, h.Handle(context.Background(), rec))
}
