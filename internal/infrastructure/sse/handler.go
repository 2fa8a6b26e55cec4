// Package sse streams review events to editor hosts via Server-Sent Events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/felixgeelhaar/redline/pkg/domain/events"
)

const clientBuffer = 64

// Handler fans dispatched domain events out to connected SSE clients. It is
// registered on an events.EventDispatcher as a wildcard handler.
type Handler struct {
	mu      sync.RWMutex
	clients map[chan *events.BaseEvent]struct{}
	logger  zerolog.Logger
}

// NewHandler creates a handler with no clients.
func NewHandler(logger zerolog.Logger) *Handler {
	return &Handler{
		clients: make(map[chan *events.BaseEvent]struct{}),
		logger:  logger,
	}
}

// Handle broadcasts event to every client. Slow clients drop events.
func (h *Handler) Handle(_ context.Context, event events.DomainEvent) error {
	rec := event.Record()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- rec:
		default:
			h.logger.Warn().Str("event_type", rec.Type).Msg("sse client too slow, event dropped")
		}
	}
	return nil
}

// Registration subscribes the handler to every event type.
func (h *Handler) Registration() events.HandlerRegistration {
	return events.HandlerRegistration{
		Name:       "sse",
		Handler:    h.Handle,
		EventTypes: []string{events.Wildcard},
	}
}

// Clients returns the number of connected clients.
func (h *Handler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles SSE connections. The types query parameter limits the
// stream to a comma separated list of event types.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	typeFilter := make(map[string]bool)
	if types := r.URL.Query().Get("types"); types != "" {
		for _, t := range strings.Split(types, ",") {
			typeFilter[strings.TrimSpace(t)] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := make(chan *events.BaseEvent, clientBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
	}()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-ch:
			if len(typeFilter) > 0 && !typeFilter[rec.Type] {
				continue
			}
			if err := writeEvent(w, rec); err != nil {
				h.logger.Debug().Err(err).Msg("sse write failed")
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, rec *events.BaseEvent) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", rec.ID, rec.Type, data)
	return err
}
