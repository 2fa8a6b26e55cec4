package events

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// EventHandlerFunc is a function that handles a domain event.
type EventHandlerFunc func(ctx context.Context, event DomainEvent) error

// HandlerRegistration subscribes Handler to EventTypes under Name.
type HandlerRegistration struct {
	EventTypes []string
	Handler    EventHandlerFunc
	Name       string
}

// Wildcard subscribes a handler to every event type.
const Wildcard = "*"

// EventDispatcher delivers domain events to subscribers in the order they
// registered. A failing handler does not keep later ones from running.
//
// Handlers run on the dispatching goroutine, outside the dispatcher lock, so a
// handler may register further handlers or dispatch follow-up events.
type EventDispatcher struct {
	mu   sync.RWMutex
	subs []HandlerRegistration
}

// NewEventDispatcher creates an empty dispatcher.
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{}
}

// Register adds a subscription after every existing one.
func (d *EventDispatcher) Register(reg HandlerRegistration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, reg)
}

// RegisterHandler subscribes handler to eventTypes.
func (d *EventDispatcher) RegisterHandler(name string, handler EventHandlerFunc, eventTypes ...string) {
	d.Register(HandlerRegistration{Name: name, Handler: handler, EventTypes: eventTypes})
}

// RegisterWildcard subscribes handler to every event type.
func (d *EventDispatcher) RegisterWildcard(name string, handler EventHandlerFunc) {
	d.RegisterHandler(name, handler, Wildcard)
}

// Subscribers names the handlers an event of eventType reaches, in
// delivery order.
func (d *EventDispatcher) Subscribers(eventType string) []string {
	var names []string
	for _, reg := range d.matching(eventType) {
		names = append(names, reg.Name)
	}
	return names
}

// Dispatch runs every matching handler and joins their failures into a
// *DispatchError.
func (d *EventDispatcher) Dispatch(ctx context.Context, event DomainEvent) error {
	var failed DispatchError
	for _, reg := range d.matching(event.EventType()) {
		if err := reg.Handler(ctx, event); err != nil {
			failed.Handlers = append(failed.Handlers, reg.Name)
			failed.Errors = append(failed.Errors, err)
		}
	}
	if len(failed.Errors) > 0 {
		failed.EventType = event.EventType()
		return &failed
	}
	return nil
}

func (d *EventDispatcher) matching(eventType string) []HandlerRegistration {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []HandlerRegistration
	for _, reg := range d.subs {
		if slices.Contains(reg.EventTypes, eventType) || slices.Contains(reg.EventTypes, Wildcard) {
			out = append(out, reg)
		}
	}
	return out
}

// DispatchError reports the handlers that failed on one event.
type DispatchError struct {
	EventType string
	Handlers  []string
	Errors    []error
}

func (e *DispatchError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("handler %s failed for %s: %v", e.Handlers[0], e.EventType, e.Errors[0])
	}
	return fmt.Sprintf("handlers %s failed for %s", strings.Join(e.Handlers, ", "), e.EventType)
}

// Unwrap exposes every handler error to errors.Is and errors.As.
func (e *DispatchError) Unwrap() []error {
	return e.Errors
}
