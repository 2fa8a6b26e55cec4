// Package watch reports changes to workspace files written by a document
// host.
package watch

import (
	"sync"
	"time"
)

// Debouncer holds back file changes until a file has been quiet for the
// window, then reports the last change seen for it. Each path has its own
// window, so a burst on one file never swallows the change of another.
type Debouncer struct {
	window time.Duration
	fire   func(ChangeEvent)

	mu      sync.Mutex
	stopped bool
	timers  map[string]*time.Timer
	latest  map[string]ChangeEvent
}

// NewDebouncer creates a debouncer that hands settled changes to fire.
func NewDebouncer(window time.Duration, fire func(ChangeEvent)) *Debouncer {
	return &Debouncer{
		window: window,
		fire:   fire,
		timers: make(map[string]*time.Timer),
		latest: make(map[string]ChangeEvent),
	}
}

// Trigger records change and restarts the window of its path.
func (d *Debouncer) Trigger(change ChangeEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	key := change.Path
	d.latest[key] = change
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(d.window, func() { d.settle(key) })
}

// Pending reports how many paths are still inside their window.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.latest)
}

// Stop cancels every pending change. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
		delete(d.latest, key)
	}
}

func (d *Debouncer) settle(key string) {
	d.mu.Lock()
	change, ok := d.latest[key]
	delete(d.latest, key)
	delete(d.timers, key)
	stopped := d.stopped
	d.mu.Unlock()

	if ok && !stopped && d.fire != nil {
		d.fire(change)
	}
}
