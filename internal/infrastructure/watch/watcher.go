package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is used when NewFSWatcher gets a zero window.
const DefaultDebounce = 200 * time.Millisecond

// ChangeType classifies a filesystem change.
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeWrite  ChangeType = "write"
	ChangeRemove ChangeType = "remove"
	ChangeRename ChangeType = "rename"
)

// ChangeEvent is the settled change of one file.
type ChangeEvent struct {
	Path       string
	Name       string
	ChangeType ChangeType
}

// FSWatcher watches directories for file changes using fsnotify and calls
// onChange once per file after its burst of events settles.
type FSWatcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	filter   Filter
	onChange func(ChangeEvent)
	logger   zerolog.Logger
}

// Option configures an FSWatcher.
type Option func(*FSWatcher)

func WithFilter(f Filter) Option {
	return func(w *FSWatcher) { w.filter = f }
}

func WithLogger(l zerolog.Logger) Option {
	return func(w *FSWatcher) { w.logger = l }
}

// NewFSWatcher creates a new filesystem watcher.
func NewFSWatcher(debounce time.Duration, onChange func(ChangeEvent), opts ...Option) (*FSWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw := &FSWatcher{
		watcher:  w,
		debounce: debounce,
		filter:   Visible,
		onChange: onChange,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(fw)
	}
	return fw, nil
}

// Watch adds a directory. Files are watched through their directory so
// that rename-based atomic writes are seen.
func (w *FSWatcher) Watch(dir string) error {
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	return nil
}

// Run starts the event loop. It blocks until the context is cancelled.
func (w *FSWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close() //nolint:errcheck // shutting down

	pending := NewDebouncer(w.debounce, func(change ChangeEvent) {
		if w.onChange != nil {
			w.onChange(change)
		}
	})
	defer pending.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			changeType := opToChangeType(event.Op)
			if changeType == "" || !w.filter(event.Name) {
				continue
			}

			change := ChangeEvent{Path: event.Name, Name: filepath.Base(event.Name), ChangeType: changeType}
			w.logger.Debug().Str("path", change.Path).Str("change", string(changeType)).Msg("file event")
			pending.Trigger(change)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			// Dropped events only delay a reload until the next change.
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn().Err(err).Msg("file events dropped")
				continue
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func opToChangeType(op fsnotify.Op) ChangeType {
	switch {
	case op.Has(fsnotify.Create):
		return ChangeCreate
	case op.Has(fsnotify.Write):
		return ChangeWrite
	case op.Has(fsnotify.Remove):
		return ChangeRemove
	case op.Has(fsnotify.Rename):
		return ChangeRename
	default:
		return ""
	}
}
