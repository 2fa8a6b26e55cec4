package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (c *collector) add(e ChangeEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, e := range c.events {
		out = append(out, e.Name)
	}
	return out
}

func startWatcher(t *testing.T, dir string, opts ...Option) *collector {
	t.Helper()
	c := &collector{}
	w, err := NewFSWatcher(30*time.Millisecond, c.add, opts...)
	require.NoError(t, err)
	require.NoError(t, w.Watch(dir))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = w.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	return c
}

func TestFSWatcher_DetectsFileWrite(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "document.html")
	require.NoError(t, os.WriteFile(file, []byte("<p>a</p>"), 0600))

	c := startWatcher(t, dir)
	require.NoError(t, os.WriteFile(file, []byte("<p>b</p>"), 0600))

	assert.Eventually(t, func() bool { return len(c.names()) > 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "document.html", c.names()[0])
}

func TestFSWatcher_CoalescesBurstPerFile(t *testing.T) {
	dir := t.TempDir()
	c := startWatcher(t, dir)

	doc := filepath.Join(dir, "document.html")
	fb := filepath.Join(dir, "feedback.json")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(doc, []byte{byte('a' + i)}, 0600))
	}
	require.NoError(t, os.WriteFile(fb, []byte("{}"), 0600))

	assert.Eventually(t, func() bool { return len(c.names()) == 2 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.ElementsMatch(t, []string{"document.html", "feedback.json"}, c.names())
}

func TestFSWatcher_FilterSkipsUnwatchedFiles(t *testing.T) {
	dir := t.TempDir()
	c := startWatcher(t, dir, WithFilter(Files("document.html")))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "statuses.json"), []byte("{}"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".document.html.tmp"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "document.html"), []byte("x"), 0600))

	assert.Eventually(t, func() bool { return len(c.names()) == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"document.html"}, c.names())
}

func TestFSWatcher_ContextCancellation(t *testing.T) {
	w, err := NewFSWatcher(0, func(ChangeEvent) {})
	require.NoError(t, err)
	require.NoError(t, w.Watch(t.TempDir()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after context cancellation")
	}
}

func TestFSWatcher_WatchMissingDir(t *testing.T) {
	w, err := NewFSWatcher(0, nil)
	require.NoError(t, err)
	assert.Error(t, w.Watch(filepath.Join(t.TempDir(), "missing")))
}
