package markup

import "sync"

// Document is the live markup of one review session.
//
// Edits are serialised through Update so that deferred highlight cleanups
// never interleave with a patch computed against an older snapshot.
type Document struct {
	mu      sync.Mutex
	markup  string
	version int
}

// NewDocument wraps the markup supplied by the document host.
func NewDocument(src string) *Document {
	return &Document{markup: src}
}

// Markup returns the current markup.
func (d *Document) Markup() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.markup
}

// Version increases by one for every change to the markup.
func (d *Document) Version() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// Len returns the markup length in bytes.
func (d *Document) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.markup)
}

// Replace swaps in markup supplied by the host. It reports whether the
// markup changed.
func (d *Document) Replace(src string) bool {
	return d.Update(func(string) (string, bool) {
		return src, true
	})
}

// Update runs fn against the current markup while holding the document
// lock. fn returns the new markup and whether it should be stored; identical
// markup is never stored. Update reports whether the document changed.
func (d *Document) Update(fn func(current string) (string, bool)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	next, ok := fn(d.markup)
	if !ok || next == d.markup {
		return false
	}
	d.markup = next
	d.version++
	return true
}
