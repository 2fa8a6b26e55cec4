package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/redline/pkg/domain/events"
)

// Journal is the append-only event log of a workspace, one JSON record per
// line. Each record carries the hash of its predecessor.
type Journal struct {
	mu   sync.RWMutex
	path string
	tip  string
}

// OpenJournal opens the journal of the workspace behind repo and picks up
// the chain where the last record left it.
func OpenJournal(repo *FilesystemRepository) (*Journal, error) {
	path, err := repo.ResolvePath(EventsFile)
	if err != nil {
		return nil, err
	}

	j := &Journal{path: path}
	recs, err := j.read()
	if err != nil {
		return nil, err
	}
	if n := len(recs); n > 0 {
		j.tip = recs[n-1].Hash
	}
	return j, nil
}

// Append stamps rec with an id, a timestamp and its chain hashes, then
// writes it.
func (j *Journal) Append(rec *events.BaseEvent) (err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	rec.PrevHash = j.tip
	rec.Hash = rec.CalculateHash()

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open events file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close events file: %w", cerr)
		}
	}()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	j.tip = rec.Hash
	return nil
}

// LoadAll returns every record in append order.
func (j *Journal) LoadAll() ([]*events.BaseEvent, error) {
	return j.Select(nil)
}

// Select returns the records keep admits, in append order. A nil keep
// admits everything.
func (j *Journal) Select(keep func(*events.BaseEvent) bool) ([]*events.BaseEvent, error) {
	j.mu.RLock()
	recs, err := j.read()
	j.mu.RUnlock()
	if err != nil || keep == nil {
		return recs, err
	}

	kept := recs[:0]
	for _, r := range recs {
		if keep(r) {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

// LoadSession returns the records written during one review session.
func (j *Journal) LoadSession(sessionID string) ([]*events.BaseEvent, error) {
	return j.Select(func(r *events.BaseEvent) bool { return r.SessionID == sessionID })
}

// LoadSuggestion returns the decisions and highlight records of one
// suggestion across all sessions.
func (j *Journal) LoadSuggestion(id string) ([]*events.BaseEvent, error) {
	return j.Select(func(r *events.BaseEvent) bool {
		if r.AggregateType_ == events.AggregateTypeSuggestion {
			return r.AggregateID_ == id
		}
		return r.Metadata["suggestion_id"] == id
	})
}

// VerifyIntegrity reports the index of the first tampered record, or -1.
func (j *Journal) VerifyIntegrity() (int, error) {
	recs, err := j.LoadAll()
	if err != nil {
		return -1, err
	}
	return events.VerifyChain(recs), nil
}

func (j *Journal) read() ([]*events.BaseEvent, error) {
	f, err := os.Open(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open events file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	var recs []*events.BaseEvent
	dec := json.NewDecoder(f)
	for {
		var rec events.BaseEvent
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode event %d: %w", len(recs)+1, err)
		}
		recs = append(recs, &rec)
	}
}
