package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
	"github.com/felixgeelhaar/redline/pkg/storage"
)

// DeadLetter is a decision notification that no delivery attempt got
// through. Payload holds the exact body so it can be redelivered.
type DeadLetter struct {
	Timestamp    time.Time         `json:"timestamp"`
	WebhookName  string            `json:"webhook_name"`
	URL          string            `json:"url"`
	SuggestionID string            `json:"suggestion_id"`
	Status       suggestion.Status `json:"status"`
	Payload      string            `json:"payload"`
	Error        string            `json:"error"`
	Attempts     int               `json:"attempts"`
}

// DeadLetterStore keeps undelivered notifications, one JSON object per line.
type DeadLetterStore struct {
	path string
	mu   sync.Mutex
}

func NewDeadLetterStore(path string) *DeadLetterStore {
	return &DeadLetterStore{path: path}
}

// OpenDeadLetterStore returns the dead letter store of a workspace.
func OpenDeadLetterStore(repo *storage.FilesystemRepository) (*DeadLetterStore, error) {
	path, err := repo.ResolvePath(storage.DeadLetterFile)
	if err != nil {
		return nil, err
	}
	return NewDeadLetterStore(path), nil
}

// Append adds dl after the existing letters.
func (s *DeadLetterStore) Append(dl DeadLetter) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(dl)
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open dead letter file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = f.Write(append(line, '\n'))
	return err
}

// ReadAll returns the letters in the order they were written. Reading stops
// at the first unreadable line.
func (s *DeadLetterStore) ReadAll() ([]DeadLetter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Update replaces every letter with the result of fn on the current list.
// The file is rewritten through a temp file so a crash keeps the old list.
func (s *DeadLetterStore) Update(fn func([]DeadLetter) []DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	letters, err := s.read()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, dl := range fn(letters) {
		if err := enc.Encode(dl); err != nil {
			return fmt.Errorf("marshal dead letter: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create dead letter temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write dead letters: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close dead letter temp file: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *DeadLetterStore) read() ([]DeadLetter, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var letters []DeadLetter
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var dl DeadLetter
		if err := dec.Decode(&dl); err != nil {
			break
		}
		letters = append(letters, dl)
	}
	return letters, nil
}
