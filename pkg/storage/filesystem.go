package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
)

const RedlineDir = ".redline"
const ConfigFile = "config.yaml"
const DocumentFile = "document.html"
const FeedbackFile = "feedback.json"
const StatusFile = "statuses.json"
const SessionFile = "session.json"
const EventsFile = "events.jsonl"
const DeadLetterFile = "deadletters.jsonl"

// ErrNotInitialized is returned when the workspace has no .redline directory.
var ErrNotInitialized = errors.New("redline workspace not initialized")

// Session identifies one review session: a document plus one feedback batch.
type Session struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

// FilesystemRepository keeps a review workspace under root/.redline. It is the
// file-backed document host and the local persistence service for decisions.
type FilesystemRepository struct {
	root        string
	retryConfig retry.Config

	// mu serialises read-modify-write of the status ledger.
	mu sync.Mutex
}

func NewFilesystemRepository(root string) *FilesystemRepository {
	return &FilesystemRepository{
		root: root,
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  10 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// Root returns the workspace root directory.
func (r *FilesystemRepository) Root() string {
	return r.root
}

// Dir returns the .redline directory.
func (r *FilesystemRepository) Dir() string {
	return filepath.Join(r.root, RedlineDir)
}

// ResolvePath ensures the path is a direct child of the .redline directory.
func (r *FilesystemRepository) ResolvePath(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}

	baseDir := r.Dir()
	cleanPath := filepath.Clean(filepath.Join(baseDir, filename))

	if !strings.HasPrefix(cleanPath, baseDir) || filepath.Dir(cleanPath) != baseDir {
		return "", fmt.Errorf("invalid file path: %s", filename)
	}

	return cleanPath, nil
}

func (r *FilesystemRepository) Initialize() error {
	if err := os.MkdirAll(r.Dir(), 0700); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", RedlineDir, err)
	}
	return nil
}

func (r *FilesystemRepository) IsInitialized() bool {
	_, err := os.Stat(r.Dir())
	return err == nil
}

// SaveDocument writes the live markup. It implements events.DocumentSink.
func (r *FilesystemRepository) SaveDocument(markup string) error {
	return r.writeFile(DocumentFile, []byte(markup))
}

// LoadDocument reads the live markup.
func (r *FilesystemRepository) LoadDocument() (string, error) {
	data, err := r.readFile(DocumentFile)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	return string(data), nil
}

// SaveFeedback stores the raw feedback payload of the current session.
func (r *FilesystemRepository) SaveFeedback(fb *suggestion.Feedback) error {
	data, err := json.MarshalIndent(fb, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}
	return r.writeFile(FeedbackFile, data)
}

// LoadFeedback reads and validates the stored feedback payload.
func (r *FilesystemRepository) LoadFeedback() (*suggestion.Feedback, error) {
	data, err := r.readFile(FeedbackFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read feedback: %w", err)
	}
	return suggestion.ParseFeedback(data)
}

// HasFeedback reports whether a batch was intaken in this workspace.
func (r *FilesystemRepository) HasFeedback() bool {
	path, err := r.ResolvePath(FeedbackFile)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Record stores a decision status. It implements suggestion.StatusRecorder.
func (r *FilesystemRepository) Record(ctx context.Context, id string, status suggestion.Status) error {
	return r.RecordDecision(ctx, id, suggestion.Decision{Status: status, DecidedAt: time.Now().UTC()})
}

// RecordDecision stores d for id in the status ledger.
func (r *FilesystemRepository) RecordDecision(ctx context.Context, id string, d suggestion.Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ledger, err := r.loadDecisions()
	if err != nil {
		return err
	}
	ledger[id] = d
	return r.saveDecisions(ledger)
}

// LoadDecisions returns the persisted decisions by suggestion id. A missing
// ledger yields an empty map.
func (r *FilesystemRepository) LoadDecisions() (map[string]suggestion.Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadDecisions()
}

// ResetDecisions clears the ledger; a new batch starts undecided.
func (r *FilesystemRepository) ResetDecisions() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveDecisions(map[string]suggestion.Decision{})
}

func (r *FilesystemRepository) loadDecisions() (map[string]suggestion.Decision, error) {
	data, err := r.readFile(StatusFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]suggestion.Decision{}, nil
		}
		return nil, fmt.Errorf("failed to read status ledger: %w", err)
	}

	ledger := map[string]suggestion.Decision{}
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status ledger: %w", err)
	}
	return ledger, nil
}

func (r *FilesystemRepository) saveDecisions(ledger map[string]suggestion.Decision) error {
	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status ledger: %w", err)
	}
	return r.writeFile(StatusFile, data)
}

// StartSession records a fresh session id.
func (r *FilesystemRepository) StartSession() (*Session, error) {
	sess := &Session{ID: uuid.New().String(), StartedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.writeFile(SessionFile, data); err != nil {
		return nil, err
	}
	return sess, nil
}

// LoadSession returns the current session, starting one if none exists.
func (r *FilesystemRepository) LoadSession() (*Session, error) {
	data, err := r.readFile(SessionFile)
	if errors.Is(err, os.ErrNotExist) {
		return r.StartSession()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

// readFile reads a workspace file, retrying transient failures. A missing
// file is reported at once with an error wrapping os.ErrNotExist.
func (r *FilesystemRepository) readFile(name string) ([]byte, error) {
	path, err := r.ResolvePath(name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	retryer := retry.New[[]byte](r.retryConfig)
	return retryer.Do(context.Background(), func(ctx context.Context) ([]byte, error) {
		// #nosec G304 -- Path is resolved and validated via ResolvePath
		return os.ReadFile(path)
	})
}

// writeFile replaces a workspace file atomically.
func (r *FilesystemRepository) writeFile(name string, data []byte) error {
	path, err := r.ResolvePath(name)
	if err != nil {
		return err
	}
	if !r.IsInitialized() {
		return ErrNotInitialized
	}

	tmp, err := os.CreateTemp(r.Dir(), "."+name+".*")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
