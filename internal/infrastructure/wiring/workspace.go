package wiring

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/redline/internal/infrastructure/config"
	"github.com/felixgeelhaar/redline/internal/infrastructure/logging"
	"github.com/felixgeelhaar/redline/internal/infrastructure/webhook"
	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
	"github.com/felixgeelhaar/redline/pkg/storage"
)

// Workspace bundles the infrastructure of one .redline directory.
type Workspace struct {
	Repo        *storage.FilesystemRepository
	Config      *config.Config
	Journal     *storage.Journal
	DeadLetters *webhook.DeadLetterStore
	// Notifier is nil when no webhook is enabled.
	Notifier *webhook.Notifier
}

// NewWorkspace opens an initialized workspace under root.
func NewWorkspace(root string) (*Workspace, error) {
	repo := storage.NewFilesystemRepository(root)
	if !repo.IsInitialized() {
		return nil, storage.ErrNotInitialized
	}

	cfg, err := config.Load(repo)
	if err != nil {
		return nil, err
	}
	journal, err := storage.OpenJournal(repo)
	if err != nil {
		return nil, fmt.Errorf("open event journal: %w", err)
	}
	dl, err := webhook.OpenDeadLetterStore(repo)
	if err != nil {
		return nil, err
	}

	return &Workspace{
		Repo:        repo,
		Config:      cfg,
		Journal:     journal,
		DeadLetters: dl,
	}, nil
}

// InitWorkspace creates the .redline directory for a document. An existing
// workspace is only replaced when force is set; its config is kept.
func InitWorkspace(root, document string, force bool) (*Workspace, error) {
	repo := storage.NewFilesystemRepository(root)
	if repo.IsInitialized() && !force {
		return nil, ErrAlreadyInitialized
	}
	if err := repo.Initialize(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(repo)
	if err != nil {
		return nil, err
	}
	if err := config.Save(repo, cfg); err != nil {
		return nil, err
	}
	if err := repo.SaveDocument(document); err != nil {
		return nil, err
	}
	if err := repo.ResetDecisions(); err != nil {
		return nil, err
	}
	if _, err := repo.StartSession(); err != nil {
		return nil, err
	}
	return NewWorkspace(root)
}

// ErrAlreadyInitialized is returned by InitWorkspace without force.
var ErrAlreadyInitialized = errors.New("redline workspace already initialized")

// recorder returns the persistence services notified of each decision: the
// local status ledger first, then the configured webhooks.
func (w *Workspace) recorder(sessionID string) suggestion.StatusRecorder {
	hooks := w.Config.EnabledWebhooks()
	if len(hooks) == 0 {
		return w.Repo
	}

	endpoints := make([]webhook.Endpoint, 0, len(hooks))
	for _, h := range hooks {
		endpoints = append(endpoints, Endpoint(h))
	}
	w.Notifier = w.NewNotifier(sessionID, endpoints...)
	return suggestion.Recorders{w.Repo, w.Notifier}
}

// NewNotifier returns a notifier for endpoints that dead-letters into the
// workspace.
func (w *Workspace) NewNotifier(sessionID string, endpoints ...webhook.Endpoint) *webhook.Notifier {
	return webhook.NewNotifier(endpoints,
		webhook.WithDeadLetter(w.DeadLetters),
		webhook.WithSessionID(sessionID),
		webhook.WithLogger(logging.Component("webhook")),
	)
}

// Endpoint converts a configured webhook into a delivery endpoint.
func Endpoint(h config.Webhook) webhook.Endpoint {
	ep := webhook.Endpoint{
		Name:       h.Name,
		URL:        h.URL,
		Secret:     h.Secret,
		MaxRetries: h.MaxRetries,
		RetryDelay: h.RetryDelay,
		Timeout:    h.Timeout,
		Format:     h.Format,
	}
	for _, st := range h.Statuses {
		ep.Statuses = append(ep.Statuses, suggestion.Status(st))
	}
	return ep
}
