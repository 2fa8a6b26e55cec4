// Package events defines the events emitted while a suggestion batch is
// reviewed, and the dispatcher that routes them to handlers.
package events

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is the base interface for all domain events.
type DomainEvent interface {
	EventType() string
	AggregateID() string
	AggregateType() string
	OccurredAt() time.Time
	Version() int
	// Record flattens the event for the journal.
	Record() *BaseEvent
}

// BaseEvent carries the fields every event shares. It is also the journal
// record: typed fields of concrete events are copied into Metadata.
type BaseEvent struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	AggregateID_   string         `json:"aggregate_id"`
	AggregateType_ string         `json:"aggregate_type"`
	SessionID      string         `json:"session_id,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	DocVersion     int            `json:"doc_version,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	PrevHash       string         `json:"prev_hash,omitempty"`
	Hash           string         `json:"hash,omitempty"`
}

// NewBase stamps a new event of the given type with an id and time.
func NewBase(eventType, aggregateType, aggregateID string) BaseEvent {
	return BaseEvent{
		ID:             uuid.New().String(),
		Type:           eventType,
		AggregateID_:   aggregateID,
		AggregateType_: aggregateType,
		Timestamp:      time.Now().UTC(),
	}
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) AggregateID() string   { return e.AggregateID_ }
func (e BaseEvent) AggregateType() string { return e.AggregateType_ }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) Version() int          { return e.DocVersion }

// Record returns a copy of the event.
func (e BaseEvent) Record() *BaseEvent {
	rec := e
	return &rec
}

func (e BaseEvent) withMetadata(md map[string]any) *BaseEvent {
	rec := e
	rec.Metadata = md
	return &rec
}

// CalculateHash generates a deterministic SHA256 hash of the event chained
// to its predecessor.
func (e *BaseEvent) CalculateHash() string {
	h := sha256.New()
	h.Write([]byte(e.PrevHash))
	h.Write([]byte(e.ID))
	h.Write([]byte(e.Timestamp.Format(time.RFC3339Nano)))
	h.Write([]byte(e.Type))
	h.Write([]byte(e.AggregateID_))
	h.Write([]byte(e.SessionID))
	h.Write([]byte(canonicalJSON(e.Metadata)))
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalJSON produces a deterministic JSON representation.
func canonicalJSON(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]byte, 0, 256)
	ordered = append(ordered, '{')
	for i, k := range keys {
		if i > 0 {
			ordered = append(ordered, ',')
		}
		keyJSON, _ := json.Marshal(k)
		valJSON, _ := json.Marshal(m[k])
		ordered = append(ordered, keyJSON...)
		ordered = append(ordered, ':')
		ordered = append(ordered, valJSON...)
	}
	ordered = append(ordered, '}')
	return string(ordered)
}

// =============================================================================
// Batch Events
// =============================================================================

// BatchIntaken is emitted when a suggestion batch replaces the previous one.
type BatchIntaken struct {
	BaseEvent
	Admitted int      `json:"admitted"`
	Refused  int      `json:"refused"`
	Score    int      `json:"score"`
	IDs      []string `json:"ids"`
}

func (e *BatchIntaken) Record() *BaseEvent {
	return e.withMetadata(map[string]any{
		"admitted": e.Admitted,
		"refused":  e.Refused,
		"score":    e.Score,
	})
}

// StatusRestored is emitted when persisted decisions are merged into a batch.
type StatusRestored struct {
	BaseEvent
	Restored int `json:"restored"`
	Skipped  int `json:"skipped"`
}

func (e *StatusRestored) Record() *BaseEvent {
	return e.withMetadata(map[string]any{"restored": e.Restored, "skipped": e.Skipped})
}

// =============================================================================
// Suggestion Events
// =============================================================================

// SuggestionAccepted is emitted when a suggestion moves to accepted, whether
// or not its edit could be applied.
type SuggestionAccepted struct {
	BaseEvent
	SuggestionID string `json:"suggestion_id"`
	EditType     string `json:"edit_type"`
	Applied      bool   `json:"applied"`
	Appended     bool   `json:"appended,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Note         string `json:"note,omitempty"`
}

func (e *SuggestionAccepted) Record() *BaseEvent {
	md := map[string]any{
		"edit_type": e.EditType,
		"applied":   e.Applied,
	}
	if e.Appended {
		md["appended"] = true
	}
	if e.Reason != "" {
		md["reason"] = e.Reason
	}
	if e.Note != "" {
		md["note"] = e.Note
	}
	return e.withMetadata(md)
}

// SuggestionRejected is emitted when a suggestion moves to rejected.
type SuggestionRejected struct {
	BaseEvent
	SuggestionID string `json:"suggestion_id"`
}

// =============================================================================
// Document Events
// =============================================================================

// DocumentPatched is emitted after an accepted edit changed the markup.
type DocumentPatched struct {
	BaseEvent
	SuggestionID string `json:"suggestion_id"`
	Length       int    `json:"length"`
	Highlighted  bool   `json:"highlighted"`
}

func (e *DocumentPatched) Record() *BaseEvent {
	return e.withMetadata(map[string]any{
		"suggestion_id": e.SuggestionID,
		"length":        e.Length,
		"highlighted":   e.Highlighted,
	})
}

// HighlightCleared is emitted after a marker was stripped from the document.
type HighlightCleared struct {
	BaseEvent
	SuggestionID string `json:"suggestion_id"`
	Fallback     bool   `json:"fallback"`
}

func (e *HighlightCleared) Record() *BaseEvent {
	return e.withMetadata(map[string]any{
		"suggestion_id": e.SuggestionID,
		"fallback":      e.Fallback,
	})
}

// DocumentReloaded is emitted when the host file changed on disk and the
// live document was replaced.
type DocumentReloaded struct {
	BaseEvent
	Path   string `json:"path"`
	Length int    `json:"length"`
}

func (e *DocumentReloaded) Record() *BaseEvent {
	return e.withMetadata(map[string]any{"path": e.Path, "length": e.Length})
}

// =============================================================================
// Event Type Constants
// =============================================================================

const (
	EventTypeBatchIntaken       = "batch.intaken"
	EventTypeStatusRestored     = "batch.restored"
	EventTypeSuggestionAccepted = "suggestion.accepted"
	EventTypeSuggestionRejected = "suggestion.rejected"
	EventTypeDocumentPatched    = "document.patched"
	EventTypeHighlightCleared   = "highlight.cleared"
	EventTypeDocumentReloaded   = "document.reloaded"
)

// AggregateTypes
const (
	AggregateTypeBatch      = "batch"
	AggregateTypeSuggestion = "suggestion"
	AggregateTypeDocument   = "document"
)

// DocumentAggregateID is the aggregate id of the single live document.
const DocumentAggregateID = "document"
