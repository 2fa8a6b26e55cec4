// Package webhook delivers suggestion decisions to outgoing HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
	"github.com/rs/zerolog"

	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
)

const (
	// EventDecided is the event_type of every payload.
	EventDecided = "suggestion.decided"

	SignatureHeader = "X-Redline-Signature"

	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
	defaultTimeout    = 10 * time.Second
)

// Endpoint is one outgoing webhook.
type Endpoint struct {
	Name       string
	URL        string
	Secret     string
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
	// Statuses limits delivery to these decisions. Empty means all.
	Statuses []suggestion.Status
	// Format selects the body layout: FormatJSON (default) or FormatSlack.
	Format string
}

// Payload is the JSON body sent to endpoints.
type Payload struct {
	EventType    string            `json:"event_type"`
	Timestamp    time.Time         `json:"timestamp"`
	SessionID    string            `json:"session_id,omitempty"`
	SuggestionID string            `json:"suggestion_id"`
	Status       suggestion.Status `json:"status"`
	Applied      bool              `json:"applied"`
}

// Notifier is a suggestion.DecisionRecorder that posts each decision to its
// endpoints. Deliveries that exhaust their retries go to the dead letter
// store.
type Notifier struct {
	endpoints  []Endpoint
	client     *http.Client
	deadLetter *DeadLetterStore
	sessionID  string
	logger     zerolog.Logger
	now        func() time.Time
}

// Option configures a Notifier.
type Option func(*Notifier)

func WithDeadLetter(store *DeadLetterStore) Option {
	return func(n *Notifier) { n.deadLetter = store }
}

func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.client = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

func WithSessionID(id string) Option {
	return func(n *Notifier) { n.sessionID = id }
}

// NewNotifier creates a notifier for endpoints.
func NewNotifier(endpoints []Endpoint, opts ...Option) *Notifier {
	n := &Notifier{
		endpoints: endpoints,
		client:    &http.Client{},
		logger:    zerolog.Nop(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Endpoints returns the configured endpoints.
func (n *Notifier) Endpoints() []Endpoint {
	return n.endpoints
}

// Record implements suggestion.StatusRecorder.
func (n *Notifier) Record(ctx context.Context, id string, status suggestion.Status) error {
	return n.RecordDecision(ctx, id, suggestion.Decision{Status: status})
}

// RecordDecision posts d to every matching endpoint in parallel and returns
// the joined delivery failures.
func (n *Notifier) RecordDecision(ctx context.Context, id string, d suggestion.Decision) error {
	ts := d.DecidedAt
	if ts.IsZero() {
		ts = n.now()
	}
	payload := Payload{
		EventType:    EventDecided,
		Timestamp:    ts,
		SessionID:    n.sessionID,
		SuggestionID: id,
		Status:       d.Status,
		Applied:      d.Applied,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	var (
		slack []byte
		wg    sync.WaitGroup
		mu    sync.Mutex
		errs  []error
	)
	for _, ep := range n.endpoints {
		if !matches(ep, d.Status) {
			continue
		}
		epBody := body
		if ep.Format == FormatSlack {
			if slack == nil {
				if slack, err = slackBody(payload); err != nil {
					return fmt.Errorf("marshal slack payload: %w", err)
				}
			}
			epBody = slack
		}
		wg.Add(1)
		go func(ep Endpoint, body []byte) {
			defer wg.Done()
			if err := n.deliver(ctx, ep, id, d.Status, body); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(ep, epBody)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func matches(ep Endpoint, status suggestion.Status) bool {
	return len(ep.Statuses) == 0 || slices.Contains(ep.Statuses, status)
}

func (n *Notifier) deliver(ctx context.Context, ep Endpoint, id string, status suggestion.Status, body []byte) error {
	attempts, err := n.post(ctx, ep, body)
	if err == nil {
		n.logger.Debug().Str("webhook", ep.Name).Str("suggestion_id", id).Msg("decision delivered")
		return nil
	}

	n.logger.Warn().Err(err).Str("webhook", ep.Name).Str("suggestion_id", id).Msg("webhook delivery failed")
	if n.deadLetter != nil {
		dl := DeadLetter{
			Timestamp:    n.now(),
			WebhookName:  ep.Name,
			URL:          ep.URL,
			SuggestionID: id,
			Status:       status,
			Payload:      string(body),
			Error:        err.Error(),
			Attempts:     attempts,
		}
		if dlErr := n.deadLetter.Append(dl); dlErr != nil {
			n.logger.Error().Err(dlErr).Str("webhook", ep.Name).Msg("dead letter write failed")
		}
	}
	return fmt.Errorf("webhook %s: %w", ep.Name, err)
}

// post sends body with retries and a per-attempt timeout. It returns the
// attempt budget it ran under.
func (n *Notifier) post(ctx context.Context, ep Endpoint, body []byte) (int, error) {
	attempts := ep.MaxRetries
	if attempts <= 0 {
		attempts = defaultMaxRetries
	}
	delay := ep.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	limit := ep.Timeout
	if limit <= 0 {
		limit = defaultTimeout
	}

	r := retry.New[struct{}](retry.Config{
		MaxAttempts:   attempts,
		InitialDelay:  delay,
		BackoffPolicy: retry.BackoffExponential,
	})
	t := timeout.New[struct{}](timeout.Config{DefaultTimeout: limit})

	_, err := r.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return t.Execute(ctx, limit, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, n.send(ctx, ep, body)
		})
	})
	return attempts, err
}

// Redeliver posts every dead letter again to the endpoint it was meant for.
// Delivered letters leave the store. Letters that fail again, or whose
// endpoint is no longer configured, stay with their attempt count raised.
func (n *Notifier) Redeliver(ctx context.Context) (delivered int, err error) {
	if n.deadLetter == nil {
		return 0, nil
	}
	byName := make(map[string]Endpoint, len(n.endpoints))
	for _, ep := range n.endpoints {
		byName[ep.Name] = ep
	}

	err = n.deadLetter.Update(func(letters []DeadLetter) []DeadLetter {
		var kept []DeadLetter
		for _, dl := range letters {
			ep, ok := byName[dl.WebhookName]
			if !ok {
				kept = append(kept, dl)
				continue
			}
			attempts, perr := n.post(ctx, ep, []byte(dl.Payload))
			if perr == nil {
				delivered++
				n.logger.Info().Str("webhook", ep.Name).Str("suggestion_id", dl.SuggestionID).Msg("dead letter redelivered")
				continue
			}
			dl.Attempts += attempts
			dl.Error = perr.Error()
			dl.Timestamp = n.now()
			kept = append(kept, dl)
		}
		return kept
	})
	return delivered, err
}

func (n *Notifier) send(ctx context.Context, ep Endpoint, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Redline-Webhook/1.0")
	if ep.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(body, ep.Secret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // body fully drained below
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign computes the HMAC-SHA256 signature header value for payload.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
