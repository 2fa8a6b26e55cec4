// Package config loads workspace settings from .redline/config.yaml.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/redline/pkg/domain/markup"
	"github.com/felixgeelhaar/redline/pkg/domain/patch"
	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
	"github.com/felixgeelhaar/redline/pkg/highlight"
	"github.com/felixgeelhaar/redline/pkg/storage"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Webhook is an outgoing endpoint notified of every decision.
type Webhook struct {
	Name       string        `yaml:"name"`
	URL        string        `yaml:"url"`
	Secret     string        `yaml:"secret,omitempty"`
	Enabled    bool          `yaml:"enabled"`
	MaxRetries int           `yaml:"max_retries,omitempty"`
	RetryDelay time.Duration `yaml:"retry_delay,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
	// Statuses limits notifications to these decisions. Empty means all.
	Statuses []string `yaml:"statuses,omitempty"`
	// Format is "json" (default) or "slack".
	Format string `yaml:"format,omitempty"`
}

// Config stores review settings for one workspace.
type Config struct {
	Highlight         bool          `yaml:"highlight"`
	HighlightDuration time.Duration `yaml:"highlight_duration"`
	MarkerTag         string        `yaml:"marker_tag"`
	MarkerAttr        string        `yaml:"marker_attr"`
	Separator         string        `yaml:"separator"`
	LogLevel          string        `yaml:"log_level"`
	Webhooks          []Webhook     `yaml:"webhooks,omitempty"`
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	return &Config{
		Highlight:         true,
		HighlightDuration: highlight.DefaultDuration,
		MarkerTag:         markup.DefaultMarkerTag,
		MarkerAttr:        markup.DefaultMarkerAttr,
		Separator:         patch.DefaultSeparator,
		LogLevel:          zerolog.InfoLevel.String(),
	}
}

// Marker returns the configured highlight marker.
func (c *Config) Marker() markup.Marker {
	return markup.Marker{Tag: c.MarkerTag, Attr: c.MarkerAttr}
}

// EnabledWebhooks returns the webhooks that should receive notifications.
func (c *Config) EnabledWebhooks() []Webhook {
	var out []Webhook
	for _, w := range c.Webhooks {
		if w.Enabled {
			out = append(out, w)
		}
	}
	return out
}

// Validate reports every problem found in the config.
func (c *Config) Validate() error {
	var errs []error
	if c.Highlight && c.HighlightDuration <= 0 {
		errs = append(errs, fmt.Errorf("highlight_duration must be positive, got %s", c.HighlightDuration))
	}
	if !isName(c.MarkerTag) {
		errs = append(errs, fmt.Errorf("marker_tag %q is not an element name", c.MarkerTag))
	}
	if !isName(c.MarkerAttr) {
		errs = append(errs, fmt.Errorf("marker_attr %q is not an attribute name", c.MarkerAttr))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level %q: %w", c.LogLevel, err))
	}

	seen := make(map[string]bool, len(c.Webhooks))
	for i, w := range c.Webhooks {
		if w.Name == "" {
			errs = append(errs, fmt.Errorf("webhooks[%d]: name is required", i))
		} else if seen[w.Name] {
			errs = append(errs, fmt.Errorf("webhooks[%d]: duplicate name %q", i, w.Name))
		}
		seen[w.Name] = true

		u, err := url.Parse(w.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("webhooks[%d]: url %q must be an absolute http(s) url", i, w.URL))
		}
		for _, st := range w.Statuses {
			if _, err := suggestion.ParseStatus(st); err != nil {
				errs = append(errs, fmt.Errorf("webhooks[%d]: %w", i, err))
			}
		}
		switch w.Format {
		case "", "json", "slack":
		default:
			errs = append(errs, fmt.Errorf("webhooks[%d]: unknown format %q", i, w.Format))
		}
		if w.MaxRetries < 0 || w.RetryDelay < 0 || w.Timeout < 0 {
			errs = append(errs, fmt.Errorf("webhooks[%d]: retry settings must not be negative", i))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '-' || r == '_'):
		default:
			return false
		}
	}
	return true
}

// Load reads the workspace config. A missing file yields Default().
func Load(repo *storage.FilesystemRepository) (*Config, error) {
	path, err := repo.ResolvePath(storage.ConfigFile)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	// #nosec G304 -- Path is resolved and validated via ResolvePath
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to the workspace.
func Save(repo *storage.FilesystemRepository, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	path, err := repo.ResolvePath(storage.ConfigFile)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
