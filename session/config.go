package session

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/caseworks/casesync/cache/sqlite"
	"github.com/caseworks/casesync/gateway/postgres"
	"github.com/caseworks/casesync/logging"
	"github.com/caseworks/casesync/reconcile"
)

// Config is the file-based session configuration. YAML is the primary
// format; .json files are accepted too.
type Config struct {
	Logging logging.Config `json:"logging,omitempty" yaml:"logging,omitempty"`
	Sync    SyncConfig     `json:"sync,omitempty" yaml:"sync,omitempty"`
	Remote  RemoteConfig   `json:"remote,omitempty" yaml:"remote,omitempty"`

	// CachePath is the SQLite snapshot cache file; empty disables the
	// cache.
	CachePath string `json:"cache_path,omitempty" yaml:"cache_path,omitempty"`
}

// SyncConfig tunes the scheduler and the reconciliation engine.
type SyncConfig struct {
	DebounceMs int         `json:"debounce_ms,omitempty" yaml:"debounce_ms,omitempty"`
	BatchSize  int         `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
	Retry      RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
}

// RetryConfig mirrors reconcile.RetryPolicy with millisecond fields.
type RetryConfig struct {
	MaxAttempts       int     `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	InitialDelayMs    int     `json:"initial_delay_ms,omitempty" yaml:"initial_delay_ms,omitempty"`
	MaxDelayMs        int     `json:"max_delay_ms,omitempty" yaml:"max_delay_ms,omitempty"`
	Multiplier        float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
	ConstraintDelayMs int     `json:"constraint_delay_ms,omitempty" yaml:"constraint_delay_ms,omitempty"`
}

// RemoteConfig points at the PostgreSQL remote store; an empty
// connection string leaves the session local-only.
type RemoteConfig struct {
	ConnectionString string `json:"connection_string,omitempty" yaml:"connection_string,omitempty"`
	EnsureSchema     bool   `json:"ensure_schema,omitempty" yaml:"ensure_schema,omitempty"`
}

// LoadConfig reads and validates a configuration file. The format is
// chosen by extension: .json parses as JSON, everything else as YAML.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the components would refuse at runtime.
func (c *Config) Validate() error {
	if c.Sync.DebounceMs < 0 {
		return fmt.Errorf("sync.debounce_ms must not be negative")
	}
	if c.Sync.BatchSize < 0 {
		return fmt.Errorf("sync.batch_size must not be negative")
	}
	if c.Sync.Retry.MaxAttempts < 0 {
		return fmt.Errorf("sync.retry.max_attempts must not be negative")
	}
	return nil
}

// retryPolicy converts the millisecond fields; zero fields stay zero and
// fall back to the engine defaults.
func (r RetryConfig) retryPolicy() reconcile.RetryPolicy {
	return reconcile.RetryPolicy{
		MaxAttempts:     r.MaxAttempts,
		InitialDelay:    time.Duration(r.InitialDelayMs) * time.Millisecond,
		MaxDelay:        time.Duration(r.MaxDelayMs) * time.Millisecond,
		Multiplier:      r.Multiplier,
		ConstraintDelay: time.Duration(r.ConstraintDelayMs) * time.Millisecond,
	}
}

// NewFromConfig builds a fully wired session: logger, PostgreSQL
// gateway and SQLite cache as configured. Extra options are applied
// after the config-derived ones and win on conflict.
func NewFromConfig(cfg *Config, extra ...Option) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewLogger(os.Stderr, cfg.Logging)
	opts := []Option{WithLogger(logger)}

	if cfg.Sync.DebounceMs > 0 {
		opts = append(opts, WithDebounce(time.Duration(cfg.Sync.DebounceMs)*time.Millisecond))
	}
	if cfg.Sync.BatchSize > 0 {
		opts = append(opts, WithBatchSize(cfg.Sync.BatchSize))
	}
	if cfg.Sync.Retry.MaxAttempts > 0 {
		opts = append(opts, WithRetryPolicy(cfg.Sync.Retry.retryPolicy()))
	}

	if cfg.Remote.ConnectionString != "" {
		gw, err := postgres.New(&postgres.Config{
			ConnectionString: cfg.Remote.ConnectionString,
			Logger:           logger,
			EnsureSchema:     cfg.Remote.EnsureSchema,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open remote gateway: %w", err)
		}
		opts = append(opts, WithGateway(gw))
	}

	if cfg.CachePath != "" {
		c, err := sqlite.New(&sqlite.Config{Path: cfg.CachePath, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot cache: %w", err)
		}
		opts = append(opts, WithCache(c))
	}

	return New(append(opts, extra...)...)
}
