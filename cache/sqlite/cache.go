// Package sqlite persists the most recent snapshot per owner in a local
// SQLite file, so a session can present the case file before the first
// remote load finishes, or when the remote store is unreachable.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/caseworks/casesync/errors"
	"github.com/caseworks/casesync/logging"
	"github.com/caseworks/casesync/model"
)

var (
	// ErrNoSnapshot is returned by Load when nothing was cached for the
	// owner yet.
	ErrNoSnapshot = stderrors.New("no cached snapshot for owner")

	// ErrCacheClosed is returned from every operation after Close.
	ErrCacheClosed = stderrors.New("cache is closed")
)

// Config holds configuration options for the snapshot cache.
//
// Defaults applied by setDefaults: WAL journal mode, busy timeout of
// 5 seconds, a single open connection (the cache is written from the
// session's sync path only).
type Config struct {
	// Path is the SQLite database file. ":memory:" is accepted for
	// tests.
	Path string

	// Logger is optional; logging.Default() is used when nil.
	Logger *logging.Logger

	BusyTimeout time.Duration
}

func (c *Config) setDefaults() {
	if c.Logger == nil {
		c.Logger = logging.Default()
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = 5 * time.Second
	}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
    owner     TEXT PRIMARY KEY,
    payload   TEXT NOT NULL,
    saved_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Cache stores one serialized snapshot per owner.
type Cache struct {
	db     *sql.DB
	logger *logging.Logger

	mu     sync.RWMutex
	closed bool
}

// New opens (or creates) the cache database at cfg.Path.
func New(cfg *Config) (*Cache, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	cfg.setDefaults()
	if cfg.Path == "" {
		return nil, fmt.Errorf("Path is required")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d",
		cfg.Path, cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and is plenty
	// for the session's one writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up cache schema: %w", err)
	}

	return &Cache{
		db:     db,
		logger: cfg.Logger.WithComponent("snapshot-cache"),
	}, nil
}

// Close releases the database handle.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

func (c *Cache) guard() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrCacheClosed
	}
	return nil
}

// Save replaces the cached snapshot for owner.
func (c *Cache) Save(ctx context.Context, owner string, snap *model.Snapshot) error {
	if err := c.guard(); err != nil {
		return err
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return errors.NewTransient(errors.OpCache, "sqlite",
			fmt.Errorf("failed to marshal snapshot: %w", err))
	}

	query := `INSERT INTO snapshots (owner, payload, saved_at) VALUES (?, ?, CURRENT_TIMESTAMP)
	          ON CONFLICT (owner) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at`
	if _, err := c.db.ExecContext(ctx, query, owner, string(payload)); err != nil {
		return errors.NewTransient(errors.OpCache, "sqlite",
			fmt.Errorf("failed to save snapshot: %w", err))
	}

	c.logger.Debug("snapshot cached",
		slog.String("owner", owner), slog.Int("bytes", len(payload)))
	return nil
}

// Load returns the cached snapshot for owner, or ErrNoSnapshot.
func (c *Cache) Load(ctx context.Context, owner string) (*model.Snapshot, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}

	var payload string
	query := `SELECT payload FROM snapshots WHERE owner = ?`
	err := c.db.QueryRowContext(ctx, query, owner).Scan(&payload)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, errors.NewTransient(errors.OpCache, "sqlite",
			fmt.Errorf("failed to load snapshot: %w", err))
	}

	snap := &model.Snapshot{}
	if err := json.Unmarshal([]byte(payload), snap); err != nil {
		return nil, errors.NewTransient(errors.OpCache, "sqlite",
			fmt.Errorf("failed to unmarshal snapshot: %w", err))
	}
	return snap, nil
}

// Delete drops the cached snapshot for owner, e.g. on sign-out. Deleting
// an absent snapshot is not an error.
func (c *Cache) Delete(ctx context.Context, owner string) error {
	if err := c.guard(); err != nil {
		return err
	}

	query := `DELETE FROM snapshots WHERE owner = ?`
	if _, err := c.db.ExecContext(ctx, query, owner); err != nil {
		return errors.NewTransient(errors.OpCache, "sqlite",
			fmt.Errorf("failed to delete snapshot: %w", err))
	}
	return nil
}
