// Package reconcile makes the remote store's four tables match a local
// snapshot: upsert current rows, delete rows no longer present locally,
// in foreign-key dependency order, with batching, per-batch timeouts,
// and bounded retry. A failure in one table never aborts the others.
package reconcile

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/caseworks/casesync/errors"
	"github.com/caseworks/casesync/logging"
	"github.com/caseworks/casesync/model"
)

// Config tunes batching and timeouts. Zero fields take defaults.
type Config struct {
	// BatchSize is the maximum number of rows per remote request.
	BatchSize int

	// BaseTimeout is the floor for a batch request deadline.
	// TimeoutPerTen is added per 10 records in the batch; the result is
	// capped at MaxTimeout.
	BaseTimeout   time.Duration
	TimeoutPerTen time.Duration
	MaxTimeout    time.Duration

	// Retry is the per-batch retry schedule.
	Retry RetryPolicy
}

const (
	defaultBatchSize     = 20
	defaultBaseTimeout   = 10 * time.Second
	defaultTimeoutPerTen = 2 * time.Second
	defaultMaxTimeout    = 30 * time.Second
)

func (c *Config) setDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.BaseTimeout <= 0 {
		c.BaseTimeout = defaultBaseTimeout
	}
	if c.TimeoutPerTen <= 0 {
		c.TimeoutPerTen = defaultTimeoutPerTen
	}
	if c.MaxTimeout <= 0 {
		c.MaxTimeout = defaultMaxTimeout
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry = DefaultRetryPolicy()
	}
}

// Result reports how a reconciliation run went. Failures are recorded,
// never thrown: the scheduler only needs "the cycle finished".
type Result struct {
	// Failed lists tables whose retries were exhausted.
	Failed []string

	// Skipped lists tables whose remote relation is not provisioned.
	Skipped []string

	Duration time.Duration
}

// Ok reports whether every table synced (skipped tables are soft).
func (r *Result) Ok() bool {
	return len(r.Failed) == 0
}

// Engine reconciles snapshots against a TableGateway.
type Engine struct {
	gw      TableGateway
	cfg     Config
	logger  *logging.Logger
	metrics Collector

	// deletesEnabled gates the whole delete phase. A snapshot taken
	// before the initial remote load completes can be transiently empty;
	// deleting remote rows against it would destroy data. The session
	// enables deletes once a full remote load has succeeded.
	deletesEnabled atomic.Bool
}

// NewEngine creates an engine over gw. logger and metrics may be nil.
func NewEngine(gw TableGateway, cfg Config, logger *logging.Logger, metrics Collector) *Engine {
	cfg.setDefaults()
	if logger == nil {
		logger = logging.Default()
	}
	if metrics == nil {
		metrics = NoOpCollector{}
	}
	return &Engine{
		gw:      gw,
		cfg:     cfg,
		logger:  logger.WithComponent("reconcile"),
		metrics: metrics,
	}
}

// EnableDeletes allows the delete phase (diff deletes and full clears).
func (e *Engine) EnableDeletes() { e.deletesEnabled.Store(true) }

// DisableDeletes withholds the delete phase again, e.g. after sign-out.
func (e *Engine) DisableDeletes() { e.deletesEnabled.Store(false) }

// Reconcile makes the remote tables for owner match snap. Tables are
// processed strictly sequentially in dependency order; per-table
// failures are isolated and reported in the Result. It never returns an
// error: sync failures are observability-only.
func (e *Engine) Reconcile(ctx context.Context, snap *model.Snapshot, owner string) *Result {
	start := time.Now()
	result := &Result{}

	for _, table := range model.TablesInDependencyOrder() {
		err := e.syncTable(ctx, table, snap, owner)
		switch {
		case err == nil:
		case errors.IsMissingTable(err):
			result.Skipped = append(result.Skipped, table)
			e.metrics.RecordTableSkipped(table)
			e.logger.Warn("remote table not provisioned, skipping",
				slog.String("table", table))
		default:
			result.Failed = append(result.Failed, table)
			e.metrics.RecordTableFailure(table)
			e.logger.LogError(err, "table sync failed, continuing with remaining tables",
				slog.String("table", table))
		}
	}

	result.Duration = time.Since(start)
	e.metrics.RecordRun(result.Duration, len(result.Failed))
	if result.Ok() {
		e.logger.Info("reconciliation finished",
			slog.Duration("duration", result.Duration),
			slog.Int("skipped_tables", len(result.Skipped)))
	}
	return result
}

// syncTable runs the upsert phase then the delete phase for one table.
func (e *Engine) syncTable(ctx context.Context, table string, snap *model.Snapshot, owner string) error {
	rows := snap.Rows(table, owner)

	for start := 0; start < len(rows); start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]
		if err := e.upsertBatch(ctx, table, batch); err != nil {
			return err
		}
	}

	return e.deletePhase(ctx, table, snap, owner)
}

func (e *Engine) upsertBatch(ctx context.Context, table string, batch []model.Row) error {
	e.metrics.RecordBatch(table, "upsert", len(batch))
	timeout := e.timeoutFor(len(batch))

	attempts, err := e.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return e.gw.Upsert(attemptCtx, table, batch)
	})
	if attempts > 1 {
		e.metrics.RecordRetries(table, "upsert", attempts-1)
	}
	return err
}

// deletePhase removes remote rows absent from the local snapshot. An
// entirely empty local collection clears the whole table for the owner
// in one request; there is nothing to diff against.
func (e *Engine) deletePhase(ctx context.Context, table string, snap *model.Snapshot, owner string) error {
	if !e.deletesEnabled.Load() {
		e.logger.Debug("delete phase withheld until initial remote load completes",
			slog.String("table", table))
		return nil
	}

	localIDs := snap.IDs(table)
	if len(localIDs) == 0 {
		e.metrics.RecordBatch(table, "delete", 0)
		attempts, err := e.cfg.Retry.Do(ctx, func(ctx context.Context) error {
			attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.BaseTimeout)
			defer cancel()
			return e.gw.DeleteAll(attemptCtx, table, owner)
		})
		if attempts > 1 {
			e.metrics.RecordRetries(table, "delete", attempts-1)
		}
		return err
	}

	local := make(map[string]struct{}, len(localIDs))
	for _, id := range localIDs {
		local[id] = struct{}{}
	}

	var remoteIDs []string
	attempts, err := e.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.BaseTimeout)
		defer cancel()
		ids, selErr := e.gw.SelectIDs(attemptCtx, table, owner)
		if selErr != nil {
			return selErr
		}
		remoteIDs = ids
		return nil
	})
	if attempts > 1 {
		e.metrics.RecordRetries(table, "select", attempts-1)
	}
	if err != nil {
		return err
	}

	var stale []string
	for _, id := range remoteIDs {
		if _, present := local[id]; !present {
			stale = append(stale, id)
		}
	}

	for start := 0; start < len(stale); start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > len(stale) {
			end = len(stale)
		}
		if err := e.deleteBatch(ctx, table, owner, stale[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) deleteBatch(ctx context.Context, table, owner string, ids []string) error {
	e.metrics.RecordBatch(table, "delete", len(ids))
	timeout := e.timeoutFor(len(ids))

	attempts, err := e.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return e.gw.Delete(attemptCtx, table, owner, ids)
	})
	if attempts > 1 {
		e.metrics.RecordRetries(table, "delete", attempts-1)
	}
	return err
}

// timeoutFor scales the request deadline with record count: base plus an
// increment per 10 records, capped.
func (e *Engine) timeoutFor(records int) time.Duration {
	timeout := e.cfg.BaseTimeout + time.Duration(records/10)*e.cfg.TimeoutPerTen
	if timeout > e.cfg.MaxTimeout {
		timeout = e.cfg.MaxTimeout
	}
	return timeout
}
