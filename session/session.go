// Package session wires the local store, the sync scheduler, the
// reconciliation engine, the remote gateway and the snapshot cache into
// one lifecycle: sign in, load, edit, sync, sign out.
package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/caseworks/casesync/errors"
	"github.com/caseworks/casesync/logging"
	"github.com/caseworks/casesync/model"
	"github.com/caseworks/casesync/reconcile"
	"github.com/caseworks/casesync/scheduler"
	"github.com/caseworks/casesync/store"
)

// SnapshotCache persists the latest snapshot per owner between runs.
type SnapshotCache interface {
	Save(ctx context.Context, owner string, snap *model.Snapshot) error
	Load(ctx context.Context, owner string) (*model.Snapshot, error)
	Delete(ctx context.Context, owner string) error
}

// ErrNoOwner is returned by LoadRemote before SignIn.
var ErrNoOwner = stderrors.New("no owner signed in")

// Session owns one caseworker's sync lifecycle. Local writes go through
// Store(); the session debounces them, reconciles against the remote
// store and keeps the cache fresh. A session cannot be reused after
// SignOut; create a new one for the next sign-in.
type Session struct {
	store     *store.Store
	scheduler *scheduler.Scheduler
	engine    *reconcile.Engine
	gateway   reconcile.TableGateway
	cache     SnapshotCache
	logger    *logging.Logger
	metrics   reconcile.Collector

	debounce     time.Duration
	reconcileCfg reconcile.Config

	mu    sync.Mutex
	owner string
}

// New assembles a session from functional options. A session without a
// gateway works fully offline: writes hit the store and, when a cache is
// configured, the cache.
func New(opts ...Option) (*Session, error) {
	s := &Session{
		debounce: scheduler.DefaultDebounce,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("session option: %w", err)
		}
	}
	if s.logger == nil {
		s.logger = logging.Default()
	}

	s.store = store.New(s.logger)
	if s.gateway != nil {
		s.engine = reconcile.NewEngine(s.gateway, s.reconcileCfg, s.logger, s.metrics)
	}

	var dispatch scheduler.Dispatch
	if s.engine != nil || s.cache != nil {
		dispatch = s.dispatch
	}
	s.scheduler = scheduler.New(dispatch, s.debounce, s.logger)
	s.store.OnWrite(s.scheduler.Notify)

	return s, nil
}

// Store exposes the local case file for reads, writes and subscriptions.
func (s *Session) Store() *store.Store { return s.store }

// dispatch is the scheduler's cycle: reconcile remotely, then persist
// the snapshot locally. Cache writes are best-effort.
func (s *Session) dispatch(ctx context.Context, snap *model.Snapshot, owner string) {
	if s.engine != nil {
		result := s.engine.Reconcile(ctx, snap, owner)
		if !result.Ok() {
			s.logger.Warn("reconciliation left tables unsynced",
				slog.Any("failed", result.Failed))
		}
	}
	if s.cache != nil {
		if err := s.cache.Save(ctx, owner, snap); err != nil {
			s.logger.LogError(err, "failed to cache snapshot")
		}
	}
}

// SetOwner binds the session to an owner without loading. An empty
// owner disables dispatching; local writes still take effect.
func (s *Session) SetOwner(owner string) {
	s.mu.Lock()
	s.owner = owner
	s.mu.Unlock()
	s.scheduler.SetOwner(owner)
}

// SignIn binds the session to an owner and performs the initial load.
func (s *Session) SignIn(ctx context.Context, owner string) error {
	if owner == "" {
		return fmt.Errorf("owner must not be empty")
	}
	s.SetOwner(owner)
	return s.LoadRemote(ctx)
}

// Owner returns the signed-in owner, or "".
func (s *Session) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// LoadRemote replaces the local case file with the owner's remote data.
// Unprovisioned remote tables load as empty collections. When the remote
// store is unreachable the cached snapshot is used instead, and if there
// is none the local data stays as it is and the error is returned.
//
// Deletes against the remote store stay withheld until one LoadRemote
// succeeds: reconciling a transiently empty local snapshot must never
// clear remote tables.
func (s *Session) LoadRemote(ctx context.Context) error {
	owner := s.Owner()
	if owner == "" {
		return ErrNoOwner
	}

	if s.gateway == nil {
		return s.loadFromCache(ctx, owner, nil)
	}

	snap, err := s.fetchRemote(ctx, owner)
	if err != nil {
		s.logger.LogError(err, "remote load failed, falling back to cached snapshot")
		return s.loadFromCache(ctx, owner, err)
	}

	s.store.Load(snap)
	if s.engine != nil {
		s.engine.EnableDeletes()
	}
	if s.cache != nil {
		if cacheErr := s.cache.Save(ctx, owner, snap); cacheErr != nil {
			s.logger.LogError(cacheErr, "failed to cache loaded snapshot")
		}
	}
	s.logger.Info("remote case file loaded",
		slog.String("owner", owner),
		slog.Int("families", len(snap.Families)),
		slog.Int("members", len(snap.Members)),
		slog.Int("visits", len(snap.Visits)),
		slog.Int("deliveries", len(snap.Deliveries)))
	return nil
}

// fetchRemote pulls all four tables. A missing remote table is soft: it
// loads as an empty collection.
func (s *Session) fetchRemote(ctx context.Context, owner string) (*model.Snapshot, error) {
	byTable := make(map[string][]model.Row, 4)
	for _, table := range model.TablesInDependencyOrder() {
		rows, err := s.gateway.Select(ctx, table, owner)
		switch {
		case err == nil:
			byTable[table] = rows
		case errors.IsMissingTable(err):
			s.logger.Warn("remote table not provisioned, loading empty",
				slog.String("table", table))
		default:
			return nil, err
		}
	}
	return model.SnapshotFromRows(
		byTable[model.TableFamilies],
		byTable[model.TableMembers],
		byTable[model.TableVisits],
		byTable[model.TableDeliveries],
	), nil
}

// loadFromCache loads the cached snapshot into the store. fetchErr, when
// non-nil, is returned if the cache cannot serve either.
func (s *Session) loadFromCache(ctx context.Context, owner string, fetchErr error) error {
	if s.cache == nil {
		return fetchErr
	}
	snap, err := s.cache.Load(ctx, owner)
	if err != nil {
		s.logger.Debug("no cached snapshot to load",
			slog.String("owner", owner), slog.String("reason", err.Error()))
		return fetchErr
	}
	s.store.Load(snap)
	s.logger.Info("loaded cached snapshot", slog.String("owner", owner))
	return nil
}

// SignOut stops syncing, clears the local case file and forgets the
// owner's cached snapshot. The session is spent afterwards.
func (s *Session) SignOut(ctx context.Context) {
	s.scheduler.Stop()
	if s.engine != nil {
		s.engine.DisableDeletes()
	}

	owner := s.Owner()
	if s.cache != nil && owner != "" {
		if err := s.cache.Delete(ctx, owner); err != nil {
			s.logger.LogError(err, "failed to drop cached snapshot")
		}
	}

	s.store.Reset()
	s.mu.Lock()
	s.owner = ""
	s.mu.Unlock()
	s.logger.Info("signed out", slog.String("owner", owner))
}

// Close stops the scheduler, waiting for an in-flight reconciliation.
// Unlike SignOut it leaves local and cached data in place.
func (s *Session) Close() {
	s.scheduler.Stop()
}
