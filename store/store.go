// Package store holds the canonical in-memory snapshot for the active
// session and broadcasts every accepted mutation to subscribers. It is
// the single source of truth for the UI between remote syncs; the remote
// store is reconciled asynchronously and lags behind.
package store

import (
	"sync"

	"github.com/caseworks/casesync/logging"
	"github.com/caseworks/casesync/model"
)

// SyncTrigger is invoked with a deep copy of the new snapshot after every
// Write. The scheduler hangs off this hook. Load never fires it.
type SyncTrigger func(snap *model.Snapshot)

type subscription struct {
	id int
	fn func(*model.Snapshot)
}

// Store owns the canonical snapshot. All reads hand out deep copies;
// nothing outside the store ever holds a live reference.
type Store struct {
	mu       sync.Mutex
	snapshot model.Snapshot
	subs     []subscription
	nextID   int
	onWrite  SyncTrigger
	logger   *logging.Logger
}

// New creates an empty store. If logger is nil the package default is
// used.
func New(logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{logger: logger.WithComponent("store")}
}

// OnWrite installs the sync trigger. Pass nil to detach it.
func (s *Store) OnWrite(fn SyncTrigger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onWrite = fn
}

// Read returns a deep, independent copy of the current snapshot. It
// never fails; before any data is loaded the collections are empty.
func (s *Store) Read() *model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Clone()
}

// Write replaces the snapshot wholesale. Every subscriber is notified
// synchronously before Write returns, then the sync trigger fires.
func (s *Store) Write(snap *model.Snapshot) {
	s.replace(snap, true)
}

// Load replaces the snapshot with data fetched from the remote store.
// Subscribers are notified so the UI re-renders, but the sync trigger is
// suppressed: pushing freshly fetched data back would be redundant.
func (s *Store) Load(snap *model.Snapshot) {
	s.replace(snap, false)
}

func (s *Store) replace(snap *model.Snapshot, triggerSync bool) {
	s.mu.Lock()
	s.snapshot = *snap.Clone()
	subs := append([]subscription(nil), s.subs...)
	onWrite := s.onWrite
	s.mu.Unlock()

	for _, sub := range subs {
		s.deliver(sub, snap)
	}
	if triggerSync && onWrite != nil {
		onWrite(snap.Clone())
	}
}

// deliver runs one callback with its own deep copy. A panic in one
// subscriber must not prevent the remaining subscribers from running.
func (s *Store) deliver(sub subscription, snap *model.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("subscriber panicked", "subscriber", sub.id, "panic", r)
		}
	}()
	sub.fn(snap.Clone())
}

// Subscribe registers a callback invoked with a deep copy of the
// snapshot on every Write and Load. The returned closure deregisters the
// callback; calling it more than once is a no-op.
func (s *Store) Subscribe(fn func(*model.Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Reset clears the snapshot without notifying anyone. Used on sign-out.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = model.Snapshot{}
}
