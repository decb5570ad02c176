// Package scheduler converts bursts of local writes into a minimal
// number of reconciliation runs. Writes are debounced into a quiet
// period; overlapping runs are serialized through a single in-flight
// slot plus a single-slot queue holding only the newest snapshot.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/caseworks/casesync/logging"
	"github.com/caseworks/casesync/model"
)

// DefaultDebounce is the quiet period a burst of writes must respect
// before a reconciliation is dispatched.
const DefaultDebounce = 700 * time.Millisecond

// Dispatch runs one reconciliation cycle for the snapshot under the
// owner identity. The scheduler never runs two dispatches concurrently
// and treats return as "the cycle finished", success or not.
type Dispatch func(ctx context.Context, snap *model.Snapshot, owner string)

// Scheduler is the Idle/Debouncing/Dispatching state machine. All state
// transitions happen under one mutex; the original design relied on a
// single-threaded event loop, so a multi-threaded port has to lock the
// pending and queued slots explicitly.
type Scheduler struct {
	mu   sync.Mutex
	cond *sync.Cond

	debounce time.Duration
	dispatch Dispatch
	logger   *logging.Logger

	owner    string
	timer    *time.Timer
	pending  *model.Snapshot // latest snapshot while debouncing
	queued   *model.Snapshot // latest snapshot that arrived mid-flight
	inFlight bool
	stopped  bool
}

// New creates a scheduler dispatching through fn. A zero or negative
// debounce falls back to DefaultDebounce.
func New(fn Dispatch, debounce time.Duration, logger *logging.Logger) *Scheduler {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Scheduler{
		debounce: debounce,
		dispatch: fn,
		logger:   logger.WithComponent("scheduler"),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// SetOwner sets the owner identity partitioning remote rows. An empty
// owner disables dispatching; local writes still take effect.
func (s *Scheduler) SetOwner(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = owner
}

// Notify records a local write. The debounce timer is (re)armed and the
// pending snapshot replaced, so a burst of writes collapses into one
// dispatch carrying the last snapshot of the burst.
func (s *Scheduler) Notify(snap *model.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.pending = snap
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.quietPeriodElapsed)
}

func (s *Scheduler) quietPeriodElapsed() {
	s.mu.Lock()
	if s.stopped || s.pending == nil {
		s.mu.Unlock()
		return
	}
	snap := s.pending
	s.pending = nil
	s.timer = nil

	if s.dispatch == nil {
		s.logger.Warn("no remote store configured, keeping changes local only")
		s.mu.Unlock()
		return
	}
	if s.owner == "" {
		s.logger.Warn("no owner identity set, keeping changes local only")
		s.mu.Unlock()
		return
	}

	if s.inFlight {
		// Only the newest snapshot matters; an older queued one is
		// overwritten, never dispatched.
		s.queued = snap
		s.mu.Unlock()
		return
	}

	s.inFlight = true
	owner := s.owner
	s.mu.Unlock()

	go s.run(snap, owner)
}

// run executes dispatch cycles, draining the queued slot in a loop. A
// queued snapshot starts immediately, without a fresh debounce wait.
func (s *Scheduler) run(snap *model.Snapshot, owner string) {
	for {
		s.dispatch(context.Background(), snap, owner)

		s.mu.Lock()
		if s.queued != nil && !s.stopped {
			snap = s.queued
			s.queued = nil
			owner = s.owner
			s.mu.Unlock()
			continue
		}
		s.inFlight = false
		s.cond.Broadcast()
		s.mu.Unlock()
		return
	}
}

// Stop cancels any armed timer, drops pending and queued snapshots, and
// waits for an in-flight dispatch to finish. The scheduler accepts no
// further notifications afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
	s.queued = nil
	for s.inFlight {
		s.cond.Wait()
	}
}
