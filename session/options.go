package session

import (
	"fmt"
	"time"

	"github.com/caseworks/casesync/logging"
	"github.com/caseworks/casesync/reconcile"
)

// Option is a functional option for configuring a Session via New.
type Option func(*Session) error

// WithLogger sets the session logger. Components derive their own
// loggers from it.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Session) error {
		s.logger = logger
		return nil
	}
}

// WithGateway injects the remote table gateway. Without one the session
// is local-only.
func WithGateway(gw reconcile.TableGateway) Option {
	return func(s *Session) error {
		s.gateway = gw
		return nil
	}
}

// WithCache injects the local snapshot cache.
func WithCache(c SnapshotCache) Option {
	return func(s *Session) error {
		s.cache = c
		return nil
	}
}

// WithCollector injects a metrics collector for the reconciliation
// engine.
func WithCollector(m reconcile.Collector) Option {
	return func(s *Session) error {
		s.metrics = m
		return nil
	}
}

// WithDebounce sets the quiet period between a local write burst and the
// dispatched reconciliation.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) error {
		if d <= 0 {
			return fmt.Errorf("debounce must be positive, got %v", d)
		}
		s.debounce = d
		return nil
	}
}

// WithBatchSize sets the maximum rows per remote request.
func WithBatchSize(n int) Option {
	return func(s *Session) error {
		if n <= 0 {
			return fmt.Errorf("batch size must be positive, got %d", n)
		}
		s.reconcileCfg.BatchSize = n
		return nil
	}
}

// WithRetryPolicy sets the per-batch retry schedule.
func WithRetryPolicy(p reconcile.RetryPolicy) Option {
	return func(s *Session) error {
		s.reconcileCfg.Retry = p
		return nil
	}
}

// WithReconcileConfig replaces the whole engine configuration. Later
// WithBatchSize or WithRetryPolicy options still override their fields.
func WithReconcileConfig(cfg reconcile.Config) Option {
	return func(s *Session) error {
		s.reconcileCfg = cfg
		return nil
	}
}
