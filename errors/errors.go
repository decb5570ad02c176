// Package errors provides the structured error type used across the sync
// core. Every remote-store failure is classified into a Kind, and the
// retry policy keys its behavior off that classification.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a sync failure.
type Kind string

const (
	// KindMissingTable means the remote relation is not provisioned yet.
	// Treated as a soft warning: the table is skipped, never retried.
	KindMissingTable Kind = "MISSING_TABLE"

	// KindConstraint means a uniqueness or foreign-key violation. Gets a
	// single extra attempt (transient-glitch hypothesis), then surfaces.
	KindConstraint Kind = "CONSTRAINT_VIOLATION"

	// KindTimeout means the request lost its race against the deadline.
	KindTimeout Kind = "TIMEOUT"

	// KindTransient covers unclassified network or storage failures.
	KindTransient Kind = "TRANSIENT"
)

// Operation names the sync operation during which an error occurred.
type Operation string

const (
	OpSelect    Operation = "select"
	OpUpsert    Operation = "upsert"
	OpDelete    Operation = "delete"
	OpReconcile Operation = "reconcile"
	OpLoad      Operation = "load"
	OpCache     Operation = "cache"
)

// SyncError is the structured error carried through the reconciliation
// path.
type SyncError struct {
	// Op is the operation that failed.
	Op Operation

	// Component generated the error (e.g. "gateway", "engine", "cache").
	Component string

	// Kind is the failure classification.
	Kind Kind

	// Err is the underlying cause.
	Err error

	// Retryable reports whether a fresh attempt could succeed.
	Retryable bool
}

func (e *SyncError) Error() string {
	msg := fmt.Sprintf("%s operation failed", e.Op)
	if e.Component != "" {
		msg = fmt.Sprintf("%s operation failed in %s", e.Op, e.Component)
	}
	if e.Kind != "" {
		msg += fmt.Sprintf(" [%s]", e.Kind)
	}
	return msg + fmt.Sprintf(": %v", e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewMissingTable reports an unprovisioned remote relation.
func NewMissingTable(op Operation, component string, cause error) *SyncError {
	return &SyncError{Op: op, Component: component, Kind: KindMissingTable, Err: cause, Retryable: false}
}

// NewConstraint reports a uniqueness or foreign-key violation.
func NewConstraint(op Operation, component string, cause error) *SyncError {
	return &SyncError{Op: op, Component: component, Kind: KindConstraint, Err: cause, Retryable: true}
}

// NewTimeout reports a request that exceeded its deadline.
func NewTimeout(op Operation, component string, cause error) *SyncError {
	return &SyncError{Op: op, Component: component, Kind: KindTimeout, Err: cause, Retryable: true}
}

// NewTransient reports an unclassified failure worth retrying.
func NewTransient(op Operation, component string, cause error) *SyncError {
	return &SyncError{Op: op, Component: component, Kind: KindTransient, Err: cause, Retryable: true}
}

// KindOf returns the classification of err. Unwrapped context deadline
// errors count as timeouts; anything else unclassified is transient.
func KindOf(err error) Kind {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindTransient
}

// IsRetryable reports whether a fresh attempt at the failed operation
// could succeed. Plain timeout errors are retryable even when unwrapped.
func IsRetryable(err error) bool {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Retryable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
}

// IsMissingTable reports whether err is the soft unprovisioned-relation
// case.
func IsMissingTable(err error) bool {
	return KindOf(err) == KindMissingTable
}
