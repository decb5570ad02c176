package reconcile

import (
	"context"
	"time"

	"github.com/caseworks/casesync/errors"
)

// RetryPolicy decides how often and how fast a failed remote request is
// reattempted, keyed off the error classification:
//
//   - missing table: never retried, surfaced immediately (soft case)
//   - constraint violation: one extra attempt after a short fixed delay
//   - timeout / transient: exponential backoff up to MaxAttempts
//
// The policy is independent of the table-sync logic so retry behavior is
// testable on its own.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts for retryable
	// failures, including the initial one.
	MaxAttempts int

	// InitialDelay is the backoff before the first retry; each further
	// retry doubles it via Multiplier, capped at MaxDelay.
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// ConstraintDelay is the fixed wait before the single extra attempt
	// granted to constraint violations.
	ConstraintDelay time.Duration
}

// DefaultRetryPolicy mirrors the production schedule: three attempts
// with backoff 1s → 2s → capped 5s, and a 750ms grace retry for
// constraint violations.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialDelay:    time.Second,
		MaxDelay:        5 * time.Second,
		Multiplier:      2.0,
		ConstraintDelay: 750 * time.Millisecond,
	}
}

// Do runs op until it succeeds, its retry budget is exhausted, or ctx is
// done. It returns the number of attempts made and the final error.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	delay := p.InitialDelay
	attempts := 0
	constraintRetried := false

	for {
		attempts++
		err := op(ctx)
		if err == nil {
			return attempts, nil
		}

		switch errors.KindOf(err) {
		case errors.KindMissingTable:
			return attempts, err

		case errors.KindConstraint:
			if constraintRetried {
				return attempts, err
			}
			constraintRetried = true
			if waitErr := sleep(ctx, p.ConstraintDelay); waitErr != nil {
				return attempts, waitErr
			}

		default: // timeout or transient
			if attempts >= maxAttempts {
				return attempts, err
			}
			if waitErr := sleep(ctx, delay); waitErr != nil {
				return attempts, waitErr
			}
			next := time.Duration(float64(delay) * p.Multiplier)
			if next > p.MaxDelay {
				next = p.MaxDelay
			}
			delay = next
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
