package reconcile

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/caseworks/casesync/errors"
)

func testPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialDelay:    time.Millisecond,
		MaxDelay:        4 * time.Millisecond,
		Multiplier:      2.0,
		ConstraintDelay: time.Millisecond,
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	attempts, err := testPolicy().Do(context.Background(), func(context.Context) error {
		return nil
	})
	if err != nil || attempts != 1 {
		t.Errorf("got attempts=%d err=%v, want 1 attempt and no error", attempts, err)
	}
}

func TestRetryTransientUntilExhausted(t *testing.T) {
	calls := 0
	attempts, err := testPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return errors.NewTransient(errors.OpUpsert, "gateway", stderrors.New("boom"))
	})
	if attempts != 3 || calls != 3 {
		t.Errorf("transient failure got %d attempts, want 3", attempts)
	}
	if err == nil {
		t.Error("exhausted retries must surface the final error")
	}
}

func TestRetryTransientThenSuccess(t *testing.T) {
	calls := 0
	attempts, err := testPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.NewTimeout(errors.OpUpsert, "gateway", context.DeadlineExceeded)
		}
		return nil
	})
	if err != nil {
		t.Errorf("unexpected error after recovery: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryMissingTableNotRetried(t *testing.T) {
	calls := 0
	attempts, err := testPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return errors.NewMissingTable(errors.OpUpsert, "gateway", stderrors.New("42P01"))
	})
	if calls != 1 || attempts != 1 {
		t.Errorf("missing table retried: %d calls", calls)
	}
	if !errors.IsMissingTable(err) {
		t.Errorf("classification lost: %v", err)
	}
}

func TestRetryConstraintGetsSingleExtraAttempt(t *testing.T) {
	calls := 0
	attempts, err := testPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return errors.NewConstraint(errors.OpUpsert, "gateway", stderrors.New("duplicate key"))
	})
	if calls != 2 || attempts != 2 {
		t.Errorf("constraint violation got %d attempts, want exactly 2", calls)
	}
	if errors.KindOf(err) != errors.KindConstraint {
		t.Errorf("final error kind = %v", errors.KindOf(err))
	}
}

func TestRetryConstraintRecoversOnExtraAttempt(t *testing.T) {
	calls := 0
	_, err := testPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.NewConstraint(errors.OpUpsert, "gateway", stderrors.New("fk violated"))
		}
		return nil
	})
	if err != nil {
		t.Errorf("recovery on the extra attempt should succeed: %v", err)
	}
}

func TestRetryBackoffDoublesAndCaps(t *testing.T) {
	p := RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
		Multiplier:   2.0,
	}
	start := time.Now()
	_, _ = p.Do(context.Background(), func(context.Context) error {
		return errors.NewTransient(errors.OpUpsert, "gateway", stderrors.New("boom"))
	})
	elapsed := time.Since(start)
	// delays: 10 + 20 + 20 + 20 = 70ms
	if elapsed < 70*time.Millisecond {
		t.Errorf("backoff too short: %v", elapsed)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("backoff too long, cap not applied: %v", elapsed)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := RetryPolicy{MaxAttempts: 10, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2.0}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := p.Do(ctx, func(context.Context) error {
		calls++
		return errors.NewTransient(errors.OpUpsert, "gateway", stderrors.New("boom"))
	})
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("want context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("operation ran %d times after cancellation", calls)
	}
}

func TestRetryZeroMaxAttemptsStillRunsOnce(t *testing.T) {
	calls := 0
	attempts, _ := RetryPolicy{}.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.NewTransient(errors.OpUpsert, "gateway", stderrors.New("boom"))
	})
	if calls != 1 || attempts != 1 {
		t.Errorf("zero-valued policy ran %d times, want 1", calls)
	}
}
