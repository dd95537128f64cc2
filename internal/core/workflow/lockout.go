package workflow

import (
	"ImeiGuard/internal/core/ports"
	"context"
	"fmt"
	"time"
)

// lockout counts consecutive failures under one AttemptStore key.
type lockout struct {
	store  ports.AttemptStore
	key    string
	policy OwnershipPolicy
	now    func() time.Time
}

func newLockout(store ports.AttemptStore, scope string, policy OwnershipPolicy, now func() time.Time) *lockout {
	return &lockout{store: store, key: "ownership:" + scope, policy: policy, now: now}
}

func (l *lockout) lockedUntil(ctx context.Context) (time.Time, error) {
	until, err := l.store.LockedUntil(ctx, l.key)
	if err != nil {
		return time.Time{}, fmt.Errorf("read lockout: %w", err)
	}
	if !until.IsZero() && !l.now().Before(until) {
		return time.Time{}, nil
	}
	return until, nil
}

// guard returns ErrLocked while the key is locked.
func (l *lockout) guard(ctx context.Context) error {
	until, err := l.lockedUntil(ctx)
	if err != nil {
		return err
	}
	if !until.IsZero() {
		return fmt.Errorf("%w (until %s)", ErrLocked, until.Format(time.Kitchen))
	}
	return nil
}

// fail records a failure and locks the key once the limit is reached.
func (l *lockout) fail(ctx context.Context) (locked bool, err error) {
	n, err := l.store.RecordFailure(ctx, l.key)
	if err != nil {
		return false, fmt.Errorf("record failure: %w", err)
	}
	if n < l.policy.MaxAttempts {
		return false, nil
	}
	if err := l.store.Lock(ctx, l.key, l.now().Add(l.policy.LockDuration)); err != nil {
		return false, fmt.Errorf("lock: %w", err)
	}
	return true, nil
}

func (l *lockout) reset(ctx context.Context) error {
	if err := l.store.Reset(ctx, l.key); err != nil {
		return fmt.Errorf("reset lockout: %w", err)
	}
	return nil
}
