package ports

import (
	"context"
	"time"
)

// AttemptStore counts consecutive failed attempts per key and holds lockouts.
type AttemptStore interface {
	// RecordFailure increments the counter for key and returns the new count.
	RecordFailure(ctx context.Context, key string) (int, error)

	// Lock blocks key until the given time.
	Lock(ctx context.Context, key string, until time.Time) error

	// LockedUntil returns the lock expiry, or the zero time when key is not locked.
	LockedUntil(ctx context.Context, key string) (time.Time, error)

	// Reset clears both the counter and any lock.
	Reset(ctx context.Context, key string) error
}
