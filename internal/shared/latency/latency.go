// Package latency simulates the fixed round-trip of the mocked backend.
package latency

import (
	"context"
	"time"
)

// Wait suspends for d or until ctx is done, whichever comes first.
// A non-positive d returns immediately unless ctx is already done.
func Wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
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

// Profile holds the simulated duration of every mocked operation.
type Profile struct {
	Login    time.Duration
	OTP      time.Duration
	Verify   time.Duration
	Register time.Duration
	Transfer time.Duration
	Purchase time.Duration
	Reset    time.Duration
}

// Default returns the stock simulated durations.
func Default() Profile {
	return Profile{
		Login:    1000 * time.Millisecond,
		OTP:      1500 * time.Millisecond,
		Verify:   1500 * time.Millisecond,
		Register: 2000 * time.Millisecond,
		Transfer: 2000 * time.Millisecond,
		Purchase: 1500 * time.Millisecond,
		Reset:    2000 * time.Millisecond,
	}
}

// None returns a profile with every delay disabled. Useful in tests.
func None() Profile {
	return Profile{}
}
