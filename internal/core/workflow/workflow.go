// Package workflow implements the multi-step flows behind each screen:
// IMEI check, device registration, ownership transfer, sign-up, password
// reset and service-provider registration.
//
// Every controller owns a lifetime context. Close cancels it, and any
// simulated delay still pending returns context.Canceled without touching
// controller state.
package workflow

import (
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/shared/latency"
	"context"
	"time"
)

// Registry is the part of the device registry the flows call into.
type Registry interface {
	VerifyImei(ctx context.Context, imei string) (*domain.ImeiSearch, error)
	GetDeviceByImei(ctx context.Context, imei string) (*domain.Device, error)
	AddDevice(ctx context.Context, draft domain.DeviceDraft) (*domain.Device, error)
	VerifyOwnership(ctx context.Context, imei, nationalID string) (bool, error)
	TransferOwnership(ctx context.Context, imei string, owner domain.NewOwner) (*domain.Device, error)
}

// Accounts is the part of the session holder the flows call into.
type Accounts interface {
	Current() *domain.User
	Signup(ctx context.Context, name, email, password string) (*domain.User, error)
	SignupAgent(ctx context.Context, name, email, password string) (*domain.User, error)
}

// OwnershipPolicy bounds consecutive failed ownership checks.
type OwnershipPolicy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// DefaultOwnershipPolicy is 3 strikes, then a 30 minute lock.
func DefaultOwnershipPolicy() OwnershipPolicy {
	return OwnershipPolicy{MaxAttempts: 3, LockDuration: 30 * time.Minute}
}

// Options carries the tunables shared by every controller.
type Options struct {
	Latency   latency.Profile
	OTP       OTPOptions
	Ownership OwnershipPolicy
	// Attempts backs the ownership lockout. Required by the IMEI check.
	Attempts ports.AttemptStore
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.OTP.Now == nil {
		o.OTP.Now = o.Now
	}
	if o.OTP.Latency == 0 {
		o.OTP.Latency = o.Latency.OTP
	}
	if o.Ownership.MaxAttempts < 1 {
		o.Ownership = DefaultOwnershipPolicy()
	}
	return o
}

// lifetime binds simulated operations to the owning controller.
type lifetime struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newLifetime() *lifetime {
	ctx, cancel := context.WithCancel(context.Background())
	return &lifetime{ctx: ctx, cancel: cancel}
}

// bind returns a context done when either ctx or the controller is.
func (l *lifetime) bind(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := l.ctx.Err(); err != nil {
		return nil, nil, err
	}
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(l.ctx, cancel)
	return merged, func() {
		stop()
		cancel()
	}, nil
}

func (l *lifetime) close() { l.cancel() }
