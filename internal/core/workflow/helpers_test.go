package workflow

import (
	"ImeiGuard/internal/adapters/memory"
	"ImeiGuard/internal/adapters/security"
	"ImeiGuard/internal/core/services/registry"
	"ImeiGuard/internal/core/services/session"
	"ImeiGuard/internal/core/workflow/forms"
	"ImeiGuard/internal/shared/latency"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockOTPSender struct {
	mock.Mock
}

func (m *MockOTPSender) Send(ctx context.Context, phone, code string) error {
	args := m.Called(ctx, phone, code)
	return args.Error(0)
}

// --- Fixtures ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	reg      *registry.Registry
	accounts *session.Holder
	clock    *fakeClock
	opts     Options
	log      *zerolog.Logger
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithRegistry(t, registry.Options{})
}

func newHarnessWithRegistry(t *testing.T, regOpts registry.Options) *harness {
	t.Helper()
	nopLogger := zerolog.Nop()
	clock := newFakeClock()
	hasher := security.NewSHA256Hasher()

	regOpts.Now = clock.Now
	reg := registry.New(
		memory.NewDeviceRepository(registry.SeedDevices(hasher), &nopLogger),
		memory.NewSearchRepository(),
		hasher,
		nil,
		regOpts,
		&nopLogger,
	)
	accounts := session.NewHolder(memory.NewSessionStore(), "", latency.None(), &nopLogger)

	return &harness{
		reg:      reg,
		accounts: accounts,
		clock:    clock,
		log:      &nopLogger,
		opts: Options{
			Latency:   latency.None(),
			OTP:       OTPOptions{Cooldown: 60 * time.Second, Policy: OTPLenient},
			Ownership: DefaultOwnershipPolicy(),
			Attempts:  memory.NewAttemptStore(clock.Now),
			Now:       clock.Now,
		},
	}
}

func fieldMessage(t *testing.T, err error, field string) string {
	t.Helper()
	ve, ok := forms.AsValidation(err)
	require.True(t, ok, "expected a validation error, got %v", err)
	return ve.Message(field)
}

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	ve, ok := forms.AsValidation(err)
	require.True(t, ok, "expected a validation error, got %v", err)
	names := make([]string, 0, len(ve.Fields))
	for _, f := range ve.Fields {
		names = append(names, f.Field)
	}
	return names
}

func pngFile(name string) *forms.Attachment {
	return &forms.Attachment{Name: name, Size: 200 << 10, ContentType: "image/png"}
}
