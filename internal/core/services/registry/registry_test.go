package registry

import (
	"ImeiGuard/internal/adapters/eventbus"
	"ImeiGuard/internal/adapters/memory"
	"ImeiGuard/internal/adapters/security"
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/ports"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) }

func newSeededRegistry(t *testing.T, opts Options) *Registry {
	t.Helper()
	nopLogger := zerolog.Nop()
	hasher := security.NewSHA256Hasher()
	if opts.Now == nil {
		opts.Now = fixedNow
	}
	return New(
		memory.NewDeviceRepository(SeedDevices(hasher), &nopLogger),
		memory.NewSearchRepository(),
		hasher,
		nil,
		opts,
		&nopLogger,
	)
}

func TestVerifyImei_SeedScenarios(t *testing.T) {
	reg := newSeededRegistry(t, Options{})
	ctx := context.Background()

	clean, err := reg.VerifyImei(ctx, "123456789012345")
	require.NoError(t, err)
	assert.Equal(t, domain.ResultClean, clean.Result)
	require.NotNil(t, clean.DeviceInfo)
	assert.Equal(t, domain.DeviceSummary{Brand: "Apple", Model: "iPhone 13", Type: domain.DeviceSmartphone}, *clean.DeviceInfo)
	assert.Equal(t, "2025-06-01", clean.Date)

	black, err := reg.VerifyImei(ctx, "987654321098765")
	require.NoError(t, err)
	assert.Equal(t, domain.ResultBlacklisted, black.Result)
	require.NotNil(t, black.DeviceInfo)
	assert.Equal(t, "Samsung", black.DeviceInfo.Brand)

	unknown, err := reg.VerifyImei(ctx, "000000000000000")
	require.NoError(t, err)
	assert.Equal(t, domain.ResultUnknown, unknown.Result)
	assert.Nil(t, unknown.DeviceInfo)

	// Rejected devices also read as unknown.
	rejected, err := reg.VerifyImei(ctx, "852456963741258")
	require.NoError(t, err)
	assert.Equal(t, domain.ResultUnknown, rejected.Result)
	assert.NotNil(t, rejected.DeviceInfo)

	history, err := reg.SearchHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, rejected.ID, history[0].ID)
	assert.Equal(t, clean.ID, history[3].ID)
}

func TestVerifyImei_StampsLastChecked(t *testing.T) {
	reg := newSeededRegistry(t, Options{})
	ctx := context.Background()

	_, err := reg.VerifyImei(ctx, "357951456852789")
	require.NoError(t, err)

	d, err := reg.GetDeviceByImei(ctx, "357951456852789")
	require.NoError(t, err)
	require.NotNil(t, d.LastChecked)
	assert.Equal(t, "2025-06-01", *d.LastChecked)
}

// interleavingRepo runs 'between' once, right after the first GetByIMEI.
type interleavingRepo struct {
	ports.DeviceRepository
	once    sync.Once
	between func()
}

func (r *interleavingRepo) GetByIMEI(ctx context.Context, imei string) (*domain.Device, error) {
	d, err := r.DeviceRepository.GetByIMEI(ctx, imei)
	r.once.Do(r.between)
	return d, err
}

func TestVerifyImei_KeepsConcurrentStatusChange(t *testing.T) {
	nopLogger := zerolog.Nop()
	hasher := security.NewSHA256Hasher()
	ctx := context.Background()

	base := memory.NewDeviceRepository(SeedDevices(hasher), &nopLogger)
	repo := &interleavingRepo{DeviceRepository: base}
	repo.between = func() {
		d, err := base.GetByIMEI(ctx, "123456789012345")
		require.NoError(t, err)
		d.Status = domain.StatusBlacklisted
		d.HashedNationalID = hasher.Hash("999888777")
		require.NoError(t, base.Update(ctx, d))
	}
	reg := New(repo, memory.NewSearchRepository(), hasher, nil, Options{Now: fixedNow}, &nopLogger)

	_, err := reg.VerifyImei(ctx, "123456789012345")
	require.NoError(t, err)

	d, err := base.GetByIMEI(ctx, "123456789012345")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBlacklisted, d.Status)
	assert.Equal(t, hasher.Hash("999888777"), d.HashedNationalID)
	require.NotNil(t, d.LastChecked)
	assert.Equal(t, "2025-06-01", *d.LastChecked)
}

func TestVerifyImei_RepeatedChecksAreDistinct(t *testing.T) {
	reg := newSeededRegistry(t, Options{})
	ctx := context.Background()

	first, err := reg.VerifyImei(ctx, "789456123789456")
	require.NoError(t, err)
	second, err := reg.VerifyImei(ctx, "789456123789456")
	require.NoError(t, err)

	assert.Equal(t, first.Result, second.Result)
	assert.NotEqual(t, first.ID, second.ID)

	history, err := reg.SearchHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
}

func TestVerifyImei_CancelledLeavesHistoryUntouched(t *testing.T) {
	reg := newSeededRegistry(t, Options{VerifyLatency: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := reg.VerifyImei(ctx, "123456789012345")
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("VerifyImei did not return after cancel")
	}

	history, err := reg.SearchHistory(context.Background())
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAddDevice_PendingRoundtrip(t *testing.T) {
	reg := newSeededRegistry(t, Options{})
	ctx := context.Background()

	created, err := reg.AddDevice(ctx, domain.DeviceDraft{
		IMEI: "490154203237518", Brand: "Oppo", Model: "Reno 8",
		Type: domain.DeviceSmartphone, NationalID: "999888777",
		PhoneNumber: "0661234567", OwnerName: "Sara Haddad",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.StatusPending, created.Status)
	assert.Equal(t, "2025-06-01", created.RegistrationDate)
	assert.NotEqual(t, "999888777", created.HashedNationalID)

	got, err := reg.GetDeviceByImei(ctx, "490154203237518")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, domain.StatusPending, got.Status)

	// A pending device checks as unknown.
	search, err := reg.VerifyImei(ctx, "490154203237518")
	require.NoError(t, err)
	assert.Equal(t, domain.ResultUnknown, search.Result)

	devices, err := reg.Devices(ctx)
	require.NoError(t, err)
	assert.Len(t, devices, 6)
}

func TestAddDevice_DuplicateIMEI(t *testing.T) {
	ctx := context.Background()
	draft := domain.DeviceDraft{IMEI: "123456789012345", Brand: "Apple", Model: "iPhone 13", Type: domain.DeviceSmartphone}

	lenient := newSeededRegistry(t, Options{})
	_, err := lenient.AddDevice(ctx, draft)
	require.NoError(t, err)

	// The seeded device is still the one found first.
	d, err := lenient.GetDeviceByImei(ctx, "123456789012345")
	require.NoError(t, err)
	assert.Equal(t, "1", d.ID)

	strict := newSeededRegistry(t, Options{EnforceUniqueIMEI: true})
	_, err = strict.AddDevice(ctx, draft)
	assert.ErrorIs(t, err, ErrDuplicateIMEI)
}

func TestGetDeviceByImei_Missing(t *testing.T) {
	reg := newSeededRegistry(t, Options{})
	d, err := reg.GetDeviceByImei(context.Background(), "111111111111111")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestAddSearchToHistory(t *testing.T) {
	reg := newSeededRegistry(t, Options{})
	ctx := context.Background()

	s, err := reg.AddSearchToHistory(ctx, domain.SearchDraft{IMEI: "222222222222222", Result: domain.ResultUnknown})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "2025-06-01", s.Date)

	history, err := reg.SearchHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, s.ID, history[0].ID)
}

func TestVerifyOwnership(t *testing.T) {
	reg := newSeededRegistry(t, Options{})
	ctx := context.Background()

	tests := []struct {
		name       string
		imei       string
		nationalID string
		want       bool
	}{
		{"matching owner", "123456789012345", "100200300", true},
		{"wrong owner", "123456789012345", "200300400", false},
		{"other device", "357951456852789", "300400500", true},
		{"missing device", "000000000000000", "100200300", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := reg.VerifyOwnership(ctx, tt.imei, tt.nationalID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestStatusTransitions(t *testing.T) {
	reg := newSeededRegistry(t, Options{})
	ctx := context.Background()

	d, err := reg.AddDevice(ctx, domain.DeviceDraft{IMEI: "490154203237518", Type: domain.DeviceTablet})
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, d.Status)

	d, err = reg.Reject(ctx, "490154203237518")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, d.Status)

	_, err = reg.Reject(ctx, "490154203237518")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	d, err = reg.Approve(ctx, "490154203237518")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusVerified, d.Status)

	search, err := reg.VerifyImei(ctx, "490154203237518")
	require.NoError(t, err)
	assert.Equal(t, domain.ResultClean, search.Result)

	d, err = reg.Blacklist(ctx, "490154203237518")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBlacklisted, d.Status)

	_, err = reg.Approve(ctx, "490154203237518")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Earlier history entries are never rewritten.
	history, err := reg.SearchHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.ResultClean, history[0].Result)

	_, err = reg.Approve(ctx, "000000000000000")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestTransferOwnership(t *testing.T) {
	reg := newSeededRegistry(t, Options{})
	ctx := context.Background()

	d, err := reg.TransferOwnership(ctx, "123456789012345", domain.NewOwner{
		Name: "Yacine Bouzid", PhoneNumber: "0770112233", NationalID: "700800900",
	})
	require.NoError(t, err)
	assert.Equal(t, "Yacine Bouzid", d.OwnerName)
	assert.Equal(t, "0770112233", d.PhoneNumber)

	ok, err := reg.VerifyOwnership(ctx, "123456789012345", "700800900")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reg.VerifyOwnership(ctx, "123456789012345", "100200300")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = reg.TransferOwnership(ctx, "987654321098765", domain.NewOwner{Name: "X", NationalID: "1"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = reg.TransferOwnership(ctx, "000000000000000", domain.NewOwner{Name: "X", NationalID: "1"})
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestRegistry_PublishesEvents(t *testing.T) {
	nopLogger := zerolog.Nop()
	hasher := security.NewSHA256Hasher()
	bus := eventbus.NewInMemoryEventBus(&nopLogger)

	var mu sync.Mutex
	var topics []string
	record := func(ctx context.Context, e ports.Event) error {
		mu.Lock()
		defer mu.Unlock()
		topics = append(topics, e.Topic)
		return nil
	}
	bus.Subscribe(ports.TopicDeviceRegistered, record)
	bus.Subscribe(ports.TopicDeviceStatusChanged, record)
	bus.Subscribe(ports.TopicImeiChecked, record)
	bus.Subscribe(ports.TopicOwnershipTransferred, record)

	reg := New(memory.NewDeviceRepository(nil, &nopLogger), memory.NewSearchRepository(), hasher, bus, Options{Now: fixedNow}, &nopLogger)
	ctx := context.Background()

	_, err := reg.AddDevice(ctx, domain.DeviceDraft{IMEI: "490154203237518"})
	require.NoError(t, err)
	bus.Wait()
	_, err = reg.Approve(ctx, "490154203237518")
	require.NoError(t, err)
	bus.Wait()
	_, err = reg.VerifyImei(ctx, "490154203237518")
	require.NoError(t, err)
	bus.Wait()
	_, err = reg.TransferOwnership(ctx, "490154203237518", domain.NewOwner{Name: "New", NationalID: "1"})
	require.NoError(t, err)
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		ports.TopicDeviceRegistered,
		ports.TopicDeviceStatusChanged,
		ports.TopicImeiChecked,
		ports.TopicOwnershipTransferred,
	}, topics)
}
