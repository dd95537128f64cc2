// Package registry holds the device registry and the IMEI lookup history.
//
// Lookups on unknown IMEIs are an expected case: they yield an "unknown"
// search result or a (nil, nil) device rather than an error.
package registry

import (
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/shared/latency"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

var (
	ErrDuplicateIMEI  = errors.New("a device with this IMEI is already registered")
	ErrDeviceNotFound = errors.New("device not found")
)

// Options tunes registry policies.
type Options struct {
	// VerifyLatency is the simulated duration of VerifyImei.
	VerifyLatency time.Duration
	// EnforceUniqueIMEI refuses AddDevice when the IMEI is already present.
	EnforceUniqueIMEI bool
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// StatusChange is the payload of ports.TopicDeviceStatusChanged.
type StatusChange struct {
	Device *domain.Device
	From   domain.DeviceStatus
	To     domain.DeviceStatus
}

// OwnershipTransfer is the payload of ports.TopicOwnershipTransferred.
type OwnershipTransfer struct {
	Device        *domain.Device
	PreviousOwner string
}

// Registry is the device/search registry service.
type Registry struct {
	devices  ports.DeviceRepository
	searches ports.SearchRepository
	hasher   ports.Hasher
	bus      ports.EventBus
	opts     Options
	log      zerolog.Logger
}

// New creates a registry over the given repositories. bus may be nil.
func New(
	devices ports.DeviceRepository,
	searches ports.SearchRepository,
	hasher ports.Hasher,
	bus ports.EventBus,
	opts Options,
	baseLogger *zerolog.Logger,
) *Registry {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{
		devices:  devices,
		searches: searches,
		hasher:   hasher,
		bus:      bus,
		opts:     opts,
		log:      baseLogger.With().Str("component", "registry").Logger(),
	}
}

func (r *Registry) today() string {
	return r.opts.Now().UTC().Format(dateLayout)
}

// HashNationalID returns the digest stored for a national ID.
func (r *Registry) HashNationalID(nationalID string) string {
	return r.hasher.Hash(nationalID)
}

// AddDevice registers a new device in "pending" status.
func (r *Registry) AddDevice(ctx context.Context, draft domain.DeviceDraft) (*domain.Device, error) {
	log := r.log.With().Str("imei", draft.IMEI).Logger()

	if r.opts.EnforceUniqueIMEI {
		existing, err := r.devices.GetByIMEI(ctx, draft.IMEI)
		if err != nil {
			log.Error().Err(err).Msg("Failed to check for duplicate IMEI")
			return nil, err
		}
		if existing != nil {
			log.Warn().Str("existing_id", existing.ID).Msg("Refusing duplicate IMEI")
			return nil, ErrDuplicateIMEI
		}
	}

	device := &domain.Device{
		ID:               uuid.NewString(),
		IMEI:             draft.IMEI,
		Brand:            draft.Brand,
		Model:            draft.Model,
		Type:             draft.Type,
		Status:           domain.StatusPending,
		RegistrationDate: r.today(),
		PhoneNumber:      draft.PhoneNumber,
		OwnerName:        draft.OwnerName,
	}
	if draft.NationalID != "" {
		device.HashedNationalID = r.hasher.Hash(draft.NationalID)
	}

	if err := r.devices.Create(ctx, device); err != nil {
		log.Error().Err(err).Msg("Failed to store device")
		return nil, fmt.Errorf("store device: %w", err)
	}

	log.Info().Str("device_id", device.ID).Msg("Device registered as pending")
	r.publish(ctx, ports.TopicDeviceRegistered, device)
	return device, nil
}

// VerifyImei looks up imei after the simulated latency and records the
// outcome at the front of the history.
func (r *Registry) VerifyImei(ctx context.Context, imei string) (*domain.ImeiSearch, error) {
	if err := latency.Wait(ctx, r.opts.VerifyLatency); err != nil {
		return nil, err
	}

	device, err := r.devices.GetByIMEI(ctx, imei)
	if err != nil {
		r.log.Error().Err(err).Str("imei", imei).Msg("Failed to look up IMEI")
		return nil, err
	}

	search := &domain.ImeiSearch{
		ID:     uuid.NewString(),
		IMEI:   imei,
		Date:   r.today(),
		Result: domain.ResultUnknown,
	}

	if device != nil {
		search.Result = domain.ResultFor(device.Status)
		search.DeviceInfo = device.Summary()

		if err := r.devices.MarkChecked(ctx, device.ID, search.Date); err != nil {
			// The lookup itself succeeded; a stale last-checked date is tolerable.
			r.log.Warn().Err(err).Str("device_id", device.ID).Msg("Failed to stamp last-checked date")
		}
	}

	if err := r.searches.Prepend(ctx, search); err != nil {
		r.log.Error().Err(err).Str("imei", imei).Msg("Failed to append search history")
		return nil, fmt.Errorf("append history: %w", err)
	}

	r.log.Info().Str("imei", imei).Str("result", string(search.Result)).Msg("IMEI verified")
	r.publish(ctx, ports.TopicImeiChecked, search)
	return search, nil
}

// GetDeviceByImei returns the device with imei, or (nil, nil).
func (r *Registry) GetDeviceByImei(ctx context.Context, imei string) (*domain.Device, error) {
	return r.devices.GetByIMEI(ctx, imei)
}

// AddSearchToHistory appends a record without going through VerifyImei.
func (r *Registry) AddSearchToHistory(ctx context.Context, draft domain.SearchDraft) (*domain.ImeiSearch, error) {
	search := &domain.ImeiSearch{
		ID:         uuid.NewString(),
		IMEI:       draft.IMEI,
		Date:       r.today(),
		Result:     draft.Result,
		DeviceInfo: draft.DeviceInfo,
	}
	if err := r.searches.Prepend(ctx, search); err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}
	return search, nil
}

// VerifyOwnership reports whether nationalID hashes to the stored owner digest.
// A missing device yields false.
func (r *Registry) VerifyOwnership(ctx context.Context, imei, nationalID string) (bool, error) {
	device, err := r.devices.GetByIMEI(ctx, imei)
	if err != nil {
		return false, err
	}
	if device == nil {
		return false, nil
	}
	return r.hasher.Hash(nationalID) == device.HashedNationalID, nil
}

// Devices returns every registered device.
func (r *Registry) Devices(ctx context.Context) ([]*domain.Device, error) {
	return r.devices.List(ctx)
}

// SearchHistory returns the lookup history, most recent first.
func (r *Registry) SearchHistory(ctx context.Context) ([]*domain.ImeiSearch, error) {
	return r.searches.List(ctx)
}

// Approve moves a device to "verified".
func (r *Registry) Approve(ctx context.Context, imei string) (*domain.Device, error) {
	return r.transition(ctx, imei, domain.ActionApprove)
}

// Reject moves a device to "rejected".
func (r *Registry) Reject(ctx context.Context, imei string) (*domain.Device, error) {
	return r.transition(ctx, imei, domain.ActionReject)
}

// Blacklist moves a device to "blacklisted".
func (r *Registry) Blacklist(ctx context.Context, imei string) (*domain.Device, error) {
	return r.transition(ctx, imei, domain.ActionBlacklist)
}

func (r *Registry) transition(ctx context.Context, imei string, action domain.StatusAction) (*domain.Device, error) {
	log := r.log.With().Str("imei", imei).Str("action", string(action)).Logger()

	device, err := r.devices.GetByIMEI(ctx, imei)
	if err != nil {
		return nil, err
	}
	if device == nil {
		return nil, ErrDeviceNotFound
	}

	from := device.Status
	to, err := domain.NextStatus(from, action)
	if err != nil {
		log.Warn().Str("from", string(from)).Msg("Refused status transition")
		return nil, err
	}

	device.Status = to
	if err := r.devices.Update(ctx, device); err != nil {
		log.Error().Err(err).Msg("Failed to update device status")
		return nil, fmt.Errorf("update device: %w", err)
	}

	log.Info().Str("from", string(from)).Str("to", string(to)).Msg("Device status changed")
	r.publish(ctx, ports.TopicDeviceStatusChanged, StatusChange{Device: device, From: from, To: to})
	return device, nil
}

// TransferOwnership rewrites the owner identity of a registered device.
// Blacklisted devices cannot change hands.
func (r *Registry) TransferOwnership(ctx context.Context, imei string, owner domain.NewOwner) (*domain.Device, error) {
	device, err := r.devices.GetByIMEI(ctx, imei)
	if err != nil {
		return nil, err
	}
	if device == nil {
		return nil, ErrDeviceNotFound
	}
	if device.Status == domain.StatusBlacklisted {
		return nil, fmt.Errorf("transfer %s: %w", imei, domain.ErrInvalidTransition)
	}

	previous := device.OwnerName
	device.OwnerName = owner.Name
	device.PhoneNumber = owner.PhoneNumber
	device.HashedNationalID = r.hasher.Hash(owner.NationalID)

	if err := r.devices.Update(ctx, device); err != nil {
		r.log.Error().Err(err).Str("imei", imei).Msg("Failed to store ownership transfer")
		return nil, fmt.Errorf("update device: %w", err)
	}

	r.log.Info().Str("imei", imei).Msg("Ownership transferred")
	r.publish(ctx, ports.TopicOwnershipTransferred, OwnershipTransfer{Device: device, PreviousOwner: previous})
	return device, nil
}

func (r *Registry) publish(ctx context.Context, topic string, data interface{}) {
	if r.bus == nil {
		return
	}
	if err := r.bus.Publish(ctx, topic, data); err != nil {
		r.log.Error().Err(err).Str("topic", topic).Msg("Failed to publish event")
	}
}
