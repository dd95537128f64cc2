package memory

import (
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/ports"
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// deviceRepository keeps devices in insertion order behind a RWMutex.
type deviceRepository struct {
	log     zerolog.Logger
	devices []*domain.Device
	mu      sync.RWMutex
}

var _ ports.DeviceRepository = (*deviceRepository)(nil)

// NewDeviceRepository creates an in-memory registry pre-populated with seed.
func NewDeviceRepository(seed []*domain.Device, baseLogger *zerolog.Logger) ports.DeviceRepository {
	repo := &deviceRepository{
		log: baseLogger.With().Str("component", "memory_device_repo").Logger(),
	}
	for _, d := range seed {
		repo.devices = append(repo.devices, cloneDevice(d))
	}
	return repo
}

func (r *deviceRepository) Create(ctx context.Context, device *domain.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices = append(r.devices, cloneDevice(device))
	r.log.Debug().Str("device_id", device.ID).Int("total", len(r.devices)).Msg("Device stored")
	return nil
}

func (r *deviceRepository) GetByIMEI(ctx context.Context, imei string) (*domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.devices {
		if d.IMEI == imei {
			return cloneDevice(d), nil
		}
	}
	return nil, nil
}

func (r *deviceRepository) Update(ctx context.Context, device *domain.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, d := range r.devices {
		if d.ID == device.ID {
			r.devices[i] = cloneDevice(device)
			return nil
		}
	}
	return fmt.Errorf("device %s not found", device.ID)
}

func (r *deviceRepository) MarkChecked(ctx context.Context, id, date string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.devices {
		if d.ID == id {
			checked := date
			d.LastChecked = &checked
			return nil
		}
	}
	return fmt.Errorf("device %s not found", id)
}

func (r *deviceRepository) List(ctx context.Context) ([]*domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, cloneDevice(d))
	}
	return out, nil
}

func cloneDevice(d *domain.Device) *domain.Device {
	c := *d
	if d.LastChecked != nil {
		last := *d.LastChecked
		c.LastChecked = &last
	}
	return &c
}
