package ports

import (
	"ImeiGuard/internal/core/domain"
	"context"
)

// DeviceRepository defines the persistence operations for Devices.
type DeviceRepository interface {
	// Create appends a new device.
	Create(ctx context.Context, device *domain.Device) error

	// GetByIMEI finds the first device with an exact IMEI match.
	// It returns (nil, nil) when no device matches.
	GetByIMEI(ctx context.Context, imei string) (*domain.Device, error)

	// Update overwrites the stored device with the same ID.
	Update(ctx context.Context, device *domain.Device) error

	// MarkChecked sets only the last-checked date (YYYY-MM-DD) of a device.
	MarkChecked(ctx context.Context, id, date string) error

	// List returns all devices in insertion order.
	List(ctx context.Context) ([]*domain.Device, error)
}

// SearchRepository defines the persistence operations for the lookup history.
type SearchRepository interface {
	// Prepend adds a record to the front of the history.
	Prepend(ctx context.Context, search *domain.ImeiSearch) error

	// List returns the history, most recent first.
	List(ctx context.Context) ([]*domain.ImeiSearch, error)
}
