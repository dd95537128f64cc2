package domain

import (
	"errors"
	"fmt"
)

// DeviceType is a custom type for our device-class ENUM
type DeviceType string

const (
	DeviceSmartphone DeviceType = "Smartphone"
	DeviceTablet     DeviceType = "Tablet"
	DeviceLaptop     DeviceType = "Laptop"
)

// DeviceStatus is a custom type for our registry status ENUM
type DeviceStatus string

const (
	StatusVerified    DeviceStatus = "verified"
	StatusPending     DeviceStatus = "pending"
	StatusRejected    DeviceStatus = "rejected"
	StatusBlacklisted DeviceStatus = "blacklisted"
)

// StatusAction names a registry status transition.
type StatusAction string

const (
	ActionApprove   StatusAction = "approve"
	ActionReject    StatusAction = "reject"
	ActionBlacklist StatusAction = "blacklist"
)

var ErrInvalidTransition = errors.New("invalid device status transition")

// statusTransitions is the full transition table. Anything missing is refused.
var statusTransitions = map[DeviceStatus]map[StatusAction]DeviceStatus{
	StatusPending: {
		ActionApprove:   StatusVerified,
		ActionReject:    StatusRejected,
		ActionBlacklist: StatusBlacklisted,
	},
	StatusVerified: {
		ActionBlacklist: StatusBlacklisted,
	},
	StatusRejected: {
		ActionApprove:   StatusVerified,
		ActionBlacklist: StatusBlacklisted,
	},
}

// NextStatus returns the status reached from 'from' through 'action'.
func NextStatus(from DeviceStatus, action StatusAction) (DeviceStatus, error) {
	to, ok := statusTransitions[from][action]
	if !ok {
		return from, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, from)
	}
	return to, nil
}

// Device is a registered handset, tablet or laptop.
type Device struct {
	ID               string
	IMEI             string
	Brand            string
	Model            string
	Type             DeviceType
	Status           DeviceStatus
	RegistrationDate string  // YYYY-MM-DD
	LastChecked      *string // Nullable, YYYY-MM-DD
	HashedNationalID string
	PhoneNumber      string
	OwnerName        string
}

// Summary returns the denormalized metadata copied into search records.
func (d *Device) Summary() *DeviceSummary {
	return &DeviceSummary{Brand: d.Brand, Model: d.Model, Type: d.Type}
}

// DeviceDraft is what callers supply to register a device.
// ID, registration date and status are assigned by the registry,
// which also replaces NationalID with its digest.
type DeviceDraft struct {
	IMEI        string
	Brand       string
	Model       string
	Type        DeviceType
	NationalID  string
	PhoneNumber string
	OwnerName   string
}

// NewOwner carries the identity written onto a device by a transfer.
type NewOwner struct {
	Name        string
	PhoneNumber string
	NationalID  string
}
