package registry

import (
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/ports"
)

type seedDevice struct {
	device     domain.Device
	nationalID string
}

func strPtr(s string) *string { return &s }

var seedDevices = []seedDevice{
	{
		device: domain.Device{
			ID: "1", IMEI: "123456789012345", Brand: "Apple", Model: "iPhone 13",
			Type: domain.DeviceSmartphone, Status: domain.StatusVerified,
			RegistrationDate: "2025-05-15", LastChecked: strPtr("2025-05-20"),
			PhoneNumber: "0551000001", OwnerName: "Ahmed Benali",
		},
		nationalID: "100200300",
	},
	{
		device: domain.Device{
			ID: "2", IMEI: "987654321098765", Brand: "Samsung", Model: "Galaxy S22",
			Type: domain.DeviceSmartphone, Status: domain.StatusBlacklisted,
			RegistrationDate: "2025-05-16",
			PhoneNumber:      "0551000002", OwnerName: "Karim Medjadi",
		},
		nationalID: "200300400",
	},
	{
		device: domain.Device{
			ID: "3", IMEI: "357951456852789", Brand: "Huawei", Model: "MatePad 11",
			Type: domain.DeviceTablet, Status: domain.StatusVerified,
			RegistrationDate: "2025-05-17",
			PhoneNumber:      "0551000003",
		},
		nationalID: "300400500",
	},
	{
		device: domain.Device{
			ID: "4", IMEI: "852456963741258", Brand: "Lenovo", Model: "ThinkPad X1",
			Type: domain.DeviceLaptop, Status: domain.StatusRejected,
			RegistrationDate: "2025-05-18",
			PhoneNumber:      "0551000004",
		},
		nationalID: "400500600",
	},
	{
		device: domain.Device{
			ID: "5", IMEI: "789456123789456", Brand: "Xiaomi", Model: "Redmi Note 11",
			Type: domain.DeviceSmartphone, Status: domain.StatusVerified,
			RegistrationDate: "2025-05-19",
			PhoneNumber:      "0551000005",
		},
		nationalID: "500600700",
	},
}

// SeedDevices returns the demo registry contents with owner IDs hashed by h.
// Seed IMEIs are not re-validated.
func SeedDevices(h ports.Hasher) []*domain.Device {
	out := make([]*domain.Device, 0, len(seedDevices))
	for _, s := range seedDevices {
		d := s.device
		if s.device.LastChecked != nil {
			d.LastChecked = strPtr(*s.device.LastChecked)
		}
		d.HashedNationalID = h.Hash(s.nationalID)
		out = append(out, &d)
	}
	return out
}
