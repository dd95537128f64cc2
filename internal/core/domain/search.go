package domain

// SearchResult is the tri-state outcome of an IMEI lookup.
type SearchResult string

const (
	ResultClean       SearchResult = "clean"
	ResultBlacklisted SearchResult = "blacklisted"
	ResultUnknown     SearchResult = "unknown"
)

// ResultFor maps a device status onto a lookup result.
// Pending and rejected devices are reported as unknown.
func ResultFor(status DeviceStatus) SearchResult {
	switch status {
	case StatusVerified:
		return ResultClean
	case StatusBlacklisted:
		return ResultBlacklisted
	default:
		return ResultUnknown
	}
}

// DeviceSummary is the device metadata denormalized into a search record.
type DeviceSummary struct {
	Brand string
	Model string
	Type  DeviceType
}

// ImeiSearch is one entry of the append-only lookup history.
type ImeiSearch struct {
	ID         string
	IMEI       string
	Date       string // YYYY-MM-DD
	Result     SearchResult
	DeviceInfo *DeviceSummary // Nullable
}

// SearchDraft is a history entry supplied outside the verify flow.
type SearchDraft struct {
	IMEI       string
	Result     SearchResult
	DeviceInfo *DeviceSummary
}
