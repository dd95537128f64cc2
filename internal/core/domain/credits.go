package domain

const (
	// CreditValueDZD is the price of one credit in Algerian dinars.
	CreditValueDZD = 10
	// MinPurchaseDZD is the smallest custom recharge accepted.
	MinPurchaseDZD = 1000
)

// CreditsFor returns the credits granted for a DZD amount.
func CreditsFor(amountDZD int) int {
	if amountDZD <= 0 {
		return 0
	}
	return amountDZD / CreditValueDZD
}

// CreditPack is one of the predefined purchase options.
type CreditPack struct {
	Credits   int
	AmountDZD int
}

var CreditPacks = []CreditPack{
	{Credits: 50, AmountDZD: 1000},
	{Credits: 125, AmountDZD: 2500},
	{Credits: 250, AmountDZD: 5000},
}

// PaymentMethod identifies a (mocked) payment channel.
type PaymentMethod string

const (
	PaymentBaridiMob PaymentMethod = "baridimob"
	PaymentCIB       PaymentMethod = "cib"
	PaymentEdahabia  PaymentMethod = "edahabia"
	PaymentVisa      PaymentMethod = "visa"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentBaridiMob, PaymentCIB, PaymentEdahabia, PaymentVisa:
		return true
	}
	return false
}

// Service is a billable operation.
type Service string

const (
	ServiceImeiCheck          Service = "imei_check"
	ServiceDeviceRegistration Service = "device_registration"
	ServiceOwnershipTransfer  Service = "ownership_transfer"
)

// ServiceCredits lists the credit cost of each service.
var ServiceCredits = map[Service]int{
	ServiceImeiCheck:          5,
	ServiceDeviceRegistration: 15,
	ServiceOwnershipTransfer:  10,
}

// Rank is a usage tier that unlocks a discount.
type Rank struct {
	Name            string
	DiscountPercent int
}

// RankFor returns the tier for the total credits a user has spent.
func RankFor(creditsUsed int) Rank {
	switch {
	case creditsUsed >= 1001:
		return Rank{Name: "Enterprise", DiscountPercent: 30}
	case creditsUsed >= 751:
		return Rank{Name: "VIP", DiscountPercent: 20}
	case creditsUsed >= 501:
		return Rank{Name: "Premium", DiscountPercent: 10}
	default:
		return Rank{Name: "Basic", DiscountPercent: 0}
	}
}
