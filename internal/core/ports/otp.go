package ports

import "context"

// OTPSender delivers a one-time passcode to a phone number.
type OTPSender interface {
	Send(ctx context.Context, phone, code string) error
}
