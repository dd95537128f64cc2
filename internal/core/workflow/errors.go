package workflow

import "errors"

var (
	// ErrLocked is returned while ownership checks are locked out.
	ErrLocked = errors.New("too many failed attempts, please try again later")
	// ErrWrongStep is returned when an operation does not belong to the current step.
	ErrWrongStep = errors.New("operation not available at this step")
	// ErrCooldownActive refuses a passcode resend while the countdown runs.
	ErrCooldownActive = errors.New("a verification code was sent recently")
	// ErrDeviceNotFound is returned by flows that need a registered device.
	ErrDeviceNotFound = errors.New("device not found or not registered in the system")
	// ErrDeviceBlacklisted refuses flows on devices reported lost or stolen.
	ErrDeviceBlacklisted = errors.New("device is reported as lost or stolen")
)
