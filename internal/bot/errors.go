package bot

import (
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/services/registry"
	"ImeiGuard/internal/core/services/session"
	"ImeiGuard/internal/core/workflow"
	"ImeiGuard/internal/core/workflow/forms"
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrFormStuck is returned when a validation error names no field the
// form can ask again.
var ErrFormStuck = errors.New("form cannot continue")

// Describe turns an error into the reply shown to the user.
func Describe(err error) string {
	if ve, ok := forms.AsValidation(err); ok {
		lines := make([]string, 0, len(ve.Fields))
		seen := make(map[string]bool, len(ve.Fields))
		for _, f := range ve.Fields {
			if !seen[f.Message] {
				seen[f.Message] = true
				lines = append(lines, f.Message)
			}
		}
		return strings.Join(lines, "\n")
	}

	switch {
	case errors.Is(err, workflow.ErrLocked):
		return "Too many failed attempts. Please try again later."
	case errors.Is(err, workflow.ErrCooldownActive):
		return "A code was sent recently. Please wait before requesting a new one."
	case errors.Is(err, workflow.ErrDeviceNotFound), errors.Is(err, registry.ErrDeviceNotFound):
		return "No device with this IMEI is registered."
	case errors.Is(err, workflow.ErrDeviceBlacklisted):
		return "This device is blacklisted and cannot change owner."
	case errors.Is(err, workflow.ErrWrongStep):
		return "That is not possible right now. Send /cancel to start over."
	case errors.Is(err, registry.ErrDuplicateIMEI):
		return "A device with this IMEI is already registered."
	case errors.Is(err, domain.ErrInvalidTransition):
		return "That status change is not allowed."
	case errors.Is(err, session.ErrBelowMinimum):
		return fmt.Sprintf("The minimum purchase is %d DZD.", domain.MinPurchaseDZD)
	case errors.Is(err, session.ErrNotAuthenticated):
		return "Please /login first."
	case errors.Is(err, session.ErrUnknownPaymentMethod):
		return "Unknown payment method. Use baridimob, cib, edahabia or visa."
	case errors.Is(err, ErrFormStuck):
		return "This form cannot continue. Send /cancel to start over."
	case errors.Is(err, context.Canceled):
		return "Cancelled."
	default:
		return "Something went wrong. Please try again."
	}
}
