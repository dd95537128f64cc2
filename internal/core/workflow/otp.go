package workflow

import (
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/core/workflow/forms"
	"ImeiGuard/internal/shared/latency"
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// OTPPolicy decides how an entered passcode is checked.
type OTPPolicy string

const (
	// OTPLenient accepts any 6-character code once one was issued.
	OTPLenient OTPPolicy = "lenient"
	// OTPStrict requires the issued code for the issued phone number.
	OTPStrict OTPPolicy = "strict"
)

const otpLength = 6

// OTPOptions configures an Issuer.
type OTPOptions struct {
	Sender   ports.OTPSender
	Latency  time.Duration
	Cooldown time.Duration
	Policy   OTPPolicy
	Now      func() time.Time
}

const defaultCooldown = 60 * time.Second

// Issuer sends one-time passcodes and enforces the resend cooldown.
type Issuer struct {
	opts OTPOptions
	log  zerolog.Logger

	mu            sync.Mutex
	phone         string
	code          string
	cooldownUntil time.Time
}

// NewIssuer creates an issuer. A nil Sender only logs that a code was issued.
func NewIssuer(opts OTPOptions, log zerolog.Logger) *Issuer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = defaultCooldown
	}
	if opts.Policy == "" {
		opts.Policy = OTPLenient
	}
	return &Issuer{opts: opts, log: log}
}

// Issue sends a fresh code to phone and restarts the cooldown.
// field names the form field validation errors are reported under.
func (i *Issuer) Issue(ctx context.Context, field, phone string) error {
	if !forms.IsDZPhone(phone) {
		return forms.Fail(field, "Please enter a valid Algerian phone number")
	}
	previous, err := i.reserve()
	if err != nil {
		return err
	}
	release := func() {
		i.mu.Lock()
		i.cooldownUntil = previous
		i.mu.Unlock()
	}

	if err := latency.Wait(ctx, i.opts.Latency); err != nil {
		release()
		return err
	}

	code, err := generateCode()
	if err != nil {
		release()
		return fmt.Errorf("generate code: %w", err)
	}
	if i.opts.Sender != nil {
		if err := i.opts.Sender.Send(ctx, phone, code); err != nil {
			release()
			i.log.Error().Err(err).Msg("Failed to send OTP")
			return fmt.Errorf("send code: %w", err)
		}
	}

	i.mu.Lock()
	i.phone = phone
	i.code = code
	i.cooldownUntil = i.opts.Now().Add(i.opts.Cooldown)
	i.mu.Unlock()

	i.log.Info().Msg("OTP issued")
	return nil
}

// reserve starts the cooldown before the code goes out so a concurrent
// Issue sees it. It returns the cooldown end to restore on failure.
func (i *Issuer) reserve() (time.Time, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.opts.Now()
	if i.cooldownUntil.After(now) {
		return time.Time{}, ErrCooldownActive
	}
	previous := i.cooldownUntil
	i.cooldownUntil = now.Add(i.opts.Cooldown)
	return previous, nil
}

// Countdown returns the whole seconds left before a resend is allowed.
func (i *Issuer) Countdown() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	left := i.cooldownUntil.Sub(i.opts.Now())
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

// Sent reports whether a code has been issued.
func (i *Issuer) Sent() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.code != ""
}

// Check validates an entered code for phone under the issuer's policy.
func (i *Issuer) Check(field, phone, code string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.code == "" {
		return forms.Fail(field, "Please verify your phone number")
	}
	if utf8.RuneCountInString(code) != otpLength {
		return forms.Fail(field, "Please enter a valid 6-digit OTP")
	}
	if i.opts.Policy == OTPStrict && (code != i.code || phone != i.phone) {
		return forms.Fail(field, "Invalid OTP. Please try again.")
	}
	return nil
}

// Reset forgets the issued code. The cooldown keeps running.
func (i *Issuer) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.code = ""
	i.phone = ""
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
