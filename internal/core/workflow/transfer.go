package workflow

import (
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/workflow/forms"
	"ImeiGuard/internal/shared/latency"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RedirectAfter is how long the success screen stays before navigating.
const RedirectAfter = 3 * time.Second

// TransferStep is a step of the ownership transfer flow.
type TransferStep int

const (
	TransferEnterImei TransferStep = iota + 1
	TransferNewOwner
	TransferConfirm
	TransferDone
)

func (s TransferStep) String() string {
	switch s {
	case TransferEnterImei:
		return "enter_imei"
	case TransferNewOwner:
		return "new_owner"
	case TransferConfirm:
		return "confirm"
	case TransferDone:
		return "done"
	default:
		return "unknown"
	}
}

// NewOwnerDetails is the new-owner step of the transfer flow.
type NewOwnerDetails struct {
	Name        string            `form:"newOwnerName" validate:"required" msg:"Please fill in all required fields"`
	Phone       string            `form:"newOwnerPhone" validate:"dzphone"`
	OTP         string            `form:"otp" validate:"-"`
	NationalID  string            `form:"nationalId" validate:"required" msg:"Please fill in all required fields"`
	ProofOfSale *forms.Attachment `form:"proofOfSale" validate:"-"`
}

func (n *NewOwnerDetails) normalize() {
	n.Name = strings.TrimSpace(n.Name)
	n.Phone = strings.TrimSpace(n.Phone)
	n.OTP = strings.TrimSpace(n.OTP)
	n.NationalID = strings.TrimSpace(n.NationalID)
}

// TransferSummary restates the transfer before it is committed.
type TransferSummary struct {
	IMEI          string
	Brand         string
	Model         string
	CurrentOwner  string
	NewOwnerName  string
	NewOwnerPhone string
	NationalID    string
	ProofOfSale   string // file name, "" when none
}

// Transfer is the ownership transfer flow:
// EnterImei -> NewOwner -> Confirm -> Done.
type Transfer struct {
	reg  Registry
	opts Options
	otp  *Issuer
	life *lifetime
	log  zerolog.Logger

	mu     sync.Mutex
	step   TransferStep
	device *domain.Device
	owner  NewOwnerDetails
}

func NewTransfer(reg Registry, opts Options, baseLogger *zerolog.Logger) *Transfer {
	opts = opts.withDefaults()
	log := baseLogger.With().Str("component", "ownership_transfer").Logger()
	return &Transfer{
		reg:  reg,
		opts: opts,
		otp:  NewIssuer(opts.OTP, log),
		life: newLifetime(),
		log:  log,
		step: TransferEnterImei,
	}
}

func (t *Transfer) Step() TransferStep {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.step
}

func (t *Transfer) Countdown() int { return t.otp.Countdown() }

// Device returns the device being transferred, or nil.
func (t *Transfer) Device() *domain.Device {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.device == nil {
		return nil
	}
	d := *t.device
	return &d
}

// LookupImei finds the device in the registry. Unknown and blacklisted
// devices cannot be transferred.
func (t *Transfer) LookupImei(ctx context.Context, imei string) (*domain.Device, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.step != TransferEnterImei {
		return nil, ErrWrongStep
	}
	imei = strings.TrimSpace(imei)
	if !forms.IsIMEI(imei) {
		return nil, forms.Fail("imei", "Please enter a valid 15-digit IMEI number")
	}

	ctx, done, err := t.life.bind(ctx)
	if err != nil {
		return nil, err
	}
	defer done()
	if err := latency.Wait(ctx, t.opts.Latency.Verify); err != nil {
		return nil, err
	}

	device, err := t.reg.GetDeviceByImei(ctx, imei)
	if err != nil {
		t.log.Error().Err(err).Str("imei", imei).Msg("Device lookup failed")
		return nil, err
	}
	if device == nil {
		return nil, ErrDeviceNotFound
	}
	if device.Status == domain.StatusBlacklisted {
		return nil, ErrDeviceBlacklisted
	}

	t.device = device
	t.step = TransferNewOwner
	d := *device
	return &d, nil
}

// SendOTP issues a code to the new owner's phone.
func (t *Transfer) SendOTP(ctx context.Context, phone string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.step != TransferNewOwner {
		return ErrWrongStep
	}
	ctx, done, err := t.life.bind(ctx)
	if err != nil {
		return err
	}
	defer done()
	return t.otp.Issue(ctx, "newOwnerPhone", strings.TrimSpace(phone))
}

// SubmitNewOwner validates the new owner and moves to Confirm.
func (t *Transfer) SubmitNewOwner(details NewOwnerDetails) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.step != TransferNewOwner {
		return ErrWrongStep
	}
	details.normalize()
	if err := forms.Merge(
		forms.Validate(details),
		t.otp.Check("otp", details.Phone, details.OTP),
		forms.CheckAttachment("proofOfSale", details.ProofOfSale, false, ""),
	); err != nil {
		return err
	}
	t.owner = details
	t.step = TransferConfirm
	return nil
}

// Summary restates every collected field.
func (t *Transfer) Summary() (TransferSummary, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.step != TransferConfirm && t.step != TransferDone {
		return TransferSummary{}, ErrWrongStep
	}
	s := TransferSummary{
		IMEI:          t.device.IMEI,
		Brand:         t.device.Brand,
		Model:         t.device.Model,
		CurrentOwner:  t.device.OwnerName,
		NewOwnerName:  t.owner.Name,
		NewOwnerPhone: t.owner.Phone,
		NationalID:    t.owner.NationalID,
	}
	if t.owner.ProofOfSale != nil {
		s.ProofOfSale = t.owner.ProofOfSale.Name
	}
	return s, nil
}

// Commit writes the new owner into the registry after the simulated delay.
// It returns the route to navigate to after RedirectAfter.
func (t *Transfer) Commit(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.step != TransferConfirm {
		return "", ErrWrongStep
	}
	ctx, done, err := t.life.bind(ctx)
	if err != nil {
		return "", err
	}
	defer done()
	if err := latency.Wait(ctx, t.opts.Latency.Transfer); err != nil {
		return "", err
	}

	updated, err := t.reg.TransferOwnership(ctx, t.device.IMEI, domain.NewOwner{
		Name:        t.owner.Name,
		PhoneNumber: t.owner.Phone,
		NationalID:  t.owner.NationalID,
	})
	if err != nil {
		t.log.Error().Err(err).Str("imei", t.device.IMEI).Msg("Ownership transfer failed")
		return "", fmt.Errorf("transfer ownership: %w", err)
	}

	t.device = updated
	t.step = TransferDone
	return RouteMyDevices, nil
}

// Back returns to the previous step.
func (t *Transfer) Back() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.step {
	case TransferNewOwner:
		t.step = TransferEnterImei
		t.device = nil
	case TransferConfirm:
		t.step = TransferNewOwner
	default:
		return ErrWrongStep
	}
	return nil
}

func (t *Transfer) Close() { t.life.close() }
