package workflow

import (
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/workflow/forms"
	"ImeiGuard/internal/shared/latency"
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// RegularReset is the password reset form of a regular user.
type RegularReset struct {
	FullName string `form:"fullName" validate:"required" msg:"Full name is required"`
	Phone    string `form:"phoneNumber" validate:"dzphone"`
	OTP      string `form:"otp" validate:"-"`
}

// AgentReset is the password reset form of a service provider.
type AgentReset struct {
	Email                      string `form:"email" validate:"required,looseemail" msg_required:"Email is required"`
	Phone                      string `form:"phoneNumber" validate:"dzphone"`
	BusinessRegistrationNumber string `form:"businessRegistrationNumber" validate:"required" msg:"Business registration number is required"`
	NationalID                 string `form:"nationalId" validate:"required" msg:"National ID is required"`
}

// PasswordReset is the forgot-password flow: SelectType -> Form -> Done.
// Nothing is actually reset; the flow only acknowledges the request.
type PasswordReset struct {
	opts Options
	otp  *Issuer
	life *lifetime
	log  zerolog.Logger

	mu   sync.Mutex
	step FormStep
	typ  domain.UserType
}

func NewPasswordReset(opts Options, baseLogger *zerolog.Logger) *PasswordReset {
	opts = opts.withDefaults()
	log := baseLogger.With().Str("component", "password_reset").Logger()
	return &PasswordReset{
		opts: opts,
		otp:  NewIssuer(opts.OTP, log),
		life: newLifetime(),
		log:  log,
		step: FormSelectType,
	}
}

func (p *PasswordReset) Step() FormStep {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.step
}

func (p *PasswordReset) Countdown() int { return p.otp.Countdown() }

func (p *PasswordReset) SelectType(typ domain.UserType) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.step != FormSelectType {
		return ErrWrongStep
	}
	if typ != domain.UserTypeRegular && typ != domain.UserTypeAgent {
		return forms.Fail("userType", "Please select an account type")
	}
	p.typ = typ
	p.step = FormFill
	return nil
}

// SendOTP issues a code for the regular branch.
func (p *PasswordReset) SendOTP(ctx context.Context, phone string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.step != FormFill || p.typ != domain.UserTypeRegular {
		return ErrWrongStep
	}
	ctx, done, err := p.life.bind(ctx)
	if err != nil {
		return err
	}
	defer done()
	return p.otp.Issue(ctx, "phoneNumber", strings.TrimSpace(phone))
}

func (p *PasswordReset) SubmitRegular(ctx context.Context, f RegularReset) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.step != FormFill || p.typ != domain.UserTypeRegular {
		return ErrWrongStep
	}
	f.FullName = strings.TrimSpace(f.FullName)
	f.Phone = strings.TrimSpace(f.Phone)
	f.OTP = strings.TrimSpace(f.OTP)
	if err := forms.Merge(forms.Validate(f), p.otp.Check("otp", f.Phone, f.OTP)); err != nil {
		return err
	}
	return p.finish(ctx)
}

func (p *PasswordReset) SubmitAgent(ctx context.Context, f AgentReset) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.step != FormFill || p.typ != domain.UserTypeAgent {
		return ErrWrongStep
	}
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.BusinessRegistrationNumber = strings.TrimSpace(f.BusinessRegistrationNumber)
	f.NationalID = strings.TrimSpace(f.NationalID)
	if err := forms.Validate(f); err != nil {
		return err
	}
	return p.finish(ctx)
}

func (p *PasswordReset) finish(ctx context.Context) error {
	ctx, done, err := p.life.bind(ctx)
	if err != nil {
		return err
	}
	defer done()
	if err := latency.Wait(ctx, p.opts.Latency.Reset); err != nil {
		return err
	}
	p.step = FormDone
	p.log.Info().Str("type", string(p.typ)).Msg("Password reset requested")
	return nil
}

// Outcome returns the acknowledgement shown once the request is received.
func (p *PasswordReset) Outcome() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.step != FormDone {
		return ""
	}
	if p.typ == domain.UserTypeAgent {
		return "We've received your reset request. Your identity will be verified by our support team within 1 to 24 hours. You will receive a reset link via email once verified."
	}
	return "If an account exists with the provided information, you will receive password reset instructions via email or SMS."
}

func (p *PasswordReset) Back() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.step != FormFill {
		return ErrWrongStep
	}
	p.step = FormSelectType
	p.typ = ""
	return nil
}

func (p *PasswordReset) Close() { p.life.close() }
