package workflow

import (
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/workflow/forms"
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// FormStep is a step of the account-type-first flows (sign-up, password reset).
type FormStep int

const (
	FormSelectType FormStep = iota + 1
	FormFill
	FormDone
)

func (s FormStep) String() string {
	switch s {
	case FormSelectType:
		return "select_type"
	case FormFill:
		return "form"
	case FormDone:
		return "done"
	default:
		return "unknown"
	}
}

// RegularSignup is the sign-up form of a regular user.
type RegularSignup struct {
	FullName         string `form:"fullName" validate:"required" msg:"Full name is required"`
	NationalID       string `form:"nationalId" validate:"required" msg:"National ID is required"`
	PlaceOfResidence string `form:"placeOfResidence" validate:"required" msg:"Place of residence is required"`
	DateOfBirth      string `form:"dateOfBirth" validate:"required" msg:"Date of birth is required"`
	PlaceOfBirth     string `form:"placeOfBirth" validate:"required" msg:"Place of birth is required"`
	Phone            string `form:"phoneNumber" validate:"dzphone"`
	OTP              string `form:"otp" validate:"-"`
}

func (f *RegularSignup) normalize() {
	f.FullName = strings.TrimSpace(f.FullName)
	f.NationalID = strings.TrimSpace(f.NationalID)
	f.PlaceOfResidence = strings.TrimSpace(f.PlaceOfResidence)
	f.DateOfBirth = strings.TrimSpace(f.DateOfBirth)
	f.PlaceOfBirth = strings.TrimSpace(f.PlaceOfBirth)
	f.Phone = strings.TrimSpace(f.Phone)
	f.OTP = strings.TrimSpace(f.OTP)
}

// AgentSignup is the sign-up form of a service provider.
type AgentSignup struct {
	FullName                   string            `form:"fullName" validate:"required" msg:"Full name is required"`
	BusinessName               string            `form:"businessName" validate:"required" msg:"Business name is required"`
	BusinessRegistrationNumber string            `form:"businessRegistrationNumber" validate:"required" msg:"Business registration number is required"`
	BusinessAddress            string            `form:"businessAddress" validate:"required" msg:"Business address is required"`
	Phone                      string            `form:"phoneNumber" validate:"dzphone"`
	Email                      string            `form:"email" validate:"required,looseemail" msg_required:"Email is required"`
	Password                   string            `form:"password" validate:"required,agentpassword" msg_required:"Password is required"`
	ConfirmPassword            string            `form:"confirmPassword" validate:"eqfield=Password" msg:"Passwords do not match"`
	AcceptTerms                bool              `form:"acceptTerms" validate:"required" msg:"You must accept the Terms of Service and Privacy Policy"`
	CommercialRegisterFile     *forms.Attachment `form:"commercialRegisterFile" validate:"-"`
}

func (f *AgentSignup) normalize() {
	f.FullName = strings.TrimSpace(f.FullName)
	f.BusinessName = strings.TrimSpace(f.BusinessName)
	f.BusinessRegistrationNumber = strings.TrimSpace(f.BusinessRegistrationNumber)
	f.BusinessAddress = strings.TrimSpace(f.BusinessAddress)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Email = strings.TrimSpace(f.Email)
}

// Signup is the sign-up flow: SelectType -> Form -> Done.
type Signup struct {
	accounts Accounts
	otp      *Issuer
	life     *lifetime
	log      zerolog.Logger

	mu   sync.Mutex
	step FormStep
	typ  domain.UserType
	user *domain.User
}

func NewSignup(accounts Accounts, opts Options, baseLogger *zerolog.Logger) *Signup {
	opts = opts.withDefaults()
	log := baseLogger.With().Str("component", "signup").Logger()
	return &Signup{
		accounts: accounts,
		otp:      NewIssuer(opts.OTP, log),
		life:     newLifetime(),
		log:      log,
		step:     FormSelectType,
	}
}

func (s *Signup) Step() FormStep {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Type returns the selected account type, or "" before selection.
func (s *Signup) Type() domain.UserType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typ
}

func (s *Signup) Countdown() int { return s.otp.Countdown() }

// SelectType picks the branch and moves to the form.
func (s *Signup) SelectType(typ domain.UserType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != FormSelectType {
		return ErrWrongStep
	}
	if typ != domain.UserTypeRegular && typ != domain.UserTypeAgent {
		return forms.Fail("userType", "Please select an account type")
	}
	s.typ = typ
	s.step = FormFill
	return nil
}

// SendOTP issues a code for the regular branch phone number.
func (s *Signup) SendOTP(ctx context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != FormFill || s.typ != domain.UserTypeRegular {
		return ErrWrongStep
	}
	ctx, done, err := s.life.bind(ctx)
	if err != nil {
		return err
	}
	defer done()
	return s.otp.Issue(ctx, "phoneNumber", strings.TrimSpace(phone))
}

// SubmitRegular validates the regular form and creates the account.
// The phone number stands in for the missing email. It returns the route to navigate to.
func (s *Signup) SubmitRegular(ctx context.Context, f RegularSignup) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != FormFill || s.typ != domain.UserTypeRegular {
		return "", ErrWrongStep
	}
	f.normalize()
	if err := forms.Merge(forms.Validate(f), s.otp.Check("otp", f.Phone, f.OTP)); err != nil {
		return "", err
	}
	return s.finish(ctx, func(ctx context.Context) (*domain.User, error) {
		return s.accounts.Signup(ctx, f.FullName, f.Phone, "")
	})
}

// SubmitAgent validates the agent form and creates the account.
func (s *Signup) SubmitAgent(ctx context.Context, f AgentSignup) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != FormFill || s.typ != domain.UserTypeAgent {
		return "", ErrWrongStep
	}
	f.normalize()
	if err := forms.Merge(
		forms.Validate(f),
		forms.CheckAttachment("commercialRegisterFile", f.CommercialRegisterFile, true, "Commercial Register File is required"),
	); err != nil {
		return "", err
	}
	return s.finish(ctx, func(ctx context.Context) (*domain.User, error) {
		return s.accounts.SignupAgent(ctx, f.FullName, f.Email, f.Password)
	})
}

// finish must be called with mu held.
func (s *Signup) finish(ctx context.Context, create func(context.Context) (*domain.User, error)) (string, error) {
	ctx, done, err := s.life.bind(ctx)
	if err != nil {
		return "", err
	}
	defer done()

	u, err := create(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Registration failed")
		return "", err
	}
	s.user = u
	s.step = FormDone
	s.log.Info().Str("user_id", u.ID).Str("type", string(u.Type)).Msg("Account created")
	return RouteProfile, nil
}

// User returns the created account once the flow is done.
func (s *Signup) User() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Back returns from the form to the type selector.
func (s *Signup) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != FormFill {
		return ErrWrongStep
	}
	s.step = FormSelectType
	s.typ = ""
	return nil
}

func (s *Signup) Close() { s.life.close() }
