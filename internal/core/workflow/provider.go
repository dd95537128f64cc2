package workflow

import (
	"ImeiGuard/internal/core/workflow/forms"
	"ImeiGuard/internal/shared/latency"
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ActivityTypes lists the selectable business activities.
var ActivityTypes = []string{"Mobile Store", "Internet Café", "Maintenance", "Wholesaler", OtherOption}

// ProviderStep is a step of the service-provider registration flow.
type ProviderStep int

const (
	ProviderBusiness ProviderStep = iota + 1
	ProviderDocuments
	ProviderDone
)

func (s ProviderStep) String() string {
	switch s {
	case ProviderBusiness:
		return "business"
	case ProviderDocuments:
		return "documents"
	case ProviderDone:
		return "done"
	default:
		return "unknown"
	}
}

// BusinessInfo is step 1 of the provider registration flow.
type BusinessInfo struct {
	FullName           string `form:"fullName" validate:"required" msg:"Full name is required"`
	BusinessName       string `form:"businessName" validate:"required" msg:"Business name is required"`
	ActivityCode       string `form:"activityCode" validate:"required" msg:"Activity code is required"`
	ActivityType       string `form:"activityType" validate:"required" msg:"Activity type is required"`
	CustomActivityType string `form:"customActivityType" validate:"required_if=ActivityType Other" msg:"Please specify activity type"`
	Phone              string `form:"phoneNumber" validate:"required,dzphone" msg_required:"Phone number is required"`
	Email              string `form:"email" validate:"required,looseemail" msg_required:"Email is required"`
	BusinessAddress    string `form:"businessAddress" validate:"required" msg:"Business address is required"`
	Password           string `form:"password" validate:"required,agentpassword" msg_required:"Password is required"`
	ConfirmPassword    string `form:"confirmPassword" validate:"eqfield=Password" msg:"Passwords do not match"`
	AcceptTerms        bool   `form:"acceptTerms" validate:"required" msg:"You must accept the Terms of Service"`
}

func (b *BusinessInfo) normalize() {
	b.FullName = strings.TrimSpace(b.FullName)
	b.BusinessName = strings.TrimSpace(b.BusinessName)
	b.ActivityCode = strings.TrimSpace(b.ActivityCode)
	b.ActivityType = strings.TrimSpace(b.ActivityType)
	b.CustomActivityType = strings.TrimSpace(b.CustomActivityType)
	b.Phone = strings.TrimSpace(b.Phone)
	b.Email = strings.TrimSpace(b.Email)
	b.BusinessAddress = strings.TrimSpace(b.BusinessAddress)
}

// Activity resolves the "Other" escape hatch.
func (b BusinessInfo) Activity() string {
	if b.ActivityType == OtherOption {
		return b.CustomActivityType
	}
	return b.ActivityType
}

// ProviderDocs is step 2 of the provider registration flow.
type ProviderDocs struct {
	NationalID               string            `form:"nationalId" validate:"required" msg:"National ID is required"`
	CommercialRegisterNumber string            `form:"commercialRegisterNumber" validate:"required" msg:"Commercial Register Number is required"`
	CommercialRegisterFile   *forms.Attachment `form:"commercialRegisterFile" validate:"-"`
}

// ProviderRegistration is the service-provider application flow:
// Business -> Documents -> Done. The application is only acknowledged.
type ProviderRegistration struct {
	opts Options
	life *lifetime
	log  zerolog.Logger

	mu       sync.Mutex
	step     ProviderStep
	business BusinessInfo
	docs     ProviderDocs
}

func NewProviderRegistration(opts Options, baseLogger *zerolog.Logger) *ProviderRegistration {
	return &ProviderRegistration{
		opts: opts.withDefaults(),
		life: newLifetime(),
		log:  baseLogger.With().Str("component", "provider_registration").Logger(),
		step: ProviderBusiness,
	}
}

func (p *ProviderRegistration) Step() ProviderStep {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.step
}

// Business returns the accepted step 1 data.
func (p *ProviderRegistration) Business() BusinessInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.business
}

func (p *ProviderRegistration) SubmitBusiness(info BusinessInfo) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.step != ProviderBusiness {
		return ErrWrongStep
	}
	info.normalize()
	if err := forms.Validate(info); err != nil {
		return err
	}
	p.business = info
	p.step = ProviderDocuments
	return nil
}

// Submit validates the documents and files the application after the
// simulated delay. It returns the route to navigate to.
func (p *ProviderRegistration) Submit(ctx context.Context, docs ProviderDocs) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.step != ProviderDocuments {
		return "", ErrWrongStep
	}
	docs.NationalID = strings.TrimSpace(docs.NationalID)
	docs.CommercialRegisterNumber = strings.TrimSpace(docs.CommercialRegisterNumber)
	if err := forms.Merge(
		forms.Validate(docs),
		forms.CheckAttachment("commercialRegisterFile", docs.CommercialRegisterFile, true, "Commercial Register File is required"),
	); err != nil {
		return "", err
	}

	ctx, done, err := p.life.bind(ctx)
	if err != nil {
		return "", err
	}
	defer done()
	if err := latency.Wait(ctx, p.opts.Latency.Register); err != nil {
		return "", err
	}

	p.docs = docs
	p.step = ProviderDone
	p.log.Info().
		Str("business", p.business.BusinessName).
		Str("activity", p.business.Activity()).
		Msg("Service provider application received")
	return RouteDashboard, nil
}

func (p *ProviderRegistration) Back() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.step != ProviderDocuments {
		return ErrWrongStep
	}
	p.step = ProviderBusiness
	return nil
}

func (p *ProviderRegistration) Close() { p.life.close() }
