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

// RegistrationStep is a step of the device registration flow.
type RegistrationStep int

const (
	RegisterPersonalInfo RegistrationStep = iota + 1
	RegisterDeviceInfo
	RegisterDocuments
	RegisterDone
)

func (s RegistrationStep) String() string {
	switch s {
	case RegisterPersonalInfo:
		return "personal_info"
	case RegisterDeviceInfo:
		return "device_info"
	case RegisterDocuments:
		return "documents"
	case RegisterDone:
		return "done"
	default:
		return "unknown"
	}
}

// Condition is the declared state of a registered device.
type Condition string

const (
	ConditionNew  Condition = "New"
	ConditionUsed Condition = "Used"
)

// OtherOption selects the free-text brand or model field.
const OtherOption = "Other"

// PersonalInfo is step 1 of the registration flow.
type PersonalInfo struct {
	FullName   string `form:"fullName" validate:"required" msg:"Full name is required"`
	Phone      string `form:"phoneNumber" validate:"dzphone"`
	OTP        string `form:"otp" validate:"-"`
	NationalID string `form:"nationalId" validate:"required" msg:"National ID is required"`
}

func (p *PersonalInfo) normalize() {
	p.FullName = strings.TrimSpace(p.FullName)
	p.Phone = strings.TrimSpace(p.Phone)
	p.OTP = strings.TrimSpace(p.OTP)
	p.NationalID = strings.TrimSpace(p.NationalID)
}

// DeviceInfo is step 2 of the registration flow.
type DeviceInfo struct {
	Type        domain.DeviceType `form:"deviceType" validate:"required,oneof=Smartphone Tablet Laptop" msg:"Please select device type"`
	Brand       string            `form:"brand" validate:"required" msg:"Please select brand"`
	CustomBrand string            `form:"customBrand" validate:"required_if=Brand Other" msg:"Please enter brand name"`
	Model       string            `form:"model" validate:"required_unless=Type Laptop" msg:"Please select model"`
	CustomModel string            `form:"customModel" validate:"-"`
	IMEISerial  string            `form:"imeiSerial" validate:"-"`
	Condition   Condition         `form:"condition" validate:"required,oneof=New Used" msg:"Please select device condition"`
}

func (d *DeviceInfo) normalize() {
	d.Brand = strings.TrimSpace(d.Brand)
	d.CustomBrand = strings.TrimSpace(d.CustomBrand)
	d.Model = strings.TrimSpace(d.Model)
	d.CustomModel = strings.TrimSpace(d.CustomModel)
	d.IMEISerial = strings.TrimSpace(d.IMEISerial)
}

func (d DeviceInfo) needsCustomModel() bool {
	return d.Type == domain.DeviceLaptop || d.Model == OtherOption
}

func (d DeviceInfo) validate() error {
	var customModel, serial error
	if d.needsCustomModel() && d.CustomModel == "" {
		customModel = forms.Fail("customModel", "Please enter model name")
	}
	switch {
	case d.IMEISerial == "" && d.Type == domain.DeviceLaptop:
		serial = forms.Fail("imeiSerial", "Please enter serial number")
	case d.IMEISerial == "":
		serial = forms.Fail("imeiSerial", "Please enter IMEI")
	case d.Type != domain.DeviceLaptop && !forms.IsIMEI(d.IMEISerial):
		serial = forms.Fail("imeiSerial", "Please enter a valid 15-digit IMEI number")
	}
	return forms.Merge(forms.Validate(d), customModel, serial)
}

// EffectiveBrand resolves the "Other" escape hatch.
func (d DeviceInfo) EffectiveBrand() string {
	if d.Brand == OtherOption {
		return d.CustomBrand
	}
	return d.Brand
}

// EffectiveModel resolves the "Other" escape hatch. Laptops always use the free-text model.
func (d DeviceInfo) EffectiveModel() string {
	if d.needsCustomModel() {
		return d.CustomModel
	}
	return d.Model
}

// Documents is step 3 of the registration flow. Both files are required
// only for new devices.
type Documents struct {
	PurchaseInvoice *forms.Attachment
	BoxImage        *forms.Attachment
}

// Registration is the device registration flow:
// PersonalInfo -> DeviceInfo -> Documents -> Done.
type Registration struct {
	reg  Registry
	opts Options
	otp  *Issuer
	life *lifetime
	log  zerolog.Logger

	mu       sync.Mutex
	step     RegistrationStep
	personal PersonalInfo
	device   DeviceInfo
	docs     Documents
	created  *domain.Device
}

func NewRegistration(reg Registry, opts Options, baseLogger *zerolog.Logger) *Registration {
	opts = opts.withDefaults()
	log := baseLogger.With().Str("component", "device_registration").Logger()
	return &Registration{
		reg:  reg,
		opts: opts,
		otp:  NewIssuer(opts.OTP, log),
		life: newLifetime(),
		log:  log,
		step: RegisterPersonalInfo,
	}
}

func (r *Registration) Step() RegistrationStep {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.step
}

func (r *Registration) Countdown() int { return r.otp.Countdown() }

// SendOTP issues a verification code for the step 1 phone number.
func (r *Registration) SendOTP(ctx context.Context, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.step != RegisterPersonalInfo {
		return ErrWrongStep
	}
	ctx, done, err := r.life.bind(ctx)
	if err != nil {
		return err
	}
	defer done()
	return r.otp.Issue(ctx, "phoneNumber", strings.TrimSpace(phone))
}

// SubmitPersonalInfo validates step 1 and moves to DeviceInfo.
func (r *Registration) SubmitPersonalInfo(info PersonalInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.step != RegisterPersonalInfo {
		return ErrWrongStep
	}
	info.normalize()
	if err := forms.Merge(forms.Validate(info), r.otp.Check("otp", info.Phone, info.OTP)); err != nil {
		return err
	}
	r.personal = info
	r.step = RegisterDeviceInfo
	return nil
}

// SubmitDeviceInfo validates step 2 and moves to Documents.
func (r *Registration) SubmitDeviceInfo(info DeviceInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.step != RegisterDeviceInfo {
		return ErrWrongStep
	}
	info.normalize()
	if err := info.validate(); err != nil {
		return err
	}
	r.device = info
	r.step = RegisterDocuments
	return nil
}

// Submit validates step 3, waits the simulated round-trip and registers
// the device as pending. It returns the route to navigate to.
func (r *Registration) Submit(ctx context.Context, docs Documents) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.step != RegisterDocuments {
		return "", ErrWrongStep
	}
	required := r.device.Condition == ConditionNew
	if err := forms.Merge(
		forms.CheckAttachment("purchaseInvoice", docs.PurchaseInvoice, required, "Please upload purchase invoice"),
		forms.CheckAttachment("boxImage", docs.BoxImage, required, "Please upload box image"),
	); err != nil {
		return "", err
	}

	ctx, done, err := r.life.bind(ctx)
	if err != nil {
		return "", err
	}
	defer done()
	if err := latency.Wait(ctx, r.opts.Latency.Register); err != nil {
		return "", err
	}

	device, err := r.reg.AddDevice(ctx, domain.DeviceDraft{
		IMEI:        r.device.IMEISerial,
		Brand:       r.device.EffectiveBrand(),
		Model:       r.device.EffectiveModel(),
		Type:        r.device.Type,
		NationalID:  r.personal.NationalID,
		PhoneNumber: r.personal.Phone,
		OwnerName:   r.personal.FullName,
	})
	if err != nil {
		r.log.Error().Err(err).Msg("Registration failed")
		return "", err
	}

	r.docs = docs
	r.created = device
	r.step = RegisterDone
	r.log.Info().Str("device_id", device.ID).Msg("Device submitted for registration")
	return RouteMyDevices, nil
}

// Device returns the registered device once the flow is done.
func (r *Registration) Device() *domain.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.created == nil {
		return nil
	}
	d := *r.created
	return &d
}

// Back returns to the previous step. Entered data is kept.
func (r *Registration) Back() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.step {
	case RegisterDeviceInfo:
		r.step = RegisterPersonalInfo
	case RegisterDocuments:
		r.step = RegisterDeviceInfo
	default:
		return ErrWrongStep
	}
	return nil
}

func (r *Registration) Close() { r.life.close() }
