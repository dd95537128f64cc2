package workflow

import (
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/workflow/forms"
	"ImeiGuard/internal/shared/latency"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ImeiCheckStep is a step of the IMEI check flow.
type ImeiCheckStep int

const (
	CheckEnterImei ImeiCheckStep = iota + 1
	CheckEnterPhone
	CheckEnterOtp
	CheckReady
)

func (s ImeiCheckStep) String() string {
	switch s {
	case CheckEnterImei:
		return "enter_imei"
	case CheckEnterPhone:
		return "enter_phone"
	case CheckEnterOtp:
		return "enter_otp"
	case CheckReady:
		return "ready_to_check"
	default:
		return "unknown"
	}
}

// NextAction is the follow-up offered after a check result.
type NextAction string

const (
	ActionNone                  NextAction = ""
	ActionRegisterDevice        NextAction = "register_device"
	ActionFindAgent             NextAction = "find_agent"
	ActionVisitAgentForTransfer NextAction = "visit_agent_for_transfer"
)

// ImeiCheck is the IMEI check flow:
// EnterImei -> EnterPhone -> EnterOtp -> ReadyToCheck.
type ImeiCheck struct {
	reg      Registry
	accounts Accounts
	opts     Options
	otp      *Issuer
	lock     *lockout
	life     *lifetime
	log      zerolog.Logger

	mu     sync.Mutex
	step   ImeiCheckStep
	imei   string
	phone  string
	result *domain.ImeiSearch
	owner  bool
}

// NewImeiCheck starts a check flow. scope keys the ownership lockout,
// typically one per user session.
func NewImeiCheck(reg Registry, accounts Accounts, opts Options, scope string, baseLogger *zerolog.Logger) *ImeiCheck {
	opts = opts.withDefaults()
	log := baseLogger.With().Str("component", "imei_check").Str("scope", scope).Logger()
	return &ImeiCheck{
		reg:      reg,
		accounts: accounts,
		opts:     opts,
		otp:      NewIssuer(opts.OTP, log),
		lock:     newLockout(opts.Attempts, scope, opts.Ownership, opts.Now),
		life:     newLifetime(),
		log:      log,
		step:     CheckEnterImei,
	}
}

func (c *ImeiCheck) Step() ImeiCheckStep {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

func (c *ImeiCheck) IMEI() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.imei
}

// Countdown returns the seconds left before a code can be resent.
func (c *ImeiCheck) Countdown() int { return c.otp.Countdown() }

// SubmitImei accepts the IMEI and moves to phone entry.
func (c *ImeiCheck) SubmitImei(imei string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != CheckEnterImei {
		return ErrWrongStep
	}
	imei = strings.TrimSpace(imei)
	if !forms.IsIMEI(imei) {
		return forms.Fail("imei", "Please enter a valid 15-digit IMEI number")
	}
	c.imei = imei
	c.step = CheckEnterPhone
	return nil
}

// SendOTP issues a code to phone. From EnterPhone it advances to EnterOtp;
// from EnterOtp it is a resend, subject to the cooldown.
func (c *ImeiCheck) SendOTP(ctx context.Context, phone string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != CheckEnterPhone && c.step != CheckEnterOtp {
		return ErrWrongStep
	}
	ctx, done, err := c.life.bind(ctx)
	if err != nil {
		return err
	}
	defer done()

	phone = strings.TrimSpace(phone)
	if err := c.otp.Issue(ctx, "phoneNumber", phone); err != nil {
		return err
	}
	c.phone = phone
	c.step = CheckEnterOtp
	return nil
}

// VerifyOTP accepts the entered code and moves to ReadyToCheck.
func (c *ImeiCheck) VerifyOTP(ctx context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != CheckEnterOtp {
		return ErrWrongStep
	}
	code = strings.TrimSpace(code)
	if err := c.otp.Check("otp", c.phone, code); err != nil {
		return err
	}

	ctx, done, err := c.life.bind(ctx)
	if err != nil {
		return err
	}
	defer done()
	if err := latency.Wait(ctx, c.opts.Latency.OTP); err != nil {
		return err
	}

	c.step = CheckReady
	return nil
}

// Check runs the registry lookup. It is refused while locked out.
func (c *ImeiCheck) Check(ctx context.Context) (*domain.ImeiSearch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != CheckReady {
		return nil, ErrWrongStep
	}
	ctx, done, err := c.life.bind(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	if err := c.lock.guard(ctx); err != nil {
		return nil, err
	}

	search, err := c.reg.VerifyImei(ctx, c.imei)
	if err != nil {
		c.log.Error().Err(err).Str("imei", c.imei).Msg("IMEI check failed")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.result = search
	c.owner = false
	copied := *search
	return &copied, nil
}

// Result returns the last check result, or nil.
func (c *ImeiCheck) Result() *domain.ImeiSearch {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return nil
	}
	copied := *c.result
	return &copied
}

// OwnerVerified reports whether ownership was confirmed for the current result.
func (c *ImeiCheck) OwnerVerified() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner
}

// VerifyOwnership compares nationalID against the registered owner.
// A mismatch counts as a failed attempt; reaching the limit locks both
// Check and VerifyOwnership. A match clears the counter.
func (c *ImeiCheck) VerifyOwnership(ctx context.Context, nationalID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != CheckReady || c.result == nil || c.result.Result != domain.ResultClean {
		return false, ErrWrongStep
	}
	ctx, done, err := c.life.bind(ctx)
	if err != nil {
		return false, err
	}
	defer done()

	if err := c.lock.guard(ctx); err != nil {
		return false, err
	}
	nationalID = strings.TrimSpace(nationalID)
	if nationalID == "" {
		return false, forms.Fail("nationalId", "Please enter the National ID")
	}

	ok, err := c.reg.VerifyOwnership(ctx, c.imei, nationalID)
	if err != nil {
		c.log.Error().Err(err).Msg("Ownership verification failed")
		return false, err
	}

	if ok {
		c.owner = true
		if err := c.lock.reset(ctx); err != nil {
			c.log.Warn().Err(err).Msg("Failed to reset ownership attempts")
		}
		return true, nil
	}

	locked, err := c.lock.fail(ctx)
	if err != nil {
		return false, err
	}
	if locked {
		c.log.Warn().Str("imei", c.imei).Msg("Ownership checks locked")
	}
	return false, nil
}

// LockedUntil returns when the lockout ends, or the zero time.
func (c *ImeiCheck) LockedUntil(ctx context.Context) (time.Time, error) {
	return c.lock.lockedUntil(ctx)
}

// Details returns the explanation shown with the current result.
func (c *ImeiCheck) Details() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return ""
	}
	agent := c.accounts.Current().IsAgent()

	switch c.result.Result {
	case domain.ResultClean:
		if agent {
			return "This device has not been reported as lost or stolen."
		}
		return "This device has not been reported as lost or stolen. Please visit a verified agent for ownership transfer."
	case domain.ResultBlacklisted:
		return "This device has been reported as lost or stolen. Purchasing this device is not recommended."
	default:
		if agent {
			return "This device is not registered. You can register it now if you are the owner or have consent from the owner."
		}
		return "This device is not registered in our system. Please visit a nearby authorized agent to register it."
	}
}

// NextAction returns the follow-up offered for the current result.
func (c *ImeiCheck) NextAction() NextAction {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return ActionNone
	}
	agent := c.accounts.Current().IsAgent()

	switch c.result.Result {
	case domain.ResultUnknown:
		if agent {
			return ActionRegisterDevice
		}
		return ActionFindAgent
	case domain.ResultClean:
		if !agent {
			return ActionVisitAgentForTransfer
		}
	}
	return ActionNone
}

// Back returns to the previous step.
func (c *ImeiCheck) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.step {
	case CheckEnterPhone:
		c.step = CheckEnterImei
	case CheckEnterOtp:
		c.step = CheckEnterPhone
	case CheckReady:
		c.step = CheckEnterOtp
		c.result = nil
		c.owner = false
	default:
		return ErrWrongStep
	}
	return nil
}

// Close cancels any pending operation. The controller is unusable afterwards.
func (c *ImeiCheck) Close() { c.life.close() }
