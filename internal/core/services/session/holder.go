// Package session holds the signed-in user and mirrors it into a
// ports.SessionStore on every change.
package session

import (
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/shared/latency"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultKey is the storage key of the serialized user record.
const DefaultKey = "user"

const demoUserID = "123456"

var (
	ErrBelowMinimum         = fmt.Errorf("minimum purchase is %d DZD", domain.MinPurchaseDZD)
	ErrNotAuthenticated     = errors.New("no user is signed in")
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
)

// Holder is the identity session holder.
type Holder struct {
	store   ports.SessionStore
	key     string
	latency latency.Profile
	log     zerolog.Logger

	mu   sync.RWMutex
	user *domain.User
}

// NewHolder creates a logged-out holder. An empty key uses DefaultKey.
func NewHolder(store ports.SessionStore, key string, lat latency.Profile, baseLogger *zerolog.Logger) *Holder {
	if key == "" {
		key = DefaultKey
	}
	return &Holder{
		store:   store,
		key:     key,
		latency: lat,
		log:     baseLogger.With().Str("component", "session").Logger(),
	}
}

// Restore loads the stored record. A missing record leaves the holder logged out.
func (h *Holder) Restore(ctx context.Context) error {
	raw, err := h.store.Load(ctx, h.key)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load stored session")
		return fmt.Errorf("load session: %w", err)
	}
	if raw == nil {
		h.log.Debug().Msg("No stored session")
		return nil
	}

	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		h.log.Warn().Err(err).Msg("Discarding unreadable session record")
		return h.store.Clear(ctx, h.key)
	}

	h.mu.Lock()
	h.user = &u
	h.mu.Unlock()
	h.log.Info().Str("user_id", u.ID).Msg("Session restored")
	return nil
}

// Login signs in the demo account under the given email.
// Credentials are not checked.
func (h *Holder) Login(ctx context.Context, email, password string) (*domain.User, error) {
	if err := latency.Wait(ctx, h.latency.Login); err != nil {
		return nil, err
	}
	phone := "+1234567890"
	u := domain.User{
		ID:                      demoUserID,
		Name:                    "John Doe",
		Email:                   email,
		Phone:                   &phone,
		Type:                    domain.UserTypeRegular,
		CreditBalance:           100,
		HasBusinessRegistration: true,
		HasNationalID:           true,
	}
	return h.begin(ctx, u)
}

// Signup creates a fresh regular account.
func (h *Holder) Signup(ctx context.Context, name, email, password string) (*domain.User, error) {
	return h.signup(ctx, name, email, domain.UserTypeRegular)
}

// SignupAgent creates a fresh service-provider account.
func (h *Holder) SignupAgent(ctx context.Context, name, email, password string) (*domain.User, error) {
	return h.signup(ctx, name, email, domain.UserTypeAgent)
}

func (h *Holder) signup(ctx context.Context, name, email string, typ domain.UserType) (*domain.User, error) {
	if err := latency.Wait(ctx, h.latency.Login); err != nil {
		return nil, err
	}
	u := domain.User{
		ID:            demoUserID,
		Name:          name,
		Email:         email,
		Type:          typ,
		CreditBalance: 50,
	}
	return h.begin(ctx, u)
}

func (h *Holder) begin(ctx context.Context, u domain.User) (*domain.User, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.persist(ctx, &u); err != nil {
		return nil, err
	}
	h.user = &u
	h.log.Info().Str("user_id", u.ID).Str("type", string(u.Type)).Msg("User signed in")
	out := u
	return &out, nil
}

// Logout clears the in-memory and stored session.
func (h *Holder) Logout(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.user = nil
	if err := h.store.Clear(ctx, h.key); err != nil {
		h.log.Error().Err(err).Msg("Failed to clear stored session")
		return fmt.Errorf("clear session: %w", err)
	}
	h.log.Info().Msg("User signed out")
	return nil
}

// UpdateUser merges patch into the current user and re-persists it.
// It is a no-op when nobody is signed in.
func (h *Holder) UpdateUser(ctx context.Context, patch domain.UserPatch) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.user == nil {
		return nil
	}
	updated := patch.Apply(*h.user)
	if err := h.persist(ctx, &updated); err != nil {
		return err
	}
	h.user = &updated
	return nil
}

// Current returns a copy of the signed-in user, or nil.
func (h *Holder) Current() *domain.User {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.user == nil {
		return nil
	}
	u := *h.user
	if u.Phone != nil {
		phone := *u.Phone
		u.Phone = &phone
	}
	return &u
}

func (h *Holder) IsAuthenticated() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.user != nil
}

// PurchaseCredits buys floor(amountDZD/10) credits.
// Amounts below the minimum are refused before any delay.
func (h *Holder) PurchaseCredits(ctx context.Context, amountDZD int) (*domain.User, error) {
	if amountDZD < domain.MinPurchaseDZD {
		return nil, ErrBelowMinimum
	}
	return h.addCredits(ctx, domain.CreditsFor(amountDZD), amountDZD, "")
}

// PurchasePack buys one of the predefined credit packs.
func (h *Holder) PurchasePack(ctx context.Context, pack domain.CreditPack, method domain.PaymentMethod) (*domain.User, error) {
	if !method.Valid() {
		return nil, ErrUnknownPaymentMethod
	}
	return h.addCredits(ctx, pack.Credits, pack.AmountDZD, method)
}

func (h *Holder) addCredits(ctx context.Context, credits, amountDZD int, method domain.PaymentMethod) (*domain.User, error) {
	if !h.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	if err := latency.Wait(ctx, h.latency.Purchase); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// The user may have signed out during the delay.
	if h.user == nil {
		return nil, ErrNotAuthenticated
	}
	balance := h.user.CreditBalance + credits
	updated := domain.UserPatch{CreditBalance: &balance}.Apply(*h.user)
	if err := h.persist(ctx, &updated); err != nil {
		return nil, err
	}
	h.user = &updated

	h.log.Info().
		Int("amount_dzd", amountDZD).
		Int("credits", credits).
		Str("method", string(method)).
		Int("balance", balance).
		Msg("Credits purchased")
	out := updated
	return &out, nil
}

// persist must be called with mu held.
func (h *Holder) persist(ctx context.Context, u *domain.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := h.store.Save(ctx, h.key, raw); err != nil {
		h.log.Error().Err(err).Msg("Failed to persist session")
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
