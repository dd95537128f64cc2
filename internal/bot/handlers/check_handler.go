package handlers

import (
	"ImeiGuard/internal/bot"
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/core/workflow"
	"ImeiGuard/internal/core/workflow/forms"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

func init() {
	bot.RegisterCommand(NewCheckHandler)
}

type checkHandler struct {
	log  zerolog.Logger
	deps *bot.Deps
}

func NewCheckHandler(deps *bot.Deps) bot.CommandHandler {
	return &checkHandler{
		log:  deps.Logger.With().Str("component", "check_handler").Logger(),
		deps: deps,
	}
}

func (h *checkHandler) Command() string     { return "check" }
func (h *checkHandler) Description() string { return "Check an IMEI" }

// Handle opens the check flow. "/check <imei>" answers the first question.
func (h *checkHandler) Handle(ctx context.Context, update *ports.BotUpdate, chat *bot.Chat) error {
	check := workflow.NewImeiCheck(h.deps.Registry, chat.Session, chat.Options(), chat.Scope(), h.deps.Logger)
	flow := h.newFlow(check, chat)
	if err := chat.Begin(ctx, flow); err != nil {
		return err
	}
	if imei := strings.TrimSpace(update.Args); imei != "" {
		done, err := flow.Handle(ctx, chat, &ports.BotUpdate{ChatID: chat.ID, Text: imei})
		if done {
			chat.End()
		}
		return err
	}
	return nil
}

func (h *checkHandler) newFlow(check *workflow.ImeiCheck, chat *bot.Chat) *bot.Stages {
	imei := bot.NewForm(
		func(ctx context.Context, a bot.Answers) error {
			return check.SubmitImei(a.Get("imei"))
		},
		required("imei", "Enter the 15-digit IMEI of the device. Dial *#06# to find it."),
	)

	var sentTo string
	phone := bot.NewForm(
		func(ctx context.Context, a bot.Answers) error {
			if err := check.SendOTP(ctx, a.Get("phoneNumber")); err != nil {
				return err
			}
			sentTo = a.Get("phoneNumber")
			return nil
		},
		required("phoneNumber", "Enter your phone number (05, 06 or 07 followed by 8 digits) to receive a verification code."),
	)

	otp := bot.NewForm(
		func(ctx context.Context, a bot.Answers) error {
			if err := check.VerifyOTP(ctx, a.Get("otp")); err != nil {
				return err
			}
			return h.runCheck(ctx, check, chat)
		},
		resendableOTP(func(ctx context.Context, _ bot.Answers) error {
			return check.SendOTP(ctx, sentTo)
		}, check.Countdown),
	)

	ownership := bot.NewForm(
		func(ctx context.Context, a bot.Answers) error {
			return h.verifyOwner(ctx, check, chat, a.Get("nationalId"))
		},
		bot.Question{
			Field:    "nationalId",
			Prompt:   "Are you the owner? Send the owner's National ID to confirm ownership.",
			Optional: true,
			When: func(bot.Answers) bool {
				r := check.Result()
				return r != nil && r.Result == domain.ResultClean
			},
		},
	)

	return bot.NewStages(check.Back, check.Close, imei, phone, otp, ownership)
}

// runCheck performs the lookup and reports it. A failed lookup ends the
// flow with the error shown.
func (h *checkHandler) runCheck(ctx context.Context, check *workflow.ImeiCheck, chat *bot.Chat) error {
	search, err := check.Check(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return chat.Say(ctx, h.lockText(ctx, check, err))
	}
	h.deps.Chats.Watch(search.IMEI, chat.ID)
	h.log.Info().Int64("chat_id", chat.ID).Str("imei", search.IMEI).Str("result", string(search.Result)).Msg("IMEI checked")

	var b strings.Builder
	fmt.Fprintf(&b, "IMEI %s: %s\n", search.IMEI, resultLabel(search.Result))
	if d := search.DeviceInfo; d != nil {
		fmt.Fprintf(&b, "Device: %s %s (%s)\n", d.Brand, d.Model, d.Type)
	}
	b.WriteString(check.Details())
	switch check.NextAction() {
	case workflow.ActionRegisterDevice:
		b.WriteString("\nSend /register to register it.")
	case workflow.ActionFindAgent:
		b.WriteString("\nFind an authorized agent near you to register it.")
	case workflow.ActionVisitAgentForTransfer:
		b.WriteString("\nVisit a verified agent to transfer ownership.")
	}
	return chat.Say(ctx, b.String())
}

func (h *checkHandler) verifyOwner(ctx context.Context, check *workflow.ImeiCheck, chat *bot.Chat, nationalID string) error {
	if nationalID == "" {
		// The question is only offered on a clean result.
		if r := check.Result(); r == nil || r.Result != domain.ResultClean {
			return nil
		}
		return chat.Say(ctx, "Done. Send /check to look up another device.")
	}

	ok, err := check.VerifyOwnership(ctx, nationalID)
	if err != nil {
		if _, isValidation := forms.AsValidation(err); isValidation || errors.Is(err, context.Canceled) {
			return err
		}
		return chat.Say(ctx, h.lockText(ctx, check, err))
	}
	if ok {
		return chat.Say(ctx, "Ownership confirmed. You are the registered owner of this device.")
	}

	until, err := check.LockedUntil(ctx)
	if err != nil {
		return err
	}
	if !until.IsZero() {
		return chat.Say(ctx, h.lockText(ctx, check, workflow.ErrLocked))
	}
	return forms.Fail("nationalId", "The National ID does not match the registered owner.")
}

func (h *checkHandler) lockText(ctx context.Context, check *workflow.ImeiCheck, err error) string {
	text := bot.Describe(err)
	if !errors.Is(err, workflow.ErrLocked) {
		return text
	}
	until, lerr := check.LockedUntil(ctx)
	if lerr != nil || until.IsZero() {
		return text
	}
	return fmt.Sprintf("%s Locked until %s.", text, until.Format(time.Kitchen))
}

func resultLabel(r domain.SearchResult) string {
	switch r {
	case domain.ResultClean:
		return "clean"
	case domain.ResultBlacklisted:
		return "BLACKLISTED"
	default:
		return "not registered"
	}
}
