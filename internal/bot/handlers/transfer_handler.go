package handlers

import (
	"ImeiGuard/internal/bot"
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/core/workflow"
	"ImeiGuard/internal/core/workflow/forms"
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

func init() {
	bot.RegisterCommand(NewTransferHandler)
}

const confirmWord = "Confirm"

type transferHandler struct {
	log  zerolog.Logger
	deps *bot.Deps
}

func NewTransferHandler(deps *bot.Deps) bot.CommandHandler {
	return &transferHandler{
		log:  deps.Logger.With().Str("component", "transfer_handler").Logger(),
		deps: deps,
	}
}

func (h *transferHandler) Command() string     { return "transfer" }
func (h *transferHandler) Description() string { return "Transfer ownership of a device" }

func (h *transferHandler) Handle(ctx context.Context, update *ports.BotUpdate, chat *bot.Chat) error {
	if ok, err := allowed(ctx, chat, workflow.RouteTransferOwnership); !ok {
		return err
	}

	t := workflow.NewTransfer(h.deps.Registry, chat.Options(), h.deps.Logger)
	flow := bot.NewStages(t.Back, t.Close,
		h.lookupForm(t, chat),
		h.ownerForm(t, chat),
		h.confirmForm(t, chat),
	)
	return chat.Begin(ctx, flow)
}

func (h *transferHandler) lookupForm(t *workflow.Transfer, chat *bot.Chat) *bot.Form {
	return bot.NewForm(
		func(ctx context.Context, a bot.Answers) error {
			device, err := t.LookupImei(ctx, a.Get("imei"))
			if err != nil {
				return err
			}
			owner := device.OwnerName
			if owner == "" {
				owner = "unknown"
			}
			return chat.Say(ctx, fmt.Sprintf("Found: %s\nCurrent owner: %s", deviceLine(device), owner))
		},
		required("imei", "Enter the IMEI of the device to transfer."),
	)
}

func (h *transferHandler) ownerForm(t *workflow.Transfer, chat *bot.Chat) *bot.Form {
	return bot.NewForm(
		func(ctx context.Context, a bot.Answers) error {
			if err := t.SubmitNewOwner(workflow.NewOwnerDetails{
				Name:        a.Get("newOwnerName"),
				Phone:       a.Get("newOwnerPhone"),
				OTP:         a.Get("otp"),
				NationalID:  a.Get("nationalId"),
				ProofOfSale: a.File("proofOfSale"),
			}); err != nil {
				return err
			}
			summary, err := t.Summary()
			if err != nil {
				return err
			}
			return chat.Say(ctx, summaryText(summary))
		},
		required("newOwnerName", "Enter the new owner's full name."),
		phoneQuestion("newOwnerPhone", "Enter the new owner's phone number. We will send a verification code.", t.SendOTP),
		otpQuestion("newOwnerPhone", t.SendOTP, t.Countdown),
		required("nationalId", "Enter the new owner's National ID number."),
		bot.Question{
			Field:    "proofOfSale",
			Prompt:   "Send a proof of sale as a photo or PDF.",
			File:     true,
			Optional: true,
		},
	)
}

func (h *transferHandler) confirmForm(t *workflow.Transfer, chat *bot.Chat) *bot.Form {
	return bot.NewForm(
		func(ctx context.Context, a bot.Answers) error {
			if !strings.EqualFold(a.Get("confirm"), confirmWord) {
				return forms.Fail("confirm", "Press Confirm to transfer, or send /back to edit.")
			}
			route, err := t.Commit(ctx)
			if err != nil {
				return err
			}
			device := t.Device()
			h.log.Info().Int64("chat_id", chat.ID).Str("imei", device.IMEI).Msg("Ownership transferred from chat")
			return chat.Say(ctx, fmt.Sprintf(
				"Ownership transferred to %s. Your devices: %s", device.OwnerName, route,
			))
		},
		bot.Question{
			Field:   "confirm",
			Prompt:  "Is everything correct?",
			Choices: []string{confirmWord},
		},
	)
}

func summaryText(s workflow.TransferSummary) string {
	var b strings.Builder
	b.WriteString("Please review the transfer:\n")
	fmt.Fprintf(&b, "IMEI: %s\n", s.IMEI)
	fmt.Fprintf(&b, "Device: %s %s\n", s.Brand, s.Model)
	fmt.Fprintf(&b, "Current owner: %s\n", s.CurrentOwner)
	fmt.Fprintf(&b, "New owner: %s\n", s.NewOwnerName)
	fmt.Fprintf(&b, "Phone: %s\n", s.NewOwnerPhone)
	fmt.Fprintf(&b, "National ID: %s", s.NationalID)
	if s.ProofOfSale != "" {
		fmt.Fprintf(&b, "\nProof of sale: %s", s.ProofOfSale)
	}
	return b.String()
}
