package handlers

import (
	"ImeiGuard/internal/bot"
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/core/workflow"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

func init() {
	bot.RegisterCommand(NewBalanceHandler)
	bot.RegisterCommand(NewBuyHandler)
}

type balanceHandler struct {
	log zerolog.Logger
}

func NewBalanceHandler(deps *bot.Deps) bot.CommandHandler {
	return &balanceHandler{log: deps.Logger.With().Str("component", "balance_handler").Logger()}
}

func (h *balanceHandler) Command() string     { return "balance" }
func (h *balanceHandler) Description() string { return "Credit balance and packs" }

func (h *balanceHandler) Handle(ctx context.Context, update *ports.BotUpdate, chat *bot.Chat) error {
	if ok, err := allowed(ctx, chat, workflow.RouteCreditBalance); !ok {
		return err
	}
	user := chat.Session.Current()
	rank := domain.RankFor(0)

	var b strings.Builder
	fmt.Fprintf(&b, "Balance: %d credits (worth %d DZD)\n", user.CreditBalance, user.CreditBalance*domain.CreditValueDZD)
	fmt.Fprintf(&b, "Rank: %s (%d%% discount)\n\n", rank.Name, rank.DiscountPercent)
	b.WriteString("Service prices:\n")
	fmt.Fprintf(&b, "IMEI check: %d credits\n", domain.ServiceCredits[domain.ServiceImeiCheck])
	fmt.Fprintf(&b, "Device registration: %d credits\n", domain.ServiceCredits[domain.ServiceDeviceRegistration])
	fmt.Fprintf(&b, "Ownership transfer: %d credits\n\n", domain.ServiceCredits[domain.ServiceOwnershipTransfer])
	b.WriteString("Packs:\n")
	for _, p := range domain.CreditPacks {
		fmt.Fprintf(&b, "/buy %d <method> - %d credits\n", p.AmountDZD, p.Credits)
	}
	fmt.Fprintf(&b, "Or /buy <amount> for a custom amount (minimum %d DZD).\n", domain.MinPurchaseDZD)
	b.WriteString("Methods: baridimob, cib, edahabia, visa")
	return chat.Say(ctx, b.String())
}

// buyHandler handles "/buy <amountDZD> [method]". An amount matching a
// pack buys the pack through method; any other amount is a custom recharge.
type buyHandler struct {
	log zerolog.Logger
}

func NewBuyHandler(deps *bot.Deps) bot.CommandHandler {
	return &buyHandler{log: deps.Logger.With().Str("component", "buy_handler").Logger()}
}

func (h *buyHandler) Command() string     { return "buy" }
func (h *buyHandler) Description() string { return "Buy credits" }

func (h *buyHandler) Handle(ctx context.Context, update *ports.BotUpdate, chat *bot.Chat) error {
	if ok, err := allowed(ctx, chat, workflow.RouteCreditBalance); !ok {
		return err
	}

	args := strings.Fields(update.Args)
	if len(args) == 0 {
		return chat.Say(ctx, "Usage: /buy <amount in DZD> [method]. Send /balance to see the packs.")
	}
	amount, err := strconv.Atoi(args[0])
	if err != nil {
		return chat.Say(ctx, "The amount must be a whole number of DZD, e.g. /buy 2500")
	}

	var user *domain.User
	if pack, ok := packFor(amount); ok && len(args) > 1 {
		user, err = chat.Session.PurchasePack(ctx, pack, domain.PaymentMethod(strings.ToLower(args[1])))
	} else {
		user, err = chat.Session.PurchaseCredits(ctx, amount)
	}
	if err != nil {
		return err
	}

	h.log.Info().Int64("chat_id", chat.ID).Int("amount_dzd", amount).Msg("Credits purchased from chat")
	return chat.Say(ctx, fmt.Sprintf("Payment accepted. New balance: %d credits.", user.CreditBalance))
}

func packFor(amountDZD int) (domain.CreditPack, bool) {
	for _, p := range domain.CreditPacks {
		if p.AmountDZD == amountDZD {
			return p, true
		}
	}
	return domain.CreditPack{}, false
}
