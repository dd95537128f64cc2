package handlers

import (
	"ImeiGuard/internal/bot"
	"ImeiGuard/internal/core/ports"
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

func init() {
	bot.RegisterCommand(NewStartHandler)
}

// startHandler is the plugin for the /start command.
type startHandler struct {
	log zerolog.Logger
}

func NewStartHandler(deps *bot.Deps) bot.CommandHandler {
	return &startHandler{
		log: deps.Logger.With().Str("component", "start_handler").Logger(),
	}
}

func (h *startHandler) Command() string     { return "start" }
func (h *startHandler) Description() string { return "Show the main menu" }

func (h *startHandler) Handle(ctx context.Context, update *ports.BotUpdate, chat *bot.Chat) error {
	chat.End()

	var b strings.Builder
	if user := chat.Session.Current(); user != nil {
		h.log.Info().Int64("chat_id", chat.ID).Str("user_id", user.ID).Msg("Returning user")
		fmt.Fprintf(&b, "Welcome back, %s! You have %d credits.\n\n", user.Name, user.CreditBalance)
	} else {
		h.log.Info().Int64("chat_id", chat.ID).Msg("Anonymous visitor")
		b.WriteString("Welcome to ImeiGuard. Check a device before you buy it.\n\n")
	}

	b.WriteString("/check - Check an IMEI\n")
	b.WriteString("/register - Register a device\n")
	b.WriteString("/transfer - Transfer ownership of a device\n")
	b.WriteString("/history - Your recent IMEI checks\n")
	b.WriteString("/balance - Credit balance and packs\n")
	b.WriteString("/buy - Buy credits\n")
	if chat.Session.IsAuthenticated() {
		b.WriteString("/logout - Sign out\n")
	} else {
		b.WriteString("/login - Sign in\n")
		b.WriteString("/signup - Create an account\n")
		b.WriteString("/reset - Forgot your password\n")
		b.WriteString("/provider - Apply as a service provider\n")
	}
	b.WriteString("/back - Previous step, /cancel - Stop the current step")

	return chat.Say(ctx, b.String())
}
