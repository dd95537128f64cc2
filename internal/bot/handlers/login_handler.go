package handlers

import (
	"ImeiGuard/internal/bot"
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/core/workflow"
	"ImeiGuard/internal/core/workflow/forms"
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

func init() {
	bot.RegisterCommand(NewLoginHandler)
	bot.RegisterCommand(NewLogoutHandler)
}

type loginHandler struct {
	log zerolog.Logger
}

func NewLoginHandler(deps *bot.Deps) bot.CommandHandler {
	return &loginHandler{log: deps.Logger.With().Str("component", "login_handler").Logger()}
}

func (h *loginHandler) Command() string     { return "login" }
func (h *loginHandler) Description() string { return "Sign in" }

func (h *loginHandler) Handle(ctx context.Context, update *ports.BotUpdate, chat *bot.Chat) error {
	if user := chat.Session.Current(); user != nil {
		return chat.Say(ctx, fmt.Sprintf("You are already signed in as %s. Send /logout to switch accounts.", user.Name))
	}

	form := bot.NewForm(
		func(ctx context.Context, a bot.Answers) error {
			if a.Get("email") == "" || a.Get("password") == "" {
				return forms.Merge(
					forms.Fail("email", "Please enter your email and password."),
					forms.Fail("password", "Please enter your email and password."),
				)
			}
			user, err := chat.Session.Login(ctx, a.Get("email"), a.Get("password"))
			if err != nil {
				return err
			}
			h.log.Info().Int64("chat_id", chat.ID).Str("user_id", user.ID).Msg("User logged in")
			return chat.Say(ctx, fmt.Sprintf("Welcome, %s! You have %d credits. Your profile: %s", user.Name, user.CreditBalance, workflow.RouteProfile))
		},
		required("email", "Enter your email address."),
		required("password", "Enter your password."),
	)
	return chat.Begin(ctx, bot.NewStages(nil, nil, form))
}

type logoutHandler struct {
	log zerolog.Logger
}

func NewLogoutHandler(deps *bot.Deps) bot.CommandHandler {
	return &logoutHandler{log: deps.Logger.With().Str("component", "logout_handler").Logger()}
}

func (h *logoutHandler) Command() string     { return "logout" }
func (h *logoutHandler) Description() string { return "Sign out" }

func (h *logoutHandler) Handle(ctx context.Context, update *ports.BotUpdate, chat *bot.Chat) error {
	chat.End()
	if !chat.Session.IsAuthenticated() {
		return chat.Say(ctx, "You are not signed in.")
	}
	if err := chat.Session.Logout(ctx); err != nil {
		return err
	}
	h.log.Info().Int64("chat_id", chat.ID).Msg("User logged out")
	return chat.Say(ctx, fmt.Sprintf("You are signed out. Back to %s.", workflow.RouteHome))
}
