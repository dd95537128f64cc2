package handlers

import (
	"ImeiGuard/internal/bot"
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/core/workflow"
	"context"

	"github.com/rs/zerolog"
)

func init() {
	bot.RegisterCommand(NewResetHandler)
}

// resetHandler is the forgot-password flow.
type resetHandler struct {
	log  zerolog.Logger
	deps *bot.Deps
}

func NewResetHandler(deps *bot.Deps) bot.CommandHandler {
	return &resetHandler{
		log:  deps.Logger.With().Str("component", "reset_handler").Logger(),
		deps: deps,
	}
}

func (h *resetHandler) Command() string     { return "reset" }
func (h *resetHandler) Description() string { return "Reset your password" }

func (h *resetHandler) Handle(ctx context.Context, update *ports.BotUpdate, chat *bot.Chat) error {
	p := workflow.NewPasswordReset(chat.Options(), h.deps.Logger)
	typ := domain.UserType("")
	regular := func(bot.Answers) bool { return typ == domain.UserTypeRegular }
	agent := func(bot.Answers) bool { return typ == domain.UserTypeAgent }

	selectType := bot.NewForm(
		func(ctx context.Context, a bot.Answers) error {
			chosen := userTypeOf(a.Get("userType"))
			if err := p.SelectType(chosen); err != nil {
				return err
			}
			typ = chosen
			return nil
		},
		bot.Question{Field: "userType", Prompt: "Which kind of account is it?", Choices: userTypeChoices},
	)

	fill := bot.NewForm(
		func(ctx context.Context, a bot.Answers) error {
			var err error
			if typ == domain.UserTypeAgent {
				err = p.SubmitAgent(ctx, workflow.AgentReset{
					Email:                      a.Get("email"),
					Phone:                      a.Get("phoneNumber"),
					BusinessRegistrationNumber: a.Get("businessRegistrationNumber"),
					NationalID:                 a.Get("nationalId"),
				})
			} else {
				err = p.SubmitRegular(ctx, workflow.RegularReset{
					FullName: a.Get("fullName"),
					Phone:    a.Get("phoneNumber"),
					OTP:      a.Get("otp"),
				})
			}
			if err != nil {
				return err
			}
			h.log.Info().Int64("chat_id", chat.ID).Str("type", string(typ)).Msg("Password reset requested from chat")
			return chat.Say(ctx, p.Outcome())
		},
		withWhen(required("fullName", "Enter your full name."), regular),
		withWhen(phoneQuestion("phoneNumber", "Enter your phone number. We will send a verification code.", p.SendOTP), regular),
		withWhen(otpQuestion("phoneNumber", p.SendOTP, p.Countdown), regular),

		withWhen(required("email", "Enter your account email."), agent),
		withWhen(required("phoneNumber", "Enter your business phone number."), agent),
		withWhen(required("businessRegistrationNumber", "Enter your business registration number."), agent),
		withWhen(required("nationalId", "Enter your National ID number."), agent),
	)

	back := func() error {
		if err := p.Back(); err != nil {
			return err
		}
		typ = ""
		return nil
	}
	return chat.Begin(ctx, bot.NewStages(back, p.Close, selectType, fill))
}
