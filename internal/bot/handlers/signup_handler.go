package handlers

import (
	"ImeiGuard/internal/bot"
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/core/workflow"
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

func init() {
	bot.RegisterCommand(NewSignupHandler)
}

type signupHandler struct {
	log  zerolog.Logger
	deps *bot.Deps
}

func NewSignupHandler(deps *bot.Deps) bot.CommandHandler {
	return &signupHandler{
		log:  deps.Logger.With().Str("component", "signup_handler").Logger(),
		deps: deps,
	}
}

func (h *signupHandler) Command() string     { return "signup" }
func (h *signupHandler) Description() string { return "Create an account" }

func (h *signupHandler) Handle(ctx context.Context, update *ports.BotUpdate, chat *bot.Chat) error {
	if chat.Session.IsAuthenticated() {
		return chat.Say(ctx, "You are already signed in. Send /logout first.")
	}

	s := workflow.NewSignup(chat.Session, chat.Options(), h.deps.Logger)
	regular := func(bot.Answers) bool { return s.Type() == domain.UserTypeRegular }
	agent := func(bot.Answers) bool { return s.Type() == domain.UserTypeAgent }

	selectType := bot.NewForm(
		func(ctx context.Context, a bot.Answers) error {
			return s.SelectType(userTypeOf(a.Get("userType")))
		},
		bot.Question{Field: "userType", Prompt: "Which kind of account do you want?", Choices: userTypeChoices},
	)

	fill := bot.NewForm(
		func(ctx context.Context, a bot.Answers) error {
			var (
				route string
				err   error
			)
			if s.Type() == domain.UserTypeAgent {
				route, err = s.SubmitAgent(ctx, workflow.AgentSignup{
					FullName:                   a.Get("fullName"),
					BusinessName:               a.Get("businessName"),
					BusinessRegistrationNumber: a.Get("businessRegistrationNumber"),
					BusinessAddress:            a.Get("businessAddress"),
					Phone:                      a.Get("phoneNumber"),
					Email:                      a.Get("email"),
					Password:                   a.Get("password"),
					ConfirmPassword:            a.Get("confirmPassword"),
					AcceptTerms:                yes(a.Get("acceptTerms")),
					CommercialRegisterFile:     a.File("commercialRegisterFile"),
				})
			} else {
				route, err = s.SubmitRegular(ctx, workflow.RegularSignup{
					FullName:         a.Get("fullName"),
					NationalID:       a.Get("nationalId"),
					PlaceOfResidence: a.Get("placeOfResidence"),
					DateOfBirth:      a.Get("dateOfBirth"),
					PlaceOfBirth:     a.Get("placeOfBirth"),
					Phone:            a.Get("phoneNumber"),
					OTP:              a.Get("otp"),
				})
			}
			if err != nil {
				return err
			}
			user := s.User()
			h.log.Info().Int64("chat_id", chat.ID).Str("type", string(user.Type)).Msg("Account created from chat")
			return chat.Say(ctx, fmt.Sprintf(
				"Account created. Welcome, %s! You start with %d credits. Your profile: %s",
				user.Name, user.CreditBalance, route,
			))
		},
		required("fullName", "Enter your full name."),

		// Regular users
		withWhen(required("nationalId", "Enter your National ID number."), regular),
		withWhen(required("placeOfResidence", "Enter your place of residence."), regular),
		withWhen(required("dateOfBirth", "Enter your date of birth (YYYY-MM-DD)."), regular),
		withWhen(required("placeOfBirth", "Enter your place of birth."), regular),
		withWhen(phoneQuestion("phoneNumber", "Enter your phone number. We will send a verification code.", s.SendOTP), regular),
		withWhen(otpQuestion("phoneNumber", s.SendOTP, s.Countdown), regular),

		// Service providers
		withWhen(required("businessName", "Enter your business name."), agent),
		withWhen(required("businessRegistrationNumber", "Enter your business registration number."), agent),
		withWhen(required("businessAddress", "Enter your business address."), agent),
		withWhen(required("phoneNumber", "Enter your business phone number."), agent),
		withWhen(required("email", "Enter your email address."), agent),
		withWhen(required("password", "Choose a password: at least 8 characters with a letter and one of !@#$%^&*"), agent),
		withWhen(required("confirmPassword", "Repeat the password."), agent),
		withWhen(bot.Question{
			Field:   "acceptTerms",
			Prompt:  "Do you accept the Terms of Service and Privacy Policy?",
			Choices: []string{"Yes", "No"},
		}, agent),
		withWhen(bot.Question{
			Field:  "commercialRegisterFile",
			Prompt: "Send your Commercial Register file as a photo or PDF.",
			File:   true,
		}, agent),
	)

	return chat.Begin(ctx, bot.NewStages(s.Back, s.Close, selectType, fill))
}

func withWhen(q bot.Question, when func(bot.Answers) bool) bot.Question {
	q.When = when
	return q
}
