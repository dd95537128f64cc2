package handlers

import (
	"ImeiGuard/internal/bot"
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/core/workflow"
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

func init() {
	bot.RegisterCommand(NewProviderHandler)
}

// providerHandler files a service-provider application.
type providerHandler struct {
	log  zerolog.Logger
	deps *bot.Deps
}

func NewProviderHandler(deps *bot.Deps) bot.CommandHandler {
	return &providerHandler{
		log:  deps.Logger.With().Str("component", "provider_handler").Logger(),
		deps: deps,
	}
}

func (h *providerHandler) Command() string     { return "provider" }
func (h *providerHandler) Description() string { return "Apply as a service provider" }

func (h *providerHandler) Handle(ctx context.Context, update *ports.BotUpdate, chat *bot.Chat) error {
	p := workflow.NewProviderRegistration(chat.Options(), h.deps.Logger)

	business := bot.NewForm(
		func(ctx context.Context, a bot.Answers) error {
			return p.SubmitBusiness(workflow.BusinessInfo{
				FullName:           a.Get("fullName"),
				BusinessName:       a.Get("businessName"),
				ActivityCode:       a.Get("activityCode"),
				ActivityType:       a.Get("activityType"),
				CustomActivityType: a.Get("customActivityType"),
				Phone:              a.Get("phoneNumber"),
				Email:              a.Get("email"),
				BusinessAddress:    a.Get("businessAddress"),
				Password:           a.Get("password"),
				ConfirmPassword:    a.Get("confirmPassword"),
				AcceptTerms:        yes(a.Get("acceptTerms")),
			})
		},
		required("fullName", "Step 1 of 2: business information.\nEnter your full name."),
		required("businessName", "Enter the business name."),
		required("activityCode", "Enter the activity code."),
		bot.Question{Field: "activityType", Prompt: "Select the activity type.", Choices: workflow.ActivityTypes},
		bot.Question{
			Field:  "customActivityType",
			Prompt: "Describe the activity.",
			When:   func(a bot.Answers) bool { return a.Get("activityType") == workflow.OtherOption },
		},
		required("phoneNumber", "Enter the business phone number."),
		required("email", "Enter the business email."),
		required("businessAddress", "Enter the business address."),
		required("password", "Choose a password: at least 8 characters with a letter and one of !@#$%^&*"),
		required("confirmPassword", "Repeat the password."),
		bot.Question{
			Field:   "acceptTerms",
			Prompt:  "Do you accept the Terms of Service?",
			Choices: []string{"Yes", "No"},
		},
	)

	docs := bot.NewForm(
		func(ctx context.Context, a bot.Answers) error {
			route, err := p.Submit(ctx, workflow.ProviderDocs{
				NationalID:               a.Get("nationalId"),
				CommercialRegisterNumber: a.Get("commercialRegisterNumber"),
				CommercialRegisterFile:   a.File("commercialRegisterFile"),
			})
			if err != nil {
				return err
			}
			info := p.Business()
			h.log.Info().Int64("chat_id", chat.ID).Str("business", info.BusinessName).Msg("Provider application from chat")
			return chat.Say(ctx, fmt.Sprintf(
				"Application received for %s (%s). We will review it shortly. Dashboard: %s",
				info.BusinessName, info.Activity(), route,
			))
		},
		required("nationalId", "Step 2 of 2: documents.\nEnter your National ID number."),
		required("commercialRegisterNumber", "Enter the Commercial Register number."),
		bot.Question{
			Field:  "commercialRegisterFile",
			Prompt: "Send the Commercial Register file as a photo or PDF.",
			File:   true,
		},
	)

	return chat.Begin(ctx, bot.NewStages(p.Back, p.Close, business, docs))
}
