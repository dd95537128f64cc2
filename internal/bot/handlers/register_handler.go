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
	bot.RegisterCommand(NewRegisterHandler)
}

// registerHandler runs the three-stage device registration.
type registerHandler struct {
	log  zerolog.Logger
	deps *bot.Deps
}

func NewRegisterHandler(deps *bot.Deps) bot.CommandHandler {
	return &registerHandler{
		log:  deps.Logger.With().Str("component", "register_handler").Logger(),
		deps: deps,
	}
}

func (h *registerHandler) Command() string     { return "register" }
func (h *registerHandler) Description() string { return "Register a device" }

func (h *registerHandler) Handle(ctx context.Context, update *ports.BotUpdate, chat *bot.Chat) error {
	if ok, err := allowed(ctx, chat, workflow.RouteDeviceRegistration); !ok {
		return err
	}

	reg := workflow.NewRegistration(h.deps.Registry, chat.Options(), h.deps.Logger)
	flow := bot.NewStages(reg.Back, reg.Close,
		h.personalForm(reg),
		h.deviceForm(reg),
		h.documentsForm(reg, chat),
	)
	return chat.Begin(ctx, flow)
}

func (h *registerHandler) personalForm(reg *workflow.Registration) *bot.Form {
	return bot.NewForm(
		func(ctx context.Context, a bot.Answers) error {
			return reg.SubmitPersonalInfo(workflow.PersonalInfo{
				FullName:   a.Get("fullName"),
				Phone:      a.Get("phoneNumber"),
				OTP:        a.Get("otp"),
				NationalID: a.Get("nationalId"),
			})
		},
		required("fullName", "Step 1 of 3: personal information.\nEnter the owner's full name."),
		phoneQuestion("phoneNumber", "Enter the owner's phone number. We will send a verification code.", reg.SendOTP),
		otpQuestion("phoneNumber", reg.SendOTP, reg.Countdown),
		required("nationalId", "Enter the owner's National ID number."),
	)
}

func typeOf(a bot.Answers) domain.DeviceType { return domain.DeviceType(a.Get("deviceType")) }

func (h *registerHandler) deviceForm(reg *workflow.Registration) *bot.Form {
	return bot.NewForm(
		func(ctx context.Context, a bot.Answers) error {
			return reg.SubmitDeviceInfo(workflow.DeviceInfo{
				Type:        typeOf(a),
				Brand:       a.Get("brand"),
				CustomBrand: a.Get("customBrand"),
				Model:       a.Get("model"),
				CustomModel: a.Get("customModel"),
				IMEISerial:  a.Get("imeiSerial"),
				Condition:   workflow.Condition(a.Get("condition")),
			})
		},
		bot.Question{
			Field:   "deviceType",
			Prompt:  "Step 2 of 3: device information.\nWhat kind of device is it?",
			Choices: deviceTypeChoices,
		},
		bot.Question{
			Field:      "brand",
			Prompt:     "Select the brand.",
			ChoicesFor: func(a bot.Answers) []string { return brandChoices(typeOf(a)) },
		},
		bot.Question{
			Field:  "customBrand",
			Prompt: "Enter the brand name.",
			When:   func(a bot.Answers) bool { return a.Get("brand") == workflow.OtherOption },
		},
		bot.Question{
			Field:      "model",
			Prompt:     "Select the model.",
			ChoicesFor: func(a bot.Answers) []string { return modelChoices(a.Get("brand"), typeOf(a)) },
			When:       func(a bot.Answers) bool { return typeOf(a) != domain.DeviceLaptop },
		},
		bot.Question{
			Field:  "customModel",
			Prompt: "Enter the model name.",
			When: func(a bot.Answers) bool {
				return typeOf(a) == domain.DeviceLaptop || a.Get("model") == workflow.OtherOption
			},
		},
		required("imeiSerial", "Enter the 15-digit IMEI, or the serial number for a laptop."),
		bot.Question{
			Field:   "condition",
			Prompt:  "Is the device new or used?",
			Choices: []string{string(workflow.ConditionNew), string(workflow.ConditionUsed)},
		},
	)
}

func (h *registerHandler) documentsForm(reg *workflow.Registration, chat *bot.Chat) *bot.Form {
	return bot.NewForm(
		func(ctx context.Context, a bot.Answers) error {
			route, err := reg.Submit(ctx, workflow.Documents{
				PurchaseInvoice: a.File("purchaseInvoice"),
				BoxImage:        a.File("boxImage"),
			})
			if err != nil {
				return err
			}
			device := reg.Device()
			h.deps.Chats.Watch(device.IMEI, chat.ID)
			h.log.Info().Int64("chat_id", chat.ID).Str("device_id", device.ID).Msg("Device registered from chat")
			return chat.Say(ctx, fmt.Sprintf(
				"Device submitted for review.\n%s\nYou will be notified when a moderator reviews it. Your devices: %s",
				deviceLine(device), route,
			))
		},
		bot.Question{
			Field:    "purchaseInvoice",
			Prompt:   "Step 3 of 3: documents.\nSend the purchase invoice as a photo or PDF (required for new devices).",
			File:     true,
			Optional: true,
		},
		bot.Question{
			Field:    "boxImage",
			Prompt:   "Send a photo of the device box (required for new devices).",
			File:     true,
			Optional: true,
		},
	)
}
