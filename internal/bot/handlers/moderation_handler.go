package handlers

import (
	"ImeiGuard/internal/bot"
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/core/workflow/forms"
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

func init() {
	bot.RegisterCommand(newStatusHandler(domain.ActionApprove, "Approve a pending device"))
	bot.RegisterCommand(newStatusHandler(domain.ActionReject, "Reject a pending device"))
	bot.RegisterCommand(newStatusHandler(domain.ActionBlacklist, "Blacklist a lost or stolen device"))
	bot.RegisterCommand(NewDevicesHandler)
}

func isModerator(deps *bot.Deps, update *ports.BotUpdate) bool {
	return deps.AdminIDs[update.UserID]
}

const moderatorsOnly = "This command is for moderators only."

// statusHandler moves a device through the status table: /approve, /reject
// and /blacklist, each followed by the IMEI.
type statusHandler struct {
	log         zerolog.Logger
	deps        *bot.Deps
	action      domain.StatusAction
	description string
}

func newStatusHandler(action domain.StatusAction, description string) bot.CommandHandlerConstructor {
	return func(deps *bot.Deps) bot.CommandHandler {
		return &statusHandler{
			log:         deps.Logger.With().Str("component", "status_handler").Str("action", string(action)).Logger(),
			deps:        deps,
			action:      action,
			description: description,
		}
	}
}

func (h *statusHandler) Command() string     { return string(h.action) }
func (h *statusHandler) Description() string { return h.description }

func (h *statusHandler) Handle(ctx context.Context, update *ports.BotUpdate, chat *bot.Chat) error {
	if !isModerator(h.deps, update) {
		return chat.Say(ctx, moderatorsOnly)
	}

	imei := strings.TrimSpace(update.Args)
	if !forms.IsIMEI(imei) {
		return chat.Say(ctx, fmt.Sprintf("Usage: /%s <15-digit IMEI>", h.action))
	}

	log := h.log.With().Int64("admin_id", update.UserID).Str("imei", imei).Logger()

	var (
		device *domain.Device
		err    error
	)
	switch h.action {
	case domain.ActionApprove:
		device, err = h.deps.Registry.Approve(ctx, imei)
	case domain.ActionReject:
		device, err = h.deps.Registry.Reject(ctx, imei)
	case domain.ActionBlacklist:
		device, err = h.deps.Registry.Blacklist(ctx, imei)
	}
	if err != nil {
		log.Warn().Err(err).Msg("Status change refused")
		return err
	}

	log.Info().Str("status", string(device.Status)).Msg("Device status changed by moderator")
	return chat.Say(ctx, "Done: "+deviceLine(device))
}

type devicesHandler struct {
	log  zerolog.Logger
	deps *bot.Deps
}

func NewDevicesHandler(deps *bot.Deps) bot.CommandHandler {
	return &devicesHandler{
		log:  deps.Logger.With().Str("component", "devices_handler").Logger(),
		deps: deps,
	}
}

func (h *devicesHandler) Command() string     { return "devices" }
func (h *devicesHandler) Description() string { return "List registered devices" }

// Handle lists every device, or only those in the status given as argument.
func (h *devicesHandler) Handle(ctx context.Context, update *ports.BotUpdate, chat *bot.Chat) error {
	if !isModerator(h.deps, update) {
		return chat.Say(ctx, moderatorsOnly)
	}

	devices, err := h.deps.Registry.Devices(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list devices")
		return err
	}

	filter := domain.DeviceStatus(strings.ToLower(strings.TrimSpace(update.Args)))
	var b strings.Builder
	for _, d := range devices {
		if filter != "" && d.Status != filter {
			continue
		}
		b.WriteString(deviceLine(d))
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return chat.Say(ctx, "No devices.")
	}
	return chat.Say(ctx, strings.TrimRight(b.String(), "\n"))
}
