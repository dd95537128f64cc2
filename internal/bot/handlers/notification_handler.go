package handlers

import (
	"ImeiGuard/internal/bot"
	"ImeiGuard/internal/bot/messages"
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/core/services/registry"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// NotificationHandler listens for registry events (from the EventBus)
// and tells the chats watching a device, and the moderators, about them.
// It is NOT a registered command handler; it's a system component.
type NotificationHandler struct {
	log      zerolog.Logger
	client   ports.BotClientPort
	chats    *bot.Chats
	adminIDs []int64
}

func NewNotificationHandler(deps *bot.Deps) *NotificationHandler {
	admins := make([]int64, 0, len(deps.AdminIDs))
	for id, ok := range deps.AdminIDs {
		if ok {
			admins = append(admins, id)
		}
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i] < admins[j] })

	return &NotificationHandler{
		log:      deps.Logger.With().Str("component", "notification_handler").Logger(),
		client:   deps.Client,
		chats:    deps.Chats,
		adminIDs: admins,
	}
}

// Subscribe registers the handler on every topic it serves.
func (h *NotificationHandler) Subscribe(bus ports.EventBus) {
	bus.Subscribe(ports.TopicDeviceRegistered, h.HandleDeviceRegistered)
	bus.Subscribe(ports.TopicDeviceStatusChanged, h.HandleStatusChanged)
	bus.Subscribe(ports.TopicOwnershipTransferred, h.HandleOwnershipTransferred)
}

// HandleDeviceRegistered asks the moderators to review a new device.
func (h *NotificationHandler) HandleDeviceRegistered(ctx context.Context, event ports.Event) error {
	device, ok := event.Data.(*domain.Device)
	if !ok {
		h.log.Error().Str("topic", event.Topic).Msg("Received invalid event data")
		return nil // Don't retry
	}

	text := fmt.Sprintf("*New device pending review*\n%s\n/approve %s\n/reject %s",
		messages.Escape(deviceLine(device)), device.IMEI, device.IMEI)
	return h.sendAll(ctx, h.adminIDs, text, device.IMEI)
}

// HandleStatusChanged tells the watching chats about a moderation decision.
func (h *NotificationHandler) HandleStatusChanged(ctx context.Context, event ports.Event) error {
	change, ok := event.Data.(registry.StatusChange)
	if !ok {
		h.log.Error().Str("topic", event.Topic).Msg("Received invalid event data")
		return nil
	}

	text := fmt.Sprintf("*Device status changed*\n%s %s \\(IMEI %s\\) is now *%s*\\.",
		messages.Escape(change.Device.Brand),
		messages.Escape(change.Device.Model),
		change.Device.IMEI,
		messages.Escape(string(change.To)),
	)
	return h.sendAll(ctx, h.chats.Watchers(change.Device.IMEI), text, change.Device.IMEI)
}

// HandleOwnershipTransferred tells the watching chats about a new owner.
func (h *NotificationHandler) HandleOwnershipTransferred(ctx context.Context, event ports.Event) error {
	transfer, ok := event.Data.(registry.OwnershipTransfer)
	if !ok {
		h.log.Error().Str("topic", event.Topic).Msg("Received invalid event data")
		return nil
	}

	text := fmt.Sprintf("*Ownership transferred*\n%s %s \\(IMEI %s\\) now belongs to %s\\.",
		messages.Escape(transfer.Device.Brand),
		messages.Escape(transfer.Device.Model),
		transfer.Device.IMEI,
		messages.Escape(transfer.Device.OwnerName),
	)
	return h.sendAll(ctx, h.chats.Watchers(transfer.Device.IMEI), text, transfer.Device.IMEI)
}

func (h *NotificationHandler) sendAll(ctx context.Context, chatIDs []int64, text, imei string) error {
	var errs []error
	for _, id := range chatIDs {
		msg := messages.NewBuilder(id).WithMarkdown(text).Build()
		if err := h.client.SendMessage(ctx, msg); err != nil {
			h.log.Error().Err(err).Int64("chat_id", id).Str("imei", imei).Msg("Failed to send notification")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
