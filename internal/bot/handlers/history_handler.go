package handlers

import (
	"ImeiGuard/internal/bot"
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/core/workflow"
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

func init() {
	bot.RegisterCommand(NewHistoryHandler)
}

const historyLimit = 10

type historyHandler struct {
	log  zerolog.Logger
	deps *bot.Deps
}

func NewHistoryHandler(deps *bot.Deps) bot.CommandHandler {
	return &historyHandler{
		log:  deps.Logger.With().Str("component", "history_handler").Logger(),
		deps: deps,
	}
}

func (h *historyHandler) Command() string     { return "history" }
func (h *historyHandler) Description() string { return "Recent IMEI checks" }

func (h *historyHandler) Handle(ctx context.Context, update *ports.BotUpdate, chat *bot.Chat) error {
	if ok, err := allowed(ctx, chat, workflow.RouteSearchHistory); !ok {
		return err
	}

	searches, err := h.deps.Registry.SearchHistory(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load search history")
		return err
	}
	if len(searches) == 0 {
		return chat.Say(ctx, "No IMEI checks yet. Send /check to run one.")
	}

	var b strings.Builder
	b.WriteString("Recent IMEI checks:\n")
	for i, s := range searches {
		if i == historyLimit {
			fmt.Fprintf(&b, "... and %d more", len(searches)-historyLimit)
			break
		}
		fmt.Fprintf(&b, "%s  %s  %s", s.Date, s.IMEI, resultLabel(s.Result))
		if d := s.DeviceInfo; d != nil {
			fmt.Fprintf(&b, "  %s %s", d.Brand, d.Model)
		}
		b.WriteString("\n")
	}
	return chat.Say(ctx, strings.TrimRight(b.String(), "\n"))
}
