package telegram

import (
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/shared/config"
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Setup builds the update handler on top of the connected client and
// returns it with the command menu to publish.
type Setup func(client ports.BotClientPort) (UpdateHandler, []ports.BotCommand, error)

// Orchestrator connects the bot and runs its server.
type Orchestrator struct {
	cfg        *config.Config
	baseLogger *zerolog.Logger
}

// NewOrchestrator creates a new bot orchestrator.
func NewOrchestrator(cfg *config.Config, baseLogger *zerolog.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, baseLogger: baseLogger}
}

// Start connects to Telegram and serves updates until ctx is done.
func (o *Orchestrator) Start(ctx context.Context, setup Setup) error {
	log := o.baseLogger.With().Str("bot", "imeiguard").Logger()
	if o.cfg.Bot.Token == "" {
		return errors.New("BOT_TOKEN is required to serve the bot")
	}

	// 1. Create API
	api, err := tgbotapi.NewBotAPI(o.cfg.Bot.Token)
	if err != nil {
		return err
	}
	api.Debug = o.cfg.IsDev()
	log.Info().Str("username", api.Self.UserName).Msg("Bot API connected")

	// 2. Create Client (Adapter)
	client := NewClient(api, &log)

	// 3. Build the router and its handlers
	handler, menu, err := setup(client)
	if err != nil {
		return err
	}

	// 4. Set Menu
	if err := client.SetMenuCommands(ctx, menu); err != nil {
		log.Warn().Err(err).Msg("Continuing without a command menu")
	}

	// 5. Create and Start Server
	server := NewBotServer(api, handler, &o.cfg.Bot, &log)
	return server.Start(ctx)
}
