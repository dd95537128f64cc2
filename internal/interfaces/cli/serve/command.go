package serve

import (
	"ImeiGuard/internal/adapters/telegram"
	"ImeiGuard/internal/bot"
	"ImeiGuard/internal/bot/handlers"
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/interfaces/cli/app"
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var autoMigrate bool

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot",
		Long:  `Run the ImeiGuard Telegram bot in polling or webhook mode until interrupted.`,
		RunE:  run,
	}

	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Apply pending Postgres migrations on startup")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, log, err := app.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, &log, app.Options{AutoMigrate: autoMigrate})
	if err != nil {
		return err
	}
	defer a.Close()

	var chats *bot.Chats
	orchestrator := telegram.NewOrchestrator(cfg, &log)
	err = orchestrator.Start(ctx, func(client ports.BotClientPort) (telegram.UpdateHandler, []ports.BotCommand, error) {
		chats = bot.NewChats(a.Sessions, client, a.WorkflowOptions(), &log)
		router := bot.NewRouter(chats, client, &log)

		deps := &bot.Deps{
			Registry: a.Registry,
			Chats:    chats,
			Client:   client,
			AdminIDs: a.AdminSet(),
			Logger:   &log,
		}
		bot.RegisterAllHandlers(router, deps)
		handlers.NewNotificationHandler(deps).Subscribe(a.Bus)

		return router, router.MenuCommands(), nil
	})

	if chats != nil {
		chats.CloseAll()
	}
	if err != nil {
		log.Error().Err(err).Msg("Bot stopped with an error")
		return err
	}
	log.Info().Msg("Bot stopped")
	return nil
}
