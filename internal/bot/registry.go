package bot

import (
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/core/workflow"
	"context"

	"github.com/rs/zerolog"
)

// RegistryService is the registry surface the bot commands use.
type RegistryService interface {
	workflow.Registry
	SearchHistory(ctx context.Context) ([]*domain.ImeiSearch, error)
	Devices(ctx context.Context) ([]*domain.Device, error)
	Approve(ctx context.Context, imei string) (*domain.Device, error)
	Reject(ctx context.Context, imei string) (*domain.Device, error)
	Blacklist(ctx context.Context, imei string) (*domain.Device, error)
}

// Deps is what every handler constructor receives from main.
type Deps struct {
	Registry RegistryService
	Chats    *Chats
	Client   ports.BotClientPort
	// AdminIDs may run the moderation commands.
	AdminIDs map[int64]bool
	Logger   *zerolog.Logger
}

// CommandHandlerConstructor builds a handler from the shared dependencies.
type CommandHandlerConstructor func(deps *Deps) CommandHandler

var commandRegistry []CommandHandlerConstructor

// RegisterCommand is called by handlers in their init() function
func RegisterCommand(constructor CommandHandlerConstructor) {
	commandRegistry = append(commandRegistry, constructor)
}

// RegisterAllHandlers builds all registered handlers and passes them to the router.
func RegisterAllHandlers(router *Router, deps *Deps) {
	log := deps.Logger.With().Str("component", "handler_registry").Logger()
	for _, constructor := range commandRegistry {
		router.RegisterCommandHandler(constructor(deps))
	}
	log.Info().Int("count", len(commandRegistry)).Msg("Registered command handlers")
}
