package bot

import (
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/shared/logger"
	"context"
	"errors"
	"sort"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// CancelCommand interrupts the active flow before the chat lock is taken.
const CancelCommand = "cancel"

// CommandHandler is a "plugin" bound to one slash command.
type CommandHandler interface {
	Command() string
	Description() string
	Handle(ctx context.Context, update *ports.BotUpdate, chat *Chat) error
}

// Router is the "Bot Facade." It holds all "plugins"
// and routes incoming updates to the correct handler or the chat's flow.
type Router struct {
	log             zerolog.Logger
	chats           *Chats
	botClient       ports.BotClientPort
	commandHandlers map[string]CommandHandler
}

func NewRouter(chats *Chats, botClient ports.BotClientPort, baseLogger *zerolog.Logger) *Router {
	return &Router{
		log:             baseLogger.With().Str("component", "router").Logger(),
		chats:           chats,
		botClient:       botClient,
		commandHandlers: make(map[string]CommandHandler),
	}
}

// RegisterCommandHandler adds a "plugin" to the router.
func (r *Router) RegisterCommandHandler(handler CommandHandler) {
	cmd := handler.Command()
	r.commandHandlers[cmd] = handler
	r.log.Info().Str("command", cmd).Msg("Registered new command handler")
}

// MenuCommands lists the registered commands in alphabetical order.
func (r *Router) MenuCommands() []ports.BotCommand {
	cmds := make([]ports.BotCommand, 0, len(r.commandHandlers))
	for _, h := range r.commandHandlers {
		cmds = append(cmds, ports.BotCommand{Command: h.Command(), Description: h.Description()})
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Command < cmds[j].Command })
	return cmds
}

// HandleUpdate is the main entry point for a new update from Telegram.
func (r *Router) HandleUpdate(ctx context.Context, update *tgbotapi.Update) {
	botUpdate, isSupported := r.parseUpdate(update)
	if !isSupported {
		r.log.Warn().Int("update_id", update.UpdateID).Msg("Received unsupported update type")
		return
	}
	r.Dispatch(ctx, botUpdate)
}

// Dispatch routes one update. Updates of the same chat are handled one at
// a time; /cancel first interrupts whatever the chat is waiting on.
func (r *Router) Dispatch(ctx context.Context, update *ports.BotUpdate) {
	ctxLogger := r.log.With().
		Int64("user_id", update.UserID).
		Int64("chat_id", update.ChatID).
		Logger()
	ctx = ctxLogger.WithContext(ctx)

	chat := r.chats.Get(ctx, update.ChatID)
	if update.Command == CancelCommand {
		chat.Interrupt()
	}

	chat.mu.Lock()
	defer chat.mu.Unlock()

	// 1. Route commands first
	if update.Command != "" {
		handler, ok := r.commandHandlers[update.Command]
		if !ok {
			ctxLogger.Info().Str("command", update.Command).Msg("Unknown command")
			r.reply(ctx, chat, "Unknown command. Send /start to see what I can do.")
			return
		}
		ctxLogger.Info().Str("handler", update.Command).Msg("Routing to command handler")
		if err := handler.Handle(ctx, update, chat); err != nil {
			ctxLogger.Error().Err(err).Str("handler", update.Command).Msg("Command handler failed")
			if !errors.Is(err, context.Canceled) {
				r.reply(ctx, chat, Describe(err))
			}
		}
		return
	}

	// 2. Everything else feeds the active flow
	flow := chat.Flow()
	if flow == nil {
		r.reply(ctx, chat, "Send /start to see what I can do.")
		return
	}

	done, err := flow.Handle(ctx, chat, update)
	if err != nil {
		ctxLogger.Error().Err(err).Msg("Flow failed")
		if errors.Is(err, context.Canceled) {
			chat.End()
			return
		}
		r.reply(ctx, chat, Describe(err))
	}
	if done {
		chat.End()
	}
}

func (r *Router) reply(ctx context.Context, chat *Chat, text string) {
	if err := chat.Say(ctx, text); err != nil {
		logger.FromContext(ctx, &r.log).Error().Err(err).Msg("Failed to send reply")
	}
}

// parseUpdate converts a tgbotapi.Update into our internal, simplified struct.
func (r *Router) parseUpdate(update *tgbotapi.Update) (*ports.BotUpdate, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return nil, false
	}

	out := &ports.BotUpdate{
		MessageID: msg.MessageID,
		ChatID:    msg.Chat.ID,
		Text:      msg.Text,
	}
	if msg.From != nil {
		out.UserID = msg.From.ID
	}
	if msg.IsCommand() {
		out.Command = msg.Command()
		out.Args = msg.CommandArguments()
	}

	switch {
	case msg.Document != nil:
		out.File = &ports.FileInfo{
			FileID:   msg.Document.FileID,
			FileName: msg.Document.FileName,
			MimeType: msg.Document.MimeType,
			FileSize: int64(msg.Document.FileSize),
		}
	case len(msg.Photo) > 0:
		bestPhoto := msg.Photo[len(msg.Photo)-1]
		out.File = &ports.FileInfo{
			FileID:   bestPhoto.FileID,
			FileSize: int64(bestPhoto.FileSize),
		}
	}
	if out.Text == "" && msg.Caption != "" {
		out.Text = msg.Caption
	}
	return out, true
}
