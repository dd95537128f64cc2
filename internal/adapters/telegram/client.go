package telegram

import (
	"ImeiGuard/internal/core/ports"
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// sender is the part of *tgbotapi.BotAPI the client needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// tgClient implements the BotClientPort.
type tgClient struct {
	api sender
	log zerolog.Logger
}

// NewClient creates a new Telegram client adapter.
func NewClient(api *tgbotapi.BotAPI, baseLogger *zerolog.Logger) ports.BotClientPort {
	return newClient(api, baseLogger)
}

func newClient(api sender, baseLogger *zerolog.Logger) *tgClient {
	log := baseLogger.With().Str("component", "tg_client").Logger()
	return &tgClient{api: api, log: log}
}

// SendMessage translates our params into a tgbotapi message.
func (c *tgClient) SendMessage(ctx context.Context, params ports.SendMessageParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Send(buildMessage(params)); err != nil {
		c.log.Error().Err(err).Int64("chat_id", params.ChatID).Msg("Failed to send message")
		return err
	}
	return nil
}

func buildMessage(params ports.SendMessageParams) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(params.ChatID, params.Text)
	msg.ParseMode = params.ParseMode

	// Handle keyboard removal first
	if params.RemoveKeyboard {
		msg.ReplyMarkup = tgbotapi.ReplyKeyboardRemove{RemoveKeyboard: true}
	} else if params.ReplyMarkup != nil {
		msg.ReplyMarkup = buildReplyKeyboard(params.ReplyMarkup.Buttons)
	}
	return msg
}

// buildReplyKeyboard turns the choices of a question into reply buttons.
func buildReplyKeyboard(buttons [][]ports.Button) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for _, buttonRow := range buttons {
		var row []tgbotapi.KeyboardButton
		for _, btn := range buttonRow {
			row = append(row, tgbotapi.NewKeyboardButton(btn.Text))
		}
		rows = append(rows, row)
	}

	markup := tgbotapi.NewReplyKeyboard(rows...)
	markup.ResizeKeyboard = true
	markup.OneTimeKeyboard = true // Keyboard hides after one use
	return markup
}

// SetMenuCommands publishes the bot's command menu.
func (c *tgClient) SetMenuCommands(ctx context.Context, commands []ports.BotCommand) error {
	menu := make([]tgbotapi.BotCommand, 0, len(commands))
	for _, cmd := range commands {
		menu = append(menu, tgbotapi.BotCommand{Command: "/" + cmd.Command, Description: cmd.Description})
	}

	config := tgbotapi.NewSetMyCommands(menu...)
	if _, err := c.api.Request(config); err != nil {
		c.log.Error().Err(err).Msg("Failed to set menu commands")
		return err
	}
	c.log.Info().Int("count", len(menu)).Msg("Menu commands set")
	return nil
}
