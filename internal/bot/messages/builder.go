package messages

import (
	"ImeiGuard/internal/core/ports"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Builder helps construct complex SendMessageParams.
type Builder struct {
	params ports.SendMessageParams
}

// NewBuilder creates a new plain-text message builder.
func NewBuilder(chatID int64) *Builder {
	return &Builder{
		params: ports.SendMessageParams{ChatID: chatID},
	}
}

// WithText sets the message text.
func (b *Builder) WithText(text string) *Builder {
	b.params.Text = text
	return b
}

// WithMarkdown sets MarkdownV2 text. Use Escape for any user-provided part.
func (b *Builder) WithMarkdown(text string) *Builder {
	b.params.Text = text
	b.params.ParseMode = tgbotapi.ModeMarkdownV2
	return b
}

// WithRemoveKeyboard adds a flag to remove the reply keyboard.
func (b *Builder) WithRemoveKeyboard() *Builder {
	b.params.RemoveKeyboard = true
	b.params.ReplyMarkup = nil
	return b
}

// WithReplyButtons creates a grid of reply buttons.
// It takes a flat list of button texts and arranges them into rows.
func (b *Builder) WithReplyButtons(buttonTexts []string, columns int) *Builder {
	if columns < 1 {
		columns = 1
	}
	var rows [][]ports.Button
	var row []ports.Button

	for i, text := range buttonTexts {
		row = append(row, ports.Button{Text: text})

		// If we've reached the column limit, or it's the last button
		if (i+1)%columns == 0 || i == len(buttonTexts)-1 {
			rows = append(rows, row)
			row = []ports.Button{}
		}
	}

	b.params.RemoveKeyboard = false
	b.params.ReplyMarkup = &ports.ReplyMarkup{Buttons: rows}
	return b
}

// Build returns the final SendMessageParams struct.
func (b *Builder) Build() ports.SendMessageParams {
	return b.params
}

// Escape quotes text for MarkdownV2.
func Escape(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, text)
}
