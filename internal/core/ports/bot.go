package ports

import (
	"context"
)

// --- Bot Message Structures ---

// Button represents a single reply-keyboard button. Pressing it sends Text.
type Button struct {
	Text string
}

// ReplyMarkup is a reply keyboard offered with a message.
type ReplyMarkup struct {
	Buttons [][]Button
}

// SendMessageParams holds all possible options for sending a message.
type SendMessageParams struct {
	ChatID         int64
	Text           string
	ParseMode      string // e.g., "MarkdownV2" or "HTML"
	ReplyMarkup    *ReplyMarkup
	RemoveKeyboard bool
}

// BotCommand is one entry of the bot's command menu.
type BotCommand struct {
	Command     string
	Description string
}

// --- Bot Client Port (Outbound) ---

// BotClientPort defines the interface for *sending* messages.
type BotClientPort interface {
	SendMessage(ctx context.Context, params SendMessageParams) error
	SetMenuCommands(ctx context.Context, commands []BotCommand) error
}

// --- Bot Update (Inbound) ---

// FileInfo describes a photo or document attached to a message.
type FileInfo struct {
	FileID   string
	FileName string
	MimeType string
	FileSize int64
}

// BotUpdate represents a simplified, generic update.
type BotUpdate struct {
	MessageID int
	ChatID    int64
	UserID    int64
	Text      string
	Command   string // without the leading slash
	Args      string // text after the command
	File      *FileInfo
}
