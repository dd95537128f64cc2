package messages

import (
	"ImeiGuard/internal/core/ports"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder_ReplyButtonsGrid(t *testing.T) {
	msg := NewBuilder(42).
		WithText("Pick one").
		WithReplyButtons([]string{"Smartphone", "Tablet", "Laptop"}, 2).
		Build()

	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "", msg.ParseMode)
	assert.False(t, msg.RemoveKeyboard)
	assert.Equal(t, [][]ports.Button{
		{{Text: "Smartphone"}, {Text: "Tablet"}},
		{{Text: "Laptop"}},
	}, msg.ReplyMarkup.Buttons)
}

func TestBuilder_RemoveKeyboardClearsMarkup(t *testing.T) {
	msg := NewBuilder(1).WithReplyButtons([]string{"a"}, 1).WithRemoveKeyboard().Build()
	assert.True(t, msg.RemoveKeyboard)
	assert.Nil(t, msg.ReplyMarkup)
}

func TestBuilder_Markdown(t *testing.T) {
	msg := NewBuilder(1).WithMarkdown("*" + Escape("IMEI 1.2") + "*").Build()
	assert.Equal(t, "MarkdownV2", msg.ParseMode)
	assert.Equal(t, `*IMEI 1\.2*`, msg.Text)
}
