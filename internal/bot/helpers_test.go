package bot

import (
	"ImeiGuard/internal/adapters/memory"
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/core/workflow"
	"ImeiGuard/internal/shared/latency"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

// MockBotClient is a mock for the BotClientPort
type MockBotClient struct {
	mock.Mock
}

var _ ports.BotClientPort = (*MockBotClient)(nil)

func (m *MockBotClient) SendMessage(ctx context.Context, params ports.SendMessageParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBotClient) SetMenuCommands(ctx context.Context, commands []ports.BotCommand) error {
	args := m.Called(ctx, commands)
	return args.Error(0)
}

// MockCommandHandler
type MockCommandHandler struct {
	mock.Mock
}

func (m *MockCommandHandler) Command() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockCommandHandler) Description() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockCommandHandler) Handle(ctx context.Context, update *ports.BotUpdate, chat *Chat) error {
	args := m.Called(ctx, update, chat)
	return args.Error(0)
}

// recordingClient keeps every message sent.
type recordingClient struct {
	mu   sync.Mutex
	sent []ports.SendMessageParams
}

func (c *recordingClient) SendMessage(ctx context.Context, params ports.SendMessageParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, params)
	return nil
}

func (c *recordingClient) SetMenuCommands(ctx context.Context, commands []ports.BotCommand) error {
	return nil
}

func (c *recordingClient) texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.sent))
	for _, m := range c.sent {
		out = append(out, m.Text)
	}
	return out
}

func (c *recordingClient) last(t *testing.T) ports.SendMessageParams {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.sent, "no message was sent")
	return c.sent[len(c.sent)-1]
}

// --- Fixtures ---

func testOptions() workflow.Options {
	return workflow.Options{
		Latency:   latency.None(),
		OTP:       workflow.OTPOptions{Cooldown: time.Minute, Policy: workflow.OTPLenient},
		Ownership: workflow.DefaultOwnershipPolicy(),
		Attempts:  memory.NewAttemptStore(nil),
	}
}

func newTestChats(client ports.BotClientPort) *Chats {
	nopLogger := zerolog.Nop()
	return NewChats(memory.NewSessionStore(), client, testOptions(), &nopLogger)
}

func text(chatID int64, s string) *ports.BotUpdate {
	return &ports.BotUpdate{ChatID: chatID, UserID: chatID, Text: s}
}

func command(chatID int64, cmd, args string) *ports.BotUpdate {
	return &ports.BotUpdate{ChatID: chatID, UserID: chatID, Command: cmd, Args: args}
}
