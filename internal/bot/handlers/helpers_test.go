package handlers

import (
	"ImeiGuard/internal/adapters/eventbus"
	"ImeiGuard/internal/adapters/memory"
	"ImeiGuard/internal/adapters/security"
	"ImeiGuard/internal/bot"
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/core/services/registry"
	"ImeiGuard/internal/core/workflow"
	"ImeiGuard/internal/shared/latency"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const adminChat int64 = 99

// recordingClient keeps every message sent, per chat.
type recordingClient struct {
	mu   sync.Mutex
	sent map[int64][]ports.SendMessageParams
}

func newRecordingClient() *recordingClient {
	return &recordingClient{sent: make(map[int64][]ports.SendMessageParams)}
}

func (c *recordingClient) SendMessage(ctx context.Context, params ports.SendMessageParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent[params.ChatID] = append(c.sent[params.ChatID], params)
	return nil
}

func (c *recordingClient) SetMenuCommands(ctx context.Context, commands []ports.BotCommand) error {
	return nil
}

func (c *recordingClient) texts(chatID int64) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.sent[chatID]))
	for _, m := range c.sent[chatID] {
		out = append(out, m.Text)
	}
	return out
}

func (c *recordingClient) last(t *testing.T, chatID int64) string {
	t.Helper()
	texts := c.texts(chatID)
	require.NotEmpty(t, texts, "nothing was sent to chat %d", chatID)
	return texts[len(texts)-1]
}

// anyContains reports whether one of the texts sent to chatID contains sub.
func (c *recordingClient) anyContains(chatID int64, sub string) bool {
	for _, text := range c.texts(chatID) {
		if strings.Contains(text, sub) {
			return true
		}
	}
	return false
}

type harness struct {
	ctx    context.Context
	client *recordingClient
	chats  *bot.Chats
	router *bot.Router
	reg    *registry.Registry
	bus    *eventbus.InMemoryEventBus
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	nopLogger := zerolog.Nop()
	hasher := security.NewSHA256Hasher()
	bus := eventbus.NewInMemoryEventBus(&nopLogger)

	reg := registry.New(
		memory.NewDeviceRepository(registry.SeedDevices(hasher), &nopLogger),
		memory.NewSearchRepository(),
		hasher,
		bus,
		registry.Options{},
		&nopLogger,
	)

	client := newRecordingClient()
	chats := bot.NewChats(memory.NewSessionStore(), client, workflow.Options{
		Latency:   latency.None(),
		OTP:       workflow.OTPOptions{Cooldown: time.Minute, Policy: workflow.OTPLenient},
		Ownership: workflow.DefaultOwnershipPolicy(),
		Attempts:  memory.NewAttemptStore(nil),
	}, &nopLogger)

	deps := &bot.Deps{
		Registry: reg,
		Chats:    chats,
		Client:   client,
		AdminIDs: map[int64]bool{adminChat: true},
		Logger:   &nopLogger,
	}
	router := bot.NewRouter(chats, client, &nopLogger)
	bot.RegisterAllHandlers(router, deps)
	NewNotificationHandler(deps).Subscribe(bus)

	t.Cleanup(chats.CloseAll)
	return &harness{ctx: context.Background(), client: client, chats: chats, router: router, reg: reg, bus: bus}
}

func (h *harness) say(chatID int64, text string) {
	h.router.Dispatch(h.ctx, &ports.BotUpdate{ChatID: chatID, UserID: chatID, Text: text})
}

func (h *harness) command(chatID int64, cmd, args string) {
	h.router.Dispatch(h.ctx, &ports.BotUpdate{ChatID: chatID, UserID: chatID, Command: cmd, Args: args})
}

func (h *harness) sendFile(chatID int64, file *ports.FileInfo) {
	h.router.Dispatch(h.ctx, &ports.BotUpdate{ChatID: chatID, UserID: chatID, File: file})
}

func (h *harness) flow(chatID int64) bot.Flow {
	return h.chats.Get(h.ctx, chatID).Flow()
}

func (h *harness) login(chatID int64) {
	h.command(chatID, "login", "")
	h.say(chatID, "john@example.com")
	h.say(chatID, "secret")
}

// checkUntilResult runs /check through the passcode step.
func (h *harness) checkUntilResult(chatID int64, imei string) {
	h.command(chatID, "check", imei)
	h.say(chatID, "0555123456")
	h.say(chatID, "123456")
}
