package bot

import (
	"ImeiGuard/internal/bot/messages"
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/core/services/session"
	"ImeiGuard/internal/core/workflow"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Flow is a multi-message conversation bound to one chat.
type Flow interface {
	// Start sends the first prompt.
	Start(ctx context.Context, c *Chat) error
	// Handle consumes one message. done ends the flow, with or without err.
	Handle(ctx context.Context, c *Chat, in *ports.BotUpdate) (done bool, err error)
	// Close cancels any pending operation. It must not block.
	Close()
}

// Chat is the per-chat state: the signed-in session and the active flow.
type Chat struct {
	ID      int64
	Session *session.Holder

	client ports.BotClientPort
	opts   workflow.Options
	log    zerolog.Logger

	// mu serializes updates of this chat.
	mu sync.Mutex

	flowMu sync.Mutex
	flow   Flow
}

// Options returns the workflow options with OTP delivery bound to this chat.
func (c *Chat) Options() workflow.Options {
	opts := c.opts
	opts.OTP.Sender = &chatOTPSender{chat: c, next: c.opts.OTP.Sender}
	return opts
}

// Scope is the key under which ownership-check attempts are counted.
func (c *Chat) Scope() string {
	return fmt.Sprintf("chat:%d", c.ID)
}

func (c *Chat) Flow() Flow {
	c.flowMu.Lock()
	defer c.flowMu.Unlock()
	return c.flow
}

// Begin replaces the active flow and sends its first prompt.
func (c *Chat) Begin(ctx context.Context, f Flow) error {
	c.End()
	c.flowMu.Lock()
	c.flow = f
	c.flowMu.Unlock()

	if err := f.Start(ctx, c); err != nil {
		c.End()
		return err
	}
	return nil
}

// End closes and drops the active flow.
func (c *Chat) End() {
	c.flowMu.Lock()
	f := c.flow
	c.flow = nil
	c.flowMu.Unlock()
	if f != nil {
		f.Close()
	}
}

// Interrupt cancels whatever the active flow is waiting on without
// taking the chat lock.
func (c *Chat) Interrupt() {
	if f := c.Flow(); f != nil {
		f.Close()
	}
}

func (c *Chat) Send(ctx context.Context, msg ports.SendMessageParams) error {
	return c.client.SendMessage(ctx, msg)
}

// Say sends plain text and hides any reply keyboard.
func (c *Chat) Say(ctx context.Context, text string) error {
	return c.Send(ctx, messages.NewBuilder(c.ID).WithText(text).WithRemoveKeyboard().Build())
}

// Ask sends a prompt, offering choices as reply buttons when given.
func (c *Chat) Ask(ctx context.Context, text string, choices ...string) error {
	if len(choices) == 0 {
		return c.Say(ctx, text)
	}
	return c.Send(ctx, messages.NewBuilder(c.ID).WithText(text).WithReplyButtons(choices, 3).Build())
}

// chatOTPSender delivers mock passcodes as a chat message after handing
// them to the next sender.
type chatOTPSender struct {
	chat *Chat
	next ports.OTPSender
}

func (s *chatOTPSender) Send(ctx context.Context, phone, code string) error {
	if s.next != nil {
		if err := s.next.Send(ctx, phone, code); err != nil {
			return err
		}
	}
	return s.chat.Say(ctx, fmt.Sprintf("[demo SMS to %s] Your ImeiGuard verification code is %s", phone, code))
}

// Chats owns every Chat and the IMEI watch list used for notifications.
type Chats struct {
	store  ports.SessionStore
	client ports.BotClientPort
	opts   workflow.Options
	log    zerolog.Logger

	mu      sync.Mutex
	chats   map[int64]*Chat
	watches map[string]map[int64]struct{}
}

func NewChats(store ports.SessionStore, client ports.BotClientPort, opts workflow.Options, baseLogger *zerolog.Logger) *Chats {
	return &Chats{
		store:   store,
		client:  client,
		opts:    opts,
		log:     baseLogger.With().Str("component", "chats").Logger(),
		chats:   make(map[int64]*Chat),
		watches: make(map[string]map[int64]struct{}),
	}
}

// Get returns the chat, creating it and restoring its session on first use.
func (cs *Chats) Get(ctx context.Context, id int64) *Chat {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if c, ok := cs.chats[id]; ok {
		return c
	}

	log := cs.log.With().Int64("chat_id", id).Logger()
	holder := session.NewHolder(cs.store, fmt.Sprintf("%s:%d", session.DefaultKey, id), cs.opts.Latency, &log)
	if err := holder.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to restore session, starting signed out")
	}

	c := &Chat{
		ID:      id,
		Session: holder,
		client:  cs.client,
		opts:    cs.opts,
		log:     log,
	}
	cs.chats[id] = c
	return c
}

// Watch subscribes a chat to status notifications for imei.
func (cs *Chats) Watch(imei string, chatID int64) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	set, ok := cs.watches[imei]
	if !ok {
		set = make(map[int64]struct{})
		cs.watches[imei] = set
	}
	set[chatID] = struct{}{}
}

// Watchers returns the chats subscribed to imei, in ascending order.
func (cs *Chats) Watchers(imei string) []int64 {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	ids := make([]int64, 0, len(cs.watches[imei]))
	for id := range cs.watches[imei] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CloseAll cancels every active flow.
func (cs *Chats) CloseAll() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for _, c := range cs.chats {
		c.End()
	}
}
