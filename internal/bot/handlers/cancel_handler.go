package handlers

import (
	"ImeiGuard/internal/bot"
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/core/workflow"
	"context"
	"errors"
)

func init() {
	bot.RegisterCommand(NewCancelHandler)
	bot.RegisterCommand(NewBackHandler)
}

type cancelHandler struct{}

func NewCancelHandler(*bot.Deps) bot.CommandHandler { return cancelHandler{} }

func (cancelHandler) Command() string     { return bot.CancelCommand }
func (cancelHandler) Description() string { return "Stop the current step" }

// Handle runs after the router interrupted the flow, which may already be gone.
func (cancelHandler) Handle(ctx context.Context, update *ports.BotUpdate, chat *bot.Chat) error {
	chat.End()
	return chat.Say(ctx, "Cancelled. Send /start for the menu.")
}

// stepper is a flow that can return to its previous stage.
type stepper interface {
	StepBack(ctx context.Context, c *bot.Chat) error
}

type backHandler struct{}

func NewBackHandler(*bot.Deps) bot.CommandHandler { return backHandler{} }

func (backHandler) Command() string     { return "back" }
func (backHandler) Description() string { return "Go back one step" }

func (backHandler) Handle(ctx context.Context, update *ports.BotUpdate, chat *bot.Chat) error {
	flow, ok := chat.Flow().(stepper)
	if !ok {
		return chat.Say(ctx, "Nothing to go back to.")
	}
	if err := flow.StepBack(ctx, chat); err != nil {
		if errors.Is(err, workflow.ErrWrongStep) {
			return chat.Say(ctx, "This is already the first step.")
		}
		return err
	}
	return nil
}
