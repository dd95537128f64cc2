// Package handlers holds the bot's command "plugins". Each file registers
// its handlers from init(); main imports the package for its side effects.
package handlers

import (
	"ImeiGuard/internal/bot"
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/workflow"
	"ImeiGuard/internal/core/workflow/forms"
	"context"
	"errors"
	"fmt"
	"strings"
)

const resendWord = "resend"

var guard workflow.RouteGuard

// allowed reports whether the chat may open route, telling it to log in when not.
func allowed(ctx context.Context, chat *bot.Chat, route string) (bool, error) {
	if guard.Resolve(route, chat.Session.IsAuthenticated()) == route {
		return true, nil
	}
	return false, chat.Say(ctx, "Please /login first.")
}

type sendFunc func(ctx context.Context, phone string) error

// phoneQuestion asks for a phone number and issues a code to it.
func phoneQuestion(field, prompt string, send sendFunc) bot.Question {
	return bot.Question{
		Field:  field,
		Prompt: prompt,
		OnAnswer: func(ctx context.Context, a bot.Answers) error {
			return send(ctx, a.Get(field))
		},
	}
}

// otpQuestion asks for the passcode sent to the number in phoneField.
// Answering "resend" issues a new code once the cooldown ran out.
func otpQuestion(phoneField string, send sendFunc, countdown func() int) bot.Question {
	return resendableOTP(func(ctx context.Context, a bot.Answers) error {
		return send(ctx, a.Get(phoneField))
	}, countdown)
}

// resendableOTP is otpQuestion with the resend target left to the caller.
func resendableOTP(resend func(ctx context.Context, a bot.Answers) error, countdown func() int) bot.Question {
	return bot.Question{
		Field:  "otp",
		Prompt: fmt.Sprintf("Enter the 6-digit verification code. Send %q for a new one.", resendWord),
		OnAnswer: func(ctx context.Context, a bot.Answers) error {
			if !strings.EqualFold(a.Get("otp"), resendWord) {
				return nil
			}
			if err := resend(ctx, a); err != nil {
				if errors.Is(err, workflow.ErrCooldownActive) {
					return forms.Fail("otp", fmt.Sprintf("You can request a new code in %d seconds.", countdown()))
				}
				return err
			}
			return forms.Fail("otp", "A new code is on its way.")
		},
	}
}

func required(field, prompt string) bot.Question {
	return bot.Question{Field: field, Prompt: prompt}
}

func yes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes", "y", "i accept", "accept":
		return true
	}
	return false
}

// userTypeOf maps the account-type buttons onto a domain.UserType.
func userTypeOf(answer string) domain.UserType {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "regular", "regular user":
		return domain.UserTypeRegular
	case "agent", "service provider":
		return domain.UserTypeAgent
	}
	return domain.UserType(answer)
}

var userTypeChoices = []string{"Regular user", "Service provider"}

func deviceLine(d *domain.Device) string {
	return fmt.Sprintf("%s %s (%s), IMEI %s, status %s", d.Brand, d.Model, d.Type, d.IMEI, d.Status)
}
