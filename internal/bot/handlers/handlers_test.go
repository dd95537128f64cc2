package handlers

import (
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/ports"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_ListsCommandsForAnonymousVisitor(t *testing.T) {
	h := newHarness(t)

	h.command(1, "start", "")

	last := h.client.last(t, 1)
	assert.Contains(t, last, "Welcome to ImeiGuard")
	assert.Contains(t, last, "/login - Sign in")
	assert.NotContains(t, last, "/logout")
}

func TestLoginAndLogout(t *testing.T) {
	h := newHarness(t)

	h.command(1, "login", "")
	assert.Equal(t, "Enter your email address.", h.client.last(t, 1))
	h.say(1, "john@example.com")
	h.say(1, "secret")

	assert.Contains(t, h.client.last(t, 1), "Welcome, John Doe! You have 100 credits.")
	assert.Nil(t, h.flow(1))

	h.command(1, "login", "")
	assert.Contains(t, h.client.last(t, 1), "already signed in")

	h.command(1, "start", "")
	assert.Contains(t, h.client.last(t, 1), "Welcome back, John Doe!")

	h.command(1, "logout", "")
	assert.Equal(t, "You are signed out. Back to /.", h.client.last(t, 1))
	assert.False(t, h.chats.Get(h.ctx, 1).Session.IsAuthenticated())
}

func TestCheckFlow_CleanDeviceOwnerConfirmed(t *testing.T) {
	h := newHarness(t)

	h.command(1, "check", "123456789012345")
	assert.Contains(t, h.client.last(t, 1), "Enter your phone number")

	h.say(1, "0555123456")
	assert.True(t, h.client.anyContains(1, "[demo SMS to 0555123456]"))
	assert.Contains(t, h.client.last(t, 1), "6-digit verification code")

	h.say(1, "123456")
	assert.True(t, h.client.anyContains(1, "IMEI 123456789012345: clean"))
	assert.True(t, h.client.anyContains(1, "Device: Apple iPhone 13 (Smartphone)"))
	assert.Contains(t, h.client.last(t, 1), "Send the owner's National ID")

	h.say(1, "100200300")
	assert.Equal(t, "Ownership confirmed. You are the registered owner of this device.", h.client.last(t, 1))
	assert.Nil(t, h.flow(1))

	history, err := h.reg.SearchHistory(h.ctx)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, "123456789012345", history[0].IMEI)
	assert.Equal(t, domain.ResultClean, history[0].Result)
}

func TestCheckFlow_SkipOwnership(t *testing.T) {
	h := newHarness(t)

	h.checkUntilResult(1, "123456789012345")
	h.say(1, "skip")

	assert.Equal(t, "Done. Send /check to look up another device.", h.client.last(t, 1))
	assert.Nil(t, h.flow(1))
}

func TestCheckFlow_BlacklistedDeviceEndsWithoutOwnershipQuestion(t *testing.T) {
	h := newHarness(t)

	h.checkUntilResult(1, "987654321098765")

	last := h.client.last(t, 1)
	assert.Contains(t, last, "IMEI 987654321098765: BLACKLISTED")
	assert.Contains(t, last, "reported as lost or stolen")
	assert.False(t, h.client.anyContains(1, "Done. Send /check"))
	assert.Nil(t, h.flow(1))
}

func TestCheckFlow_UnknownDevicePointsToAgent(t *testing.T) {
	h := newHarness(t)

	h.checkUntilResult(1, "111111111111111")

	last := h.client.last(t, 1)
	assert.Contains(t, last, "not registered")
	assert.Contains(t, last, "Find an authorized agent")
	assert.False(t, h.client.anyContains(1, "Done. Send /check"))
	assert.Nil(t, h.flow(1))
}

func TestCheckFlow_InvalidImeiIsAskedAgain(t *testing.T) {
	h := newHarness(t)

	h.command(1, "check", "12345")

	texts := h.client.texts(1)
	require.GreaterOrEqual(t, len(texts), 2)
	assert.Equal(t, "Please enter a valid 15-digit IMEI number", texts[len(texts)-2])
	assert.Contains(t, texts[len(texts)-1], "Enter the 15-digit IMEI")
	assert.NotNil(t, h.flow(1))
}

func TestCheckFlow_WrongOwnerLocksOut(t *testing.T) {
	h := newHarness(t)

	h.checkUntilResult(1, "123456789012345")
	h.say(1, "000")
	assert.True(t, h.client.anyContains(1, "does not match the registered owner"))
	assert.NotNil(t, h.flow(1))

	h.say(1, "000")
	h.say(1, "000")

	assert.Contains(t, h.client.last(t, 1), "Too many failed attempts. Please try again later. Locked until")
	assert.Nil(t, h.flow(1))

	// The lockout also refuses the next lookup from this chat.
	h.checkUntilResult(1, "123456789012345")
	assert.Contains(t, h.client.last(t, 1), "Too many failed attempts")

	// Another chat is not affected.
	h.checkUntilResult(2, "123456789012345")
	assert.Contains(t, h.client.last(t, 2), "Send the owner's National ID")
}

func TestCheckFlow_ResendHonoursCooldown(t *testing.T) {
	h := newHarness(t)

	h.command(1, "check", "123456789012345")
	h.say(1, "0555123456")
	h.say(1, "resend")

	texts := h.client.texts(1)
	require.GreaterOrEqual(t, len(texts), 2)
	assert.Regexp(t, `^You can request a new code in \d+ seconds\.$`, texts[len(texts)-2])
	assert.Contains(t, texts[len(texts)-1], "6-digit verification code")
}

func TestBackAndCancel(t *testing.T) {
	h := newHarness(t)

	h.command(1, "back", "")
	assert.Equal(t, "Nothing to go back to.", h.client.last(t, 1))

	h.command(1, "check", "")
	h.command(1, "back", "")
	assert.Equal(t, "This is already the first step.", h.client.last(t, 1))

	h.say(1, "123456789012345")
	assert.Contains(t, h.client.last(t, 1), "Enter your phone number")

	h.command(1, "back", "")
	assert.Contains(t, h.client.last(t, 1), "Enter the 15-digit IMEI")

	h.command(1, "cancel", "")
	assert.Equal(t, "Cancelled. Send /start for the menu.", h.client.last(t, 1))
	assert.Nil(t, h.flow(1))

	h.say(1, "hello")
	assert.Equal(t, "Send /start to see what I can do.", h.client.last(t, 1))
}

func TestProtectedCommandsRequireLogin(t *testing.T) {
	h := newHarness(t)

	for _, cmd := range []string{"register", "transfer", "balance", "buy", "history"} {
		h.command(1, cmd, "")
		assert.Equal(t, "Please /login first.", h.client.last(t, 1), cmd)
		assert.Nil(t, h.flow(1), cmd)
	}
}

func TestBalanceAndBuy(t *testing.T) {
	h := newHarness(t)
	h.login(1)

	h.command(1, "balance", "")
	last := h.client.last(t, 1)
	assert.Contains(t, last, "Balance: 100 credits (worth 1000 DZD)")
	assert.Contains(t, last, "/buy 2500 <method> - 125 credits")

	h.command(1, "buy", "2500 cib")
	assert.Equal(t, "Payment accepted. New balance: 225 credits.", h.client.last(t, 1))

	h.command(1, "buy", "1500")
	assert.Equal(t, "Payment accepted. New balance: 375 credits.", h.client.last(t, 1))

	h.command(1, "buy", "500")
	assert.Equal(t, "The minimum purchase is 1000 DZD.", h.client.last(t, 1))

	h.command(1, "buy", "1000 cash")
	assert.Contains(t, h.client.last(t, 1), "Unknown payment method")

	h.command(1, "buy", "lots")
	assert.Contains(t, h.client.last(t, 1), "whole number")

	assert.Equal(t, 375, h.chats.Get(h.ctx, 1).Session.Current().CreditBalance)
}

func TestHistory(t *testing.T) {
	h := newHarness(t)
	h.login(1)

	h.command(1, "history", "")
	assert.Contains(t, h.client.last(t, 1), "No")

	h.checkUntilResult(1, "987654321098765")
	h.command(1, "history", "")
	assert.Contains(t, h.client.last(t, 1), "987654321098765")
}

func TestRegisterFlow(t *testing.T) {
	h := newHarness(t)
	h.login(1)

	h.command(1, "register", "")
	assert.Contains(t, h.client.last(t, 1), "Step 1 of 3")
	h.say(1, "Amina Kaci")
	h.say(1, "0661234567")
	h.say(1, "654321")
	h.say(1, "998877")

	assert.Contains(t, h.client.last(t, 1), "Step 2 of 3")
	h.say(1, "Smartphone")
	h.say(1, "Samsung")
	h.say(1, "Galaxy S23")
	h.say(1, "111222333444555")
	h.say(1, "Used")

	assert.Contains(t, h.client.last(t, 1), "Step 3 of 3")
	h.say(1, "skip")
	h.sendFile(1, &ports.FileInfo{FileID: "box", FileName: "box.png", MimeType: "image/png", FileSize: 2048})

	assert.Contains(t, h.client.last(t, 1), "Device submitted for review.")
	assert.Nil(t, h.flow(1))

	device, err := h.reg.GetDeviceByImei(h.ctx, "111222333444555")
	require.NoError(t, err)
	require.NotNil(t, device)
	assert.Equal(t, domain.StatusPending, device.Status)
	assert.Equal(t, "Samsung", device.Brand)
	assert.Equal(t, "Galaxy S23", device.Model)
	assert.Equal(t, "Amina Kaci", device.OwnerName)

	h.bus.Wait()
	assert.True(t, h.client.anyContains(adminChat, "New device pending review"))

	// The registering chat hears about the moderation decision.
	h.command(adminChat, "approve", "111222333444555")
	assert.Contains(t, h.client.last(t, adminChat), "Done: ")
	h.bus.Wait()
	assert.True(t, h.client.anyContains(1, "is now *verified*"))
}

func TestRegisterFlow_NewDeviceRequiresDocuments(t *testing.T) {
	h := newHarness(t)
	h.login(1)

	h.command(1, "register", "")
	for _, answer := range []string{
		"Amina Kaci", "0661234567", "654321", "998877",
		"Laptop", "Lenovo", "ThinkPad T14", "SN-0042", "New",
		"skip", "skip",
	} {
		h.say(1, answer)
	}

	assert.NotNil(t, h.flow(1))
	assert.False(t, h.client.anyContains(1, "Device submitted for review."))
}

func TestTransferFlow(t *testing.T) {
	h := newHarness(t)

	// Chat 2 watches the device through a lookup.
	h.checkUntilResult(2, "789456123789456")
	h.command(2, "cancel", "")

	h.login(1)
	h.command(1, "transfer", "")
	h.say(1, "789456123789456")
	assert.True(t, h.client.anyContains(1, "Found: "))

	h.say(1, "Sara Haddad")
	h.say(1, "0771234567")
	h.say(1, "111111")
	h.say(1, "445566")
	h.say(1, "skip")

	assert.True(t, h.client.anyContains(1, "Please review the transfer:"))
	assert.Equal(t, "Is everything correct?", h.client.last(t, 1))

	h.say(1, "Maybe")
	assert.True(t, h.client.anyContains(1, "Press Confirm to transfer"))

	h.say(1, "Confirm")
	assert.Contains(t, h.client.last(t, 1), "Ownership transferred to Sara Haddad.")
	assert.Nil(t, h.flow(1))

	device, err := h.reg.GetDeviceByImei(h.ctx, "789456123789456")
	require.NoError(t, err)
	assert.Equal(t, "Sara Haddad", device.OwnerName)
	assert.Equal(t, "0771234567", device.PhoneNumber)
	ok, err := h.reg.VerifyOwnership(h.ctx, "789456123789456", "445566")
	require.NoError(t, err)
	assert.True(t, ok)

	h.bus.Wait()
	assert.True(t, h.client.anyContains(2, "now belongs to Sara Haddad"))
}

func TestTransferFlow_BlacklistedDeviceRefused(t *testing.T) {
	h := newHarness(t)
	h.login(1)

	h.command(1, "transfer", "")
	h.say(1, "987654321098765")

	assert.True(t, h.client.anyContains(1, "blacklisted and cannot change owner"))
	assert.Equal(t, "Enter the IMEI of the device to transfer.", h.client.last(t, 1))
}

func TestModeration(t *testing.T) {
	h := newHarness(t)

	h.command(1, "approve", "852456963741258")
	assert.Equal(t, "This command is for moderators only.", h.client.last(t, 1))

	h.command(adminChat, "approve", "123")
	assert.Equal(t, "Usage: /approve <15-digit IMEI>", h.client.last(t, adminChat))

	h.command(adminChat, "approve", "852456963741258")
	assert.Contains(t, h.client.last(t, adminChat), "Done: ")

	device, err := h.reg.GetDeviceByImei(h.ctx, "852456963741258")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusVerified, device.Status)

	h.command(adminChat, "reject", "852456963741258")
	assert.Equal(t, "That status change is not allowed.", h.client.last(t, adminChat))

	h.command(adminChat, "blacklist", "000000000000000")
	assert.Equal(t, "No device with this IMEI is registered.", h.client.last(t, adminChat))

	h.command(adminChat, "devices", "blacklisted")
	assert.Contains(t, h.client.last(t, adminChat), "987654321098765")
	assert.NotContains(t, h.client.last(t, adminChat), "123456789012345")
}

func TestSignupFlow_RegularUser(t *testing.T) {
	h := newHarness(t)

	h.command(4, "signup", "")
	assert.Contains(t, h.client.last(t, 4), "Which kind of account")
	h.say(4, "Regular user")
	assert.Equal(t, "Enter your full name.", h.client.last(t, 4))

	h.say(4, "Amina Benali")
	h.say(4, "123123123")
	h.say(4, "Oran")
	h.say(4, "1990-01-01")
	h.say(4, "Oran")
	h.say(4, "0555123456")
	h.say(4, "123456")

	assert.Contains(t, h.client.last(t, 4), "Account created. Welcome, Amina Benali! You start with 50 credits.")
	assert.Nil(t, h.flow(4))
	assert.True(t, h.chats.Get(h.ctx, 4).Session.IsAuthenticated())

	h.command(4, "signup", "")
	assert.Contains(t, h.client.last(t, 4), "already signed in")
}

func TestResetFlow_RegularUser(t *testing.T) {
	h := newHarness(t)

	h.command(5, "reset", "")
	h.say(5, "Regular user")
	h.say(5, "Amina Benali")
	h.say(5, "0555123456")
	h.say(5, "123456")

	assert.Contains(t, h.client.last(t, 5), "If an account exists with the provided information")
	assert.Nil(t, h.flow(5))
}

func TestUserTypeOf(t *testing.T) {
	cases := map[string]domain.UserType{
		"Regular user":     domain.UserTypeRegular,
		" regular ":        domain.UserTypeRegular,
		"Service provider": domain.UserTypeAgent,
		"AGENT":            domain.UserTypeAgent,
		"robot":            domain.UserType("robot"),
	}
	for answer, want := range cases {
		assert.Equal(t, want, userTypeOf(answer), answer)
	}
}
