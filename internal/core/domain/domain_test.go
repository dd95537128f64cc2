package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		from    DeviceStatus
		action  StatusAction
		want    DeviceStatus
		wantErr bool
	}{
		{StatusPending, ActionApprove, StatusVerified, false},
		{StatusPending, ActionReject, StatusRejected, false},
		{StatusPending, ActionBlacklist, StatusBlacklisted, false},
		{StatusVerified, ActionBlacklist, StatusBlacklisted, false},
		{StatusVerified, ActionApprove, StatusVerified, true},
		{StatusVerified, ActionReject, StatusVerified, true},
		{StatusRejected, ActionApprove, StatusVerified, false},
		{StatusRejected, ActionBlacklist, StatusBlacklisted, false},
		{StatusRejected, ActionReject, StatusRejected, true},
		{StatusBlacklisted, ActionApprove, StatusBlacklisted, true},
		{StatusBlacklisted, ActionReject, StatusBlacklisted, true},
		{StatusBlacklisted, ActionBlacklist, StatusBlacklisted, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			got, err := NextStatus(tt.from, tt.action)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResultFor(t *testing.T) {
	assert.Equal(t, ResultClean, ResultFor(StatusVerified))
	assert.Equal(t, ResultBlacklisted, ResultFor(StatusBlacklisted))
	assert.Equal(t, ResultUnknown, ResultFor(StatusPending))
	assert.Equal(t, ResultUnknown, ResultFor(StatusRejected))
}

func TestCreditsFor(t *testing.T) {
	assert.Equal(t, 100, CreditsFor(1000))
	assert.Equal(t, 123, CreditsFor(1239))
	assert.Equal(t, 0, CreditsFor(0))
	assert.Equal(t, 0, CreditsFor(-50))
}

func TestRankFor(t *testing.T) {
	assert.Equal(t, "Basic", RankFor(0).Name)
	assert.Equal(t, "Basic", RankFor(500).Name)
	assert.Equal(t, "Premium", RankFor(501).Name)
	assert.Equal(t, 10, RankFor(750).DiscountPercent)
	assert.Equal(t, "VIP", RankFor(751).Name)
	assert.Equal(t, "Enterprise", RankFor(1001).Name)
	assert.Equal(t, 30, RankFor(5000).DiscountPercent)
}

func TestPaymentMethodValid(t *testing.T) {
	assert.True(t, PaymentEdahabia.Valid())
	assert.False(t, PaymentMethod("paypal").Valid())
}

func TestUserPatchApply(t *testing.T) {
	u := User{ID: "123456", Name: "John Doe", Email: "a@b.co", CreditBalance: 100}

	balance := 150
	phone := "0551000001"
	got := UserPatch{CreditBalance: &balance, Phone: &phone}.Apply(u)

	assert.Equal(t, 150, got.CreditBalance)
	require.NotNil(t, got.Phone)
	assert.Equal(t, "0551000001", *got.Phone)
	assert.Equal(t, "John Doe", got.Name)
	// The input is not modified.
	assert.Equal(t, 100, u.CreditBalance)
	assert.Nil(t, u.Phone)
}

func TestUserJSONKeys(t *testing.T) {
	raw, err := json.Marshal(User{ID: "1", Name: "n", Email: "e", CreditBalance: 5, HasNationalID: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1","name":"n","email":"e","creditBalance":5,"hasBusinessRegistration":false,"hasNationalId":true}`, string(raw))
}
