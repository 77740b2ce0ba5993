package telegram

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/earnhub/backend/internal/model"
)

func testWithdrawal(status model.WithdrawalStatus) *model.Withdrawal {
	return &model.Withdrawal{
		ID:          uuid.MustParse("7b1b0a52-6f3e-4a57-9f0e-2f0a6c3f9d11"),
		UserID:      42,
		Amount:      decimal.RequireFromString("120"),
		Fee:         decimal.RequireFromString("5"),
		NetAmount:   decimal.RequireFromString("115"),
		Method:      model.PaymentMethodBkash,
		Destination: "01712345678",
		Status:      status,
	}
}

func TestWithdrawalRequestedText(t *testing.T) {
	text := withdrawalRequestedText(testWithdrawal(model.WithdrawalStatusPending))

	assert.Contains(t, text, "<code>42</code>")
	assert.Contains(t, text, "৳120.00 (fee ৳5.00, payout ৳115.00)")
	assert.Contains(t, text, "bKash")
	assert.Contains(t, text, "01712345678")
}

func TestWithdrawalStatusText(t *testing.T) {
	w := testWithdrawal(model.WithdrawalStatusRejected)
	notes := "Number <unreachable>"
	w.AdminNotes = &notes

	text := withdrawalStatusText(w)
	assert.Contains(t, text, "rejected")
	assert.Contains(t, text, "৳120.00 has been returned")
	assert.Contains(t, text, "Number &lt;unreachable&gt;")

	assert.Contains(t, withdrawalStatusText(testWithdrawal(model.WithdrawalStatusCompleted)), "৳115.00 has been sent")
	assert.Empty(t, withdrawalStatusText(testWithdrawal(model.WithdrawalStatusCancelled)))
	assert.Empty(t, withdrawalStatusText(testWithdrawal(model.WithdrawalStatusPending)))
}
