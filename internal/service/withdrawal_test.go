package service

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earnhub/backend/internal/model"
)

func bkash(amount string) WithdrawalRequest {
	return WithdrawalRequest{Amount: dec(amount), Method: model.PaymentMethodBkash, Destination: "01712345678"}
}

func TestWithdrawalApproveCompleteScenario(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, 1)
	f.fund(t, 1, "150")

	w, err := f.withdrawals.Request(f.ctx, 1, bkash("120"))
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawalStatusPending, w.Status)
	f.requireBalance(t, 1, "30")

	w, err = f.withdrawals.UpdateStatus(f.ctx, adminID, w.ID, model.WithdrawalStatusApproved, nil)
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawalStatusApproved, w.Status)
	assert.Nil(t, w.ResolvedAt)
	f.requireBalance(t, 1, "30")

	notes := "sent from merchant wallet"
	w, err = f.withdrawals.UpdateStatus(f.ctx, adminID, w.ID, model.WithdrawalStatusCompleted, &notes)
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawalStatusCompleted, w.Status)
	assert.Equal(t, model.HoldStateFinalized, w.HoldState)
	require.NotNil(t, w.ResolvedAt)
	assert.Equal(t, adminID, *w.ResolvedBy)
	assert.Equal(t, notes, *w.AdminNotes)
	f.requireBalance(t, 1, "30")

	// The minimum is checked before the balance.
	_, err = f.withdrawals.Request(f.ctx, 1, bkash("50"))
	assert.ErrorIs(t, err, ErrBelowMinimumWithdrawal)
	_, err = f.withdrawals.Request(f.ctx, 1, bkash("100"))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	f.requireBalance(t, 1, "30")
}

func TestRequestRejectsOutOfRangeAmounts(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, 1)
	f.fund(t, 1, "150")

	for _, amount := range []decimal.Decimal{
		decimal.New(1, -1_000_000_000),
		decimal.New(1, 1_000_000_000),
		dec("100.001"),
		dec("10000000000000000"),
	} {
		req := bkash("0")
		req.Amount = amount
		_, err := f.withdrawals.Request(f.ctx, 1, req)
		assert.ErrorIs(t, err, ErrValidation, amount.Exponent())
	}
	f.requireBalance(t, 1, "150")
}

func TestCancelRestoresOnce(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, 1)
	f.fund(t, 1, "200")

	w, err := f.withdrawals.Request(f.ctx, 1, bkash("125.50"))
	require.NoError(t, err)
	f.requireBalance(t, 1, "74.50")

	w, err = f.withdrawals.Cancel(f.ctx, 1, w.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawalStatusCancelled, w.Status)
	assert.Equal(t, model.HoldStateReleased, w.HoldState)
	assert.Nil(t, w.ResolvedBy)
	f.requireBalance(t, 1, "200")

	_, err = f.withdrawals.Cancel(f.ctx, 1, w.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	f.requireBalance(t, 1, "200")
}

func TestCancelOnlyByOwnerWhilePending(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, 1)
	f.newUser(t, 2)
	f.fund(t, 1, "300")

	w, err := f.withdrawals.Request(f.ctx, 1, bkash("100"))
	require.NoError(t, err)

	_, err = f.withdrawals.Cancel(f.ctx, 2, w.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.withdrawals.UpdateStatus(f.ctx, adminID, w.ID, model.WithdrawalStatusApproved, nil)
	require.NoError(t, err)
	_, err = f.withdrawals.Cancel(f.ctx, 1, w.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	f.requireBalance(t, 1, "200")
}

func TestRejectRestoresCompleteDoesNot(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, 1)
	f.fund(t, 1, "300")

	rejected, err := f.withdrawals.Request(f.ctx, 1, bkash("100"))
	require.NoError(t, err)
	completed, err := f.withdrawals.Request(f.ctx, 1, bkash("100"))
	require.NoError(t, err)
	f.requireBalance(t, 1, "100")

	_, err = f.withdrawals.UpdateStatus(f.ctx, adminID, rejected.ID, model.WithdrawalStatusRejected, nil)
	require.NoError(t, err)
	f.requireBalance(t, 1, "200")

	_, err = f.withdrawals.UpdateStatus(f.ctx, adminID, completed.ID, model.WithdrawalStatusCompleted, nil)
	require.NoError(t, err)
	f.requireBalance(t, 1, "200")
}

func TestAdminTransitionErrors(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, 1)
	f.fund(t, 1, "300")

	w, err := f.withdrawals.Request(f.ctx, 1, bkash("100"))
	require.NoError(t, err)

	_, err = f.withdrawals.UpdateStatus(f.ctx, adminID, w.ID, model.WithdrawalStatusCancelled, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.withdrawals.UpdateStatus(f.ctx, adminID, w.ID, model.WithdrawalStatusPending, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.withdrawals.UpdateStatus(f.ctx, adminID, w.ID, model.WithdrawalStatusApproved, nil)
	require.NoError(t, err)
	_, err = f.withdrawals.UpdateStatus(f.ctx, adminID, w.ID, model.WithdrawalStatusRejected, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition, "approved requests can only complete")
	_, err = f.withdrawals.UpdateStatus(f.ctx, adminID, w.ID, model.WithdrawalStatusApproved, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	done, err := f.withdrawals.UpdateStatus(f.ctx, adminID, w.ID, model.WithdrawalStatusCompleted, nil)
	require.NoError(t, err)
	resolvedAt := *done.ResolvedAt

	f.clock.Advance(time.Hour)
	_, err = f.withdrawals.UpdateStatus(f.ctx, adminID, w.ID, model.WithdrawalStatusCompleted, nil)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = f.withdrawals.UpdateNotes(f.ctx, adminID, w.ID, "late note")
	assert.ErrorIs(t, err, ErrInvalidState)

	got, err := f.withdrawals.Get(f.ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, resolvedAt, *got.ResolvedAt)
	f.requireBalance(t, 1, "200")

	_, err = f.withdrawals.UpdateStatus(f.ctx, adminID, uuid.New(), model.WithdrawalStatusApproved, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentCancelAndRejectRefundOnce(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, 1)
	f.fund(t, 1, "100")

	w, err := f.withdrawals.Request(f.ctx, 1, bkash("100"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = f.withdrawals.Cancel(f.ctx, 1, w.ID)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = f.withdrawals.UpdateStatus(f.ctx, adminID, w.ID, model.WithdrawalStatusRejected, nil)
	}()
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrInvalidState)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	f.requireBalance(t, 1, "100")
}

func TestUpdateNotesAndAuditLog(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, 1)
	f.fund(t, 1, "100")

	w, err := f.withdrawals.Request(f.ctx, 1, bkash("100"))
	require.NoError(t, err)

	w, err = f.withdrawals.UpdateNotes(f.ctx, adminID, w.ID, "  checking number  ")
	require.NoError(t, err)
	assert.Equal(t, "checking number", *w.AdminNotes)
	assert.Equal(t, model.WithdrawalStatusPending, w.Status)

	logs, _, err := f.admin.ListLogs(f.ctx, model.NewPage(1, 10))
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, model.AdminActionWithdrawalNotes, logs[0].Action)
	assert.Equal(t, int64(1), *logs[0].TargetUserID)
}

func TestDestinationValidation(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, 1)
	f.fund(t, 1, "1000")

	valid := []struct {
		method model.PaymentMethod
		in     string
		want   string
	}{
		{model.PaymentMethodBkash, "01712345678", "01712345678"},
		{model.PaymentMethodBkash, "+8801912345678", "01912345678"},
		{model.PaymentMethodBkash, "8801312345678", "01312345678"},
		{model.PaymentMethodBkash, "017-1234-5678", "01712345678"},
		{model.PaymentMethodTON, "EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2N", "EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2N"},
	}
	for _, tc := range valid {
		w, err := f.withdrawals.Request(f.ctx, 1, WithdrawalRequest{Amount: dec("100"), Method: tc.method, Destination: tc.in})
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, w.Destination)
		assert.Equal(t, tc.method, w.Method)
	}

	invalid := []struct {
		method model.PaymentMethod
		in     string
	}{
		{model.PaymentMethodBkash, ""},
		{model.PaymentMethodBkash, "01212345678"},
		{model.PaymentMethodBkash, "0171234567"},
		{model.PaymentMethodBkash, "+14155550100"},
		{model.PaymentMethodTON, "not-an-address"},
		{model.PaymentMethod("paypal"), "someone@example.com"},
	}
	for _, tc := range invalid {
		_, err := f.withdrawals.Request(f.ctx, 1, WithdrawalRequest{Amount: dec("100"), Method: tc.method, Destination: tc.in})
		assert.ErrorIs(t, err, ErrValidation, tc.in)
	}
	f.requireBalance(t, 1, "500")
}

func TestWithdrawalListings(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, 1)
	f.newUser(t, 2)
	f.fund(t, 1, "500")
	f.fund(t, 2, "500")

	first, err := f.withdrawals.Request(f.ctx, 1, bkash("100"))
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	second, err := f.withdrawals.Request(f.ctx, 1, bkash("100"))
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.withdrawals.Request(f.ctx, 2, bkash("100"))
	require.NoError(t, err)
	_, err = f.withdrawals.Cancel(f.ctx, 1, first.ID)
	require.NoError(t, err)

	mine, page, err := f.withdrawals.ListForUser(f.ctx, 1, model.NewPage(1, 20))
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, second.ID, mine[0].ID, "newest first")

	pending := model.WithdrawalStatusPending
	rows, page, err := f.withdrawals.ListForAdmin(f.ctx, &pending, model.NewPage(1, 1))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, page.Total)
	assert.True(t, page.HasNext)
	assert.Equal(t, int64(2), rows[0].UserID)
	require.NotNil(t, rows[0].FirstName)
	assert.Equal(t, "user", *rows[0].FirstName)
}

type recordingNotifier struct {
	mu        sync.Mutex
	wg        sync.WaitGroup
	requested []uuid.UUID
	statuses  []model.WithdrawalStatus
}

func (n *recordingNotifier) NotifyWithdrawalRequested(w *model.Withdrawal) error {
	defer n.wg.Done()
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requested = append(n.requested, w.ID)
	return nil
}

func (n *recordingNotifier) NotifyWithdrawalStatus(w *model.Withdrawal) error {
	defer n.wg.Done()
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, w.Status)
	return nil
}

func TestWithdrawalNotifications(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, 1)
	f.fund(t, 1, "100")

	n := &recordingNotifier{}
	f.withdrawals.SetNotifier(n)

	n.wg.Add(1)
	w, err := f.withdrawals.Request(f.ctx, 1, bkash("100"))
	require.NoError(t, err)
	n.wg.Wait()

	n.wg.Add(1)
	_, err = f.withdrawals.UpdateStatus(f.ctx, adminID, w.ID, model.WithdrawalStatusRejected, nil)
	require.NoError(t, err)
	n.wg.Wait()

	assert.Equal(t, []uuid.UUID{w.ID}, n.requested)
	assert.Equal(t, []model.WithdrawalStatus{model.WithdrawalStatusRejected}, n.statuses)
}
