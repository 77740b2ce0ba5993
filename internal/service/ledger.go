package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/earnhub/backend/internal/clock"
	"github.com/earnhub/backend/internal/model"
	"github.com/earnhub/backend/internal/repository"
)

// LedgerService is the only writer of user balances. Every mutation runs
// under the user's lock and leaves a balance_transactions row behind.
type LedgerService struct {
	store    Store
	settings *SettingsService
	calendar *clock.Calendar
	log      *zap.Logger
}

func NewLedgerService(store Store, settings *SettingsService, calendar *clock.Calendar, log *zap.Logger) *LedgerService {
	return &LedgerService{store: store, settings: settings, calendar: calendar, log: log}
}

type HoldRequest struct {
	Amount      decimal.Decimal
	Method      model.PaymentMethod
	Destination string
}

// Credit records an earning and adds it to the balance.
func (s *LedgerService) Credit(ctx context.Context, userID int64, typ model.EarningType, amount decimal.Decimal, description string, referenceID *uuid.UUID) (*model.Earning, error) {
	var earning *model.Earning
	err := s.store.InUserTx(ctx, userID, func(tx repository.UserTx) error {
		var err error
		earning, err = s.creditTx(tx, typ, amount, description, referenceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return earning, nil
}

// HoldForWithdrawal debits amount immediately and opens a pending withdrawal for it.
func (s *LedgerService) HoldForWithdrawal(ctx context.Context, userID int64, req HoldRequest) (*model.Withdrawal, error) {
	st, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}

	var w *model.Withdrawal
	err = s.store.InUserTx(ctx, userID, func(tx repository.UserTx) error {
		var err error
		w, err = s.holdTx(tx, req, st)
		return err
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// ReleaseHold returns a withdrawal's amount to the balance. A hold can be
// resolved once; later calls fail with ErrAlreadyResolved.
func (s *LedgerService) ReleaseHold(ctx context.Context, withdrawalID uuid.UUID) error {
	return s.withHeldWithdrawal(ctx, withdrawalID, s.releaseTx)
}

// Finalize marks a withdrawal's funds as paid out. The balance does not change.
func (s *LedgerService) Finalize(ctx context.Context, withdrawalID uuid.UUID) error {
	return s.withHeldWithdrawal(ctx, withdrawalID, s.finalizeTx)
}

func (s *LedgerService) withHeldWithdrawal(ctx context.Context, withdrawalID uuid.UUID, fn func(repository.UserTx, *model.Withdrawal) error) error {
	w, err := s.store.GetWithdrawal(ctx, withdrawalID)
	if err != nil {
		return err
	}
	return s.store.InUserTx(ctx, w.UserID, func(tx repository.UserTx) error {
		locked, err := tx.GetWithdrawal(withdrawalID)
		if err != nil {
			return err
		}
		return fn(tx, locked)
	})
}

// BalanceOf reads the committed balance.
func (s *LedgerService) BalanceOf(ctx context.Context, userID int64) (decimal.Decimal, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return user.Balance, nil
}

// Reconcile replays earnings and unreleased holds under the user lock and
// compares the result with the cached balance.
func (s *LedgerService) Reconcile(ctx context.Context, userID int64) (*model.Reconciliation, error) {
	var rec *model.Reconciliation
	err := s.store.InUserTx(ctx, userID, func(tx repository.UserTx) error {
		earned, held, err := tx.Replay()
		if err != nil {
			return err
		}
		replayed := earned.Sub(held)
		cached := tx.User().Balance
		rec = &model.Reconciliation{
			UserID:        userID,
			CachedBalance: cached,
			TotalEarned:   earned,
			TotalHeld:     held,
			Replayed:      replayed,
			Consistent:    replayed.Equal(cached),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !rec.Consistent {
		s.log.Error("ledger mismatch",
			zap.Int64("user_id", userID),
			zap.String("cached", rec.CachedBalance.String()),
			zap.String("replayed", rec.Replayed.String()))
	}
	return rec, nil
}

func (s *LedgerService) History(ctx context.Context, userID int64, page model.Page) ([]model.Earning, model.Pagination, error) {
	earnings, total, err := s.store.ListEarnings(ctx, userID, page.Limit(), page.Offset())
	if err != nil {
		return nil, model.Pagination{}, err
	}
	return earnings, page.Paginate(total), nil
}

func (s *LedgerService) Stats(ctx context.Context, userID int64) (*model.EarningStats, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	totals, err := s.store.EarningTotals(ctx, userID)
	if err != nil {
		return nil, err
	}
	today, err := s.store.SumEarningsSince(ctx, userID, s.calendar.StartOfToday())
	if err != nil {
		return nil, err
	}
	quota, err := s.store.GetQuota(ctx, userID, s.calendar.Today())
	if err != nil {
		return nil, err
	}

	stats := &model.EarningStats{
		TotalEarned:    decimal.Zero,
		CurrentBalance: user.Balance,
		Today: model.TodayStats{
			AdsWatched: quota.AdsWatched,
			SpinsUsed:  quota.SpinsUsed,
			Earned:     today,
		},
		ByType: totals,
	}
	for _, t := range totals {
		stats.TotalEarned = stats.TotalEarned.Add(t.Total)
	}
	return stats, nil
}

func (s *LedgerService) creditTx(tx repository.UserTx, typ model.EarningType, amount decimal.Decimal, description string, referenceID *uuid.UUID) (*model.Earning, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: unknown earning type %q", ErrValidation, typ)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: credit amount must be positive", ErrValidation)
	}
	if !model.IsMoney(amount) {
		return nil, fmt.Errorf("%w: credit amount must have at most %d decimal places and %d integer digits", ErrValidation, model.MoneyPlaces, model.MoneyIntDigits)
	}

	user := tx.User()
	earning := &model.Earning{
		ID:          uuid.New(),
		UserID:      user.ID,
		Type:        typ,
		Amount:      amount,
		Description: optional(description),
		ReferenceID: referenceID,
		CreatedAt:   s.calendar.Now(),
	}
	if err := tx.InsertEarning(earning); err != nil {
		return nil, err
	}
	if err := s.move(tx, amount, model.TransactionTypeEarning, description, &earning.ID); err != nil {
		return nil, err
	}
	return earning, nil
}

func (s *LedgerService) holdTx(tx repository.UserTx, req HoldRequest, st model.Settings) (*model.Withdrawal, error) {
	amount := req.Amount
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: withdrawal amount must be positive", ErrValidation)
	}
	if !model.IsMoney(amount) {
		return nil, fmt.Errorf("%w: withdrawal amount must have at most %d decimal places and %d integer digits", ErrValidation, model.MoneyPlaces, model.MoneyIntDigits)
	}
	// Checked before the balance so the outcome never depends on it.
	if amount.LessThan(st.MinWithdrawalAmount) {
		return nil, fmt.Errorf("%w: minimum is %s", ErrBelowMinimumWithdrawal, st.MinWithdrawalAmount.StringFixed(model.MoneyPlaces))
	}
	fee := st.WithdrawalFee
	if fee.GreaterThanOrEqual(amount) {
		return nil, fmt.Errorf("%w: amount must exceed the withdrawal fee of %s", ErrValidation, fee.StringFixed(model.MoneyPlaces))
	}

	user := tx.User()
	if amount.GreaterThan(user.Balance) {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance,
			user.Balance.StringFixed(model.MoneyPlaces), amount.StringFixed(model.MoneyPlaces))
	}

	now := s.calendar.Now()
	w := &model.Withdrawal{
		ID:          uuid.New(),
		UserID:      user.ID,
		Amount:      amount,
		Fee:         fee,
		NetAmount:   amount.Sub(fee),
		Method:      req.Method,
		Destination: req.Destination,
		Status:      model.WithdrawalStatusPending,
		HoldState:   model.HoldStateHeld,
		RequestedAt: now,
		UpdatedAt:   now,
	}
	if err := tx.InsertWithdrawal(w); err != nil {
		return nil, err
	}
	desc := fmt.Sprintf("Withdrawal via %s", req.Method)
	if err := s.move(tx, amount.Neg(), model.TransactionTypeWithdrawalHold, desc, &w.ID); err != nil {
		return nil, err
	}
	return w, nil
}

// releaseTx and finalizeTx persist w, including any status fields the caller
// changed before handing it over.
func (s *LedgerService) releaseTx(tx repository.UserTx, w *model.Withdrawal) error {
	if w.HoldState != model.HoldStateHeld {
		return fmt.Errorf("%w: withdrawal %s is %s", ErrAlreadyResolved, w.ID, w.HoldState)
	}
	w.HoldState = model.HoldStateReleased
	if err := tx.UpdateWithdrawal(w); err != nil {
		return err
	}
	desc := fmt.Sprintf("Withdrawal %s refunded", w.Status)
	return s.move(tx, w.Amount, model.TransactionTypeWithdrawalRelease, desc, &w.ID)
}

func (s *LedgerService) finalizeTx(tx repository.UserTx, w *model.Withdrawal) error {
	if w.HoldState != model.HoldStateHeld {
		return fmt.Errorf("%w: withdrawal %s is %s", ErrAlreadyResolved, w.ID, w.HoldState)
	}
	w.HoldState = model.HoldStateFinalized
	if err := tx.UpdateWithdrawal(w); err != nil {
		return err
	}
	return s.move(tx, decimal.Zero, model.TransactionTypeWithdrawalFinalize, "Withdrawal paid out", &w.ID)
}

// move applies delta to the locked balance and journals it.
func (s *LedgerService) move(tx repository.UserTx, delta decimal.Decimal, typ model.TransactionType, description string, referenceID *uuid.UUID) error {
	user := tx.User()
	before := user.Balance
	after := before.Add(delta)
	if after.IsNegative() {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance,
			before.StringFixed(model.MoneyPlaces), delta.Neg().StringFixed(model.MoneyPlaces))
	}

	if !delta.IsZero() {
		if err := tx.SetBalance(after); err != nil {
			return err
		}
	}
	return tx.InsertBalanceTransaction(&model.BalanceTransaction{
		ID:            uuid.New(),
		UserID:        user.ID,
		Amount:        delta,
		Type:          typ,
		Description:   optional(description),
		ReferenceID:   referenceID,
		BalanceBefore: before,
		BalanceAfter:  after,
		CreatedAt:     s.calendar.Now(),
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
