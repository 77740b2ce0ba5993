package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/earnhub/backend/internal/model"
)

const maxTxAttempts = 3

// InUserTx locks the user row with SELECT ... FOR UPDATE and runs fn inside
// the same transaction. Serialization failures and deadlocks are retried.
func (r *Repository) InUserTx(ctx context.Context, userID int64, fn func(tx UserTx) error) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = r.runUserTx(ctx, userID, fn)
		if !isRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: %v", ErrConflict, err)
}

func (r *Repository) runUserTx(ctx context.Context, userID int64, fn func(tx UserTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var user model.User
	err = tx.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1 FOR UPDATE", userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return fmt.Errorf("failed to lock user: %w", err)
	}

	if err := fn(&userTx{ctx: ctx, tx: tx, user: &user}); err != nil {
		return err
	}
	return tx.Commit()
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

type userTx struct {
	ctx  context.Context
	tx   *sqlx.Tx
	user *model.User
}

func (t *userTx) User() *model.User {
	return t.user
}

func (t *userTx) SetBalance(balance decimal.Decimal) error {
	_, err := t.tx.ExecContext(t.ctx, "UPDATE users SET balance = $1, updated_at = NOW() WHERE id = $2", balance, t.user.ID)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	t.user.Balance = balance
	return nil
}

func (t *userTx) InsertEarning(e *model.Earning) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO earnings (id, user_id, type, amount, description, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.UserID, e.Type, e.Amount, e.Description, e.ReferenceID, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create earning: %w", err)
	}
	return nil
}

func (t *userTx) HasEarningReference(typ model.EarningType, referenceID uuid.UUID) (bool, error) {
	var count int
	err := t.tx.GetContext(t.ctx, &count, `
		SELECT COUNT(*) FROM earnings
		WHERE user_id = $1 AND type = $2 AND reference_id = $3`,
		t.user.ID, typ, referenceID)
	return count > 0, err
}

func (t *userTx) InsertBalanceTransaction(bt *model.BalanceTransaction) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO balance_transactions (id, user_id, amount, type, description, reference_id, balance_before, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		bt.ID, bt.UserID, bt.Amount, bt.Type, bt.Description, bt.ReferenceID, bt.BalanceBefore, bt.BalanceAfter, bt.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction record: %w", err)
	}
	return nil
}

func (t *userTx) GetQuota(day time.Time) (*model.QuotaCounter, error) {
	var q model.QuotaCounter
	err := t.tx.GetContext(t.ctx, &q, `
		SELECT * FROM quota_counters WHERE user_id = $1 AND day = $2`, t.user.ID, day)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.QuotaCounter{UserID: t.user.ID, Day: day}, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (t *userTx) SaveQuota(q *model.QuotaCounter) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO quota_counters (user_id, day, ads_watched, spins_used, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, day) DO UPDATE SET
			ads_watched = EXCLUDED.ads_watched,
			spins_used = EXCLUDED.spins_used,
			updated_at = EXCLUDED.updated_at`,
		q.UserID, q.Day, q.AdsWatched, q.SpinsUsed, q.UpdatedAt)
	return err
}

func (t *userTx) InsertWithdrawal(w *model.Withdrawal) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO withdrawals (id, user_id, amount, fee, net_amount, method, destination, status, hold_state, admin_notes, requested_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		w.ID, w.UserID, w.Amount, w.Fee, w.NetAmount, w.Method, w.Destination, w.Status, w.HoldState, w.AdminNotes, w.RequestedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal: %w", err)
	}
	return nil
}

func (t *userTx) GetWithdrawal(id uuid.UUID) (*model.Withdrawal, error) {
	var w model.Withdrawal
	err := t.tx.GetContext(t.ctx, &w, `
		SELECT * FROM withdrawals WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, t.user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("withdrawal %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &w, nil
}

func (t *userTx) UpdateWithdrawal(w *model.Withdrawal) error {
	_, err := t.tx.ExecContext(t.ctx, `
		UPDATE withdrawals SET
			status = $2,
			hold_state = $3,
			admin_notes = $4,
			updated_at = $5,
			resolved_at = $6,
			resolved_by = $7
		WHERE id = $1`,
		w.ID, w.Status, w.HoldState, w.AdminNotes, w.UpdatedAt, w.ResolvedAt, w.ResolvedBy)
	if err != nil {
		return fmt.Errorf("failed to update withdrawal: %w", err)
	}
	return nil
}

func (t *userTx) Replay() (decimal.Decimal, decimal.Decimal, error) {
	var earned, held decimal.Decimal
	err := t.tx.GetContext(t.ctx, &earned, `
		SELECT COALESCE(SUM(amount), 0) FROM earnings WHERE user_id = $1`, t.user.ID)
	if err != nil {
		return earned, held, err
	}
	err = t.tx.GetContext(t.ctx, &held, `
		SELECT COALESCE(SUM(amount), 0) FROM withdrawals
		WHERE user_id = $1 AND hold_state <> $2`, t.user.ID, model.HoldStateReleased)
	return earned, held, err
}
