package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeEarning            TransactionType = "earning"
	TransactionTypeWithdrawalHold     TransactionType = "withdrawal_hold"
	TransactionTypeWithdrawalRelease  TransactionType = "withdrawal_release"
	TransactionTypeWithdrawalFinalize TransactionType = "withdrawal_finalize"
)

// BalanceTransaction is the journal row written for every ledger mutation.
type BalanceTransaction struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	UserID        int64           `json:"user_id" db:"user_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"` // positive = credit, negative = debit
	Type          TransactionType `json:"type" db:"type"`
	Description   *string         `json:"description,omitempty" db:"description"`
	ReferenceID   *uuid.UUID      `json:"reference_id,omitempty" db:"reference_id"`
	BalanceBefore decimal.Decimal `json:"balance_before" db:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after" db:"balance_after"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// Reconciliation compares the cached balance with a replay of earnings and holds.
type Reconciliation struct {
	UserID        int64           `json:"user_id"`
	CachedBalance decimal.Decimal `json:"cached_balance"`
	TotalEarned   decimal.Decimal `json:"total_earned"`
	TotalHeld     decimal.Decimal `json:"total_held"`
	Replayed      decimal.Decimal `json:"replayed_balance"`
	Consistent    bool            `json:"consistent"`
}
