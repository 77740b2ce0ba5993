package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AdminRole string

const (
	AdminRoleAdmin      AdminRole = "admin"
	AdminRoleSuperAdmin AdminRole = "superadmin"
)

type Admin struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Role      AdminRole `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	CreatedBy *int64    `json:"created_by,omitempty" db:"created_by"`
}

type AdminLog struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	AdminID      int64           `json:"admin_id" db:"admin_id"`
	Action       string          `json:"action" db:"action"`
	TargetUserID *int64          `json:"target_user_id,omitempty" db:"target_user_id"`
	Details      json.RawMessage `json:"details,omitempty" db:"details"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// Admin action constants
const (
	AdminActionUpdateWithdrawal = "update_withdrawal"
	AdminActionWithdrawalNotes  = "update_withdrawal_notes"
	AdminActionUpdateSettings   = "update_settings"
	AdminActionCreateOffer      = "create_offer"
	AdminActionUpdateOffer      = "update_offer"
	AdminActionDeleteOffer      = "delete_offer"
)

type UserStats struct {
	Total    int `json:"total"`
	NewToday int `json:"new_today"`
}

type EarningSummary struct {
	Total decimal.Decimal `json:"total"`
	Today decimal.Decimal `json:"today"`
	Count int             `json:"count"`
}

type WithdrawalSummary struct {
	TotalWithdrawn   decimal.Decimal `json:"total_withdrawn"`
	PendingRequests  int             `json:"pending_requests"`
	PendingAmount    decimal.Decimal `json:"pending_amount"`
	ApprovedRequests int             `json:"approved_requests"`
}

// Stats is the admin dashboard aggregate.
type Stats struct {
	Users       UserStats         `json:"users"`
	Earnings    EarningSummary    `json:"earnings"`
	Withdrawals WithdrawalSummary `json:"withdrawals"`
}
