package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EarningType string

const (
	EarningTypeAd   EarningType = "ad"
	EarningTypeSpin EarningType = "spin"
	EarningTypeCPA  EarningType = "cpa"
)

func (t EarningType) Valid() bool {
	switch t {
	case EarningTypeAd, EarningTypeSpin, EarningTypeCPA:
		return true
	}
	return false
}

// Earning is an append-only record of a single reward.
type Earning struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      int64           `json:"user_id" db:"user_id"`
	Type        EarningType     `json:"type" db:"type"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Description *string         `json:"description,omitempty" db:"description"`
	ReferenceID *uuid.UUID      `json:"reference_id,omitempty" db:"reference_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

type EarningTotal struct {
	Count int             `json:"count" db:"count"`
	Total decimal.Decimal `json:"total" db:"total"`
}

type TodayStats struct {
	AdsWatched int             `json:"ads_watched"`
	SpinsUsed  int             `json:"spins_used"`
	Earned     decimal.Decimal `json:"earned"`
}

// EarningStats is the per-user summary shown on the dashboard and history screens.
type EarningStats struct {
	TotalEarned    decimal.Decimal              `json:"total_earned"`
	CurrentBalance decimal.Decimal              `json:"current_balance"`
	Today          TodayStats                   `json:"today"`
	ByType         map[EarningType]EarningTotal `json:"by_type"`
}
