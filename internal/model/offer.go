package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Offer is a sponsored CPA task paying a fixed one-time reward.
type Offer struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Title        string          `json:"title" db:"title"`
	Description  *string         `json:"description,omitempty" db:"description"`
	Link         string          `json:"link" db:"link"`
	RewardAmount decimal.Decimal `json:"reward_amount" db:"reward_amount"`
	IsActive     bool            `json:"is_active" db:"is_active"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
	DeletedAt    *time.Time      `json:"-" db:"deleted_at"`
}

func (o *Offer) Available() bool {
	return o.IsActive && o.DeletedAt == nil
}
