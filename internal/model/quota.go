package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type QuotaKind string

const (
	QuotaKindAd   QuotaKind = "ad"
	QuotaKindSpin QuotaKind = "spin"
)

func (k QuotaKind) Valid() bool {
	return k == QuotaKindAd || k == QuotaKindSpin
}

// QuotaCounter holds one user's usage for one calendar day.
type QuotaCounter struct {
	UserID     int64     `json:"user_id" db:"user_id"`
	Day        time.Time `json:"day" db:"day"`
	AdsWatched int       `json:"ads_watched" db:"ads_watched"`
	SpinsUsed  int       `json:"spins_used" db:"spins_used"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

func (q *QuotaCounter) Used(kind QuotaKind) int {
	if kind == QuotaKindSpin {
		return q.SpinsUsed
	}
	return q.AdsWatched
}

func (q *QuotaCounter) Increment(kind QuotaKind) {
	if kind == QuotaKindSpin {
		q.SpinsUsed++
		return
	}
	q.AdsWatched++
}

type AdLimits struct {
	WatchedToday int             `json:"watched_today"`
	DailyLimit   int             `json:"daily_limit"`
	Remaining    int             `json:"remaining"`
	RewardAmount decimal.Decimal `json:"reward_amount"`
}

type SpinLimits struct {
	UsedToday  int             `json:"used_today"`
	DailyLimit int             `json:"daily_limit"`
	Remaining  int             `json:"remaining"`
	MinReward  decimal.Decimal `json:"min_reward"`
	MaxReward  decimal.Decimal `json:"max_reward"`
}

// DailyLimits is a display snapshot; enforcement happens when a quota is consumed.
type DailyLimits struct {
	Day      string     `json:"day"`
	ResetsAt time.Time  `json:"resets_at"`
	Ads      AdLimits   `json:"ads"`
	Spins    SpinLimits `json:"spins"`
}
