package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SettingDailyAdLimit        = "daily_ad_limit"
	SettingAdRewardAmount      = "ad_reward_amount"
	SettingDailySpinLimit      = "daily_spin_limit"
	SettingSpinMinReward       = "spin_min_reward"
	SettingSpinMaxReward       = "spin_max_reward"
	SettingMinWithdrawalAmount = "min_withdrawal_amount"
	SettingWithdrawalFee       = "withdrawal_fee"
)

type Setting struct {
	Key         string    `json:"key" db:"key"`
	Value       string    `json:"value" db:"value"`
	Description *string   `json:"description,omitempty" db:"description"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type SettingDef struct {
	Key         string
	Default     string
	Description string
	Integer     bool
}

// SettingDefs lists every recognised key in display order.
var SettingDefs = []SettingDef{
	{Key: SettingDailyAdLimit, Default: "10", Description: "Ads a user may watch per day", Integer: true},
	{Key: SettingAdRewardAmount, Default: "0.50", Description: "Reward for one watched ad"},
	{Key: SettingDailySpinLimit, Default: "5", Description: "Wheel spins a user may make per day", Integer: true},
	{Key: SettingSpinMinReward, Default: "0.10", Description: "Smallest spin reward"},
	{Key: SettingSpinMaxReward, Default: "2.00", Description: "Largest spin reward"},
	{Key: SettingMinWithdrawalAmount, Default: "100.00", Description: "Smallest amount a user may withdraw"},
	{Key: SettingWithdrawalFee, Default: "0.00", Description: "Flat fee deducted from each withdrawal"},
}

func LookupSettingDef(key string) (SettingDef, bool) {
	for _, d := range SettingDefs {
		if d.Key == key {
			return d, true
		}
	}
	return SettingDef{}, false
}

// Settings is the typed, validated view of the settings table.
type Settings struct {
	DailyAdLimit        int             `json:"daily_ad_limit"`
	AdRewardAmount      decimal.Decimal `json:"ad_reward_amount"`
	DailySpinLimit      int             `json:"daily_spin_limit"`
	SpinMinReward       decimal.Decimal `json:"spin_min_reward"`
	SpinMaxReward       decimal.Decimal `json:"spin_max_reward"`
	MinWithdrawalAmount decimal.Decimal `json:"min_withdrawal_amount"`
	WithdrawalFee       decimal.Decimal `json:"withdrawal_fee"`
}

func (s Settings) DailyLimit(kind QuotaKind) int {
	if kind == QuotaKindSpin {
		return s.DailySpinLimit
	}
	return s.DailyAdLimit
}
