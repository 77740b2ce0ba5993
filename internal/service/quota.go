package service

import (
	"context"
	"fmt"

	"github.com/earnhub/backend/internal/clock"
	"github.com/earnhub/backend/internal/model"
	"github.com/earnhub/backend/internal/repository"
)

// QuotaService enforces the daily ad and spin caps. Counters are keyed by
// (user, calendar day) in the calendar's configured zone.
type QuotaService struct {
	store    Store
	settings *SettingsService
	calendar *clock.Calendar
}

func NewQuotaService(store Store, settings *SettingsService, calendar *clock.Calendar) *QuotaService {
	return &QuotaService{store: store, settings: settings, calendar: calendar}
}

type Consumption struct {
	Allowed   bool
	Used      int
	Remaining int
	Limit     int
}

// TryConsume takes one unit of kind for today if any is left. Denied
// attempts change nothing.
func (s *QuotaService) TryConsume(ctx context.Context, userID int64, kind model.QuotaKind) (Consumption, error) {
	st, err := s.settings.Current(ctx)
	if err != nil {
		return Consumption{}, err
	}

	var c Consumption
	err = s.store.InUserTx(ctx, userID, func(tx repository.UserTx) error {
		var err error
		c, err = s.tryConsumeTx(tx, kind, st)
		return err
	})
	return c, err
}

// tryConsumeTx is the check-and-increment; the caller holds the user lock.
func (s *QuotaService) tryConsumeTx(tx repository.UserTx, kind model.QuotaKind, st model.Settings) (Consumption, error) {
	if !kind.Valid() {
		return Consumption{}, fmt.Errorf("%w: unknown quota kind %q", ErrValidation, kind)
	}

	q, err := tx.GetQuota(s.calendar.Today())
	if err != nil {
		return Consumption{}, err
	}

	limit := st.DailyLimit(kind)
	used := q.Used(kind)
	if used >= limit {
		return Consumption{Allowed: false, Used: used, Remaining: 0, Limit: limit}, nil
	}

	q.Increment(kind)
	q.UpdatedAt = s.calendar.Now()
	if err := tx.SaveQuota(q); err != nil {
		return Consumption{}, err
	}
	return Consumption{Allowed: true, Used: used + 1, Remaining: limit - used - 1, Limit: limit}, nil
}

// Remaining is a display snapshot and may race with concurrent consumption.
func (s *QuotaService) Remaining(ctx context.Context, userID int64, kind model.QuotaKind) (int, error) {
	st, err := s.settings.Current(ctx)
	if err != nil {
		return 0, err
	}
	q, err := s.store.GetQuota(ctx, userID, s.calendar.Today())
	if err != nil {
		return 0, err
	}
	return remaining(st.DailyLimit(kind), q.Used(kind)), nil
}

func (s *QuotaService) Limits(ctx context.Context, userID int64) (*model.DailyLimits, error) {
	st, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	day := s.calendar.Today()
	q, err := s.store.GetQuota(ctx, userID, day)
	if err != nil {
		return nil, err
	}

	return &model.DailyLimits{
		Day:      clock.FormatDay(day),
		ResetsAt: s.calendar.NextReset(),
		Ads: model.AdLimits{
			WatchedToday: q.AdsWatched,
			DailyLimit:   st.DailyAdLimit,
			Remaining:    remaining(st.DailyAdLimit, q.AdsWatched),
			RewardAmount: st.AdRewardAmount,
		},
		Spins: model.SpinLimits{
			UsedToday:  q.SpinsUsed,
			DailyLimit: st.DailySpinLimit,
			Remaining:  remaining(st.DailySpinLimit, q.SpinsUsed),
			MinReward:  st.SpinMinReward,
			MaxReward:  st.SpinMaxReward,
		},
	}, nil
}

// remaining never goes below zero, even after an admin lowers a limit mid-day.
func remaining(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}
