package service

import (
	"strconv"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/earnhub/backend/internal/model"
)

func TestConcurrentTryConsumeNeverExceedsLimit(t *testing.T) {
	for _, tc := range []struct{ limit, callers int }{{5, 20}, {10, 10}, {8, 3}} {
		f := newFixture(t)
		f.newUser(t, 1)
		f.set(t, map[string]string{model.SettingDailyAdLimit: strconv.Itoa(tc.limit)})

		var allowed atomic.Int32
		var g errgroup.Group
		for i := 0; i < tc.callers; i++ {
			g.Go(func() error {
				c, err := f.quota.TryConsume(f.ctx, 1, model.QuotaKindAd)
				if err != nil {
					return err
				}
				if c.Allowed {
					allowed.Add(1)
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())

		want := min(tc.limit, tc.callers)
		assert.Equal(t, int32(want), allowed.Load(), "limit %d, callers %d", tc.limit, tc.callers)

		remaining, err := f.quota.Remaining(f.ctx, 1, model.QuotaKindAd)
		require.NoError(t, err)
		assert.Equal(t, tc.limit-want, remaining)
	}
}

func TestDeniedConsumeChangesNothing(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, 1)
	f.set(t, map[string]string{model.SettingDailySpinLimit: "1"})

	c, err := f.quota.TryConsume(f.ctx, 1, model.QuotaKindSpin)
	require.NoError(t, err)
	assert.Equal(t, Consumption{Allowed: true, Used: 1, Remaining: 0, Limit: 1}, c)

	c, err = f.quota.TryConsume(f.ctx, 1, model.QuotaKindSpin)
	require.NoError(t, err)
	assert.False(t, c.Allowed)
	assert.Equal(t, 1, c.Used)

	limits, err := f.quota.Limits(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, limits.Spins.UsedToday)
	assert.Equal(t, 0, limits.Ads.WatchedToday, "kinds are counted separately")

	_, err = f.quota.TryConsume(f.ctx, 1, model.QuotaKind("cpa"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestQuotaDayFollowsConfiguredZone(t *testing.T) {
	dhaka, err := time.LoadLocation("Asia/Dhaka")
	require.NoError(t, err)

	f := newFixtureIn(t, dhaka)
	f.newUser(t, 1)
	f.set(t, map[string]string{model.SettingDailyAdLimit: "1"})

	// 17:30 UTC is 23:30 in Dhaka (UTC+6).
	f.clock.Set(time.Date(2024, 3, 10, 17, 30, 0, 0, time.UTC))
	c, err := f.quota.TryConsume(f.ctx, 1, model.QuotaKindAd)
	require.NoError(t, err)
	require.True(t, c.Allowed)

	limits, err := f.quota.Limits(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", limits.Day)
	assert.Equal(t, time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC), limits.ResetsAt.UTC())

	// 18:30 UTC is already the next day in Dhaka, while still the same UTC day.
	f.clock.Set(time.Date(2024, 3, 10, 18, 30, 0, 0, time.UTC))
	c, err = f.quota.TryConsume(f.ctx, 1, model.QuotaKindAd)
	require.NoError(t, err)
	assert.True(t, c.Allowed)
}

func TestLoweredLimitNeverGoesNegative(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, 1)

	for i := 0; i < 3; i++ {
		_, err := f.quota.TryConsume(f.ctx, 1, model.QuotaKindAd)
		require.NoError(t, err)
	}
	f.set(t, map[string]string{model.SettingDailyAdLimit: "2"})

	remaining, err := f.quota.Remaining(f.ctx, 1, model.QuotaKindAd)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	c, err := f.quota.TryConsume(f.ctx, 1, model.QuotaKindAd)
	require.NoError(t, err)
	assert.False(t, c.Allowed)
	assert.Equal(t, 0, c.Remaining)
}
