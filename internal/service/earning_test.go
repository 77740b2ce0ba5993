package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earnhub/backend/internal/model"
)

func TestWatchAdDailyLimitScenario(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, 1)
	f.set(t, map[string]string{
		model.SettingDailyAdLimit:   "2",
		model.SettingAdRewardAmount: "0.50",
	})

	res, err := f.earnings.WatchAd(f.ctx, 1)
	require.NoError(t, err)
	assert.True(t, res.Balance.Equal(dec("0.50")))
	assert.Equal(t, 1, res.Remaining)

	res, err = f.earnings.WatchAd(f.ctx, 1)
	require.NoError(t, err)
	assert.True(t, res.Balance.Equal(dec("1.00")))
	assert.Equal(t, 0, res.Remaining)

	_, err = f.earnings.WatchAd(f.ctx, 1)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	f.requireBalance(t, 1, "1.00")

	f.clock.Advance(24 * time.Hour)
	res, err = f.earnings.WatchAd(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Remaining, "a new day starts from zero")
}

func TestWatchAdWithoutRewardKeepsQuota(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, 1)
	f.set(t, map[string]string{model.SettingAdRewardAmount: "0"})

	_, err := f.earnings.WatchAd(f.ctx, 1)
	assert.ErrorIs(t, err, ErrValidation)

	remaining, err := f.quota.Remaining(f.ctx, 1, model.QuotaKindAd)
	require.NoError(t, err)
	assert.Equal(t, 10, remaining)
}

func TestEarningRequiresRegisteredUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.earnings.WatchAd(f.ctx, 77)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSpinRewardIsDrawnWithinBounds(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, 1)
	f.set(t, map[string]string{
		model.SettingSpinMinReward: "0.10",
		model.SettingSpinMaxReward: "2.00",
	})

	var bounds []int64
	f.earnings.SetRand(func(n int64) int64 {
		bounds = append(bounds, n)
		return n - 1
	})
	res, err := f.earnings.SpinWheel(f.ctx, 1)
	require.NoError(t, err)
	assert.True(t, res.Earning.Amount.Equal(dec("2.00")))
	assert.Equal(t, []int64{191}, bounds, "cents 10..200 inclusive")

	f.earnings.SetRand(func(n int64) int64 { return 0 })
	res, err = f.earnings.SpinWheel(f.ctx, 1)
	require.NoError(t, err)
	assert.True(t, res.Earning.Amount.Equal(dec("0.10")))
	assert.Equal(t, model.EarningTypeSpin, res.Earning.Type)
	assert.Equal(t, 3, res.Remaining)
}

func TestSpinRewardFloorIsOneCent(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, 1)
	f.set(t, map[string]string{
		model.SettingSpinMinReward: "0",
		model.SettingSpinMaxReward: "0.05",
	})
	f.earnings.SetRand(func(n int64) int64 { return 0 })

	res, err := f.earnings.SpinWheel(f.ctx, 1)
	require.NoError(t, err)
	assert.True(t, res.Earning.Amount.Equal(dec("0.01")))

	f.set(t, map[string]string{model.SettingSpinMaxReward: "0"})
	_, err = f.earnings.SpinWheel(f.ctx, 1)
	assert.ErrorIs(t, err, ErrValidation)

	limits, err := f.quota.Limits(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, limits.Spins.UsedToday, "failed spin does not burn quota")
}

func TestCompleteOfferPaysOnce(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, 1)
	f.newUser(t, 2)

	offer, err := f.offers.Create(f.ctx, adminID, OfferInput{
		Title:        "Install the app",
		Link:         "https://example.com/offer",
		RewardAmount: dec("5.00"),
	})
	require.NoError(t, err)

	res, err := f.earnings.CompleteOffer(f.ctx, 1, offer.ID)
	require.NoError(t, err)
	assert.True(t, res.Balance.Equal(dec("5.00")))
	assert.Equal(t, offer.ID, *res.Earning.ReferenceID)

	_, err = f.earnings.CompleteOffer(f.ctx, 1, offer.ID)
	assert.ErrorIs(t, err, ErrInvalidOffer)
	f.requireBalance(t, 1, "5.00")

	_, err = f.earnings.CompleteOffer(f.ctx, 2, offer.ID)
	require.NoError(t, err, "other users can still complete it")
}

func TestCompleteOfferRejectsUnavailable(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, 1)

	_, err := f.earnings.CompleteOffer(f.ctx, 1, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidOffer)

	inactive := false
	offer, err := f.offers.Create(f.ctx, adminID, OfferInput{
		Title:        "Paused",
		Link:         "https://example.com",
		RewardAmount: dec("1"),
		IsActive:     &inactive,
	})
	require.NoError(t, err)
	_, err = f.earnings.CompleteOffer(f.ctx, 1, offer.ID)
	assert.ErrorIs(t, err, ErrInvalidOffer)

	active := true
	_, err = f.offers.Update(f.ctx, adminID, offer.ID, OfferPatch{IsActive: &active})
	require.NoError(t, err)
	require.NoError(t, f.offers.Delete(f.ctx, adminID, offer.ID))
	_, err = f.earnings.CompleteOffer(f.ctx, 1, offer.ID)
	assert.ErrorIs(t, err, ErrInvalidOffer)

	f.requireBalance(t, 1, "0")
}
