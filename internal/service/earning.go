package service

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/earnhub/backend/internal/model"
	"github.com/earnhub/backend/internal/repository"
)

// RandFunc returns a uniform integer in [0, n).
type RandFunc func(n int64) int64

// EarningService runs the earning actions. Quota consumption and the credit
// commit in one user transaction, so a failed credit never burns quota.
type EarningService struct {
	store    Store
	ledger   *LedgerService
	quota    *QuotaService
	offers   *OfferService
	settings *SettingsService
	rand     RandFunc
	log      *zap.Logger
}

func NewEarningService(store Store, ledger *LedgerService, quota *QuotaService, offers *OfferService, settings *SettingsService, log *zap.Logger) *EarningService {
	return &EarningService{
		store:    store,
		ledger:   ledger,
		quota:    quota,
		offers:   offers,
		settings: settings,
		rand:     rand.Int63n,
		log:      log,
	}
}

// SetRand replaces the spin reward source.
func (s *EarningService) SetRand(fn RandFunc) {
	s.rand = fn
}

type EarnResult struct {
	Earning   *model.Earning
	Balance   decimal.Decimal
	Remaining int
}

func (s *EarningService) WatchAd(ctx context.Context, userID int64) (*EarnResult, error) {
	st, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.earnWithQuota(ctx, userID, model.QuotaKindAd, st, func() (decimal.Decimal, string, error) {
		if !st.AdRewardAmount.IsPositive() {
			return decimal.Zero, "", fmt.Errorf("%w: ad reward is not configured", ErrValidation)
		}
		return st.AdRewardAmount, "Watched an ad", nil
	})
}

func (s *EarningService) SpinWheel(ctx context.Context, userID int64) (*EarnResult, error) {
	st, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.earnWithQuota(ctx, userID, model.QuotaKindSpin, st, func() (decimal.Decimal, string, error) {
		reward, err := s.drawSpinReward(st)
		if err != nil {
			return decimal.Zero, "", err
		}
		return reward, "Spin wheel reward", nil
	})
}

func (s *EarningService) earnWithQuota(ctx context.Context, userID int64, kind model.QuotaKind, st model.Settings, reward func() (decimal.Decimal, string, error)) (*EarnResult, error) {
	var res EarnResult
	err := s.store.InUserTx(ctx, userID, func(tx repository.UserTx) error {
		c, err := s.quota.tryConsumeTx(tx, kind, st)
		if err != nil {
			return err
		}
		if !c.Allowed {
			return fmt.Errorf("%w: daily %s limit of %d reached", ErrQuotaExceeded, kind, c.Limit)
		}

		// The reward is decided only after the quota check passed.
		amount, desc, err := reward()
		if err != nil {
			return err
		}
		res.Earning, err = s.ledger.creditTx(tx, model.EarningType(kind), amount, desc, nil)
		if err != nil {
			return err
		}
		res.Balance = tx.User().Balance
		res.Remaining = c.Remaining
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("earned",
		zap.Int64("user_id", userID),
		zap.String("kind", string(kind)),
		zap.String("amount", res.Earning.Amount.String()))
	return &res, nil
}

// CompleteOffer pays an active offer's reward once per user.
func (s *EarningService) CompleteOffer(ctx context.Context, userID int64, offerID uuid.UUID) (*EarnResult, error) {
	offer, err := s.offers.Available(ctx, offerID)
	if err != nil {
		return nil, err
	}

	var res EarnResult
	err = s.store.InUserTx(ctx, userID, func(tx repository.UserTx) error {
		done, err := tx.HasEarningReference(model.EarningTypeCPA, offer.ID)
		if err != nil {
			return err
		}
		if done {
			return fmt.Errorf("%w: offer already completed", ErrInvalidOffer)
		}

		res.Earning, err = s.ledger.creditTx(tx, model.EarningTypeCPA, offer.RewardAmount, "Completed offer: "+offer.Title, &offer.ID)
		if err != nil {
			return err
		}
		res.Balance = tx.User().Balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// drawSpinReward picks a whole number of cents uniformly from
// [spin_min_reward, spin_max_reward]. The lower bound is lifted to one cent
// because a credit must be positive.
func (s *EarningService) drawSpinReward(st model.Settings) (decimal.Decimal, error) {
	lo := st.SpinMinReward.Shift(model.MoneyPlaces).IntPart()
	hi := st.SpinMaxReward.Shift(model.MoneyPlaces).IntPart()
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		return decimal.Zero, fmt.Errorf("%w: spin rewards are not configured", ErrValidation)
	}
	cents := lo + s.rand(hi-lo+1)
	return decimal.New(cents, -model.MoneyPlaces), nil
}
