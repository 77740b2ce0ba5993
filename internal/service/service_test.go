package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/earnhub/backend/internal/clock"
	"github.com/earnhub/backend/internal/model"
	"github.com/earnhub/backend/internal/repository/memory"
	"github.com/earnhub/backend/internal/ton"
)

const adminID int64 = 900

type fixture struct {
	ctx         context.Context
	store       *memory.Store
	clock       *clock.Manual
	calendar    *clock.Calendar
	settings    *SettingsService
	admin       *AdminService
	users       *UserService
	ledger      *LedgerService
	quota       *QuotaService
	offers      *OfferService
	earnings    *EarningService
	withdrawals *WithdrawalService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureIn(t, time.UTC)
}

func newFixtureIn(t *testing.T, loc *time.Location) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)

	c := clock.NewManual(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	cal := clock.NewCalendar(c, loc)
	store := memory.New(c)

	f := &fixture{ctx: context.Background(), store: store, clock: c, calendar: cal}
	f.settings = NewSettingsService(store, log)
	f.admin = NewAdminService(store, cal, log)
	f.users = NewUserService(store)
	f.ledger = NewLedgerService(store, f.settings, cal, log)
	f.quota = NewQuotaService(store, f.settings, cal)
	f.offers = NewOfferService(store, cal, log)
	f.earnings = NewEarningService(store, f.ledger, f.quota, f.offers, f.settings, log)
	f.withdrawals = NewWithdrawalService(store, f.ledger, cal, ton.Mainnet, log)

	f.settings.SetAdminService(f.admin)
	f.offers.SetAdminService(f.admin)
	f.withdrawals.SetAdminService(f.admin)

	require.NoError(t, f.admin.EnsureAdmins(f.ctx, []int64{adminID}))
	return f
}

func (f *fixture) newUser(t *testing.T, id int64) *model.User {
	t.Helper()
	name := "user"
	u, _, err := f.users.GetOrCreateUser(f.ctx, TelegramUser{ID: id, FirstName: &name})
	require.NoError(t, err)
	return u
}

func (f *fixture) set(t *testing.T, changes map[string]string) {
	t.Helper()
	_, err := f.settings.Update(f.ctx, adminID, changes)
	require.NoError(t, err)
}

func (f *fixture) fund(t *testing.T, userID int64, amount string) {
	t.Helper()
	_, err := f.ledger.Credit(f.ctx, userID, model.EarningTypeAd, dec(amount), "test funding", nil)
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, userID int64) decimal.Decimal {
	t.Helper()
	b, err := f.ledger.BalanceOf(f.ctx, userID)
	require.NoError(t, err)
	return b
}

func (f *fixture) requireBalance(t *testing.T, userID int64, want string) {
	t.Helper()
	got := f.balance(t, userID)
	require.Truef(t, got.Equal(dec(want)), "balance = %s, want %s", got, want)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
