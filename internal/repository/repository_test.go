package repository_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"github.com/earnhub/backend/internal/clock"
	"github.com/earnhub/backend/internal/model"
	"github.com/earnhub/backend/internal/repository"
	"github.com/earnhub/backend/internal/service"
	"github.com/earnhub/backend/internal/ton"
)

// openTestDB connects to TEST_DATABASE_URL, a disposable Postgres database.
func openTestDB(t *testing.T) *repository.Repository {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, repository.Migrate(dsn))

	repo, err := repository.New(dsn, repository.Options{MaxOpenConns: 10})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

// testUserID keeps runs against the same database from colliding.
func testUserID() int64 {
	return time.Now().UnixNano() / 1000
}

func TestUpsertUser(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()
	id := testUserID()

	name := "first"
	u := &model.User{ID: id, FirstName: &name}
	created, err := repo.UpsertUser(ctx, u)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, u.Balance.IsZero())

	name = "renamed"
	created, err = repo.UpsertUser(ctx, &model.User{ID: id, FirstName: &name})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := repo.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "renamed", *got.FirstName)

	_, err = repo.GetUser(ctx, -id)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = repo.InUserTx(ctx, -id, func(repository.UserTx) error { return nil })
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLedgerAgainstPostgres(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()
	log := zaptest.NewLogger(t)
	cal := clock.NewCalendar(clock.System{}, time.UTC)

	settings := service.NewSettingsService(repo, log)
	ledger := service.NewLedgerService(repo, settings, cal, log)
	quota := service.NewQuotaService(repo, settings, cal)
	withdrawals := service.NewWithdrawalService(repo, ledger, cal, ton.Mainnet, log)

	id := testUserID()
	_, _, err := service.NewUserService(repo).GetOrCreateUser(ctx, service.TelegramUser{ID: id})
	require.NoError(t, err)

	st, err := settings.Current(ctx)
	require.NoError(t, err)

	var g errgroup.Group
	allowed := make(chan bool, 3*st.DailyAdLimit)
	for i := 0; i < cap(allowed); i++ {
		g.Go(func() error {
			c, err := quota.TryConsume(ctx, id, model.QuotaKindAd)
			allowed <- c.Allowed
			return err
		})
		g.Go(func() error {
			_, err := ledger.Credit(ctx, id, model.EarningTypeAd, st.MinWithdrawalAmount, "integration", nil)
			return err
		})
	}
	require.NoError(t, g.Wait())
	close(allowed)

	granted := 0
	for ok := range allowed {
		if ok {
			granted++
		}
	}
	assert.Equal(t, st.DailyAdLimit, granted)

	w, err := withdrawals.Request(ctx, id, service.WithdrawalRequest{
		Amount:      st.MinWithdrawalAmount,
		Method:      model.PaymentMethodBkash,
		Destination: "01712345678",
	})
	require.NoError(t, err)
	_, err = withdrawals.Cancel(ctx, id, w.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, ledger.ReleaseHold(ctx, w.ID), service.ErrAlreadyResolved)

	rec, err := ledger.Reconcile(ctx, id)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
	assert.True(t, rec.CachedBalance.Equal(st.MinWithdrawalAmount.Mul(decimal.NewFromInt(int64(cap(allowed))))))
}

func TestAdminLogDetails(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()
	id := testUserID()

	require.NoError(t, repo.CreateAdminLog(ctx, &model.AdminLog{AdminID: id, Action: "no_details"}))
	require.NoError(t, repo.CreateAdminLog(ctx, &model.AdminLog{
		AdminID: id,
		Action:  "with_details",
		Details: json.RawMessage(`{"key":"value"}`),
	}))

	logs, total, err := repo.ListAdminLogs(ctx, 50, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, 2)

	found := map[string]json.RawMessage{}
	for _, l := range logs {
		if l.AdminID == id {
			found[l.Action] = l.Details
		}
	}
	require.Len(t, found, 2)
	assert.Empty(t, found["no_details"])
	assert.JSONEq(t, `{"key":"value"}`, string(found["with_details"]))
}
