package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/earnhub/backend/internal/model"
	"github.com/earnhub/backend/internal/repository"
)

type UserStore interface {
	UpsertUser(ctx context.Context, u *model.User) (created bool, err error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	CountUsers(ctx context.Context, since time.Time) (model.UserStats, error)
}

type EarningStore interface {
	ListEarnings(ctx context.Context, userID int64, limit, offset int) ([]model.Earning, int, error)
	EarningTotals(ctx context.Context, userID int64) (map[model.EarningType]model.EarningTotal, error)
	SumEarningsSince(ctx context.Context, userID int64, since time.Time) (decimal.Decimal, error)
	EarningSummary(ctx context.Context, since time.Time) (model.EarningSummary, error)
}

type QuotaStore interface {
	GetQuota(ctx context.Context, userID int64, day time.Time) (*model.QuotaCounter, error)
}

type WithdrawalStore interface {
	GetWithdrawal(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error)
	ListWithdrawals(ctx context.Context, filter model.WithdrawalFilter, limit, offset int) ([]model.WithdrawalWithUser, int, error)
	WithdrawalSummary(ctx context.Context) (model.WithdrawalSummary, error)
}

type SettingStore interface {
	ListSettings(ctx context.Context) ([]model.Setting, error)
	// UpsertSettings writes all rows or none. validate sees the stored rows
	// as read under the write lock; an error from it aborts the write.
	UpsertSettings(ctx context.Context, settings []model.Setting, validate func(current []model.Setting) error) error
}

type OfferStore interface {
	ListOffers(ctx context.Context, activeOnly bool) ([]model.Offer, error)
	GetOffer(ctx context.Context, id uuid.UUID) (*model.Offer, error)
	CreateOffer(ctx context.Context, o *model.Offer) error
	UpdateOffer(ctx context.Context, o *model.Offer) error
}

type AdminStore interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	CreateAdmin(ctx context.Context, a *model.Admin) error
	CreateAdminLog(ctx context.Context, l *model.AdminLog) error
	ListAdminLogs(ctx context.Context, limit, offset int) ([]model.AdminLog, int, error)
}

// Store is implemented by repository.Repository (Postgres) and memory.Store.
type Store interface {
	// InUserTx runs fn with userID's row locked. fn's writes commit together
	// or not at all. A missing user yields ErrNotFound.
	InUserTx(ctx context.Context, userID int64, fn func(tx repository.UserTx) error) error
	Ping(ctx context.Context) error

	UserStore
	EarningStore
	QuotaStore
	WithdrawalStore
	SettingStore
	OfferStore
	AdminStore
}
