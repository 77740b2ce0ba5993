package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/earnhub/backend/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("concurrent update conflict")
)

// UserTx is a transaction scoped to one locked user row. Everything that
// touches a balance or a quota counter goes through it.
type UserTx interface {
	User() *model.User
	SetBalance(balance decimal.Decimal) error

	InsertEarning(e *model.Earning) error
	HasEarningReference(typ model.EarningType, referenceID uuid.UUID) (bool, error)
	InsertBalanceTransaction(t *model.BalanceTransaction) error

	// GetQuota returns a zero counter when the day has no row yet.
	GetQuota(day time.Time) (*model.QuotaCounter, error)
	SaveQuota(q *model.QuotaCounter) error

	InsertWithdrawal(w *model.Withdrawal) error
	// GetWithdrawal only finds withdrawals owned by the locked user.
	GetWithdrawal(id uuid.UUID) (*model.Withdrawal, error)
	UpdateWithdrawal(w *model.Withdrawal) error

	// Replay sums earnings and the withdrawals whose funds are still held or finalized.
	Replay() (earned, held decimal.Decimal, err error)
}

type Repository struct {
	db *sqlx.DB
}

type Options struct {
	MaxOpenConns int
	MaxIdleConns int
}

func New(dsn string, opts Options) (*Repository, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 25
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) DB() *sqlx.DB {
	return r.db
}
