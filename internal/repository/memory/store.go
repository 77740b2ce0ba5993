// Package memory is an in-process Store used by tests and by the server when
// DB_DRIVER=memory.
// Per-user mutexes stand in for SELECT ... FOR UPDATE; writes staged inside a
// transaction become visible only when it commits.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/earnhub/backend/internal/clock"
	"github.com/earnhub/backend/internal/model"
	"github.com/earnhub/backend/internal/repository"
)

type quotaKey struct {
	userID int64
	day    string
}

type Store struct {
	clock clock.Clock
	locks sync.Map // user id -> *sync.Mutex

	mu          sync.RWMutex
	users       map[int64]model.User
	earnings    []model.Earning
	journal     []model.BalanceTransaction
	quotas      map[quotaKey]model.QuotaCounter
	withdrawals map[uuid.UUID]model.Withdrawal
	settings    map[string]model.Setting
	offers      map[uuid.UUID]model.Offer
	admins      map[int64]model.Admin
	logs        []model.AdminLog
}

// New returns an empty store seeded with the default settings. A nil clock
// means wall time.
func New(c clock.Clock) *Store {
	if c == nil {
		c = clock.System{}
	}
	s := &Store{
		clock:       c,
		users:       make(map[int64]model.User),
		quotas:      make(map[quotaKey]model.QuotaCounter),
		withdrawals: make(map[uuid.UUID]model.Withdrawal),
		settings:    make(map[string]model.Setting),
		offers:      make(map[uuid.UUID]model.Offer),
		admins:      make(map[int64]model.Admin),
	}
	now := c.Now()
	for _, def := range model.SettingDefs {
		desc := def.Description
		s.settings[def.Key] = model.Setting{Key: def.Key, Value: def.Default, Description: &desc, UpdatedAt: now}
	}
	return s
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) userLock(userID int64) *sync.Mutex {
	l, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	return l.(*sync.Mutex)
}

func (s *Store) InUserTx(ctx context.Context, userID int64, fn func(tx repository.UserTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	user, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("user %d: %w", userID, repository.ErrNotFound)
	}

	tx := &userTx{
		store:       s,
		user:        user,
		quotas:      make(map[string]model.QuotaCounter),
		withdrawals: make(map[uuid.UUID]model.Withdrawal),
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.commit(tx)
	return nil
}

func (s *Store) commit(tx *userTx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.balanceSet {
		u := s.users[tx.user.ID]
		u.Balance = tx.user.Balance
		u.UpdatedAt = tx.user.UpdatedAt
		s.users[u.ID] = u
	}
	s.earnings = append(s.earnings, tx.earnings...)
	s.journal = append(s.journal, tx.journal...)
	for day, q := range tx.quotas {
		s.quotas[quotaKey{userID: tx.user.ID, day: day}] = q
	}
	for id, w := range tx.withdrawals {
		s.withdrawals[id] = w
	}
}

// Journal returns a copy of every balance transaction; tests use it to audit mutations.
func (s *Store) Journal(userID int64) []model.BalanceTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.BalanceTransaction
	for _, t := range s.journal {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

type userTx struct {
	store      *Store
	user       model.User
	balanceSet bool

	earnings    []model.Earning
	journal     []model.BalanceTransaction
	quotas      map[string]model.QuotaCounter
	withdrawals map[uuid.UUID]model.Withdrawal
}

func (t *userTx) User() *model.User {
	return &t.user
}

func (t *userTx) SetBalance(balance decimal.Decimal) error {
	if balance.IsNegative() {
		return fmt.Errorf("balance of user %d would become negative", t.user.ID)
	}
	t.user.Balance = balance
	t.user.UpdatedAt = t.store.clock.Now()
	t.balanceSet = true
	return nil
}

func (t *userTx) InsertEarning(e *model.Earning) error {
	t.earnings = append(t.earnings, *e)
	return nil
}

func (t *userTx) HasEarningReference(typ model.EarningType, referenceID uuid.UUID) (bool, error) {
	match := func(e model.Earning) bool {
		return e.UserID == t.user.ID && e.Type == typ && e.ReferenceID != nil && *e.ReferenceID == referenceID
	}
	for _, e := range t.earnings {
		if match(e) {
			return true, nil
		}
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	for _, e := range t.store.earnings {
		if match(e) {
			return true, nil
		}
	}
	return false, nil
}

func (t *userTx) InsertBalanceTransaction(bt *model.BalanceTransaction) error {
	t.journal = append(t.journal, *bt)
	return nil
}

func (t *userTx) GetQuota(day time.Time) (*model.QuotaCounter, error) {
	key := clock.FormatDay(day)
	if q, ok := t.quotas[key]; ok {
		return &q, nil
	}

	t.store.mu.RLock()
	q, ok := t.store.quotas[quotaKey{userID: t.user.ID, day: key}]
	t.store.mu.RUnlock()
	if !ok {
		q = model.QuotaCounter{UserID: t.user.ID, Day: day}
	}
	return &q, nil
}

func (t *userTx) SaveQuota(q *model.QuotaCounter) error {
	t.quotas[clock.FormatDay(q.Day)] = *q
	return nil
}

func (t *userTx) InsertWithdrawal(w *model.Withdrawal) error {
	if _, err := t.GetWithdrawal(w.ID); err == nil {
		return fmt.Errorf("withdrawal %s already exists", w.ID)
	}
	t.withdrawals[w.ID] = *w
	return nil
}

func (t *userTx) GetWithdrawal(id uuid.UUID) (*model.Withdrawal, error) {
	if w, ok := t.withdrawals[id]; ok {
		return &w, nil
	}

	t.store.mu.RLock()
	w, ok := t.store.withdrawals[id]
	t.store.mu.RUnlock()
	if !ok || w.UserID != t.user.ID {
		return nil, fmt.Errorf("withdrawal %s: %w", id, repository.ErrNotFound)
	}
	return &w, nil
}

func (t *userTx) UpdateWithdrawal(w *model.Withdrawal) error {
	if _, err := t.GetWithdrawal(w.ID); err != nil {
		return err
	}
	t.withdrawals[w.ID] = *w
	return nil
}

func (t *userTx) Replay() (decimal.Decimal, decimal.Decimal, error) {
	earned, held := decimal.Zero, decimal.Zero

	t.store.mu.RLock()
	for _, e := range t.store.earnings {
		if e.UserID == t.user.ID {
			earned = earned.Add(e.Amount)
		}
	}
	withdrawals := make(map[uuid.UUID]model.Withdrawal)
	for id, w := range t.store.withdrawals {
		if w.UserID == t.user.ID {
			withdrawals[id] = w
		}
	}
	t.store.mu.RUnlock()

	for _, e := range t.earnings {
		earned = earned.Add(e.Amount)
	}
	for id, w := range t.withdrawals {
		withdrawals[id] = w
	}
	for _, w := range withdrawals {
		if w.HoldState != model.HoldStateReleased {
			held = held.Add(w.Amount)
		}
	}
	return earned, held, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// newestFirst sorts by the timestamp returned by at, keeping insertion order
// reversed for equal timestamps.
func newestFirst[T any](items []T, at func(T) time.Time) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	sort.SliceStable(items, func(i, j int) bool {
		return at(items[i]).After(at(items[j]))
	})
}
