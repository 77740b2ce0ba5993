package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/earnhub/backend/internal/clock"
	"github.com/earnhub/backend/internal/model"
	"github.com/earnhub/backend/internal/repository"
)

func (s *Store) UpsertUser(ctx context.Context, u *model.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	existing, ok := s.users[u.ID]
	if !ok {
		existing = model.User{ID: u.ID, Balance: decimal.Zero, CreatedAt: now}
	}
	existing.Username = u.Username
	existing.FirstName = u.FirstName
	existing.LastName = u.LastName
	existing.LanguageCode = u.LanguageCode
	existing.UpdatedAt = now
	s.users[u.ID] = existing

	*u = existing
	return !ok, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, repository.ErrNotFound)
	}
	return &u, nil
}

func (s *Store) CountUsers(ctx context.Context, since time.Time) (model.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := model.UserStats{Total: len(s.users)}
	for _, u := range s.users {
		if !u.CreatedAt.Before(since) {
			stats.NewToday++
		}
	}
	return stats, nil
}

func (s *Store) ListEarnings(ctx context.Context, userID int64, limit, offset int) ([]model.Earning, int, error) {
	s.mu.RLock()
	var mine []model.Earning
	for _, e := range s.earnings {
		if e.UserID == userID {
			mine = append(mine, e)
		}
	}
	s.mu.RUnlock()

	newestFirst(mine, func(e model.Earning) time.Time { return e.CreatedAt })
	return paginate(mine, limit, offset), len(mine), nil
}

func (s *Store) EarningTotals(ctx context.Context, userID int64) (map[model.EarningType]model.EarningTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	totals := make(map[model.EarningType]model.EarningTotal)
	for _, e := range s.earnings {
		if e.UserID != userID {
			continue
		}
		t := totals[e.Type]
		t.Count++
		t.Total = t.Total.Add(e.Amount)
		totals[e.Type] = t
	}
	return totals, nil
}

func (s *Store) SumEarningsSince(ctx context.Context, userID int64, since time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := decimal.Zero
	for _, e := range s.earnings {
		if e.UserID == userID && !e.CreatedAt.Before(since) {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

func (s *Store) EarningSummary(ctx context.Context, since time.Time) (model.EarningSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := model.EarningSummary{Total: decimal.Zero, Today: decimal.Zero}
	for _, e := range s.earnings {
		sum.Total = sum.Total.Add(e.Amount)
		sum.Count++
		if !e.CreatedAt.Before(since) {
			sum.Today = sum.Today.Add(e.Amount)
		}
	}
	return sum, nil
}

func (s *Store) GetQuota(ctx context.Context, userID int64, day time.Time) (*model.QuotaCounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotas[quotaKey{userID: userID, day: clock.FormatDay(day)}]
	if !ok {
		q = model.QuotaCounter{UserID: userID, Day: day}
	}
	return &q, nil
}

func (s *Store) GetWithdrawal(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.withdrawals[id]
	if !ok {
		return nil, fmt.Errorf("withdrawal %s: %w", id, repository.ErrNotFound)
	}
	return &w, nil
}

func (s *Store) ListWithdrawals(ctx context.Context, filter model.WithdrawalFilter, limit, offset int) ([]model.WithdrawalWithUser, int, error) {
	s.mu.RLock()
	var rows []model.WithdrawalWithUser
	for _, w := range s.withdrawals {
		if filter.UserID != nil && w.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && w.Status != *filter.Status {
			continue
		}
		u := s.users[w.UserID]
		rows = append(rows, model.WithdrawalWithUser{Withdrawal: w, Username: u.Username, FirstName: u.FirstName})
	}
	s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		return newerOrSmaller(rows[i].RequestedAt, rows[j].RequestedAt, rows[i].ID, rows[j].ID)
	})
	return paginate(rows, limit, offset), len(rows), nil
}

// newerOrSmaller orders map-backed rows by time descending, then id, so
// pages are stable across calls.
func newerOrSmaller(a, b time.Time, aID, bID uuid.UUID) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID.String() < bID.String()
}

func (s *Store) WithdrawalSummary(ctx context.Context) (model.WithdrawalSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := model.WithdrawalSummary{TotalWithdrawn: decimal.Zero, PendingAmount: decimal.Zero}
	for _, w := range s.withdrawals {
		switch w.Status {
		case model.WithdrawalStatusCompleted:
			sum.TotalWithdrawn = sum.TotalWithdrawn.Add(w.Amount)
		case model.WithdrawalStatusPending:
			sum.PendingRequests++
			sum.PendingAmount = sum.PendingAmount.Add(w.Amount)
		case model.WithdrawalStatusApproved:
			sum.ApprovedRequests++
		}
	}
	return sum, nil
}

func (s *Store) ListSettings(ctx context.Context) ([]model.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Setting, 0, len(s.settings))
	for _, def := range model.SettingDefs {
		if st, ok := s.settings[def.Key]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *Store) UpsertSettings(ctx context.Context, settings []model.Setting, validate func(current []model.Setting) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if validate != nil {
		current := make([]model.Setting, 0, len(s.settings))
		for _, def := range model.SettingDefs {
			if st, ok := s.settings[def.Key]; ok {
				current = append(current, st)
			}
		}
		if err := validate(current); err != nil {
			return err
		}
	}
	now := s.clock.Now()
	for _, st := range settings {
		if st.Description == nil {
			st.Description = s.settings[st.Key].Description
		}
		st.UpdatedAt = now
		s.settings[st.Key] = st
	}
	return nil
}

func (s *Store) ListOffers(ctx context.Context, activeOnly bool) ([]model.Offer, error) {
	s.mu.RLock()
	var out []model.Offer
	for _, o := range s.offers {
		if o.DeletedAt != nil || (activeOnly && !o.IsActive) {
			continue
		}
		out = append(out, o)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return newerOrSmaller(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	if out == nil {
		out = []model.Offer{}
	}
	return out, nil
}

func (s *Store) GetOffer(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.offers[id]
	if !ok {
		return nil, fmt.Errorf("offer %s: %w", id, repository.ErrNotFound)
	}
	return &o, nil
}

func (s *Store) CreateOffer(ctx context.Context, o *model.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.offers[o.ID]; ok {
		return fmt.Errorf("offer %s already exists", o.ID)
	}
	s.offers[o.ID] = *o
	return nil
}

func (s *Store) UpdateOffer(ctx context.Context, o *model.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.offers[o.ID]; !ok {
		return fmt.Errorf("offer %s: %w", o.ID, repository.ErrNotFound)
	}
	s.offers[o.ID] = *o
	return nil
}

func (s *Store) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.admins[userID]
	return ok, nil
}

func (s *Store) CreateAdmin(ctx context.Context, a *model.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[a.UserID]; ok {
		return nil
	}
	a.ID = uuid.New()
	a.CreatedAt = s.clock.Now()
	if a.Role == "" {
		a.Role = model.AdminRoleAdmin
	}
	s.admins[a.UserID] = *a
	return nil
}

func (s *Store) CreateAdminLog(ctx context.Context, l *model.AdminLog) error {
	if len(l.Details) > 0 && !json.Valid(l.Details) {
		return fmt.Errorf("admin log details are not valid JSON")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = uuid.New()
	l.CreatedAt = s.clock.Now()
	s.logs = append(s.logs, *l)
	return nil
}

func (s *Store) ListAdminLogs(ctx context.Context, limit, offset int) ([]model.AdminLog, int, error) {
	s.mu.RLock()
	logs := append([]model.AdminLog(nil), s.logs...)
	s.mu.RUnlock()

	newestFirst(logs, func(l model.AdminLog) time.Time { return l.CreatedAt })
	return paginate(logs, limit, offset), len(logs), nil
}
