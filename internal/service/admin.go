package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/earnhub/backend/internal/clock"
	"github.com/earnhub/backend/internal/model"
)

type AdminService struct {
	store    Store
	calendar *clock.Calendar
	log      *zap.Logger
}

func NewAdminService(store Store, calendar *clock.Calendar, log *zap.Logger) *AdminService {
	return &AdminService{store: store, calendar: calendar, log: log}
}

// IsAdmin checks if user is an admin
func (s *AdminService) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	return s.store.IsAdmin(ctx, userID)
}

// EnsureAdmins grants admin rights to the configured ids. Existing admins are left alone.
func (s *AdminService) EnsureAdmins(ctx context.Context, userIDs []int64) error {
	for _, id := range userIDs {
		if err := s.store.CreateAdmin(ctx, &model.Admin{UserID: id, Role: model.AdminRoleSuperAdmin}); err != nil {
			return err
		}
	}
	return nil
}

// LogAction records an admin action. Failures are logged, never returned:
// the action itself has already been committed.
func (s *AdminService) LogAction(ctx context.Context, adminID int64, action string, targetUserID *int64, details interface{}) {
	var detailsJSON []byte
	if details != nil {
		var err error
		detailsJSON, err = json.Marshal(details)
		if err != nil {
			s.log.Warn("failed to encode admin log details", zap.String("action", action), zap.Error(err))
			detailsJSON = nil
		}
	}

	err := s.store.CreateAdminLog(ctx, &model.AdminLog{
		AdminID:      adminID,
		Action:       action,
		TargetUserID: targetUserID,
		Details:      detailsJSON,
	})
	if err != nil {
		s.log.Warn("failed to write admin log", zap.Int64("admin_id", adminID), zap.String("action", action), zap.Error(err))
	}
}

func (s *AdminService) ListLogs(ctx context.Context, page model.Page) ([]model.AdminLog, model.Pagination, error) {
	logs, total, err := s.store.ListAdminLogs(ctx, page.Limit(), page.Offset())
	if err != nil {
		return nil, model.Pagination{}, err
	}
	return logs, page.Paginate(total), nil
}

// GetStats returns dashboard totals. The three aggregates are independent
// queries and run concurrently.
func (s *AdminService) GetStats(ctx context.Context) (*model.Stats, error) {
	since := s.calendar.StartOfToday()
	stats := &model.Stats{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		users, err := s.store.CountUsers(gctx, since)
		stats.Users = users
		return err
	})
	g.Go(func() error {
		earnings, err := s.store.EarningSummary(gctx, since)
		stats.Earnings = earnings
		return err
	})
	g.Go(func() error {
		withdrawals, err := s.store.WithdrawalSummary(gctx)
		stats.Withdrawals = withdrawals
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}
