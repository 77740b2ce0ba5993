package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/earnhub/backend/internal/model"
)

func (r *Repository) GetWithdrawal(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error) {
	var w model.Withdrawal
	err := r.db.GetContext(ctx, &w, `SELECT * FROM withdrawals WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("withdrawal %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &w, nil
}

// ListWithdrawals returns a filtered page, newest first, joined with the owner's name.
func (r *Repository) ListWithdrawals(ctx context.Context, filter model.WithdrawalFilter, limit, offset int) ([]model.WithdrawalWithUser, int, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conds = append(conds, fmt.Sprintf("w.user_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("w.status = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM withdrawals w "+where, args...); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT w.*, u.username, u.first_name
		FROM withdrawals w
		JOIN users u ON u.id = w.user_id
		%s
		ORDER BY w.requested_at DESC, w.id
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	withdrawals := []model.WithdrawalWithUser{}
	err := r.db.SelectContext(ctx, &withdrawals, query, args...)
	return withdrawals, total, err
}

func (r *Repository) WithdrawalSummary(ctx context.Context) (model.WithdrawalSummary, error) {
	var s model.WithdrawalSummary
	err := r.db.QueryRowxContext(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0),
			COUNT(*) FILTER (WHERE status = 'approved')
		FROM withdrawals`).Scan(&s.TotalWithdrawn, &s.PendingRequests, &s.PendingAmount, &s.ApprovedRequests)
	return s, err
}
