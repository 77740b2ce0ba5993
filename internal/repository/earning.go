package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/earnhub/backend/internal/model"
)

// ListEarnings returns a page of a user's earnings, newest first, and the total count.
func (r *Repository) ListEarnings(ctx context.Context, userID int64, limit, offset int) ([]model.Earning, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM earnings WHERE user_id = $1`, userID); err != nil {
		return nil, 0, err
	}

	earnings := []model.Earning{}
	err := r.db.SelectContext(ctx, &earnings, `
		SELECT * FROM earnings
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	return earnings, total, err
}

func (r *Repository) EarningTotals(ctx context.Context, userID int64) (map[model.EarningType]model.EarningTotal, error) {
	var rows []struct {
		Type model.EarningType `db:"type"`
		model.EarningTotal
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT type, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total
		FROM earnings
		WHERE user_id = $1
		GROUP BY type`, userID)
	if err != nil {
		return nil, err
	}

	totals := make(map[model.EarningType]model.EarningTotal, len(rows))
	for _, row := range rows {
		totals[row.Type] = row.EarningTotal
	}
	return totals, nil
}

func (r *Repository) SumEarningsSince(ctx context.Context, userID int64, since time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0) FROM earnings
		WHERE user_id = $1 AND created_at >= $2`, userID, since)
	return sum, err
}

func (r *Repository) EarningSummary(ctx context.Context, since time.Time) (model.EarningSummary, error) {
	var s model.EarningSummary
	err := r.db.QueryRowxContext(ctx, `
		SELECT
			COALESCE(SUM(amount), 0),
			COALESCE(SUM(amount) FILTER (WHERE created_at >= $1), 0),
			COUNT(*)
		FROM earnings`, since).Scan(&s.Total, &s.Today, &s.Count)
	return s, err
}
