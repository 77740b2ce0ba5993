package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/earnhub/backend/internal/model"
)

// GetQuota reads a counter without locking; a missing row is a zero counter.
func (r *Repository) GetQuota(ctx context.Context, userID int64, day time.Time) (*model.QuotaCounter, error) {
	var q model.QuotaCounter
	err := r.db.GetContext(ctx, &q, `
		SELECT * FROM quota_counters WHERE user_id = $1 AND day = $2`, userID, day)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.QuotaCounter{UserID: userID, Day: day}, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}
