package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/earnhub/backend/internal/model"
)

func (r *Repository) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

// UpsertUser creates the user or refreshes the profile fields. Balance is
// never written here.
func (r *Repository) UpsertUser(ctx context.Context, user *model.User) (bool, error) {
	query := `
		INSERT INTO users (id, username, first_name, last_name, language_code)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			language_code = EXCLUDED.language_code,
			updated_at = NOW()
		RETURNING balance, created_at, updated_at, (xmax = 0) AS inserted`

	var inserted bool
	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.LanguageCode,
	).Scan(&user.Balance, &user.CreatedAt, &user.UpdatedAt, &inserted)
	return inserted, err
}

func (r *Repository) CountUsers(ctx context.Context, since time.Time) (model.UserStats, error) {
	var stats model.UserStats
	err := r.db.GetContext(ctx, &stats.Total, `SELECT COUNT(*) FROM users`)
	if err != nil {
		return stats, err
	}
	err = r.db.GetContext(ctx, &stats.NewToday, `SELECT COUNT(*) FROM users WHERE created_at >= $1`, since)
	return stats, err
}
