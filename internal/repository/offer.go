package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/earnhub/backend/internal/model"
)

// ListOffers hides soft-deleted offers; activeOnly also hides inactive ones.
func (r *Repository) ListOffers(ctx context.Context, activeOnly bool) ([]model.Offer, error) {
	query := `SELECT * FROM cpa_offers WHERE deleted_at IS NULL`
	if activeOnly {
		query += ` AND is_active = true`
	}
	query += ` ORDER BY created_at DESC`

	offers := []model.Offer{}
	err := r.db.SelectContext(ctx, &offers, query)
	return offers, err
}

func (r *Repository) GetOffer(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	var offer model.Offer
	err := r.db.GetContext(ctx, &offer, `SELECT * FROM cpa_offers WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("offer %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &offer, nil
}

func (r *Repository) CreateOffer(ctx context.Context, o *model.Offer) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cpa_offers (id, title, description, link, reward_amount, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.Title, o.Description, o.Link, o.RewardAmount, o.IsActive, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *Repository) UpdateOffer(ctx context.Context, o *model.Offer) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE cpa_offers SET
			title = $2,
			description = $3,
			link = $4,
			reward_amount = $5,
			is_active = $6,
			updated_at = $7,
			deleted_at = $8
		WHERE id = $1`,
		o.ID, o.Title, o.Description, o.Link, o.RewardAmount, o.IsActive, o.UpdatedAt, o.DeletedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("offer %s: %w", o.ID, ErrNotFound)
	}
	return nil
}
