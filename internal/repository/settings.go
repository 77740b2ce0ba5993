package repository

import (
	"context"
	"fmt"

	"github.com/earnhub/backend/internal/model"
)

func (r *Repository) ListSettings(ctx context.Context) ([]model.Setting, error) {
	settings := []model.Setting{}
	err := r.db.SelectContext(ctx, &settings, "SELECT key, value, description, updated_at FROM settings ORDER BY key")
	return settings, err
}

// UpsertSettings locks the settings rows, hands them to validate, and writes
// settings in the same transaction.
func (r *Repository) UpsertSettings(ctx context.Context, settings []model.Setting, validate func(current []model.Setting) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// A table lock also covers keys that have no row yet.
	if _, err := tx.ExecContext(ctx, "LOCK TABLE settings IN SHARE ROW EXCLUSIVE MODE"); err != nil {
		return fmt.Errorf("failed to lock settings: %w", err)
	}
	if validate != nil {
		current := []model.Setting{}
		err := tx.SelectContext(ctx, &current, "SELECT key, value, description, updated_at FROM settings ORDER BY key")
		if err != nil {
			return err
		}
		if err := validate(current); err != nil {
			return err
		}
	}

	for _, s := range settings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO settings (key, value, description, updated_at) VALUES ($1, $2, $3, NOW())
			ON CONFLICT (key) DO UPDATE SET
				value = EXCLUDED.value,
				description = COALESCE(EXCLUDED.description, settings.description),
				updated_at = NOW()`,
			s.Key, s.Value, s.Description)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}
