package repository

import (
	"context"

	"github.com/earnhub/backend/internal/model"
)

// IsAdmin checks if a user is an admin
func (r *Repository) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM admins WHERE user_id = $1`, userID)
	return count > 0, err
}

// CreateAdmin is a no-op for an existing admin
func (r *Repository) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admins (user_id, role, created_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING`,
		admin.UserID, admin.Role, admin.CreatedBy)
	return err
}

// CreateAdminLog creates an admin action log entry
func (r *Repository) CreateAdminLog(ctx context.Context, log *model.AdminLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_logs (admin_id, action, target_user_id, details)
		VALUES ($1, $2, $3, $4)`,
		log.AdminID, log.Action, log.TargetUserID, log.Details)
	return err
}

// ListAdminLogs retrieves admin action logs, newest first
func (r *Repository) ListAdminLogs(ctx context.Context, limit, offset int) ([]model.AdminLog, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM admin_logs`); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryxContext(ctx, `
		SELECT id, admin_id, action, target_user_id, details, created_at
		FROM admin_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := []model.AdminLog{}
	for rows.Next() {
		var l model.AdminLog
		// details is JSONB and may be NULL; scan it as raw bytes.
		if err := rows.Scan(&l.ID, &l.AdminID, &l.Action, &l.TargetUserID, (*[]byte)(&l.Details), &l.CreatedAt); err != nil {
			return nil, 0, err
		}
		logs = append(logs, l)
	}
	return logs, total, rows.Err()
}
