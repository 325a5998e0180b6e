package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"trainingbot/internal/domain"
)

// AdminLogRepo implements repository.AdminLogRepository
type AdminLogRepo struct {
	db *sql.DB
}

// NewAdminLogRepo creates a new admin log repository
func NewAdminLogRepo(db *sql.DB) *AdminLogRepo {
	return &AdminLogRepo{db: db}
}

// Log appends one audit row. Audit rows are immutable.
func (r *AdminLogRepo) Log(ctx context.Context, e domain.AdminLog) error {
	query := `
		INSERT INTO admin_logs (admin_id, action, target_type, target_id, details, success, error_message)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, NULLIF($7, ''))`

	details, err := marshalDetails(e.Details)
	if err != nil {
		return fmt.Errorf("log admin action: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query,
		e.AdminID, e.Action, e.TargetType, e.TargetID, details, e.Success, e.ErrorMessage,
	); err != nil {
		return fmt.Errorf("log admin action %s by %d: %w", e.Action, e.AdminID, err)
	}
	return nil
}

// List returns audit rows matching the filter, newest first
func (r *AdminLogRepo) List(ctx context.Context, f domain.AdminLogFilter) ([]domain.AdminLog, error) {
	query := `
		SELECT id, admin_id, action, target_type, target_id, details, success, error_message, created_at
		FROM admin_logs
		WHERE created_at >= $1`
	args := []any{f.Since}

	if f.AdminID != nil {
		args = append(args, *f.AdminID)
		query += fmt.Sprintf(" AND admin_id = $%d", len(args))
	}
	if f.Action != "" {
		args = append(args, f.Action)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list admin logs: %w", err)
	}
	defer rows.Close()

	var out []domain.AdminLog
	for rows.Next() {
		var e domain.AdminLog
		var targetType, errorMessage sql.NullString
		var targetID sql.NullInt64
		var details []byte
		err := rows.Scan(
			&e.ID, &e.AdminID, &e.Action, &targetType, &targetID, &details,
			&e.Success, &errorMessage, &e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		e.TargetType = targetType.String
		e.ErrorMessage = errorMessage.String
		if targetID.Valid {
			id := targetID.Int64
			e.TargetID = &id
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("admin log details: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
