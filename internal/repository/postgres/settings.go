package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"trainingbot/internal/domain"
	"trainingbot/internal/repository"
)

// SettingsRepo implements repository.SettingsRepository
type SettingsRepo struct {
	db *sql.DB
}

// NewSettingsRepo creates a new settings repository
func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

const settingColumns = `id, key, value, value_type, description, created_at, updated_at`

// Get returns one setting by key
func (r *SettingsRepo) Get(ctx context.Context, key string) (*domain.Setting, error) {
	query := `SELECT ` + settingColumns + ` FROM system_settings WHERE key = $1`

	s, err := scanSetting(r.db.QueryRowContext(ctx, query, key))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get setting %s: %w", key, err)
	}
	return s, nil
}

// Set upserts a setting by key
func (r *SettingsRepo) Set(ctx context.Context, s domain.Setting) error {
	query := `
		INSERT INTO system_settings (key, value, value_type, description)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			value_type = EXCLUDED.value_type,
			description = COALESCE(EXCLUDED.description, system_settings.description),
			updated_at = now()`

	if _, err := r.db.ExecContext(ctx, query, s.Key, s.Value, s.ValueType, s.Description); err != nil {
		return fmt.Errorf("set setting %s: %w", s.Key, err)
	}
	return nil
}

// All returns every setting ordered by key
func (r *SettingsRepo) All(ctx context.Context) ([]domain.Setting, error) {
	query := `SELECT ` + settingColumns + ` FROM system_settings ORDER BY key`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var out []domain.Setting
	for rows.Next() {
		s, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func scanSetting(row rowScanner) (*domain.Setting, error) {
	var s domain.Setting
	var description sql.NullString
	err := row.Scan(&s.ID, &s.Key, &s.Value, &s.ValueType, &description, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Description = description.String
	return &s, nil
}
