package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"trainingbot/internal/domain"
	"trainingbot/internal/repository"
)

// ContentRepo implements repository.ContentRepository
type ContentRepo struct {
	db *sql.DB
}

// NewContentRepo creates a new content repository
func NewContentRepo(db *sql.DB) *ContentRepo {
	return &ContentRepo{db: db}
}

const contentColumns = `id, section, key, title, text, media_path, media_type, media_file_id,
	tags, order_index, is_active, created_at, updated_at`

// Upsert creates the row or merges non-nil patch fields into the existing
// one, keyed by the unique content key. updated_at is always refreshed.
func (r *ContentRepo) Upsert(ctx context.Context, key, section string, patch domain.ContentPatch) (*domain.Content, error) {
	query := `
		INSERT INTO content (key, section, title, text, media_path, media_type, media_file_id, tags, order_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, 0))
		ON CONFLICT (key) DO UPDATE SET
			section = EXCLUDED.section,
			title = COALESCE(EXCLUDED.title, content.title),
			text = COALESCE(EXCLUDED.text, content.text),
			media_path = COALESCE(EXCLUDED.media_path, content.media_path),
			media_type = COALESCE(EXCLUDED.media_type, content.media_type),
			media_file_id = COALESCE(EXCLUDED.media_file_id, content.media_file_id),
			tags = COALESCE(EXCLUDED.tags, content.tags),
			order_index = COALESCE($9, content.order_index),
			updated_at = now()
		RETURNING ` + contentColumns

	var tags any
	if patch.Tags != nil {
		b, err := json.Marshal(patch.Tags)
		if err != nil {
			return nil, fmt.Errorf("upsert content %s: %w", key, err)
		}
		tags = b
	}

	row := r.db.QueryRowContext(ctx, query,
		key, section, patch.Title, patch.Text, patch.MediaPath, patch.MediaType,
		patch.MediaFileID, tags, patch.OrderIndex,
	)
	content, err := scanContent(row)
	if err != nil {
		return nil, fmt.Errorf("upsert content %s: %w", key, err)
	}
	return content, nil
}

// GetByKey returns active content by key
func (r *ContentRepo) GetByKey(ctx context.Context, key string) (*domain.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM content WHERE key = $1 AND is_active = TRUE`

	content, err := scanContent(r.db.QueryRowContext(ctx, query, key))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get content %s: %w", key, err)
	}
	return content, nil
}

// BySection returns all active content of a section in display order
func (r *ContentRepo) BySection(ctx context.Context, section string) ([]domain.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM content
		WHERE section = $1 AND is_active = TRUE
		ORDER BY order_index`

	rows, err := r.db.QueryContext(ctx, query, section)
	if err != nil {
		return nil, fmt.Errorf("content for section %s: %w", section, err)
	}
	defer rows.Close()

	var out []domain.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Deactivate soft-deletes content; rows are never removed
func (r *ContentRepo) Deactivate(ctx context.Context, key string) (bool, error) {
	query := `UPDATE content SET is_active = FALSE, updated_at = now() WHERE key = $1`

	res, err := r.db.ExecContext(ctx, query, key)
	if err != nil {
		return false, fmt.Errorf("deactivate content %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Search does a substring match over active content
func (r *ContentRepo) Search(ctx context.Context, query string, limit int) ([]domain.Content, error) {
	pattern := "%" + query + "%"
	stmt := `SELECT ` + contentColumns + ` FROM content
		WHERE is_active = TRUE AND (title ILIKE $1 OR text ILIKE $1 OR key ILIKE $1)
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, stmt, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search content %q: %w", query, err)
	}
	defer rows.Close()

	var out []domain.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanContent(row rowScanner) (*domain.Content, error) {
	var c domain.Content
	var title, text, mediaPath, mediaType, mediaFileID sql.NullString
	var tags []byte

	err := row.Scan(
		&c.ID, &c.Section, &c.Key, &title, &text, &mediaPath, &mediaType, &mediaFileID,
		&tags, &c.OrderIndex, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Title = title.String
	c.Text = text.String
	c.MediaPath = mediaPath.String
	c.MediaType = mediaType.String
	c.MediaFileID = mediaFileID.String
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &c.Tags); err != nil {
			return nil, fmt.Errorf("content tags: %w", err)
		}
	}
	return &c, nil
}
