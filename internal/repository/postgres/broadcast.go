package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"trainingbot/internal/domain"
)

// BroadcastRepo implements repository.BroadcastRepository
type BroadcastRepo struct {
	db *sql.DB
}

// NewBroadcastRepo creates a new broadcast repository
func NewBroadcastRepo(db *sql.DB) *BroadcastRepo {
	return &BroadcastRepo{db: db}
}

// Create stores a new pending broadcast job
func (r *BroadcastRepo) Create(ctx context.Context, b *domain.Broadcast) error {
	query := `
		INSERT INTO broadcast_messages (title, text, media_file_id, media_type, target_department, target_role, status)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7)
		RETURNING id, created_at`

	var dept, role *string
	if b.TargetDepartment != nil {
		s := string(*b.TargetDepartment)
		dept = &s
	}
	if b.TargetRole != nil {
		s := string(*b.TargetRole)
		role = &s
	}

	err := r.db.QueryRowContext(ctx, query,
		b.Title, b.Text, b.MediaFileID, b.MediaType, dept, role, string(domain.BroadcastPending),
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return fmt.Errorf("create broadcast: %w", err)
	}
	b.Status = domain.BroadcastPending
	return nil
}

// ClaimPending atomically promotes the oldest pending job to in_progress.
// The UPDATE ... RETURNING keeps two workers from claiming the same job.
func (r *BroadcastRepo) ClaimPending(ctx context.Context) (*domain.Broadcast, error) {
	query := `
		UPDATE broadcast_messages SET status = $1
		WHERE id = (
			SELECT id FROM broadcast_messages
			WHERE status = $2
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, title, text, media_file_id, media_type, target_department, target_role,
			total_recipients, sent_count, failed_count, status, created_at, scheduled_at, sent_at`

	var b domain.Broadcast
	var mediaFileID, mediaType, dept, role sql.NullString
	var scheduledAt, sentAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query,
		string(domain.BroadcastInProgress), string(domain.BroadcastPending),
	).Scan(
		&b.ID, &b.Title, &b.Text, &mediaFileID, &mediaType, &dept, &role,
		&b.TotalRecipients, &b.SentCount, &b.FailedCount, &b.Status,
		&b.CreatedAt, &scheduledAt, &sentAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim pending broadcast: %w", err)
	}

	b.MediaFileID = mediaFileID.String
	b.MediaType = mediaType.String
	if dept.Valid {
		d := domain.Department(dept.String)
		b.TargetDepartment = &d
	}
	if role.Valid {
		ro := domain.Role(role.String)
		b.TargetRole = &ro
	}
	if scheduledAt.Valid {
		b.ScheduledAt = &scheduledAt.Time
	}
	if sentAt.Valid {
		b.SentAt = &sentAt.Time
	}
	return &b, nil
}

// UpdateCounters records delivery progress
func (r *BroadcastRepo) UpdateCounters(ctx context.Context, id int64, sent, failed, total int) error {
	query := `UPDATE broadcast_messages SET sent_count = $2, failed_count = $3, total_recipients = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, sent, failed, total); err != nil {
		return fmt.Errorf("update broadcast %d counters: %w", id, err)
	}
	return nil
}

// Finish transitions a job to its terminal status and stamps sent_at
func (r *BroadcastRepo) Finish(ctx context.Context, id int64, status domain.BroadcastStatus) error {
	query := `UPDATE broadcast_messages SET status = $2, sent_at = now() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, string(status)); err != nil {
		return fmt.Errorf("finish broadcast %d: %w", id, err)
	}
	return nil
}
