package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"trainingbot/internal/domain"
)

// ActivityRepo implements repository.ActivityRepository
type ActivityRepo struct {
	db *sql.DB
}

// NewActivityRepo creates a new activity repository
func NewActivityRepo(db *sql.DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

// Log appends one activity row. Rows are immutable after insertion.
func (r *ActivityRepo) Log(ctx context.Context, a domain.Activity) error {
	query := `
		INSERT INTO user_activity (user_id, action, section, subsection, details, callback_data, message_text)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''))`

	details, err := marshalDetails(a.Details)
	if err != nil {
		return fmt.Errorf("log activity: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query,
		a.UserID, a.Action, a.Section, a.Subsection, details, a.CallbackData, a.MessageText,
	); err != nil {
		return fmt.Errorf("log activity for user %d: %w", a.UserID, err)
	}
	return nil
}

// ByUser returns a user's activity history, newest first
func (r *ActivityRepo) ByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Activity, error) {
	query := `
		SELECT id, user_id, action, section, subsection, details, callback_data, message_text, created_at
		FROM user_activity
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("activity for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []domain.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Recent returns the latest activity rows. The users join is applied only
// when withUser is set so that plain queries stay single-table.
func (r *ActivityRepo) Recent(ctx context.Context, limit int, withUser bool) ([]domain.ActivityWithUser, error) {
	if !withUser {
		query := `
			SELECT id, user_id, action, section, subsection, details, callback_data, message_text, created_at
			FROM user_activity
			ORDER BY created_at DESC
			LIMIT $1`

		rows, err := r.db.QueryContext(ctx, query, limit)
		if err != nil {
			return nil, fmt.Errorf("recent activity: %w", err)
		}
		defer rows.Close()

		var out []domain.ActivityWithUser
		for rows.Next() {
			a, err := scanActivity(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, domain.ActivityWithUser{Activity: *a})
		}
		return out, rows.Err()
	}

	query := `
		SELECT a.id, a.user_id, a.action, a.section, a.subsection, a.details,
			a.callback_data, a.message_text, a.created_at,
			u.telegram_id, u.username, u.first_name
		FROM user_activity a
		JOIN users u ON u.id = a.user_id
		ORDER BY a.created_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activity with users: %w", err)
	}
	defer rows.Close()

	var out []domain.ActivityWithUser
	for rows.Next() {
		var a domain.ActivityWithUser
		var section, subsection, callbackData, messageText, username, firstName sql.NullString
		var details []byte
		err := rows.Scan(
			&a.ID, &a.UserID, &a.Action, &section, &subsection, &details,
			&callbackData, &messageText, &a.CreatedAt,
			&a.TelegramID, &username, &firstName,
		)
		if err != nil {
			return nil, err
		}
		a.Section = section.String
		a.Subsection = subsection.String
		a.CallbackData = callbackData.String
		a.MessageText = messageText.String
		a.Username = username.String
		a.FirstName = firstName.String
		if len(details) > 0 {
			if err := json.Unmarshal(details, &a.Details); err != nil {
				return nil, fmt.Errorf("recent activity details: %w", err)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// PopularSections aggregates section views since the cutoff
func (r *ActivityRepo) PopularSections(ctx context.Context, since time.Time, limit int) ([]domain.SectionCount, error) {
	query := `
		SELECT section, COUNT(id) AS views
		FROM user_activity
		WHERE created_at >= $1 AND section IS NOT NULL
		GROUP BY section
		ORDER BY views DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("popular sections: %w", err)
	}
	defer rows.Close()

	var out []domain.SectionCount
	for rows.Next() {
		var sc domain.SectionCount
		if err := rows.Scan(&sc.Section, &sc.Views); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// Stats aggregates action and unique-user counts since the cutoff
func (r *ActivityRepo) Stats(ctx context.Context, since time.Time) (domain.ActivityStats, error) {
	var stats domain.ActivityStats
	query := `
		SELECT COUNT(id), COUNT(DISTINCT user_id)
		FROM user_activity
		WHERE created_at >= $1`

	if err := r.db.QueryRowContext(ctx, query, since).Scan(&stats.TotalActions, &stats.UniqueUsers); err != nil {
		return stats, fmt.Errorf("activity stats: %w", err)
	}
	return stats, nil
}

func scanActivity(row rowScanner) (*domain.Activity, error) {
	var a domain.Activity
	var section, subsection, callbackData, messageText sql.NullString
	var details []byte

	err := row.Scan(
		&a.ID, &a.UserID, &a.Action, &section, &subsection, &details,
		&callbackData, &messageText, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Section = section.String
	a.Subsection = subsection.String
	a.CallbackData = callbackData.String
	a.MessageText = messageText.String
	if len(details) > 0 {
		if err := json.Unmarshal(details, &a.Details); err != nil {
			return nil, fmt.Errorf("activity details: %w", err)
		}
	}
	return &a, nil
}

func marshalDetails(details map[string]any) (any, error) {
	if details == nil {
		return nil, nil
	}
	return json.Marshal(details)
}
