package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"trainingbot/internal/domain"
	"trainingbot/internal/repository"
)

// UserRepo implements repository.UserRepository
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, telegram_id, username, first_name, last_name, language_code,
	department, role, phone, email, position, park_location,
	is_blocked, is_active, block_reason, registered_at, last_activity,
	messages_count, commands_count`

// GetOrCreate inserts or merges a user row in a single statement, so two
// concurrent first contacts for the same telegram id cannot produce
// duplicates. last_activity is refreshed even when the patch is empty.
func (r *UserRepo) GetOrCreate(ctx context.Context, telegramID int64, patch domain.UserPatch) (*domain.User, error) {
	query := `
		INSERT INTO users (telegram_id, username, first_name, last_name, language_code,
			department, position, park_location, phone, email)
		VALUES ($1, $2, $3, $4, COALESCE($5, 'ru'), $6, $7, $8, $9, $10)
		ON CONFLICT (telegram_id) DO UPDATE SET
			username = COALESCE(EXCLUDED.username, users.username),
			first_name = COALESCE(EXCLUDED.first_name, users.first_name),
			last_name = COALESCE(EXCLUDED.last_name, users.last_name),
			language_code = COALESCE(EXCLUDED.language_code, users.language_code),
			department = COALESCE(EXCLUDED.department, users.department),
			position = COALESCE(EXCLUDED.position, users.position),
			park_location = COALESCE(EXCLUDED.park_location, users.park_location),
			phone = COALESCE(EXCLUDED.phone, users.phone),
			email = COALESCE(EXCLUDED.email, users.email),
			last_activity = now()
		RETURNING ` + userColumns

	var dept *string
	if patch.Department != nil {
		s := string(*patch.Department)
		dept = &s
	}

	row := r.db.QueryRowContext(ctx, query,
		telegramID, patch.Username, patch.FirstName, patch.LastName, patch.LanguageCode,
		dept, patch.Position, patch.ParkLocation, patch.Phone, patch.Email,
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get or create user %d: %w", telegramID, err)
	}
	return user, nil
}

// GetByTelegramID fetches a user by external id
func (r *UserRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, telegramID))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", telegramID, err)
	}
	return user, nil
}

// UpdateProfile merges non-nil patch fields and refreshes last_activity
func (r *UserRepo) UpdateProfile(ctx context.Context, telegramID int64, patch domain.UserPatch) error {
	query := `
		UPDATE users SET
			username = COALESCE($2, username),
			first_name = COALESCE($3, first_name),
			last_name = COALESCE($4, last_name),
			language_code = COALESCE($5, language_code),
			department = COALESCE($6, department),
			position = COALESCE($7, position),
			park_location = COALESCE($8, park_location),
			phone = COALESCE($9, phone),
			email = COALESCE($10, email),
			last_activity = now()
		WHERE telegram_id = $1`

	var dept *string
	if patch.Department != nil {
		s := string(*patch.Department)
		dept = &s
	}

	res, err := r.db.ExecContext(ctx, query,
		telegramID, patch.Username, patch.FirstName, patch.LastName, patch.LanguageCode,
		dept, patch.Position, patch.ParkLocation, patch.Phone, patch.Email,
	)
	if err != nil {
		return fmt.Errorf("update profile %d: %w", telegramID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetBlocked flips the block flag; reason is cleared on unblock
func (r *UserRepo) SetBlocked(ctx context.Context, telegramID int64, blocked bool, reason string) (bool, error) {
	query := `UPDATE users SET is_blocked = $2, block_reason = NULLIF($3, '') WHERE telegram_id = $1`

	res, err := r.db.ExecContext(ctx, query, telegramID, blocked, reason)
	if err != nil {
		return false, fmt.Errorf("set blocked %d: %w", telegramID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IncrementCounter bumps the message or command counter
func (r *UserRepo) IncrementCounter(ctx context.Context, telegramID int64, counter domain.CounterKind) error {
	column := "messages_count"
	if counter == domain.CounterCommands {
		column = "commands_count"
	}
	query := fmt.Sprintf(`UPDATE users SET %s = %s + 1 WHERE telegram_id = $1`, column, column)

	if _, err := r.db.ExecContext(ctx, query, telegramID); err != nil {
		return fmt.Errorf("increment %s for %d: %w", counter, telegramID, err)
	}
	return nil
}

// List returns users matching the filter, newest first
func (r *UserRepo) List(ctx context.Context, f domain.UserFilter) ([]domain.User, error) {
	where, args := userFilterClause(f)

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY registered_at DESC LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// Count returns the number of users matching the filter
func (r *UserRepo) Count(ctx context.Context, f domain.UserFilter) (int, error) {
	where, args := userFilterClause(f)
	query := `SELECT COUNT(id) FROM users` + where

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// CountActiveSince counts users whose last activity is newer than since
func (r *UserRepo) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(id) FROM users WHERE last_activity >= $1`
	if err := r.db.QueryRowContext(ctx, query, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active users: %w", err)
	}
	return count, nil
}

// CountRegisteredSince counts users registered after since
func (r *UserRepo) CountRegisteredSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(id) FROM users WHERE registered_at >= $1`
	if err := r.db.QueryRowContext(ctx, query, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count new users: %w", err)
	}
	return count, nil
}

// BroadcastTargets returns telegram ids of deliverable users
func (r *UserRepo) BroadcastTargets(ctx context.Context, dept *domain.Department, role *domain.Role) ([]int64, error) {
	query := `SELECT telegram_id FROM users WHERE is_blocked = FALSE AND is_active = TRUE`
	args := []any{}
	if dept != nil {
		args = append(args, string(*dept))
		query += fmt.Sprintf(" AND department = $%d", len(args))
	}
	if role != nil {
		args = append(args, string(*role))
		query += fmt.Sprintf(" AND role = $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("broadcast targets: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func userFilterClause(f domain.UserFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Department != nil {
		args = append(args, string(*f.Department))
		conds = append(conds, fmt.Sprintf("department = $%d", len(args)))
	}
	if f.Role != nil {
		args = append(args, string(*f.Role))
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if f.IsBlocked != nil {
		args = append(args, *f.IsBlocked)
		conds = append(conds, fmt.Sprintf("is_blocked = $%d", len(args)))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		conds = append(conds, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var username, firstName, lastName, langCode sql.NullString
	var department, phone, email, position, park, blockReason sql.NullString

	err := row.Scan(
		&u.ID, &u.TelegramID, &username, &firstName, &lastName, &langCode,
		&department, &u.Role, &phone, &email, &position, &park,
		&u.IsBlocked, &u.IsActive, &blockReason, &u.RegisteredAt, &u.LastActivity,
		&u.MessagesCount, &u.CommandsCount,
	)
	if err != nil {
		return nil, err
	}

	u.Username = username.String
	u.FirstName = firstName.String
	u.LastName = lastName.String
	u.LanguageCode = langCode.String
	u.Department = domain.Department(department.String)
	u.Phone = phone.String
	u.Email = email.String
	u.Position = position.String
	u.ParkLocation = park.String
	u.BlockReason = blockReason.String
	return &u, nil
}
