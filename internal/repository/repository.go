package repository

import (
	"context"
	"time"

	"trainingbot/internal/domain"
)

// UserRepository defines user data operations
type UserRepository interface {
	// GetOrCreate inserts the user on first contact or merges the non-nil
	// patch fields into the existing row. The last activity timestamp is
	// refreshed unconditionally, even when nothing else changed. Safe
	// under concurrent first contact for the same telegram id.
	GetOrCreate(ctx context.Context, telegramID int64, patch domain.UserPatch) (*domain.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	UpdateProfile(ctx context.Context, telegramID int64, patch domain.UserPatch) error
	SetBlocked(ctx context.Context, telegramID int64, blocked bool, reason string) (bool, error)
	IncrementCounter(ctx context.Context, telegramID int64, counter domain.CounterKind) error
	List(ctx context.Context, f domain.UserFilter) ([]domain.User, error)
	Count(ctx context.Context, f domain.UserFilter) (int, error)
	CountActiveSince(ctx context.Context, since time.Time) (int, error)
	CountRegisteredSince(ctx context.Context, since time.Time) (int, error)
	// BroadcastTargets returns telegram ids of unblocked users matching
	// the optional department/role filters.
	BroadcastTargets(ctx context.Context, dept *domain.Department, role *domain.Role) ([]int64, error)
}

// ActivityRepository defines the append-only activity log operations
type ActivityRepository interface {
	Log(ctx context.Context, a domain.Activity) error
	ByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Activity, error)
	// Recent returns the latest rows; user identity columns are joined in
	// only when withUser is set, never implicitly.
	Recent(ctx context.Context, limit int, withUser bool) ([]domain.ActivityWithUser, error)
	PopularSections(ctx context.Context, since time.Time, limit int) ([]domain.SectionCount, error)
	Stats(ctx context.Context, since time.Time) (domain.ActivityStats, error)
}

// ContentRepository defines content storage with upsert-by-key semantics
type ContentRepository interface {
	Upsert(ctx context.Context, key, section string, patch domain.ContentPatch) (*domain.Content, error)
	// GetByKey returns active content only
	GetByKey(ctx context.Context, key string) (*domain.Content, error)
	BySection(ctx context.Context, section string) ([]domain.Content, error)
	Deactivate(ctx context.Context, key string) (bool, error)
	Search(ctx context.Context, query string, limit int) ([]domain.Content, error)
}

// QuizRepository defines the question bank and attempt persistence
type QuizRepository interface {
	ActiveQuestions(ctx context.Context, category string) ([]domain.Question, error)
	// SaveResult persists the result and its answers as one atomic unit
	SaveResult(ctx context.Context, result *domain.QuizResult) error
	// ResultsByUser never loads answers unless withAnswers is set
	ResultsByUser(ctx context.Context, userID int64, limit int, withAnswers bool) ([]domain.QuizResult, error)
}

// AdminLogRepository defines the append-only admin audit log
type AdminLogRepository interface {
	Log(ctx context.Context, e domain.AdminLog) error
	List(ctx context.Context, f domain.AdminLogFilter) ([]domain.AdminLog, error)
}

// BroadcastRepository defines broadcast job storage
type BroadcastRepository interface {
	Create(ctx context.Context, b *domain.Broadcast) error
	// ClaimPending atomically moves the oldest pending job to in_progress
	// and returns it, or nil when the queue is empty.
	ClaimPending(ctx context.Context) (*domain.Broadcast, error)
	UpdateCounters(ctx context.Context, id int64, sent, failed, total int) error
	Finish(ctx context.Context, id int64, status domain.BroadcastStatus) error
}

// SettingsRepository defines flat key/value settings storage
type SettingsRepository interface {
	Get(ctx context.Context, key string) (*domain.Setting, error)
	Set(ctx context.Context, s domain.Setting) error
	All(ctx context.Context) ([]domain.Setting, error)
}
