package testutil

import (
	"context"
	"time"

	"trainingbot/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock for UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetOrCreate(ctx context.Context, telegramID int64, patch domain.UserPatch) (*domain.User, error) {
	args := m.Called(ctx, telegramID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, telegramID int64, patch domain.UserPatch) error {
	args := m.Called(ctx, telegramID, patch)
	return args.Error(0)
}

func (m *MockUserRepository) SetBlocked(ctx context.Context, telegramID int64, blocked bool, reason string) (bool, error) {
	args := m.Called(ctx, telegramID, blocked, reason)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) IncrementCounter(ctx context.Context, telegramID int64, counter domain.CounterKind) error {
	args := m.Called(ctx, telegramID, counter)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, f domain.UserFilter) ([]domain.User, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserRepository) Count(ctx context.Context, f domain.UserFilter) (int, error) {
	args := m.Called(ctx, f)
	return args.Int(0), args.Error(1)
}

func (m *MockUserRepository) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	args := m.Called(ctx, since)
	return args.Int(0), args.Error(1)
}

func (m *MockUserRepository) CountRegisteredSince(ctx context.Context, since time.Time) (int, error) {
	args := m.Called(ctx, since)
	return args.Int(0), args.Error(1)
}

func (m *MockUserRepository) BroadcastTargets(ctx context.Context, dept *domain.Department, role *domain.Role) ([]int64, error) {
	args := m.Called(ctx, dept, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// MockActivityRepository is a mock for ActivityRepository
type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) Log(ctx context.Context, a domain.Activity) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockActivityRepository) ByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Activity, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Activity), args.Error(1)
}

func (m *MockActivityRepository) Recent(ctx context.Context, limit int, withUser bool) ([]domain.ActivityWithUser, error) {
	args := m.Called(ctx, limit, withUser)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ActivityWithUser), args.Error(1)
}

func (m *MockActivityRepository) PopularSections(ctx context.Context, since time.Time, limit int) ([]domain.SectionCount, error) {
	args := m.Called(ctx, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SectionCount), args.Error(1)
}

func (m *MockActivityRepository) Stats(ctx context.Context, since time.Time) (domain.ActivityStats, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(domain.ActivityStats), args.Error(1)
}

// MockContentRepository is a mock for ContentRepository
type MockContentRepository struct {
	mock.Mock
}

func (m *MockContentRepository) Upsert(ctx context.Context, key, section string, patch domain.ContentPatch) (*domain.Content, error) {
	args := m.Called(ctx, key, section, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Content), args.Error(1)
}

func (m *MockContentRepository) GetByKey(ctx context.Context, key string) (*domain.Content, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Content), args.Error(1)
}

func (m *MockContentRepository) BySection(ctx context.Context, section string) ([]domain.Content, error) {
	args := m.Called(ctx, section)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Content), args.Error(1)
}

func (m *MockContentRepository) Deactivate(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockContentRepository) Search(ctx context.Context, query string, limit int) ([]domain.Content, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Content), args.Error(1)
}

// MockQuizRepository is a mock for QuizRepository
type MockQuizRepository struct {
	mock.Mock
}

func (m *MockQuizRepository) ActiveQuestions(ctx context.Context, category string) ([]domain.Question, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Question), args.Error(1)
}

func (m *MockQuizRepository) SaveResult(ctx context.Context, result *domain.QuizResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockQuizRepository) ResultsByUser(ctx context.Context, userID int64, limit int, withAnswers bool) ([]domain.QuizResult, error) {
	args := m.Called(ctx, userID, limit, withAnswers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.QuizResult), args.Error(1)
}

// MockAdminLogRepository is a mock for AdminLogRepository
type MockAdminLogRepository struct {
	mock.Mock
}

func (m *MockAdminLogRepository) Log(ctx context.Context, e domain.AdminLog) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockAdminLogRepository) List(ctx context.Context, f domain.AdminLogFilter) ([]domain.AdminLog, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AdminLog), args.Error(1)
}

// MockBroadcastRepository is a mock for BroadcastRepository
type MockBroadcastRepository struct {
	mock.Mock
}

func (m *MockBroadcastRepository) Create(ctx context.Context, b *domain.Broadcast) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBroadcastRepository) ClaimPending(ctx context.Context) (*domain.Broadcast, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Broadcast), args.Error(1)
}

func (m *MockBroadcastRepository) UpdateCounters(ctx context.Context, id int64, sent, failed, total int) error {
	args := m.Called(ctx, id, sent, failed, total)
	return args.Error(0)
}

func (m *MockBroadcastRepository) Finish(ctx context.Context, id int64, status domain.BroadcastStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// MockSessionStore is a mock for the dispatcher's session store
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Load(ctx context.Context, userID int64) (domain.Session, bool, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.Session), args.Bool(1), args.Error(2)
}

func (m *MockSessionStore) Save(ctx context.Context, userID int64, sess domain.Session) error {
	args := m.Called(ctx, userID, sess)
	return args.Error(0)
}

func (m *MockSessionStore) Delete(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockAdminGate is a mock for the admin password gate
type MockAdminGate struct {
	mock.Mock
}

func (m *MockAdminGate) Attempt(ctx context.Context, admin *domain.User, password string) (domain.AdminAttempt, error) {
	args := m.Called(ctx, admin, password)
	return args.Get(0).(domain.AdminAttempt), args.Error(1)
}

func (m *MockAdminGate) Require(ctx context.Context, admin *domain.User) (bool, error) {
	args := m.Called(ctx, admin)
	return args.Bool(0), args.Error(1)
}

func (m *MockAdminGate) Logout(ctx context.Context, admin *domain.User) error {
	args := m.Called(ctx, admin)
	return args.Error(0)
}

// MockAdminOps is a mock for the privileged operation surface
type MockAdminOps struct {
	mock.Mock
}

func (m *MockAdminOps) Overview(ctx context.Context, admin *domain.User) (domain.Statistics, error) {
	args := m.Called(ctx, admin)
	return args.Get(0).(domain.Statistics), args.Error(1)
}

func (m *MockAdminOps) PopularSections(ctx context.Context, admin *domain.User, days int) ([]domain.SectionCount, error) {
	args := m.Called(ctx, admin, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SectionCount), args.Error(1)
}

func (m *MockAdminOps) BlockUser(ctx context.Context, admin *domain.User, targetID int64, reason string) error {
	args := m.Called(ctx, admin, targetID, reason)
	return args.Error(0)
}

func (m *MockAdminOps) UnblockUser(ctx context.Context, admin *domain.User, targetID int64) error {
	args := m.Called(ctx, admin, targetID)
	return args.Error(0)
}

func (m *MockAdminOps) CreateBroadcast(ctx context.Context, admin *domain.User, text string, dept *domain.Department) (*domain.Broadcast, error) {
	args := m.Called(ctx, admin, text, dept)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Broadcast), args.Error(1)
}

func (m *MockAdminOps) UpsertContent(ctx context.Context, admin *domain.User, section, key, text string) error {
	args := m.Called(ctx, admin, section, key, text)
	return args.Error(0)
}

func (m *MockAdminOps) RecentLogs(ctx context.Context, admin *domain.User, limit int) ([]domain.AdminLog, error) {
	args := m.Called(ctx, admin, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AdminLog), args.Error(1)
}

// MockSettingsRepository is a mock for SettingsRepository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context, key string) (*domain.Setting, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Setting), args.Error(1)
}

func (m *MockSettingsRepository) Set(ctx context.Context, s domain.Setting) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSettingsRepository) All(ctx context.Context) ([]domain.Setting, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Setting), args.Error(1)
}

// MockBroadcastSender is a mock for the broadcast delivery transport
type MockBroadcastSender struct {
	mock.Mock
}

func (m *MockBroadcastSender) Send(ctx context.Context, telegramID int64, text string) error {
	args := m.Called(ctx, telegramID, text)
	return args.Error(0)
}
