package service

import (
	"context"
	"testing"

	"trainingbot/internal/domain"
	"trainingbot/internal/repository"
	"trainingbot/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type adminMocks struct {
	users      *testutil.MockUserRepository
	activity   *testutil.MockActivityRepository
	content    *testutil.MockContentRepository
	broadcasts *testutil.MockBroadcastRepository
	audit      *testutil.MockAdminLogRepository
}

func newAdminService() (*AdminService, *adminMocks) {
	m := &adminMocks{
		users:      new(testutil.MockUserRepository),
		activity:   new(testutil.MockActivityRepository),
		content:    new(testutil.MockContentRepository),
		broadcasts: new(testutil.MockBroadcastRepository),
		audit:      new(testutil.MockAdminLogRepository),
	}
	svc := NewAdminService(m.users, m.activity, m.content, m.broadcasts, m.audit, testutil.NewTestLogger())
	return svc, m
}

func TestAdminService_RoleFloors(t *testing.T) {
	tests := []struct {
		name      string
		role      domain.Role
		call      func(svc *AdminService, admin *domain.User) error
		forbidden bool
	}{
		{
			name: "plain user cannot view stats",
			role: domain.RoleUser,
			call: func(svc *AdminService, admin *domain.User) error {
				_, err := svc.Overview(context.Background(), admin)
				return err
			},
			forbidden: true,
		},
		{
			name: "moderator cannot block",
			role: domain.RoleModerator,
			call: func(svc *AdminService, admin *domain.User) error {
				return svc.BlockUser(context.Background(), admin, 555, "spam")
			},
			forbidden: true,
		},
		{
			name: "moderator cannot broadcast",
			role: domain.RoleModerator,
			call: func(svc *AdminService, admin *domain.User) error {
				_, err := svc.CreateBroadcast(context.Background(), admin, "hi", nil)
				return err
			},
			forbidden: true,
		},
		{
			name: "moderator cannot edit content",
			role: domain.RoleModerator,
			call: func(svc *AdminService, admin *domain.User) error {
				return svc.UpsertContent(context.Background(), admin, "sales", "sales.scripts", "text")
			},
			forbidden: true,
		},
		{
			name: "moderator can list logs",
			role: domain.RoleModerator,
			call: func(svc *AdminService, admin *domain.User) error {
				_, err := svc.RecentLogs(context.Background(), admin, 10)
				return err
			},
			forbidden: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newAdminService()
			m.audit.On("Log", mock.Anything, mock.Anything).Return(nil)
			m.audit.On("List", mock.Anything, mock.Anything).Return([]domain.AdminLog{}, nil)
			admin := testutil.NewTestUser(1, tt.role)

			err := tt.call(svc, admin)

			if tt.forbidden {
				assert.ErrorIs(t, err, domain.ErrForbidden)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAdminService_ForbiddenAttemptIsAudited(t *testing.T) {
	svc, m := newAdminService()
	m.audit.On("Log", mock.Anything, mock.MatchedBy(func(e domain.AdminLog) bool {
		return e.Action == "block_user" && !e.Success
	})).Return(nil)
	admin := testutil.NewTestUser(1, domain.RoleModerator)

	err := svc.BlockUser(context.Background(), admin, 555, "spam")

	assert.ErrorIs(t, err, domain.ErrForbidden)
	m.audit.AssertExpectations(t)
}

func TestAdminService_BlockUser(t *testing.T) {
	svc, m := newAdminService()
	admin := testutil.NewTestUser(1, domain.RoleAdmin)
	target := testutil.NewTestUser(555, domain.RoleUser)
	ctx := context.Background()

	m.users.On("GetByTelegramID", ctx, int64(555)).Return(target, nil)
	m.users.On("SetBlocked", ctx, int64(555), true, "spam").Return(true, nil)
	m.audit.On("Log", mock.Anything, mock.MatchedBy(func(e domain.AdminLog) bool {
		return e.Action == "block_user" && e.Success && e.TargetID != nil && *e.TargetID == 555
	})).Return(nil)

	err := svc.BlockUser(ctx, admin, 555, "spam")

	require.NoError(t, err)
	m.users.AssertExpectations(t)
	m.audit.AssertExpectations(t)
}

func TestAdminService_BlockUnknownUser(t *testing.T) {
	svc, m := newAdminService()
	admin := testutil.NewTestUser(1, domain.RoleAdmin)
	ctx := context.Background()

	m.users.On("GetByTelegramID", ctx, int64(999)).Return(nil, repository.ErrNotFound)
	m.audit.On("Log", mock.Anything, mock.Anything).Return(nil)

	err := svc.BlockUser(ctx, admin, 999, "spam")

	assert.ErrorIs(t, err, repository.ErrNotFound)
	m.users.AssertNotCalled(t, "SetBlocked", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminService_AdminCannotBlockAdmin(t *testing.T) {
	svc, m := newAdminService()
	admin := testutil.NewTestUser(1, domain.RoleAdmin)
	target := testutil.NewTestUser(555, domain.RoleAdmin)
	ctx := context.Background()

	m.users.On("GetByTelegramID", ctx, int64(555)).Return(target, nil)
	m.audit.On("Log", mock.Anything, mock.Anything).Return(nil)

	err := svc.BlockUser(ctx, admin, 555, "power struggle")

	assert.ErrorIs(t, err, domain.ErrForbidden)
	m.users.AssertNotCalled(t, "SetBlocked", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminService_SuperAdminCanBlockAdmin(t *testing.T) {
	svc, m := newAdminService()
	admin := testutil.NewTestUser(1, domain.RoleSuperAdmin)
	target := testutil.NewTestUser(555, domain.RoleAdmin)
	ctx := context.Background()

	m.users.On("GetByTelegramID", ctx, int64(555)).Return(target, nil)
	m.users.On("SetBlocked", ctx, int64(555), true, "policy violation").Return(true, nil)
	m.audit.On("Log", mock.Anything, mock.Anything).Return(nil)

	err := svc.BlockUser(ctx, admin, 555, "policy violation")

	assert.NoError(t, err)
}

func TestAdminService_UnblockUser(t *testing.T) {
	svc, m := newAdminService()
	admin := testutil.NewTestUser(1, domain.RoleAdmin)
	target := testutil.NewTestUser(555, domain.RoleUser)
	target.IsBlocked = true
	ctx := context.Background()

	m.users.On("GetByTelegramID", ctx, int64(555)).Return(target, nil)
	m.users.On("SetBlocked", ctx, int64(555), false, "").Return(true, nil)
	m.audit.On("Log", mock.Anything, mock.MatchedBy(func(e domain.AdminLog) bool {
		return e.Action == "unblock_user" && e.Success
	})).Return(nil)

	err := svc.UnblockUser(ctx, admin, 555)

	require.NoError(t, err)
	m.audit.AssertExpectations(t)
}

func TestAdminService_Overview(t *testing.T) {
	svc, m := newAdminService()
	admin := testutil.NewTestUser(1, domain.RoleModerator)
	ctx := context.Background()

	m.users.On("Count", ctx, domain.UserFilter{}).Return(120, nil)
	m.users.On("CountActiveSince", ctx, mock.Anything).Return(15, nil).Once()
	m.users.On("CountActiveSince", ctx, mock.Anything).Return(48, nil).Once()
	m.users.On("CountRegisteredSince", ctx, mock.Anything).Return(9, nil)
	m.users.On("Count", ctx, mock.MatchedBy(func(f domain.UserFilter) bool {
		return f.IsBlocked != nil && *f.IsBlocked
	})).Return(3, nil)
	m.activity.On("Stats", ctx, mock.Anything).Return(domain.ActivityStats{TotalActions: 5400}, nil)

	stats, err := svc.Overview(ctx, admin)

	require.NoError(t, err)
	assert.Equal(t, 120, stats.TotalUsers)
	assert.Equal(t, 15, stats.ActiveToday)
	assert.Equal(t, 48, stats.ActiveWeek)
	assert.Equal(t, 9, stats.NewThisWeek)
	assert.Equal(t, 3, stats.BlockedUsers)
	assert.Equal(t, 5400, stats.TotalActions)
}

func TestAdminService_CreateBroadcast(t *testing.T) {
	svc, m := newAdminService()
	admin := testutil.NewTestUser(1, domain.RoleAdmin)
	dept := domain.DepartmentSport
	ctx := context.Background()

	m.broadcasts.On("Create", ctx, mock.MatchedBy(func(b *domain.Broadcast) bool {
		return b.Text == "Safety briefing at 9" &&
			b.Status == domain.BroadcastPending &&
			b.TargetDepartment != nil && *b.TargetDepartment == dept
	})).Return(nil)
	m.audit.On("Log", mock.Anything, mock.Anything).Return(nil)

	b, err := svc.CreateBroadcast(ctx, admin, "Safety briefing at 9", &dept)

	require.NoError(t, err)
	assert.Equal(t, domain.BroadcastPending, b.Status)
	m.broadcasts.AssertExpectations(t)
}

func TestAdminService_UpsertContent(t *testing.T) {
	svc, m := newAdminService()
	admin := testutil.NewTestUser(1, domain.RoleAdmin)
	ctx := context.Background()

	m.content.On("Upsert", ctx, "sales.scripts", "sales", mock.MatchedBy(func(p domain.ContentPatch) bool {
		return p.Text != nil && *p.Text == "Updated script"
	})).Return(testutil.NewTestContent("sales.scripts", "sales", "Updated script"), nil)
	m.audit.On("Log", mock.Anything, mock.MatchedBy(func(e domain.AdminLog) bool {
		return e.Action == "upsert_content" && e.Success
	})).Return(nil)

	err := svc.UpsertContent(ctx, admin, "sales", "sales.scripts", "Updated script")

	require.NoError(t, err)
	m.content.AssertExpectations(t)
}
