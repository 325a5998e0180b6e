package service

import (
	"context"
	"fmt"
	"time"

	"trainingbot/internal/domain"
	"trainingbot/internal/repository"

	"go.uber.org/zap"
)

// Role floors per operation family. Reads are open to moderators,
// mutations require a full admin.
const (
	statsFloor  = domain.RoleModerator
	mutateFloor = domain.RoleAdmin
)

// AdminService is the audited privileged operation surface. Every call
// checks the caller's role floor first and writes an audit record whether
// it succeeded or not; a failed role check is itself an auditable event.
type AdminService struct {
	users      repository.UserRepository
	activity   repository.ActivityRepository
	content    repository.ContentRepository
	broadcasts repository.BroadcastRepository
	audit      repository.AdminLogRepository
	logger     *zap.Logger
}

// NewAdminService creates the privileged operation service
func NewAdminService(
	users repository.UserRepository,
	activity repository.ActivityRepository,
	content repository.ContentRepository,
	broadcasts repository.BroadcastRepository,
	audit repository.AdminLogRepository,
	logger *zap.Logger,
) *AdminService {
	return &AdminService{
		users:      users,
		activity:   activity,
		content:    content,
		broadcasts: broadcasts,
		audit:      audit,
		logger:     logger,
	}
}

// Overview aggregates the user base statistics shown in the admin panel
func (s *AdminService) Overview(ctx context.Context, admin *domain.User) (domain.Statistics, error) {
	if err := s.require(ctx, admin, statsFloor, "view_stats", "stats", nil); err != nil {
		return domain.Statistics{}, err
	}

	now := time.Now().UTC()
	var stats domain.Statistics
	var err error

	if stats.TotalUsers, err = s.users.Count(ctx, domain.UserFilter{}); err != nil {
		return domain.Statistics{}, fmt.Errorf("count users: %w", err)
	}
	if stats.ActiveToday, err = s.users.CountActiveSince(ctx, now.Add(-24*time.Hour)); err != nil {
		return domain.Statistics{}, fmt.Errorf("count active today: %w", err)
	}
	if stats.ActiveWeek, err = s.users.CountActiveSince(ctx, now.AddDate(0, 0, -7)); err != nil {
		return domain.Statistics{}, fmt.Errorf("count active week: %w", err)
	}
	if stats.NewThisWeek, err = s.users.CountRegisteredSince(ctx, now.AddDate(0, 0, -7)); err != nil {
		return domain.Statistics{}, fmt.Errorf("count new users: %w", err)
	}
	blocked := true
	if stats.BlockedUsers, err = s.users.Count(ctx, domain.UserFilter{IsBlocked: &blocked}); err != nil {
		return domain.Statistics{}, fmt.Errorf("count blocked users: %w", err)
	}
	activityStats, err := s.activity.Stats(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		return domain.Statistics{}, fmt.Errorf("activity stats: %w", err)
	}
	stats.TotalActions = activityStats.TotalActions

	return stats, nil
}

// PopularSections returns the most viewed sections over the last days
func (s *AdminService) PopularSections(ctx context.Context, admin *domain.User, days int) ([]domain.SectionCount, error) {
	if !admin.Role.AtLeast(statsFloor) {
		return nil, domain.ErrForbidden
	}
	if days <= 0 {
		days = 7
	}
	return s.activity.PopularSections(ctx, time.Now().UTC().AddDate(0, 0, -days), 10)
}

// BlockUser blocks the target and records why. Peers and superiors
// cannot be blocked; only a super admin may block another admin.
func (s *AdminService) BlockUser(ctx context.Context, admin *domain.User, targetID int64, reason string) error {
	if err := s.require(ctx, admin, mutateFloor, "block_user", "user", &targetID); err != nil {
		return err
	}

	target, err := s.users.GetByTelegramID(ctx, targetID)
	if err != nil {
		s.writeAudit(ctx, admin.ID, "block_user", "user", &targetID, false, err.Error(), nil)
		return err
	}
	if target.Role.AtLeast(domain.RoleAdmin) && !admin.Role.AtLeast(domain.RoleSuperAdmin) {
		s.writeAudit(ctx, admin.ID, "block_user", "user", &targetID, false, "target outranks caller", nil)
		return domain.ErrForbidden
	}

	changed, err := s.users.SetBlocked(ctx, targetID, true, reason)
	if err != nil {
		s.writeAudit(ctx, admin.ID, "block_user", "user", &targetID, false, err.Error(), nil)
		return fmt.Errorf("block user %d: %w", targetID, err)
	}
	s.writeAudit(ctx, admin.ID, "block_user", "user", &targetID, true, "",
		map[string]any{"reason": reason, "changed": changed})
	return nil
}

// UnblockUser lifts a block
func (s *AdminService) UnblockUser(ctx context.Context, admin *domain.User, targetID int64) error {
	if err := s.require(ctx, admin, mutateFloor, "unblock_user", "user", &targetID); err != nil {
		return err
	}

	if _, err := s.users.GetByTelegramID(ctx, targetID); err != nil {
		s.writeAudit(ctx, admin.ID, "unblock_user", "user", &targetID, false, err.Error(), nil)
		return err
	}
	changed, err := s.users.SetBlocked(ctx, targetID, false, "")
	if err != nil {
		s.writeAudit(ctx, admin.ID, "unblock_user", "user", &targetID, false, err.Error(), nil)
		return fmt.Errorf("unblock user %d: %w", targetID, err)
	}
	s.writeAudit(ctx, admin.ID, "unblock_user", "user", &targetID, true, "",
		map[string]any{"changed": changed})
	return nil
}

// CreateBroadcast queues a mass send for the background worker
func (s *AdminService) CreateBroadcast(ctx context.Context, admin *domain.User, text string, dept *domain.Department) (*domain.Broadcast, error) {
	if err := s.require(ctx, admin, mutateFloor, "create_broadcast", "broadcast", nil); err != nil {
		return nil, err
	}

	b := &domain.Broadcast{
		Text:             text,
		TargetDepartment: dept,
		Status:           domain.BroadcastPending,
	}
	if err := s.broadcasts.Create(ctx, b); err != nil {
		s.writeAudit(ctx, admin.ID, "create_broadcast", "broadcast", nil, false, err.Error(), nil)
		return nil, fmt.Errorf("create broadcast: %w", err)
	}

	details := map[string]any{"length": len(text)}
	if dept != nil {
		details["department"] = string(*dept)
	}
	s.writeAudit(ctx, admin.ID, "create_broadcast", "broadcast", &b.ID, true, "", details)
	return b, nil
}

// UpsertContent replaces the text of a keyed content unit, creating it
// under the given section when absent
func (s *AdminService) UpsertContent(ctx context.Context, admin *domain.User, section, key, text string) error {
	if err := s.require(ctx, admin, mutateFloor, "upsert_content", "content", nil); err != nil {
		return err
	}

	content, err := s.content.Upsert(ctx, key, section, domain.ContentPatch{Text: &text})
	if err != nil {
		s.writeAudit(ctx, admin.ID, "upsert_content", "content", nil, false, err.Error(),
			map[string]any{"key": key})
		return fmt.Errorf("upsert content %s: %w", key, err)
	}
	s.writeAudit(ctx, admin.ID, "upsert_content", "content", &content.ID, true, "",
		map[string]any{"key": key})
	return nil
}

// DeactivateContent soft-deletes a content unit by key
func (s *AdminService) DeactivateContent(ctx context.Context, admin *domain.User, key string) error {
	if err := s.require(ctx, admin, mutateFloor, "deactivate_content", "content", nil); err != nil {
		return err
	}

	changed, err := s.content.Deactivate(ctx, key)
	if err != nil {
		s.writeAudit(ctx, admin.ID, "deactivate_content", "content", nil, false, err.Error(),
			map[string]any{"key": key})
		return fmt.Errorf("deactivate content %s: %w", key, err)
	}
	if !changed {
		return repository.ErrNotFound
	}
	s.writeAudit(ctx, admin.ID, "deactivate_content", "content", nil, true, "",
		map[string]any{"key": key})
	return nil
}

// RecentLogs returns the latest audit entries
func (s *AdminService) RecentLogs(ctx context.Context, admin *domain.User, limit int) ([]domain.AdminLog, error) {
	if !admin.Role.AtLeast(statsFloor) {
		return nil, domain.ErrForbidden
	}
	return s.audit.List(ctx, domain.AdminLogFilter{Limit: limit})
}

// require enforces a role floor and audits the refusal when it fails.
// Successful operations audit themselves with their outcome instead.
func (s *AdminService) require(ctx context.Context, admin *domain.User, floor domain.Role, action, targetType string, targetID *int64) error {
	if admin.Role.AtLeast(floor) {
		return nil
	}
	s.writeAudit(ctx, admin.ID, action, targetType, targetID, false, "role below "+string(floor), nil)
	return domain.ErrForbidden
}

func (s *AdminService) writeAudit(ctx context.Context, adminID int64, action, targetType string, targetID *int64, success bool, errMsg string, details map[string]any) {
	entry := domain.AdminLog{
		AdminID:      adminID,
		Action:       action,
		TargetType:   targetType,
		TargetID:     targetID,
		Details:      details,
		Success:      success,
		ErrorMessage: errMsg,
	}
	if err := s.audit.Log(ctx, entry); err != nil {
		s.logger.Error("Failed to write admin audit entry",
			zap.Int64("admin_id", adminID),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
