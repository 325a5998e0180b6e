package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"trainingbot/internal/domain"
	"trainingbot/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthRedis is the subset of redis commands the password gate needs
type AuthRedis interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// AdminAuthConfig tunes the password gate
type AdminAuthConfig struct {
	// PasswordHash is the bcrypt hash of the shared admin password
	PasswordHash string
	MaxAttempts  int64
	AttemptTTL   time.Duration
	Cooldown     time.Duration
	SessionIdle  time.Duration
}

// DefaultAdminAuthConfig returns the production lockout parameters:
// three attempts per five minutes, a five minute cooldown after the
// third failure, one hour of session idle time.
func DefaultAdminAuthConfig(passwordHash string) AdminAuthConfig {
	return AdminAuthConfig{
		PasswordHash: passwordHash,
		MaxAttempts:  3,
		AttemptTTL:   5 * time.Minute,
		Cooldown:     5 * time.Minute,
		SessionIdle:  time.Hour,
	}
}

// AdminAuthService gates the admin panel behind a shared password with a
// per-user attempt budget. Auth state lives in Redis keyed by the user's
// id, never in process memory; every attempt is audited. Unlike the
// throttle this service fails closed when Redis is unreachable.
type AdminAuthService struct {
	rdb    AuthRedis
	audit  repository.AdminLogRepository
	cfg    AdminAuthConfig
	logger *zap.Logger
}

// NewAdminAuthService creates the admin password gate
func NewAdminAuthService(rdb AuthRedis, audit repository.AdminLogRepository, cfg AdminAuthConfig, logger *zap.Logger) *AdminAuthService {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &AdminAuthService{rdb: rdb, audit: audit, cfg: cfg, logger: logger}
}

func attemptsKey(userID int64) string { return fmt.Sprintf("admin:password_attempts:%d", userID) }
func blockedKey(userID int64) string  { return fmt.Sprintf("admin:blocked:%d", userID) }
func sessionKey(userID int64) string  { return fmt.Sprintf("admin:session:%d", userID) }

// Attempt verifies one password submission against the lockout budget.
// The cooldown is checked before the password so a locked-out caller
// learns nothing about correctness.
func (s *AdminAuthService) Attempt(ctx context.Context, admin *domain.User, password string) (domain.AdminAttempt, error) {
	ttl, err := s.rdb.TTL(ctx, blockedKey(admin.ID)).Result()
	if err != nil {
		return domain.AdminAttempt{}, fmt.Errorf("check admin cooldown: %w", err)
	}
	if ttl > 0 {
		s.writeAudit(ctx, admin.ID, "admin_login_blocked", false, "cooldown active")
		return domain.AdminAttempt{Locked: true, RetryAfter: ttl}, nil
	}

	if bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(password)) == nil {
		if err := s.rdb.Del(ctx, attemptsKey(admin.ID)).Err(); err != nil {
			return domain.AdminAttempt{}, fmt.Errorf("reset admin attempts: %w", err)
		}
		if err := s.openSession(ctx, admin.ID); err != nil {
			return domain.AdminAttempt{}, err
		}
		s.writeAudit(ctx, admin.ID, "admin_login", true, "")
		return domain.AdminAttempt{OK: true}, nil
	}

	n, err := s.rdb.Incr(ctx, attemptsKey(admin.ID)).Result()
	if err != nil {
		return domain.AdminAttempt{}, fmt.Errorf("count admin attempt: %w", err)
	}
	if n == 1 {
		if err := s.rdb.Expire(ctx, attemptsKey(admin.ID), s.cfg.AttemptTTL).Err(); err != nil {
			return domain.AdminAttempt{}, fmt.Errorf("expire admin attempts: %w", err)
		}
	}

	if n >= s.cfg.MaxAttempts {
		if err := s.rdb.Set(ctx, blockedKey(admin.ID), "1", s.cfg.Cooldown).Err(); err != nil {
			return domain.AdminAttempt{}, fmt.Errorf("set admin cooldown: %w", err)
		}
		// The cooldown key is authoritative; a failed cleanup only leaves
		// a counter that the attempt TTL will expire on its own.
		if err := s.rdb.Del(ctx, attemptsKey(admin.ID)).Err(); err != nil {
			s.logger.Warn("Failed to clear attempt counter after lockout",
				zap.Int64("admin_id", admin.ID),
				zap.Error(err),
			)
		}
		s.writeAudit(ctx, admin.ID, "admin_login_locked", false, "attempt budget exhausted")
		return domain.AdminAttempt{Locked: true, RetryAfter: s.cfg.Cooldown}, nil
	}

	s.writeAudit(ctx, admin.ID, "admin_login_failed", false, "wrong password")
	return domain.AdminAttempt{Remaining: int(s.cfg.MaxAttempts - n)}, nil
}

// Require reports whether the admin holds a live session and refreshes
// its idle clock when it does
func (s *AdminAuthService) Require(ctx context.Context, admin *domain.User) (bool, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(admin.ID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load admin session: %w", err)
	}

	var sess domain.AdminSession
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		s.logger.Warn("Discarding corrupt admin session", zap.Int64("admin_id", admin.ID), zap.Error(err))
		s.rdb.Del(ctx, sessionKey(admin.ID))
		return false, nil
	}

	now := time.Now().UTC()
	if now.Sub(sess.LastActivity) > s.cfg.SessionIdle {
		s.rdb.Del(ctx, sessionKey(admin.ID))
		return false, nil
	}

	sess.LastActivity = now
	if err := s.saveSession(ctx, admin.ID, sess); err != nil {
		return false, err
	}
	return true, nil
}

// Logout drops the admin session immediately
func (s *AdminAuthService) Logout(ctx context.Context, admin *domain.User) error {
	if err := s.rdb.Del(ctx, sessionKey(admin.ID)).Err(); err != nil {
		return fmt.Errorf("drop admin session: %w", err)
	}
	s.writeAudit(ctx, admin.ID, "admin_logout", true, "")
	return nil
}

func (s *AdminAuthService) openSession(ctx context.Context, adminID int64) error {
	now := time.Now().UTC()
	return s.saveSession(ctx, adminID, domain.AdminSession{StartedAt: now, LastActivity: now})
}

func (s *AdminAuthService) saveSession(ctx context.Context, adminID int64, sess domain.AdminSession) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal admin session: %w", err)
	}
	// The key TTL backstops the lazy idle check
	if err := s.rdb.Set(ctx, sessionKey(adminID), raw, s.cfg.SessionIdle).Err(); err != nil {
		return fmt.Errorf("save admin session: %w", err)
	}
	return nil
}

// writeAudit records the attempt outcome. An audit write failure is
// logged but never masks the authentication result.
func (s *AdminAuthService) writeAudit(ctx context.Context, adminID int64, action string, success bool, errMsg string) {
	entry := domain.AdminLog{
		AdminID:      adminID,
		Action:       action,
		TargetType:   "auth",
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
