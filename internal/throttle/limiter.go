package throttle

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Class separates the independent event budgets
type Class string

const (
	ClassMessage  Class = "message"
	ClassCallback Class = "callback"
)

// Client is the subset of redis commands the limiter needs
type Client interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// Config holds per-class budgets over a fixed counting window
type Config struct {
	Window         time.Duration
	MessageBudget  int64
	CallbackBudget int64
}

// DefaultConfig mirrors the production defaults: 3 messages and
// 5 callbacks per one-second window.
func DefaultConfig() Config {
	return Config{
		Window:         time.Second,
		MessageBudget:  3,
		CallbackBudget: 5,
	}
}

// Decision is the limiter's verdict for one event
type Decision struct {
	Allowed  bool
	Degraded bool
}

// Limiter is a fixed-window counter per (user, class) kept in Redis.
// When Redis is unreachable the limiter fails open: traffic is admitted
// and the degraded flag is raised for the health surface.
type Limiter struct {
	rdb      Client
	cfg      Config
	degraded atomic.Bool
	logger   *zap.Logger
}

// NewLimiter creates a limiter
func NewLimiter(rdb Client, cfg Config, logger *zap.Logger) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}
	return &Limiter{rdb: rdb, cfg: cfg, logger: logger}
}

// Allow counts the event against the user's budget for its class.
// Rejected events must not reach the state machine; the caller returns
// a "slow down" response instead.
func (l *Limiter) Allow(ctx context.Context, userID int64, class Class) Decision {
	key := fmt.Sprintf("throttle:%s:%d", class, userID)

	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		l.markDegraded(err, userID)
		return Decision{Allowed: true, Degraded: true}
	}
	if n == 1 {
		// First event of the window starts its expiry clock.
		if err := l.rdb.Expire(ctx, key, l.cfg.Window).Err(); err != nil {
			l.markDegraded(err, userID)
			return Decision{Allowed: true, Degraded: true}
		}
	}
	l.degraded.Store(false)

	if n <= l.budget(class) {
		return Decision{Allowed: true}
	}

	// A counter whose expiry was lost (Expire failed, or the process died
	// between INCR and EXPIRE) never resets and would reject this user on
	// every future event. Re-arm the window and admit instead.
	ttl, err := l.rdb.TTL(ctx, key).Result()
	if err != nil {
		l.markDegraded(err, userID)
		return Decision{Allowed: true, Degraded: true}
	}
	if ttl < 0 {
		if err := l.rdb.Expire(ctx, key, l.cfg.Window).Err(); err != nil {
			l.markDegraded(err, userID)
			return Decision{Allowed: true, Degraded: true}
		}
		return Decision{Allowed: true}
	}
	return Decision{Allowed: false}
}

// Degraded reports whether the counter store was unreachable on the most
// recent check. Surfaced as a health signal.
func (l *Limiter) Degraded() bool {
	return l.degraded.Load()
}

func (l *Limiter) budget(class Class) int64 {
	if class == ClassCallback {
		return l.cfg.CallbackBudget
	}
	return l.cfg.MessageBudget
}

func (l *Limiter) markDegraded(err error, userID int64) {
	if l.degraded.CompareAndSwap(false, true) {
		l.logger.Warn("Throttle store unreachable, failing open",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}
