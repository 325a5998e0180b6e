package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"trainingbot/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client is the subset of redis commands the store needs. *redis.Client
// satisfies it; tests provide a fake built on the redis result helpers.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Store keeps one conversation session per user in Redis with a TTL, so
// abandoned conversations expire on their own. Only the dispatcher writes
// here, under its per-user lock.
type Store struct {
	rdb    Client
	scope  string
	ttl    time.Duration
	logger *zap.Logger
}

// NewStore creates a session store. scope namespaces keys so several bots
// can share one Redis.
func NewStore(rdb Client, scope string, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{rdb: rdb, scope: scope, ttl: ttl, logger: logger}
}

func (s *Store) key(userID int64) string {
	return fmt.Sprintf("fsm:%s:%d", s.scope, userID)
}

// Load returns the stored session for the user. The second return value
// is false when no session exists (first contact or expired).
func (s *Store) Load(ctx context.Context, userID int64) (domain.Session, bool, error) {
	raw, err := s.rdb.Get(ctx, s.key(userID)).Result()
	if err == redis.Nil {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("load session for %d: %w", userID, err)
	}

	var sess domain.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		// A corrupt blob is treated as absent; the machine rebuilds from
		// the persistent store on the next transition.
		s.logger.Warn("Discarding corrupt session blob",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return domain.Session{}, false, nil
	}
	return sess, true, nil
}

// Save overwrites the session and resets its TTL
func (s *Store) Save(ctx context.Context, userID int64, sess domain.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session for %d: %w", userID, err)
	}
	if err := s.rdb.Set(ctx, s.key(userID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session for %d: %w", userID, err)
	}
	return nil
}

// Delete removes the session, e.g. on flow completion or logout
func (s *Store) Delete(ctx context.Context, userID int64) error {
	if err := s.rdb.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("delete session for %d: %w", userID, err)
	}
	return nil
}
