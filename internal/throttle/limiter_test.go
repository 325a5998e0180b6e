package throttle

import (
	"context"
	"errors"
	"testing"
	"time"

	"trainingbot/internal/testutil"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// expireDropper fails the first n Expire calls and then recovers, which
// simulates a partial Redis failure between INCR and EXPIRE.
type expireDropper struct {
	*testutil.FakeRedis
	drops int
}

func (e *expireDropper) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	if e.drops > 0 {
		e.drops--
		return redis.NewBoolResult(false, errors.New("connection reset"))
	}
	return e.FakeRedis.Expire(ctx, key, expiration)
}

func TestLimiter_AllowsWithinBudget(t *testing.T) {
	rdb := testutil.NewFakeRedis()
	l := NewLimiter(rdb, DefaultConfig(), testutil.NewTestLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d := l.Allow(ctx, 100, ClassMessage)
		assert.True(t, d.Allowed, "message %d should be admitted", i+1)
	}

	d := l.Allow(ctx, 100, ClassMessage)
	assert.False(t, d.Allowed, "fourth message in the window must be rejected")
}

func TestLimiter_CallbackBudgetIsSeparate(t *testing.T) {
	rdb := testutil.NewFakeRedis()
	l := NewLimiter(rdb, DefaultConfig(), testutil.NewTestLogger())
	ctx := context.Background()

	// Exhaust the message budget
	for i := 0; i < 4; i++ {
		l.Allow(ctx, 100, ClassMessage)
	}

	for i := 0; i < 5; i++ {
		d := l.Allow(ctx, 100, ClassCallback)
		assert.True(t, d.Allowed, "callback %d should be admitted", i+1)
	}
	d := l.Allow(ctx, 100, ClassCallback)
	assert.False(t, d.Allowed, "sixth callback in the window must be rejected")
}

func TestLimiter_UsersAreIndependent(t *testing.T) {
	rdb := testutil.NewFakeRedis()
	l := NewLimiter(rdb, DefaultConfig(), testutil.NewTestLogger())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		l.Allow(ctx, 100, ClassMessage)
	}

	d := l.Allow(ctx, 200, ClassMessage)
	assert.True(t, d.Allowed, "another user's budget must be unaffected")
}

func TestLimiter_FailsOpenWhenRedisDown(t *testing.T) {
	rdb := testutil.NewFakeRedis()
	rdb.Err = errors.New("connection refused")
	l := NewLimiter(rdb, DefaultConfig(), testutil.NewTestLogger())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		d := l.Allow(ctx, 100, ClassMessage)
		assert.True(t, d.Allowed, "traffic is admitted while the counter store is down")
		assert.True(t, d.Degraded)
	}
	assert.True(t, l.Degraded())
}

func TestLimiter_RearmsCounterThatLostItsExpiry(t *testing.T) {
	rdb := &expireDropper{FakeRedis: testutil.NewFakeRedis(), drops: 1}
	l := NewLimiter(rdb, DefaultConfig(), testutil.NewTestLogger())
	ctx := context.Background()

	// The first event's EXPIRE is lost, leaving a counter with no window
	d := l.Allow(ctx, 100, ClassMessage)
	assert.True(t, d.Allowed)
	assert.True(t, d.Degraded)
	assert.NotContains(t, rdb.TTLs, "throttle:message:100")

	for i := 0; i < 2; i++ {
		assert.True(t, l.Allow(ctx, 100, ClassMessage).Allowed)
	}

	// The over-budget event must detect the stranded counter, re-arm its
	// window and admit, not reject the user forever.
	d = l.Allow(ctx, 100, ClassMessage)
	assert.True(t, d.Allowed, "a counter with no expiry must be repaired, not enforced")
	assert.Equal(t, time.Second, rdb.TTLs["throttle:message:100"])

	// With the window armed the usual rejection applies again
	d = l.Allow(ctx, 100, ClassMessage)
	assert.False(t, d.Allowed)
}

func TestLimiter_DegradedFlagClearsOnRecovery(t *testing.T) {
	rdb := testutil.NewFakeRedis()
	rdb.Err = errors.New("connection refused")
	l := NewLimiter(rdb, DefaultConfig(), testutil.NewTestLogger())
	ctx := context.Background()

	l.Allow(ctx, 100, ClassMessage)
	assert.True(t, l.Degraded())

	rdb.Err = nil
	d := l.Allow(ctx, 100, ClassMessage)
	assert.True(t, d.Allowed)
	assert.False(t, l.Degraded())
}
