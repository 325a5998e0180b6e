package testutil

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// FakeRedis is an in-memory stand-in for the narrow redis command sets
// used across the codebase. It is built on the go-redis result helpers so
// callers see real command types. Setting Err makes every command fail,
// which is how tests simulate an unreachable Redis.
type FakeRedis struct {
	mu     sync.Mutex
	Values map[string]string
	TTLs   map[string]time.Duration
	Err    error
}

// NewFakeRedis creates an empty fake
func NewFakeRedis() *FakeRedis {
	return &FakeRedis{
		Values: make(map[string]string),
		TTLs:   make(map[string]time.Duration),
	}
}

func (f *FakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return redis.NewStringResult("", f.Err)
	}
	v, ok := f.Values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *FakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return redis.NewStatusResult("", f.Err)
	}
	f.Values[key] = stringify(value)
	f.TTLs[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *FakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return redis.NewIntResult(0, f.Err)
	}
	var removed int64
	for _, key := range keys {
		if _, ok := f.Values[key]; ok {
			removed++
		}
		delete(f.Values, key)
		delete(f.TTLs, key)
	}
	return redis.NewIntResult(removed, nil)
}

func (f *FakeRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return redis.NewIntResult(0, f.Err)
	}
	n, _ := strconv.ParseInt(f.Values[key], 10, 64)
	n++
	f.Values[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

func (f *FakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return redis.NewBoolResult(false, f.Err)
	}
	if _, ok := f.Values[key]; !ok {
		return redis.NewBoolResult(false, nil)
	}
	f.TTLs[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *FakeRedis) TTL(ctx context.Context, key string) *redis.DurationCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return redis.NewDurationResult(0, f.Err)
	}
	ttl, ok := f.TTLs[key]
	if !ok {
		return redis.NewDurationResult(-2, nil)
	}
	return redis.NewDurationResult(ttl, nil)
}

func stringify(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
