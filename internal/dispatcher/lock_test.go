package dispatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLock_AcquireAndRelease(t *testing.T) {
	l := newKeyedLock()
	ctx := context.Background()

	assert.True(t, l.acquire(ctx, 1, 10*time.Millisecond))
	l.release(1)
	assert.True(t, l.acquire(ctx, 1, 10*time.Millisecond))
	l.release(1)
}

func TestKeyedLock_IndependentKeys(t *testing.T) {
	l := newKeyedLock()
	ctx := context.Background()

	assert.True(t, l.acquire(ctx, 1, 10*time.Millisecond))
	assert.True(t, l.acquire(ctx, 2, 10*time.Millisecond), "another user's lock must not block")
	l.release(1)
	l.release(2)
}

func TestKeyedLock_ContentionTimesOut(t *testing.T) {
	l := newKeyedLock()
	ctx := context.Background()

	assert.True(t, l.acquire(ctx, 1, 10*time.Millisecond))
	assert.False(t, l.acquire(ctx, 1, 20*time.Millisecond), "held lock must reject after the wait")
	l.release(1)
}

func TestKeyedLock_WaiterProceedsAfterRelease(t *testing.T) {
	l := newKeyedLock()
	ctx := context.Background()

	assert.True(t, l.acquire(ctx, 1, 10*time.Millisecond))

	var wg sync.WaitGroup
	wg.Add(1)
	acquired := false
	go func() {
		defer wg.Done()
		acquired = l.acquire(ctx, 1, 500*time.Millisecond)
	}()

	time.Sleep(20 * time.Millisecond)
	l.release(1)
	wg.Wait()

	assert.True(t, acquired, "waiter must get the lock once released")
	l.release(1)
}

func TestKeyedLock_ContextCancelAborts(t *testing.T) {
	l := newKeyedLock()
	ctx, cancel := context.WithCancel(context.Background())

	assert.True(t, l.acquire(ctx, 1, time.Second))

	done := make(chan bool)
	go func() {
		done <- l.acquire(ctx, 1, 10*time.Second)
	}()

	cancel()
	assert.False(t, <-done)
	l.release(1)
}
