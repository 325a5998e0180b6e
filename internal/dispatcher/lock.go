package dispatcher

import (
	"context"
	"sync"
	"time"
)

// keyedLock serializes event processing per user. Acquire waits a bounded
// time for the current holder; expiry means the event is rejected rather
// than queued behind a slow transition.
type keyedLock struct {
	mu    sync.Mutex
	locks map[int64]chan struct{}
}

func newKeyedLock() *keyedLock {
	return &keyedLock{locks: make(map[int64]chan struct{})}
}

func (l *keyedLock) acquire(ctx context.Context, key int64, wait time.Duration) bool {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		l.mu.Lock()
		ch, held := l.locks[key]
		if !held {
			l.locks[key] = make(chan struct{})
			l.mu.Unlock()
			return true
		}
		l.mu.Unlock()

		select {
		case <-ch:
			// Holder released, race for the lock again
		case <-timer.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

func (l *keyedLock) release(key int64) {
	l.mu.Lock()
	ch := l.locks[key]
	delete(l.locks, key)
	l.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}
