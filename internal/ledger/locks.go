package ledger

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	internalErrors "github.com/gcbaptista/notes-discovery/internal/errors"
)

// accountLocks hands out one single-slot semaphore per user, so operations on
// the same account run one at a time while different accounts never wait on
// each other.
type accountLocks struct {
	mu    sync.Mutex
	byKey map[string]*semaphore.Weighted

	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
}

func newAccountLocks(timeout time.Duration, maxRetries int, backoff time.Duration) *accountLocks {
	return &accountLocks{
		byKey:      make(map[string]*semaphore.Weighted),
		timeout:    timeout,
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

func (l *accountLocks) get(userID string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	sem, ok := l.byKey[userID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.byKey[userID] = sem
	}
	return sem
}

// acquire waits up to timeout for the user's slot, retrying maxRetries times
// with a doubling backoff. It gives up early when ctx ends. On success the
// returned func releases the slot.
func (l *accountLocks) acquire(ctx context.Context, userID string) (func(), error) {
	sem := l.get(userID)
	start := time.Now()
	backoff := l.backoff

	for attempt := 1; ; attempt++ {
		lockCtx, cancel := context.WithTimeout(ctx, l.timeout)
		err := sem.Acquire(lockCtx, 1)
		cancel()
		if err == nil {
			return func() { sem.Release(1) }, nil
		}

		if ctx.Err() != nil || attempt > l.maxRetries {
			return nil, internalErrors.NewLedgerContentionError(userID, attempt, time.Since(start))
		}

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, internalErrors.NewLedgerContentionError(userID, attempt, time.Since(start))
		}
		backoff *= 2
	}
}
