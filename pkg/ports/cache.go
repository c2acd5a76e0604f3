package ports

import (
	"context"
	"time"
)

// Cache is the shared cache the session and record layers depend on.
// Get returns domain.ErrCacheMiss when the key is absent.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// UnlockFunc releases an advisory lock.
type UnlockFunc func(ctx context.Context) error

// Locker provides advisory, best-effort distributed locking. Lock makes a
// fixed number of attempts with a fixed backoff and returns
// domain.ErrLockNotAcquired when the budget is exhausted; callers must
// handle acquisition failure themselves.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
