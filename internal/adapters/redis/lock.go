package redis

import (
	"context"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
	"github.com/trebframework/treb/pkg/domain"
	"github.com/trebframework/treb/pkg/ports"
)

// unlockScript releases the lock only if we still hold it.
const unlockScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

// Locker implements ports.Locker using Redis SET NX PX. Acquisition is
// best-effort: a fixed number of attempts with a fixed backoff, then
// domain.ErrLockNotAcquired.
type Locker struct {
	client   *backend.Client
	prefix   string
	attempts int
	backoff  time.Duration
}

// NewLocker creates a Redis locker. attempts below 1 is treated as 1.
func NewLocker(client *backend.Client, prefix string, attempts int, backoff time.Duration) *Locker {
	if attempts < 1 {
		attempts = 1
	}
	return &Locker{
		client:   client,
		prefix:   prefix,
		attempts: attempts,
		backoff:  backoff,
	}
}

// Lock acquires an advisory lock for the given key.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	lockKey := l.prefix + "lock:" + key
	// Value is unique per acquisition to ensure safe release.
	val := fmt.Sprintf("%d", time.Now().UnixNano())

	for i := 0; i < l.attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(l.backoff):
			}
		}
		success, err := l.client.SetNX(ctx, lockKey, val, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis error acquiring lock: %w", err)
		}
		if success {
			return func(ctx context.Context) error {
				return l.client.Eval(ctx, unlockScript, []string{lockKey}, val).Err()
			}, nil
		}
	}
	return nil, domain.ErrLockNotAcquired
}
