package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/silaibook/silaibook/internal/shared"
)

// ErrLockHeld is returned when another process owns the lock. It also
// matches shared.ErrInvalidState so handlers answer 409.
var ErrLockHeld = errors.New("platform/cache: lock held by another process")

// Locker hands out short-lived redis locks for critical sections that must
// not overlap across processes.
type Locker struct {
	client *redislock.Client
}

// NewLocker wraps a redis client.
func NewLocker(client redis.UniversalClient) *Locker {
	return &Locker{client: redislock.New(client)}
}

// WithLock runs fn while holding key. The lock is released when fn returns.
func (l *Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l == nil || l.client == nil {
		return fn(ctx)
	}
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return fmt.Errorf("%w: %w: %s", shared.ErrInvalidState, ErrLockHeld, key)
	}
	if err != nil {
		return fmt.Errorf("platform/cache: obtain lock %s: %w", key, err)
	}
	defer func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}()
	return fn(ctx)
}
