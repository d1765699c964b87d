package infra

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SweepLock is a best-effort cross-process mutex on Redis SET NX. The TTL
// bounds how long a crashed holder can keep the lock; correctness of the
// guarded sweep updates never depends on holding it.
type SweepLock struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSweepLock(rdb *redis.Client, ttl time.Duration) *SweepLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &SweepLock{rdb: rdb, ttl: ttl}
}

// NewRedisClient connects a Redis client for lock coordination.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// TryAcquire attempts to take the named lock. It reports false when another
// holder has it.
func (l *SweepLock) TryAcquire(ctx context.Context, name string) (bool, error) {
	return l.rdb.SetNX(ctx, "lock:"+name, 1, l.ttl).Result()
}

// Release drops the named lock. Best effort: an expired or missing key is
// not an error.
func (l *SweepLock) Release(ctx context.Context, name string) {
	l.rdb.Del(ctx, "lock:"+name)
}
