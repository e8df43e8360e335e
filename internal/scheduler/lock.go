package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sweepLockKey = "buyback:sweep:lock"

// SweepLock is a best-effort distributed lock so only one worker instance
// runs a sweep at a time. The TTL bounds how long a crashed holder can keep
// the lock.
type SweepLock struct {
	client *redis.Client
	ttl    time.Duration
	id     string
}

func NewSweepLock(client *redis.Client, ttl time.Duration) *SweepLock {
	return &SweepLock{client: client, ttl: ttl, id: uuid.NewString()}
}

// Acquire returns true when this instance holds the lock.
func (l *SweepLock) Acquire(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, sweepLockKey, l.id, l.ttl).Result()
}

// Release drops the lock only if this instance still holds it.
func (l *SweepLock) Release(ctx context.Context) error {
	const script = `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		end
		return 0
	`
	return l.client.Eval(ctx, script, []string{sweepLockKey}, l.id).Err()
}
