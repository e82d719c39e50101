package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dramirezdlp99/sistema-reservas/internal/booking"
)

// unlockScript deletes the lock only when still held by its owner, so a
// slow holder never releases a lock reacquired by someone else.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// RedisLocker implements Locker over redis SET NX PX, usable across multiple
// server instances sharing one database.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	poll   time.Duration
}

// NewRedisLocker creates a locker on client. ttl bounds how long a crashed
// holder can keep a slot locked.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{
		client: client,
		prefix: "reservas:lock:",
		ttl:    ttl,
		poll:   25 * time.Millisecond,
	}
}

// Acquire polls SET NX until the lock is obtained or ctx expires. Redis
// transport errors are returned as-is so a failover locker can distinguish
// an unavailable redis from genuine contention.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	full := l.prefix + key

	for {
		ok, err := l.client.SetNX(ctx, full, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("redis setnx %s: %w", key, err)
		}
		if ok {
			return func() { l.release(full, token) }, nil
		}

		select {
		case <-time.After(l.poll):
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire %s: %w", key, booking.ErrConcurrency)
		}
	}
}

func (l *RedisLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = unlockScript.Run(ctx, l.client, []string{key}, token).Err()
}
