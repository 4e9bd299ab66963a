// utils/redis_lock.go
package utils

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	lockKeyPrefix    = "withdrawal:lock:"
	lockTTL          = 10 * time.Second
	lockPollInterval = 50 * time.Millisecond
)

// RedisUserLocker is a per-user advisory lock on Redis. It serializes the
// balance-check-plus-insert critical section of withdrawal requests across
// instances. The TTL bounds how long a crashed holder can block a user.
type RedisUserLocker struct {
	client *redis.Client
}

func NewRedisUserLocker(client *redis.Client) *RedisUserLocker {
	return &RedisUserLocker{client: client}
}

// Lock blocks until the user's lock is acquired or ctx is done. The
// returned function releases the lock; release is skipped if another
// holder took over after TTL expiry.
func (l *RedisUserLocker) Lock(ctx context.Context, userID string) (func(), error) {
	key := lockKeyPrefix + userID
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

func (l *RedisUserLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	current, err := l.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return
	}
	if err != nil {
		log.Printf("Failed to read withdrawal lock %s: %v", key, err)
		return
	}
	if current != token {
		// Lock expired and was re-acquired by someone else
		return
	}
	if err := l.client.Del(ctx, key).Err(); err != nil {
		log.Printf("Failed to release withdrawal lock %s: %v", key, err)
	}
}
