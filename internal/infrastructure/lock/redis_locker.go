package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLocker is a SET NX lock shared by every replica of the service
type RedisLocker struct {
	rdb       redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	wait      time.Duration
	logger    zerolog.Logger
}

// NewRedisLocker creates a redis-backed locker. ttl bounds how long a crashed
// holder keeps the lock; wait bounds how long Acquire retries.
func NewRedisLocker(rdb redis.UniversalClient, keyPrefix string, ttl, wait time.Duration, logger zerolog.Logger) *RedisLocker {
	if keyPrefix == "" {
		keyPrefix = "lock:"
	}
	return &RedisLocker{
		rdb:       rdb,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		wait:      wait,
		logger:    logger,
	}
}

// Acquire retries SET NX with capped exponential backoff until wait elapses
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := l.keyPrefix + key
	value := uuid.New().String()
	deadline := time.Now().Add(l.wait)
	backoff := 10 * time.Millisecond

	for {
		ok, err := l.rdb.SetNX(ctx, lockKey, value, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", lockKey, err)
		}
		if ok {
			l.logger.Debug().Str("key", lockKey).Msg("Acquired lock")
			return func() { l.release(lockKey, value) }, nil
		}
		if !time.Now().Before(deadline) {
			return nil, ErrNotAcquired
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotAcquired, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
			if backoff > 500*time.Millisecond {
				backoff = 500 * time.Millisecond
			}
		}
	}
}

func (l *RedisLocker) release(lockKey, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := releaseScript.Run(ctx, l.rdb, []string{lockKey}, value).Int64()
	if err != nil {
		l.logger.Error().Err(err).Str("key", lockKey).Msg("Failed to release lock")
		return
	}
	if n == 0 {
		l.logger.Warn().Str("key", lockKey).Msg("Lock expired before release")
		return
	}
	l.logger.Debug().Str("key", lockKey).Msg("Released lock")
}
