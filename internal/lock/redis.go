// Package lock provides a Redis-backed mutual exclusion lock shared by all replicas.
package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"uploadstore/internal/config"
)

// releaseTimeout bounds the unlock round trip, which runs even after the caller's context is done.
const releaseTimeout = 2 * time.Second

// unlockScript deletes the key only if it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Connect creates a Redis client and verifies the connection.
func Connect(ctx context.Context, c config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        c.Addr,
		Password:    c.Password,
		DB:          c.DB,
		DialTimeout: 2 * time.Second,
		ReadTimeout: 2 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Client is the subset of the Redis client used by RedisLocker.
type Client interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisLocker is a single-key lock with a lease. The lease expires on its own if the holder dies.
type RedisLocker struct {
	client Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisLocker creates a lock stored under key with the given lease.
func NewRedisLocker(client Client, key string, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "redis_lock"), slog.String("key", key)),
	}
}

// TryLock acquires the lock without waiting. acquired is false when another holder owns it.
func (l *RedisLocker) TryLock(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := unlockScript.Run(rctx, l.client, []string{l.key}, token).Err(); err != nil {
			l.logger.Warn("lock release failed", slog.String("error", err.Error()))
		}
	}
	return release, true, nil
}
