// Package lock provides a Redis-backed advisory lock for serializing
// journal generation across server and worker processes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jimdaga/casebook/internal/journal"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrNotHeld is returned by release when the lock expired or was taken over
var ErrNotHeld = errors.New("lock no longer held")

// Client is the part of a go-redis client the locker uses
type Client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	redis.Scripter
}

// RedisLocker implements journal.Locker with SET NX PX
type RedisLocker struct {
	rdb Client
}

// NewRedisLocker creates a locker on an existing client
func NewRedisLocker(rdb Client) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

// Acquire takes the lock for ttl. When another holder has it, Acquire
// returns journal.ErrGenerationInProgress without waiting.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, journal.ErrGenerationInProgress
	}

	release := func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}
		if n == 0 {
			return ErrNotHeld
		}
		return nil
	}
	return release, nil
}
