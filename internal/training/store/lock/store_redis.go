package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"idscore/pkg/platform/sentinel"
)

// DefaultKey is the well-known key of the training lock.
const DefaultKey = "markov:lock:training"

// releaseScript deletes the key only while it still holds the caller's
// token, so a run whose lease expired cannot free a newer holder's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a TTL-bounded advisory lock on a single Redis key.
type RedisLocker struct {
	client *redis.Client
	key    string
}

type Option func(*RedisLocker)

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(l *RedisLocker) {
		if key != "" {
			l.key = key
		}
	}
}

func NewRedis(client *redis.Client, opts ...Option) *RedisLocker {
	l := &RedisLocker{client: client, key: DefaultKey}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire sets the key with NX and PX ttl. It returns sentinel.ErrLockHeld
// when the key already exists.
func (l *RedisLocker) Acquire(ctx context.Context, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("lock ttl must be positive, got %s", ttl)
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	if !ok {
		return "", sentinel.ErrLockHeld
	}
	return token, nil
}

// Release is idempotent: a token that no longer owns the key is ignored.
func (l *RedisLocker) Release(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}

// Holder returns the current token, or "" when the lock is free.
func (l *RedisLocker) Holder(ctx context.Context) (string, error) {
	token, err := l.client.Get(ctx, l.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read lock %s: %w", l.key, err)
	}
	return token, nil
}
