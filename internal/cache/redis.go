package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bilgisen/agcofeed/internal/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker provides a short-lived mutual exclusion key shared by all runs.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
	Close() error
}

// NewLocker returns a redis-backed lock when REDIS_URL is set, otherwise an in-process one.
func NewLocker(cfg *config.Config) (Locker, error) {
	if cfg.RedisURL == "" {
		return NewMemoryLock(cfg.RedisPrefix), nil
	}
	return NewRedisLock(cfg)
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type RedisLock struct {
	client *redis.Client
	prefix string
}

func NewRedisLock(cfg *config.Config) (*RedisLock, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisLock{
		client: client,
		prefix: cfg.RedisPrefix,
	}, nil
}

func (r *RedisLock) Close() error {
	return r.client.Close()
}

func (r *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.prefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis setnx error: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (r *RedisLock) Release(ctx context.Context, key, token string) error {
	err := releaseScript.Run(ctx, r.client, []string{r.prefix + key}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis release error: %w", err)
	}
	return nil
}
