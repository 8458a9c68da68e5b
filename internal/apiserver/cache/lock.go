// Package cache holds the Redis-backed coordination primitives shared by replicas.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/amoylab/cleanbill/internal/common/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisClient opens a client for cfg; the caller owns Close
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// LockerConfig holds configuration for the locker
type LockerConfig struct {
	RedisClient redis.Cmdable
	KeyPrefix   string
}

// Locker hands out expiring mutual-exclusion locks keyed by name
type Locker struct {
	logger    *zap.Logger
	client    redis.Cmdable
	keyPrefix string
}

func NewLocker(config LockerConfig, logger *zap.Logger) *Locker {
	return &Locker{
		logger:    logger.Named("cache.lock"),
		client:    config.RedisClient,
		keyPrefix: config.KeyPrefix,
	}
}

// Lock is a held lock. It expires on its own after the TTL given to Acquire.
type Lock struct {
	locker *Locker
	key    string
	token  string
}

// Acquire tries once to take the lock. A nil Lock and nil error means another holder has it.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lock, error) {
	key := l.redisKey(name)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		l.logger.Debug("lock held elsewhere", zap.String("key", key))
		return nil, nil
	}
	return &Lock{locker: l, key: key, token: token}, nil
}

// Release frees the lock if it is still ours
func (lk *Lock) Release(ctx context.Context) error {
	if lk == nil {
		return nil
	}
	err := releaseScript.Run(ctx, lk.locker.client, []string{lk.key}, lk.token).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func (l *Locker) redisKey(name string) string {
	if l.keyPrefix == "" {
		return "lock:" + name
	}
	return l.keyPrefix + ":lock:" + name
}
