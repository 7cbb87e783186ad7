// Package rediscache caches computed statistics in Redis.
package rediscache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultTTL = 10 * time.Minute
	opTimeout  = 2 * time.Second
	scanRounds = 10
)

// Cache stores byte values with a TTL. Failures are logged and treated as
// misses; callers never see a Redis error.
type Cache struct {
	rc     *redis.Client
	logger *zap.Logger
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// New connects to Redis. The ping result is returned so the caller can decide
// whether to run without a summary cache.
func New(ctx context.Context, opts Options, logger *zap.Logger) (*Cache, error) {
	rc := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
	})
	pctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := rc.Ping(pctx).Err(); err != nil {
		_ = rc.Close()
		return nil, err
	}
	return NewWithClient(rc, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rc *redis.Client, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{rc: rc, logger: logger}
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.rc.Close()
}

// Get returns the cached bytes for key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	b, err := c.rc.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return b, true
}

// Set stores b under key. A non-positive ttl uses the default.
func (c *Cache) Set(ctx context.Context, key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := c.rc.Set(ctx, key, b, ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidatePrefix deletes every key starting with prefix using SCAN.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var cursor uint64
	for i := 0; i < scanRounds; i++ {
		keys, next, err := c.rc.Scan(ctx, cursor, prefix+"*", 1000).Result()
		if err != nil {
			c.logger.Warn("cache scan failed", zap.String("prefix", prefix), zap.Error(err))
			return
		}
		if len(keys) > 0 {
			if err := c.rc.Del(ctx, keys...).Err(); err != nil {
				c.logger.Warn("cache invalidate failed", zap.String("prefix", prefix), zap.Error(err))
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
