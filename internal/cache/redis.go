package cache

import (
	"context"
	"errors"
	"time"

	"github.com/condohub/billing/internal/config"
	"github.com/condohub/billing/internal/logger"
	"github.com/redis/go-redis/v9"
)

const scanBatch = 200

// RedisCache implements Cache on Redis so invalidations are seen by every
// instance of the service
type RedisCache struct {
	client  *redis.Client
	ttl     time.Duration
	enabled bool
	logger  *logger.Logger
}

// NewRedisClient opens a client and pings it
func NewRedisClient(ctx context.Context, cfg *config.Configuration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// NewRedisCache wraps an existing client
func NewRedisCache(client *redis.Client, cfg *config.Configuration, logger *logger.Logger) *RedisCache {
	ttl := cfg.Cache.TTL
	if ttl <= 0 {
		ttl = DefaultExpiration
	}
	return &RedisCache{
		client:  client,
		ttl:     ttl,
		enabled: cfg.Cache.Enabled,
		logger:  logger,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	if !c.enabled {
		return "", false
	}
	v, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warnw("redis cache get failed", "key", key, "error", err)
		}
		return "", false
	}
	return v, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value string, expiration time.Duration) {
	if !c.enabled {
		return
	}
	if expiration <= 0 {
		expiration = c.ttl
	}
	if err := c.client.Set(ctx, key, value, expiration).Err(); err != nil {
		c.logger.Warnw("redis cache set failed", "key", key, "error", err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Errorw("redis cache delete failed", "key", key, "error", err)
	}
}

// DeleteByPrefix scans for matching keys and deletes them in batches
func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) {
	iter := c.client.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			c.del(ctx, prefix, batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Errorw("redis cache scan failed", "prefix", prefix, "error", err)
	}
	if len(batch) > 0 {
		c.del(ctx, prefix, batch)
	}
}

func (c *RedisCache) Flush(ctx context.Context) {
	if err := c.client.FlushDB(ctx).Err(); err != nil {
		c.logger.Errorw("redis cache flush failed", "error", err)
	}
}

func (c *RedisCache) del(ctx context.Context, prefix string, keys []string) {
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Errorw("redis cache prefix delete failed", "prefix", prefix, "error", err)
	}
}
