package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/redis/go-redis/v9"
	"github.com/soltixdb/tankwatch/internal/config"
	"github.com/soltixdb/tankwatch/internal/logging"
	"github.com/soltixdb/tankwatch/internal/utils"
)

// RedisCache stores snappy-compressed results in Redis with a TTL, so every
// API and worker replica shares hits.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *logging.Logger
}

// NewRedisCache connects to cfg.RedisURL and pings it.
func NewRedisCache(cfg config.CacheConfig, logger *logging.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		opts = &redis.Options{Addr: cfg.RedisURL}
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	if cfg.RedisDB != 0 {
		opts.DB = cfg.RedisDB
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), utils.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if logger == nil {
		logger = logging.Global()
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "tankwatch:result:"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: cfg.TTL, logger: logger}, nil
}

func (c *RedisCache) redisKey(key Key) string {
	return c.prefix + key.String()
}

// Get implements Cache. Corrupt payloads are deleted and reported as a miss.
func (c *RedisCache) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	k := c.redisKey(key)
	raw, err := c.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache key %s: %w", k, err)
	}

	data, err := snappy.Decode(nil, raw)
	if err != nil {
		c.logger.Warn("Dropping corrupt cache entry", "key", k, "error", err)
		c.client.Del(ctx, k)
		return nil, false, nil
	}
	return data, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key Key, value []byte) error {
	k := c.redisKey(key)
	if err := c.client.Set(ctx, k, snappy.Encode(nil, value), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", k, err)
	}
	return nil
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
