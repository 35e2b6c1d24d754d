package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const defaultSharedOrderTTL = 10 * time.Minute

// SharedOrderCache holds rendered shared-order responses keyed by share
// token. Orders are immutable, so a cached response can never go stale;
// the TTL only bounds memory for tokens nobody polls anymore.
type SharedOrderCache interface {
	Get(ctx context.Context, token string) ([]byte, bool)
	Set(ctx context.Context, token string, payload []byte)
}

// Config describes the Redis connection for the shared-order cache.
type Config struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisCache implements SharedOrderCache over Redis. With Enabled false every
// operation is a no-op, so callers never branch on configuration.
type RedisCache struct {
	client  *redis.Client
	enabled bool
	ttl     time.Duration
	logger  *zap.Logger
}

// NewRedisCache connects to Redis (when enabled) and returns the cache.
func NewRedisCache(cfg Config, logger *zap.Logger) (*RedisCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		return &RedisCache{enabled: false, logger: logger}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: connect to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultSharedOrderTTL
	}
	return &RedisCache{client: client, enabled: true, ttl: ttl, logger: logger}, nil
}

func sharedOrderKey(token string) string {
	return "shared_order:" + token
}

// Get returns the cached response for a share token, if present.
func (c *RedisCache) Get(ctx context.Context, token string) ([]byte, bool) {
	if !c.enabled {
		return nil, false
	}
	payload, err := c.client.Get(ctx, sharedOrderKey(token)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("shared order cache read failed", zap.Error(err))
		}
		return nil, false
	}
	return payload, true
}

// Set stores the rendered response for a share token. Failures are logged
// and swallowed; the cache is best effort.
func (c *RedisCache) Set(ctx context.Context, token string, payload []byte) {
	if !c.enabled {
		return
	}
	if err := c.client.Set(ctx, sharedOrderKey(token), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("shared order cache write failed", zap.Error(err))
	}
}
