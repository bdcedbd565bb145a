// Package ratelimit implements fixed-window request limits for the credential endpoints.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/service"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

var _ service.RateLimitService = (*RedisRateLimiter)(nil)

// Config holds the window shared by all limiter backends.
type Config struct {
	Limit     int
	Window    time.Duration
	KeyPrefix string
}

func (c Config) withDefaults() Config {
	if c.Limit <= 0 {
		c.Limit = 20
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "ratelimit"
	}
	return c
}

// fixedWindowScript counts one hit and returns {count, ttl_ms}. The expiry is set only by the
// first hit of a window so later hits cannot extend it.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
    ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisRateLimiter shares counters between replicas through Redis.
type RedisRateLimiter struct {
	client redis.UniversalClient
	cfg    Config
	logger logger.Logger
}

// NewRedisRateLimiter creates a Redis-backed limiter.
func NewRedisRateLimiter(client redis.UniversalClient, cfg Config, log logger.Logger) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	cfg = cfg.withDefaults()
	log.Info(context.Background(), "Redis rate limiter initialized", logger.Fields{
		"limit":  cfg.Limit,
		"window": cfg.Window.String(),
	})
	return &RedisRateLimiter{client: client, cfg: cfg, logger: log}, nil
}

// Allow counts a request for key and reports whether it is within the limit.
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (*service.RateLimitResult, error) {
	res, err := fixedWindowScript.Run(ctx, rl.client, []string{rl.buildKey(key)}, rl.cfg.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) < 2 {
		return nil, fmt.Errorf("invalid rate limit script result")
	}
	return decide(int(res[0]), rl.cfg.Limit, time.Duration(res[1])*time.Millisecond), nil
}

// Reset clears the counter for key.
func (rl *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	if err := rl.client.Del(ctx, rl.buildKey(key)).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

func (rl *RedisRateLimiter) buildKey(key string) string {
	return rl.cfg.KeyPrefix + ":" + key
}

func decide(count, limit int, ttl time.Duration) *service.RateLimitResult {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	res := &service.RateLimitResult{Allowed: count <= limit, Remaining: remaining}
	if !res.Allowed {
		res.RetryAfter = int((ttl + time.Second - 1) / time.Second)
		if res.RetryAfter < 1 {
			res.RetryAfter = 1
		}
	}
	return res
}
