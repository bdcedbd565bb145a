// Package redis manages the Redis client shared by the rate limiter and readiness checks.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/config"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

const (
	dialTimeout  = 5 * time.Second
	ioTimeout    = 3 * time.Second
	pingTimeout  = 5 * time.Second
	maxIdleTime  = 5 * time.Minute
	maxRetries   = 3
	defaultPool  = 10
	defaultIdles = 2
)

// RedisConnection owns a Redis client and its lifecycle.
type RedisConnection struct {
	cfg    *config.RedisConfig
	client redis.UniversalClient
	logger logger.Logger
}

// NewRedisConnection creates a connection manager. Connect must be called before use.
func NewRedisConnection(cfg *config.RedisConfig, log logger.Logger) *RedisConnection {
	return &RedisConnection{cfg: cfg, logger: log}
}

// NewRedisConnectionFromClient wraps an existing client, used by tests running against miniredis.
func NewRedisConnectionFromClient(client redis.UniversalClient, log logger.Logger) *RedisConnection {
	return &RedisConnection{client: client, logger: log}
}

// Connect creates the client and verifies it with a ping.
func (rc *RedisConnection) Connect(ctx context.Context) error {
	if rc.client != nil {
		rc.logger.Warn(ctx, "Redis connection already initialized")
		return nil
	}

	poolSize := rc.cfg.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPool
	}
	minIdle := rc.cfg.MinIdleConns
	if minIdle <= 0 {
		minIdle = defaultIdles
	}

	client := redis.NewClient(&redis.Options{
		Addr:            rc.cfg.Address,
		Password:        rc.cfg.Password,
		DB:              rc.cfg.DB,
		PoolSize:        poolSize,
		MinIdleConns:    minIdle,
		ConnMaxIdleTime: maxIdleTime,
		DialTimeout:     dialTimeout,
		ReadTimeout:     ioTimeout,
		WriteTimeout:    ioTimeout,
		MaxRetries:      maxRetries,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		rc.logger.Error(ctx, "Redis ping failed", err, logger.Fields{"addr": rc.cfg.Address})
		return fmt.Errorf("redis ping failed: %w", err)
	}

	rc.client = client
	rc.logger.Info(ctx, "Redis connection established", logger.Fields{
		"addr":      rc.cfg.Address,
		"db":        rc.cfg.DB,
		"pool_size": poolSize,
	})
	return nil
}

// GetClient returns the client, or nil before Connect.
func (rc *RedisConnection) GetClient() redis.UniversalClient {
	return rc.client
}

// Ping checks connectivity. It is used by the readiness endpoint.
func (rc *RedisConnection) Ping(ctx context.Context) error {
	if rc.client == nil {
		return fmt.Errorf("redis connection not initialized")
	}
	return rc.client.Ping(ctx).Err()
}

// Close releases the client.
func (rc *RedisConnection) Close() error {
	if rc.client == nil {
		return nil
	}
	if err := rc.client.Close(); err != nil {
		rc.logger.Error(context.Background(), "Failed to close Redis connection", err)
		return err
	}
	rc.client = nil
	rc.logger.Info(context.Background(), "Redis connection closed")
	return nil
}
