package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/aescanero/webapp/internal/application/health"
	"github.com/aescanero/webapp/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewClient builds a Redis client from configuration
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// Check implements health.Check by pinging Redis
type Check struct {
	client        redis.UniversalClient
	slowThreshold time.Duration
	logger        *zap.Logger
}

// NewCheck creates a Redis health check. A PING slower than slowThreshold
// reports Degraded; zero disables the threshold.
func NewCheck(client redis.UniversalClient, slowThreshold time.Duration, logger *zap.Logger) *Check {
	return &Check{
		client:        client,
		slowThreshold: slowThreshold,
		logger:        logger,
	}
}

// Name returns the check name
func (c *Check) Name() string {
	return "redis"
}

// Check pings Redis
func (c *Check) Check(ctx context.Context) health.Result {
	start := time.Now()
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.logger.Debug("redis ping failed", zap.Error(err))
		return health.Unhealthy("redis is unreachable", fmt.Errorf("failed to ping redis: %w", err))
	}
	latency := time.Since(start)

	if c.slowThreshold > 0 && latency > c.slowThreshold {
		return health.Degraded(fmt.Sprintf("redis responded in %s", latency), nil)
	}

	return health.Healthy(fmt.Sprintf("redis responded in %s", latency))
}
