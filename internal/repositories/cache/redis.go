package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func NewRedisClient(cfg *RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// HealthCheck pings the server.
func (s *CacheService) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

// GetStats exposes pool statistics for the health endpoint.
func (s *CacheService) GetStats(ctx context.Context) *redis.PoolStats {
	return s.client.PoolStats()
}

// Client returns the underlying client, used by the redis notification broker.
func (s *CacheService) Client() *redis.Client {
	return s.client
}
