package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopcore/backend/internal/infrastructure/config"
)

// NewRedisClient connects to Redis and verifies the connection with a ping
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// ClientPinger adapts a Redis client to a health check
type ClientPinger struct {
	Client redis.UniversalClient
}

// Ping verifies the connection
func (p ClientPinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}
