package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/nivaasi/backend/internal/application/tenancy"
	"github.com/nivaasi/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient connects to Redis and verifies the connection
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

// New builds the locker selected by cfg.Backend. The redis backend needs a client.
func New(cfg config.LockConfig, client redis.UniversalClient, logger *zap.Logger) (tenancy.Locker, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryLocker(cfg.WaitTimeout), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("lock backend redis requires a redis client")
		}
		return NewRedisLocker(client, RedisConfig{
			TTL:           cfg.TTL,
			RetryInterval: cfg.RetryInterval,
			WaitTimeout:   cfg.WaitTimeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
	}
}
