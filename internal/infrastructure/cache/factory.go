package cache

import (
	"fmt"

	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// IdempotencyStoreFactory picks an idempotency store for the configured backend
type IdempotencyStoreFactory struct {
	client                redis.UniversalClient
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// IdempotencyStoreFactoryOption configures the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether a missing Redis client degrades to memory.
// Enabled by default.
func WithInMemoryFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewIdempotencyStoreFactory creates a factory. client may be nil.
func NewIdempotencyStoreFactory(client redis.UniversalClient, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		client:                client,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns the store for backend ("memory" or "redis")
func (f *IdempotencyStoreFactory) CreateStore(backend string) (shared.IdempotencyStore, error) {
	switch backend {
	case "", "memory":
		return NewInMemoryIdempotencyStore(0), nil
	case "redis":
		if f.client != nil {
			f.logger.Info("Using Redis idempotency store")
			return NewRedisIdempotencyStore(f.client, ""), nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis idempotency store requires a redis client")
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store; " +
			"duplicate deliveries across instances will not be detected")
		return NewInMemoryIdempotencyStore(0), nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", backend)
	}
}
