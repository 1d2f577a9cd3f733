package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/application/tenancy"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultKeyPrefix = "nivaasi:lock:"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// extendScript pushes the expiry out only while the key still holds our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// RedisConfig tunes a RedisLocker
type RedisConfig struct {
	KeyPrefix     string
	TTL           time.Duration
	RetryInterval time.Duration
	WaitTimeout   time.Duration
}

// RedisLocker provides cross-process keyed locks with SET NX PX.
// Each holder owns a random token; a watchdog keeps the lease alive until
// the holder unlocks, so a long unit of work does not lose its lock.
type RedisLocker struct {
	client redis.UniversalClient
	cfg    RedisConfig
	logger *zap.Logger
}

// NewRedisLocker creates a RedisLocker with an existing client
func NewRedisLocker(client redis.UniversalClient, cfg RedisConfig, logger *zap.Logger) *RedisLocker {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 25 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{client: client, cfg: cfg, logger: logger.Named("lock")}
}

// Lock polls SET NX until it wins, ctx is done, or the wait timeout passes.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.cfg.KeyPrefix + key
	token := uuid.NewString()

	if l.cfg.WaitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.WaitTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(l.cfg.RetryInterval)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.cfg.TTL).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return l.hold(redisKey, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrLockTimeout, key, ctx.Err())
		case <-ticker.C:
		}
	}
}

// hold starts the lease watchdog and returns the unlock func
func (l *RedisLocker) hold(redisKey, token string) func() {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(l.cfg.TTL / 3)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), l.cfg.TTL/3)
				n, err := extendScript.Run(ctx, l.client, []string{redisKey}, token, l.cfg.TTL.Milliseconds()).Int()
				cancel()
				if err != nil {
					l.logger.Warn("Failed to extend lock lease", zap.String("key", redisKey), zap.Error(err))
					continue
				}
				if n == 0 {
					l.logger.Error("Lock lease lost before unlock", zap.String("key", redisKey))
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
				l.logger.Warn("Failed to release lock", zap.String("key", redisKey), zap.Error(err))
			}
		})
	}
}

var _ tenancy.Locker = (*RedisLocker)(nil)
