package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which event IDs a handler has already taken
type IdempotencyStore interface {
	// MarkProcessed claims eventID for ttl.
	// Returns true if the claim is new, false if the event was already claimed.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// Forget drops a claim so a failed event can be delivered again
	Forget(ctx context.Context, eventID string) error

	IsProcessed(ctx context.Context, eventID string) (bool, error)

	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a claimed event ID is remembered
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig remembers event IDs for a day
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
