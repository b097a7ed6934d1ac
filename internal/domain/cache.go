package domain

import (
	"context"
	"time"
)

// PriceCache stores the currently-trusted execution price per symbol.
// Execution prices always come from here, never from the client.
type PriceCache interface {
	SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error
	// GetPrice returns ErrStalePrice when no price exists or the stored
	// price is older than the configured staleness window. Orders must be
	// rejected in that case, never executed at a stale or zero price.
	GetPrice(ctx context.Context, symbol string) (float64, error)
}

// RateLimiter implements a per-key sliding-window request limiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed mutual exclusion. Acquire returns
// ErrLockHeld when the lock is already taken.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
