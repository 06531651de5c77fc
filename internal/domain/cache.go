package domain

import (
	"context"
	"time"
)

// OrderbookCache holds per-token orderbook state shared across processes.
type OrderbookCache interface {
	SetSnapshot(ctx context.Context, tokenID string, snap OrderbookSnapshot) error
	GetSnapshot(ctx context.Context, tokenID string) (OrderbookSnapshot, error)
	UpdateLevel(ctx context.Context, tokenID string, side string, price, size float64) error
	GetBBO(ctx context.Context, tokenID string) (bestBid, bestAsk float64, err error)
}

// PriceCache stores the latest observed price per token.
type PriceCache interface {
	SetPrice(ctx context.Context, tokenID string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, tokenID string) (price float64, ts time.Time, err error)
}

// RateLimiter throttles outbound requests across processes.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed mutual exclusion, used to keep periodic
// jobs (audit archival, retention sweeps) single-flight across instances.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}
