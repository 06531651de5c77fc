// Package venue resolves the contract addresses an order must be signed
// against. Lookups go through an in-process map, then an optional shared
// cache, then the exchange API. Venue addresses are immutable per market,
// so cached entries have no TTL.
package venue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/quantfold/limitbot/internal/domain"
)

// Fetcher retrieves venue addresses from the exchange.
type Fetcher interface {
	GetVenue(ctx context.Context, marketSlug string) (domain.Venue, error)
}

// Resolver is a read-through venue lookup keyed by market slug.
type Resolver struct {
	fetcher Fetcher
	shared  domain.VenueCache // optional second tier, may be nil
	logger  *slog.Logger

	mu    sync.RWMutex
	local map[string]domain.Venue
}

// NewResolver creates a resolver backed by the given fetcher. shared may be
// nil, in which case only the in-process map is used.
func NewResolver(fetcher Fetcher, shared domain.VenueCache, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		fetcher: fetcher,
		shared:  shared,
		logger:  logger.With("component", "venue"),
		local:   make(map[string]domain.Venue),
	}
}

// Resolve returns the venue for a market, fetching and caching it on a miss.
func (r *Resolver) Resolve(ctx context.Context, marketSlug string) (domain.Venue, error) {
	r.mu.RLock()
	v, ok := r.local[marketSlug]
	r.mu.RUnlock()
	if ok {
		return v, nil
	}

	if r.shared != nil {
		v, err := r.shared.Get(ctx, marketSlug)
		if err == nil {
			r.store(marketSlug, v)
			return v, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Warn("shared venue cache read failed",
				"market", marketSlug,
				"error", err)
		}
	}

	v, err := r.fetcher.GetVenue(ctx, marketSlug)
	if err != nil {
		return domain.Venue{}, fmt.Errorf("venue: resolve %s: %w", marketSlug, err)
	}
	if v.Exchange == "" {
		return domain.Venue{}, fmt.Errorf("venue: resolve %s: %w", marketSlug, domain.ErrVenueUnknown)
	}

	r.store(marketSlug, v)
	if r.shared != nil {
		if err := r.shared.Set(ctx, marketSlug, v); err != nil {
			r.logger.Warn("shared venue cache write failed",
				"market", marketSlug,
				"error", err)
		}
	}
	return v, nil
}

// Invalidate drops a market's venue from both tiers. Only needed if a
// market was cached with wrong data, since venues never change.
func (r *Resolver) Invalidate(ctx context.Context, marketSlug string) error {
	r.mu.Lock()
	delete(r.local, marketSlug)
	r.mu.Unlock()

	if r.shared != nil {
		if err := r.shared.Invalidate(ctx, marketSlug); err != nil {
			return fmt.Errorf("venue: invalidate %s: %w", marketSlug, err)
		}
	}
	return nil
}

// Prime seeds the in-process map, e.g. from a market listing already in hand.
func (r *Resolver) Prime(marketSlug string, v domain.Venue) {
	if v.Exchange == "" {
		return
	}
	r.store(marketSlug, v)
}

func (r *Resolver) store(marketSlug string, v domain.Venue) {
	r.mu.Lock()
	r.local[marketSlug] = v
	r.mu.Unlock()
}
