package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/quantfold/limitbot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// VenueCache implements domain.VenueCache using JSON-serialized Venue data.
// Venue addresses are immutable per market, so entries carry no TTL.
//
// Key schema:
//
//	venue:{marketSlug} - JSON {Exchange, Adapter}
type VenueCache struct {
	rdb *redis.Client
}

// NewVenueCache creates a VenueCache backed by the given Client.
func NewVenueCache(c *Client) *VenueCache {
	return &VenueCache{rdb: c.Underlying()}
}

func venueKey(slug string) string { return "venue:" + slug }

// Set stores a market's venue addresses.
func (vc *VenueCache) Set(ctx context.Context, marketSlug string, venue domain.Venue) error {
	data, err := json.Marshal(venue)
	if err != nil {
		return fmt.Errorf("redis: marshal venue %s: %w", marketSlug, err)
	}
	if err := vc.rdb.Set(ctx, venueKey(marketSlug), data, 0).Err(); err != nil {
		return fmt.Errorf("redis: set venue %s: %w", marketSlug, err)
	}
	return nil
}

// Get retrieves a market's venue addresses. It returns domain.ErrNotFound
// when the market has not been cached.
func (vc *VenueCache) Get(ctx context.Context, marketSlug string) (domain.Venue, error) {
	data, err := vc.rdb.Get(ctx, venueKey(marketSlug)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Venue{}, domain.ErrNotFound
		}
		return domain.Venue{}, fmt.Errorf("redis: get venue %s: %w", marketSlug, err)
	}

	var venue domain.Venue
	if err := json.Unmarshal(data, &venue); err != nil {
		return domain.Venue{}, fmt.Errorf("redis: unmarshal venue %s: %w", marketSlug, err)
	}
	return venue, nil
}

// Invalidate removes a market's venue entry.
func (vc *VenueCache) Invalidate(ctx context.Context, marketSlug string) error {
	if err := vc.rdb.Del(ctx, venueKey(marketSlug)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate venue %s: %w", marketSlug, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.VenueCache = (*VenueCache)(nil)
