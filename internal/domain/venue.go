package domain

import "context"

// Venue is the pair of contract addresses a market uses for settlement and
// signature verification. Exchange is the verifying contract for plain
// binary markets; Adapter is set only for grouped (negative-risk) markets
// and takes its place as the verifying contract when present.
//
// Venue data is immutable once a market is deployed, so cached copies never
// go stale.
type Venue struct {
	Exchange string
	Adapter  string
}

// VerifyingContract returns the address orders for this venue must be
// signed against.
func (v Venue) VerifyingContract() string {
	if v.Adapter != "" {
		return v.Adapter
	}
	return v.Exchange
}

// VenueCache is a shared lookup for resolved venues, keyed by market slug.
type VenueCache interface {
	Set(ctx context.Context, marketSlug string, venue Venue) error
	Get(ctx context.Context, marketSlug string) (Venue, error)
	Invalidate(ctx context.Context, marketSlug string) error
}
