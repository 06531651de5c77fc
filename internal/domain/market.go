package domain

import "time"

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive   MarketStatus = "active"
	MarketStatusClosed   MarketStatus = "closed"
	MarketStatusResolved MarketStatus = "resolved"
)

// Market represents a prediction market on the exchange.
type Market struct {
	Slug        string
	Title       string
	Outcomes    [2]string // e.g. ["Yes","No"]
	TokenIDs    [2]string // ERC-1155 token IDs (decimal strings)
	ConditionID string
	GroupSlug   string // non-empty for grouped (negative-risk) markets
	Venue       Venue
	Tick        string // minimum price increment, e.g. "0.001"
	Volume      float64
	Status      MarketStatus
	ExpiresAt   *time.Time
	CreatedAt   time.Time
}

// PriceLevel is a single price+size entry in an orderbook.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderbookSnapshot is a full snapshot of bids and asks for a token.
type OrderbookSnapshot struct {
	TokenID   string
	Bids      []PriceLevel
	Asks      []PriceLevel
	BestBid   float64
	BestAsk   float64
	MidPrice  float64
	Timestamp time.Time
}

// ComputeBBO derives BestBid, BestAsk, and MidPrice from the level data.
func (s *OrderbookSnapshot) ComputeBBO() {
	s.BestBid, s.BestAsk, s.MidPrice = 0, 0, 0
	for _, l := range s.Bids {
		if l.Price > s.BestBid {
			s.BestBid = l.Price
		}
	}
	for _, l := range s.Asks {
		if s.BestAsk == 0 || l.Price < s.BestAsk {
			s.BestAsk = l.Price
		}
	}
	if s.BestBid > 0 && s.BestAsk > 0 {
		s.MidPrice = (s.BestBid + s.BestAsk) / 2
	}
}

// PriceChange is an incremental orderbook level update from the feed.
type PriceChange struct {
	TokenID   string
	Side      string // "BUY" or "SELL"
	Price     float64
	Size      float64 // 0 means the level was removed
	Timestamp time.Time
}

// Position is a portfolio entry: shares held in one outcome token.
type Position struct {
	MarketSlug   string
	TokenID      string
	Outcome      string
	Shares       string // scaled integer string, 1e6 units
	AvgPrice     string
	RealizedPnL  string
	CurrentValue string
}
