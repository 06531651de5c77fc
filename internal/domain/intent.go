package domain

// Intent is the sealed union of the two trade-intent shapes. Exactly two
// types implement it: MarketIntent and LimitIntent. Consumers type-switch
// over the concrete types; the unexported marker method keeps the set
// closed so a missing case is a programming error, not silent fallthrough.
type Intent interface {
	intent()
}

// IntentOpts carries the optional fields shared by both intent shapes.
// Zero values mean: any taker, no expiration, nonce 0, fee 0.
type IntentOpts struct {
	Taker      string
	Expiration int64
	Nonce      int64
	FeeRateBps int64
}

// MarketIntent is a fill-or-kill intent: spend (buy) or sell a
// human-readable collateral/share amount at whatever price the book offers.
// Amount is a decimal string with at most 6 fractional digits.
type MarketIntent struct {
	TokenID string
	Side    Side
	Amount  string
	Opts    IntentOpts
}

func (MarketIntent) intent() {}

// LimitIntent is a good-til-cancelled intent resting on the book at a fixed
// price. Price is a decimal string in (0,1) with at most 3 fractional
// digits; Size is a positive decimal share count.
type LimitIntent struct {
	TokenID string
	Side    Side
	Price   string
	Size    string
	Opts    IntentOpts
}

func (LimitIntent) intent() {}
