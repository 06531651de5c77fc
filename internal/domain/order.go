package domain

import (
	"math/big"
	"time"
)

// Side is the order direction. The numeric values are part of the signed
// payload (uint8 in the EIP-712 schema) and must not change.
type Side uint8

const (
	SideBuy  Side = 0
	SideSell Side = 1
)

// String returns the wire representation used by the exchange API.
func (s Side) String() string {
	if s == SideSell {
		return "SELL"
	}
	return "BUY"
}

// OrderType indicates the time-in-force policy.
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC" // Good-Til-Cancelled (limit)
	OrderTypeFOK OrderType = "FOK" // Fill-Or-Kill (market)
)

// SignatureType tags the signature scheme of the maker wallet. EOA wallets
// sign directly; proxy/safe wallets delegate verification to a contract.
type SignatureType uint8

const (
	SignatureTypeEOA        SignatureType = 0
	SignatureTypeProxy      SignatureType = 1
	SignatureTypeGnosisSafe SignatureType = 2
)

// ZeroAddress is the taker value meaning "any counterparty".
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// UnsignedOrder is a fully computed order ready for signing. MakerAmount and
// TakerAmount are whole non-negative integers scaled by 1e6; they travel on
// the wire as base-10 integer strings, never as floats.
//
// Price is carried for limit orders only, for audit and display. It is never
// part of the signed payload.
type UnsignedOrder struct {
	Salt          int64
	Maker         string
	Signer        string
	Taker         string
	TokenID       string
	MakerAmount   *big.Int
	TakerAmount   *big.Int
	Expiration    int64
	Nonce         int64
	FeeRateBps    int64
	Side          Side
	SignatureType SignatureType
	Type          OrderType
	Price         string
}

// SignedOrder is an UnsignedOrder plus the 65-byte hex signature binding it
// to a specific (chainId, verifyingContract) pair. A signature produced for
// one venue must never be submitted to another.
type SignedOrder struct {
	UnsignedOrder
	Signature string
}

// OrderStatus tracks the lifecycle of a submitted order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusLive      OrderStatus = "live"
	OrderStatusMatched   OrderStatus = "matched"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// OrderRecord is the exchange's view of a submitted order, as returned by
// the order-submission endpoint.
type OrderRecord struct {
	ID          string
	MarketSlug  string
	TokenID     string
	Maker       string
	Side        Side
	Type        OrderType
	Price       string
	MakerAmount string
	TakerAmount string
	Status      OrderStatus
	CreatedAt   time.Time
}

// Match is a fill produced at submission time (market orders and crossing
// limit orders).
type Match struct {
	TradeID     string
	TokenID     string
	Price       string
	MakerAmount string
	TakerAmount string
	Timestamp   time.Time
}

// SubmitResult is the response from submitting a signed order.
type SubmitResult struct {
	Order   OrderRecord
	Matches []Match
}

// OrderUpdate is a lifecycle event for one of the account's orders,
// delivered over the realtime feed.
type OrderUpdate struct {
	OrderID      string
	MarketSlug   string
	TokenID      string
	Status       OrderStatus
	FilledAmount string // scaled integer string, 1e6 units
	Timestamp    time.Time
}
