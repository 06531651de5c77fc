package limitless

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/quantfold/limitbot/internal/domain"
)

// flexBool unmarshals from JSON bool or string so API responses work
// whether a flag is sent as true or "true".
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// --------------------------------------------------------------------------
// Order submission DTOs
// --------------------------------------------------------------------------

// apiOrderBody is the wire form of a signed order. Every amount is a
// base-10 integer string scaled by 1e6; amounts are never sent as floats.
type apiOrderBody struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          int    `json:"side"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
	Price         string `json:"price,omitempty"` // limit orders only; display, not signed
}

// submitRequest is the body of POST /orders.
type submitRequest struct {
	Order      apiOrderBody `json:"order"`
	OwnerID    int64        `json:"ownerId"`
	OrderType  string       `json:"orderType"`
	MarketSlug string       `json:"marketSlug"`
}

func toAPIOrder(o domain.SignedOrder) apiOrderBody {
	return apiOrderBody{
		Salt:          o.Salt,
		Maker:         o.Maker,
		Signer:        o.Signer,
		Taker:         o.Taker,
		TokenID:       o.TokenID,
		MakerAmount:   o.MakerAmount.String(),
		TakerAmount:   o.TakerAmount.String(),
		Expiration:    strconv.FormatInt(o.Expiration, 10),
		Nonce:         strconv.FormatInt(o.Nonce, 10),
		FeeRateBps:    strconv.FormatInt(o.FeeRateBps, 10),
		Side:          int(o.Side),
		SignatureType: int(o.SignatureType),
		Signature:     o.Signature,
		Price:         o.Price,
	}
}

// apiOrderRecord is an order as echoed back by the exchange.
type apiOrderRecord struct {
	ID          string `json:"id"`
	MarketSlug  string `json:"marketSlug"`
	TokenID     string `json:"tokenId"`
	Maker       string `json:"maker"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	Price       string `json:"price"`
	MakerAmount string `json:"makerAmount"`
	TakerAmount string `json:"takerAmount"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt"`
}

func (r *apiOrderRecord) toDomain() domain.OrderRecord {
	rec := domain.OrderRecord{
		ID:          r.ID,
		MarketSlug:  r.MarketSlug,
		TokenID:     r.TokenID,
		Maker:       r.Maker,
		Side:        sideFromWire(r.Side),
		Type:        domain.OrderType(r.Type),
		Price:       r.Price,
		MakerAmount: r.MakerAmount,
		TakerAmount: r.TakerAmount,
		Status:      domain.OrderStatus(r.Status),
	}
	if t, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
		rec.CreatedAt = t
	}
	return rec
}

// apiMatch is a fill reported at submission time.
type apiMatch struct {
	TradeID     string `json:"tradeId"`
	TokenID     string `json:"tokenId"`
	Price       string `json:"price"`
	MakerAmount string `json:"makerAmount"`
	TakerAmount string `json:"takerAmount"`
	Timestamp   string `json:"timestamp"`
}

func (m *apiMatch) toDomain() domain.Match {
	match := domain.Match{
		TradeID:     m.TradeID,
		TokenID:     m.TokenID,
		Price:       m.Price,
		MakerAmount: m.MakerAmount,
		TakerAmount: m.TakerAmount,
	}
	if t, err := time.Parse(time.RFC3339, m.Timestamp); err == nil {
		match.Timestamp = t
	}
	return match
}

// apiSubmitResult is the response from POST /orders.
type apiSubmitResult struct {
	Success  bool           `json:"success"`
	ErrorMsg string         `json:"errorMsg,omitempty"`
	Order    apiOrderRecord `json:"order"`
	Matches  []apiMatch     `json:"matches"`
}

func (r *apiSubmitResult) toDomain() domain.SubmitResult {
	out := domain.SubmitResult{Order: r.Order.toDomain()}
	for i := range r.Matches {
		out.Matches = append(out.Matches, r.Matches[i].toDomain())
	}
	return out
}

func sideFromWire(s string) domain.Side {
	if strings.EqualFold(s, "SELL") {
		return domain.SideSell
	}
	return domain.SideBuy
}

// --------------------------------------------------------------------------
// Market DTOs
// --------------------------------------------------------------------------

// apiMarket is a market as returned by the markets API.
type apiMarket struct {
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	Outcomes       [2]string `json:"outcomes"`
	TokenIDs       [2]string `json:"tokenIds"`
	ConditionID    string    `json:"conditionId"`
	GroupSlug      string    `json:"groupSlug,omitempty"`
	Exchange       string    `json:"exchangeAddress"`
	NegRiskAdapter string    `json:"negRiskAdapter,omitempty"`
	Tick           string    `json:"minTick"`
	Volume         float64   `json:"volume"`
	Active         flexBool  `json:"active"`
	Resolved       flexBool  `json:"resolved"`
	ExpiresAt      string    `json:"expiresAt"`
	CreatedAt      string    `json:"createdAt"`
}

func (m *apiMarket) toDomain() domain.Market {
	market := domain.Market{
		Slug:        m.Slug,
		Title:       m.Title,
		Outcomes:    m.Outcomes,
		TokenIDs:    m.TokenIDs,
		ConditionID: m.ConditionID,
		GroupSlug:   m.GroupSlug,
		Venue: domain.Venue{
			Exchange: m.Exchange,
			Adapter:  m.NegRiskAdapter,
		},
		Tick:   m.Tick,
		Volume: m.Volume,
	}
	switch {
	case bool(m.Resolved):
		market.Status = domain.MarketStatusResolved
	case bool(m.Active):
		market.Status = domain.MarketStatusActive
	default:
		market.Status = domain.MarketStatusClosed
	}
	if t, err := time.Parse(time.RFC3339, m.ExpiresAt); err == nil {
		market.ExpiresAt = &t
	}
	if t, err := time.Parse(time.RFC3339, m.CreatedAt); err == nil {
		market.CreatedAt = t
	}
	return market
}

// apiPosition is a portfolio entry from the positions endpoint.
type apiPosition struct {
	MarketSlug   string `json:"marketSlug"`
	TokenID      string `json:"tokenId"`
	Outcome      string `json:"outcome"`
	Shares       string `json:"shares"`
	AvgPrice     string `json:"avgPrice"`
	RealizedPnL  string `json:"realizedPnl"`
	CurrentValue string `json:"currentValue"`
}

func (p *apiPosition) toDomain() domain.Position {
	return domain.Position(*p)
}

// apiBookLevel is one [price, size] pair in an orderbook response.
type apiBookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// apiOrderbook is the GET /markets/{slug}/orderbook response.
type apiOrderbook struct {
	TokenID   string         `json:"tokenId"`
	Bids      []apiBookLevel `json:"bids"`
	Asks      []apiBookLevel `json:"asks"`
	Timestamp int64          `json:"timestamp"` // unix milliseconds
}

func (b *apiOrderbook) toDomain() domain.OrderbookSnapshot {
	snap := domain.OrderbookSnapshot{
		TokenID:   b.TokenID,
		Timestamp: time.UnixMilli(b.Timestamp),
	}
	for _, l := range b.Bids {
		snap.Bids = append(snap.Bids, domain.PriceLevel{Price: l.Price, Size: l.Size})
	}
	for _, l := range b.Asks {
		snap.Asks = append(snap.Asks, domain.PriceLevel{Price: l.Price, Size: l.Size})
	}
	snap.ComputeBBO()
	return snap
}

// wsCommand is a subscribe/unsubscribe command sent over the feed socket.
type wsCommand struct {
	Type    string   `json:"type"`
	Channel string   `json:"channel"`
	Markets []string `json:"markets,omitempty"`
	Tokens  []string `json:"tokens,omitempty"`
}

// wsEnvelope is the outer shape of every feed message, read once to route
// the payload to the right decoder.
type wsEnvelope struct {
	Channel string `json:"channel"`
	Event   string `json:"event"`
}

// wsBookMessage is a full orderbook snapshot on the "book" channel.
type wsBookMessage struct {
	TokenID   string         `json:"tokenId"`
	Bids      []apiBookLevel `json:"bids"`
	Asks      []apiBookLevel `json:"asks"`
	Timestamp int64          `json:"timestamp"` // unix milliseconds
}

func (m *wsBookMessage) toDomain() domain.OrderbookSnapshot {
	b := apiOrderbook(*m)
	return b.toDomain()
}

// wsPriceChangeMessage is an incremental level update on the "prices" channel.
type wsPriceChangeMessage struct {
	TokenID   string  `json:"tokenId"`
	Side      string  `json:"side"`
	Price     float64 `json:"price"`
	Size      float64 `json:"size"`
	Timestamp int64   `json:"timestamp"` // unix milliseconds
}

func (m *wsPriceChangeMessage) toDomain() domain.PriceChange {
	return domain.PriceChange{
		TokenID:   m.TokenID,
		Side:      m.Side,
		Price:     m.Price,
		Size:      m.Size,
		Timestamp: time.UnixMilli(m.Timestamp),
	}
}

// wsOrderUpdateMessage is an order lifecycle event on the "orders" channel.
type wsOrderUpdateMessage struct {
	OrderID      string `json:"orderId"`
	MarketSlug   string `json:"marketSlug"`
	TokenID      string `json:"tokenId"`
	Status       string `json:"status"`
	FilledAmount string `json:"filledAmount"`
	Timestamp    int64  `json:"timestamp"` // unix milliseconds
}

func (m *wsOrderUpdateMessage) toDomain() domain.OrderUpdate {
	return domain.OrderUpdate{
		OrderID:      m.OrderID,
		MarketSlug:   m.MarketSlug,
		TokenID:      m.TokenID,
		Status:       domain.OrderStatus(m.Status),
		FilledAmount: m.FilledAmount,
		Timestamp:    time.UnixMilli(m.Timestamp),
	}
}
