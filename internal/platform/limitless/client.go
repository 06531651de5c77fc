// Package limitless is the REST and WebSocket client for the Limitless
// exchange API. It handles the sign-in handshake, order submission and
// cancellation, market and portfolio retrieval, and the realtime market
// data feed.
package limitless

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/quantfold/limitbot/internal/crypto"
	"github.com/quantfold/limitbot/internal/domain"
)

// Client is the REST client for the Limitless exchange API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *crypto.Signer
	session    *crypto.SessionAuth
}

// NewClient creates a REST client against the given API root, e.g.
// "https://api.limitless.exchange". The signer is used for the sign-in
// handshake; authenticated endpoints require SignIn first.
func NewClient(baseURL string, signer *crypto.Signer) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		signer: signer,
	}
}

// Session returns the active session auth, or nil before SignIn.
func (c *Client) Session() *crypto.SessionAuth {
	return c.session
}

// SignIn performs the authentication handshake: it signs a timestamped
// sign-in message with the wallet key and exchanges it for the HMAC session
// credentials used on authenticated requests.
func (c *Client) SignIn(ctx context.Context) error {
	address := c.signer.Address().Hex()
	timestamp := time.Now().Unix()
	message := fmt.Sprintf("Sign in to Limitless\naccount: %s\ntimestamp: %d", address, timestamp)

	sig, err := c.signer.SignMessage(message)
	if err != nil {
		return fmt.Errorf("limitless: sign auth message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/sign-in", nil)
	if err != nil {
		return fmt.Errorf("limitless: create sign-in request: %w", err)
	}
	req.Header.Set("X-Account", address)
	req.Header.Set("X-Timestamp", strconv.FormatInt(timestamp, 10))
	req.Header.Set("X-Signature", sig)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("limitless: sign-in request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("limitless: read sign-in response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return fmt.Errorf("limitless: sign-in: %w", err)
	}

	var authResp struct {
		OwnerID int64  `json:"ownerId"`
		Secret  string `json:"secret"`
	}
	if err := json.Unmarshal(respBody, &authResp); err != nil {
		return fmt.Errorf("limitless: decode sign-in response: %w", err)
	}

	c.session = &crypto.SessionAuth{
		Account: address,
		OwnerID: authResp.OwnerID,
		Secret:  authResp.Secret,
	}
	return nil
}

// SubmitOrder posts a signed order to the exchange and returns the accepted
// order record plus any immediate matches.
func (c *Client) SubmitOrder(ctx context.Context, order domain.SignedOrder, marketSlug string) (domain.SubmitResult, error) {
	if c.session == nil {
		return domain.SubmitResult{}, fmt.Errorf("limitless: submit order: %w: sign in first", domain.ErrUnauthorized)
	}

	body := submitRequest{
		Order:      toAPIOrder(order),
		OwnerID:    c.session.OwnerID,
		OrderType:  string(order.Type),
		MarketSlug: marketSlug,
	}

	respBody, err := c.doAuthenticated(ctx, http.MethodPost, "/orders", body)
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("limitless: submit order: %w", err)
	}

	var apiResult apiSubmitResult
	if err := json.Unmarshal(respBody, &apiResult); err != nil {
		return domain.SubmitResult{}, fmt.Errorf("limitless: decode submit response: %w", err)
	}
	result := apiResult.toDomain()
	if !apiResult.Success {
		return result, fmt.Errorf("limitless: order rejected: %s", apiResult.ErrorMsg)
	}
	return result, nil
}

// CancelOrder cancels a single resting order by its exchange id.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	respBody, err := c.doAuthenticated(ctx, http.MethodDelete, "/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return fmt.Errorf("limitless: cancel order %s: %w", orderID, err)
	}
	return decodeAck(respBody, "cancel")
}

// CancelAll cancels every resting order for the signed-in account.
func (c *Client) CancelAll(ctx context.Context) error {
	respBody, err := c.doAuthenticated(ctx, http.MethodDelete, "/orders", nil)
	if err != nil {
		return fmt.Errorf("limitless: cancel all: %w", err)
	}
	return decodeAck(respBody, "cancel-all")
}

// GetMarket returns a single market by slug, including its venue addresses
// and tick.
func (c *Client) GetMarket(ctx context.Context, slug string) (domain.Market, error) {
	body, err := c.doGet(ctx, "/markets/"+url.PathEscape(slug))
	if err != nil {
		return domain.Market{}, fmt.Errorf("limitless: get market %s: %w", slug, err)
	}

	var m apiMarket
	if err := json.Unmarshal(body, &m); err != nil {
		return domain.Market{}, fmt.Errorf("limitless: decode market: %w", err)
	}
	return m.toDomain(), nil
}

// GetMarkets returns a page of active markets.
func (c *Client) GetMarkets(ctx context.Context, limit, offset int) ([]domain.Market, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	body, err := c.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("limitless: get markets: %w", err)
	}

	var apiMarkets []apiMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return nil, fmt.Errorf("limitless: decode markets: %w", err)
	}
	markets := make([]domain.Market, 0, len(apiMarkets))
	for i := range apiMarkets {
		markets = append(markets, apiMarkets[i].toDomain())
	}
	return markets, nil
}

// SearchMarkets searches markets matching the query string.
func (c *Client) SearchMarkets(ctx context.Context, query string) ([]domain.Market, error) {
	params := url.Values{}
	params.Set("q", query)

	body, err := c.doGet(ctx, "/markets/search?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("limitless: search markets: %w", err)
	}

	var apiMarkets []apiMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return nil, fmt.Errorf("limitless: decode search results: %w", err)
	}
	markets := make([]domain.Market, 0, len(apiMarkets))
	for i := range apiMarkets {
		markets = append(markets, apiMarkets[i].toDomain())
	}
	return markets, nil
}

// GetVenue fetches the venue addresses for a market. Used by the venue
// resolver on cache miss.
func (c *Client) GetVenue(ctx context.Context, marketSlug string) (domain.Venue, error) {
	market, err := c.GetMarket(ctx, marketSlug)
	if err != nil {
		return domain.Venue{}, err
	}
	if market.Venue.Exchange == "" {
		return domain.Venue{}, fmt.Errorf("limitless: market %s: %w", marketSlug, domain.ErrVenueUnknown)
	}
	return market.Venue, nil
}

// GetOrderbook returns the current orderbook snapshot for a token.
func (c *Client) GetOrderbook(ctx context.Context, marketSlug, tokenID string) (domain.OrderbookSnapshot, error) {
	params := url.Values{}
	params.Set("tokenId", tokenID)

	body, err := c.doGet(ctx, "/markets/"+url.PathEscape(marketSlug)+"/orderbook?"+params.Encode())
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("limitless: get orderbook %s: %w", marketSlug, err)
	}

	var book apiOrderbook
	if err := json.Unmarshal(body, &book); err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("limitless: decode orderbook: %w", err)
	}
	return book.toDomain(), nil
}

// GetPositions returns the signed-in account's portfolio positions.
func (c *Client) GetPositions(ctx context.Context) ([]domain.Position, error) {
	body, err := c.doAuthenticated(ctx, http.MethodGet, "/portfolio/positions", nil)
	if err != nil {
		return nil, fmt.Errorf("limitless: get positions: %w", err)
	}

	var apiPositions []apiPosition
	if err := json.Unmarshal(body, &apiPositions); err != nil {
		return nil, fmt.Errorf("limitless: decode positions: %w", err)
	}
	positions := make([]domain.Position, 0, len(apiPositions))
	for i := range apiPositions {
		positions = append(positions, apiPositions[i].toDomain())
	}
	return positions, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet sends an unauthenticated GET and returns the raw response body.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.do(req)
}

// doAuthenticated builds, HMAC-signs, and sends a request against an
// authenticated endpoint, returning the raw response body.
func (c *Client) doAuthenticated(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	var bodyStr string
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyStr = string(jsonBody)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != nil {
		for k, v := range c.session.Headers(method, path, bodyStr) {
			req.Header.Set(k, v)
		}
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// decodeAck decodes a {success, errorMsg} acknowledgement body.
func decodeAck(body []byte, op string) error {
	var ack struct {
		Success  bool   `json:"success"`
		ErrorMsg string `json:"errorMsg"`
	}
	if err := json.Unmarshal(body, &ack); err != nil {
		return fmt.Errorf("limitless: decode %s response: %w", op, err)
	}
	if !ack.Success {
		return fmt.Errorf("limitless: %s failed: %s", op, ack.ErrorMsg)
	}
	return nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
