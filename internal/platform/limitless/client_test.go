package limitless

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/limitbot/internal/crypto"
	"github.com/quantfold/limitbot/internal/domain"
)

// Well-known hardhat test key, never used with real funds.
const (
	testKeyHex  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func newTestSigner(t *testing.T) *crypto.Signer {
	t.Helper()
	signer, err := crypto.NewSigner(testKeyHex, 8453)
	require.NoError(t, err)
	return signer
}

func signedOrderFixture() domain.SignedOrder {
	return domain.SignedOrder{
		UnsignedOrder: domain.UnsignedOrder{
			Salt:          1755000000000123456,
			Maker:         testAddress,
			Signer:        testAddress,
			Taker:         domain.ZeroAddress,
			TokenID:       "1234567890",
			MakerAmount:   big.NewInt(5_000_000),
			TakerAmount:   big.NewInt(10_000_000),
			Expiration:    0,
			Nonce:         0,
			FeeRateBps:    0,
			Side:          domain.SideBuy,
			SignatureType: domain.SignatureTypeEOA,
			Type:          domain.OrderTypeGTC,
			Price:         "0.5",
		},
		Signature: "0x" + strings.Repeat("ab", 65),
	}
}

func TestSignInStoresSession(t *testing.T) {
	var gotAccount, gotSignature string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/sign-in", r.URL.Path)
		gotAccount = r.Header.Get("X-Account")
		gotSignature = r.Header.Get("X-Signature")
		json.NewEncoder(w).Encode(map[string]any{
			"ownerId": 42,
			"secret":  "c2VjcmV0LWJ5dGVz",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, newTestSigner(t))
	require.Nil(t, client.Session())

	err := client.SignIn(context.Background())
	require.NoError(t, err)

	session := client.Session()
	require.NotNil(t, session)
	assert.Equal(t, testAddress, session.Account)
	assert.Equal(t, int64(42), session.OwnerID)
	assert.Equal(t, testAddress, gotAccount)
	assert.NotEmpty(t, gotSignature)
}

func TestSubmitOrderWirePayload(t *testing.T) {
	var got submitRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/sign-in" {
			json.NewEncoder(w).Encode(map[string]any{"ownerId": 7, "secret": "c2VjcmV0"})
			return
		}
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("X-Account"))
		require.NotEmpty(t, r.Header.Get("X-Timestamp"))
		require.NotEmpty(t, r.Header.Get("X-Signature"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(apiSubmitResult{
			Success: true,
			Order: apiOrderRecord{
				ID:         "ord-1",
				MarketSlug: "will-it-rain",
				Side:       "BUY",
				Status:     "live",
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, newTestSigner(t))
	require.NoError(t, client.SignIn(context.Background()))

	result, err := client.SubmitOrder(context.Background(), signedOrderFixture(), "will-it-rain")
	require.NoError(t, err)
	assert.Equal(t, "ord-1", result.Order.ID)
	assert.Equal(t, domain.SideBuy, result.Order.Side)
	assert.Equal(t, domain.OrderStatusLive, result.Order.Status)

	// Amounts cross the wire as base-10 integer strings, never floats.
	assert.Equal(t, "5000000", got.Order.MakerAmount)
	assert.Equal(t, "10000000", got.Order.TakerAmount)
	assert.Equal(t, 0, got.Order.Side)
	assert.Equal(t, int64(7), got.OwnerID)
	assert.Equal(t, "GTC", got.OrderType)
	assert.Equal(t, "will-it-rain", got.MarketSlug)
}

func TestSubmitOrderRequiresSession(t *testing.T) {
	client := NewClient("http://unused", newTestSigner(t))
	_, err := client.SubmitOrder(context.Background(), signedOrderFixture(), "will-it-rain")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSubmitOrderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/sign-in" {
			json.NewEncoder(w).Encode(map[string]any{"ownerId": 7, "secret": "c2VjcmV0"})
			return
		}
		json.NewEncoder(w).Encode(apiSubmitResult{Success: false, ErrorMsg: "insufficient balance"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, newTestSigner(t))
	require.NoError(t, client.SignIn(context.Background()))

	_, err := client.SubmitOrder(context.Background(), signedOrderFixture(), "will-it-rain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient balance")
}

func TestGetMarketDecodesVenue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/markets/will-it-rain", r.URL.Path)
		w.Write([]byte(`{
			"slug": "will-it-rain",
			"title": "Will it rain tomorrow?",
			"outcomes": ["Yes", "No"],
			"tokenIds": ["111", "222"],
			"conditionId": "0xabc",
			"exchangeAddress": "0x0000000000000000000000000000000000000C0f",
			"negRiskAdapter": "0x0000000000000000000000000000000000000Ada",
			"minTick": "0.001",
			"volume": 12345.5,
			"active": "true",
			"resolved": false,
			"createdAt": "2026-08-01T00:00:00Z"
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, newTestSigner(t))
	market, err := client.GetMarket(context.Background(), "will-it-rain")
	require.NoError(t, err)

	assert.Equal(t, "will-it-rain", market.Slug)
	assert.Equal(t, [2]string{"111", "222"}, market.TokenIDs)
	assert.Equal(t, "0x0000000000000000000000000000000000000C0f", market.Venue.Exchange)
	assert.Equal(t, "0x0000000000000000000000000000000000000Ada", market.Venue.Adapter)
	// The adapter wins as the verifying contract when present.
	assert.Equal(t, market.Venue.Adapter, market.Venue.VerifyingContract())
	assert.Equal(t, "0.001", market.Tick)
	assert.Equal(t, domain.MarketStatusActive, market.Status)
}

func TestGetVenueUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"slug": "no-venue", "active": true}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, newTestSigner(t))
	_, err := client.GetVenue(context.Background(), "no-venue")
	require.ErrorIs(t, err, domain.ErrVenueUnknown)
}

func TestStatusCodeMapping(t *testing.T) {
	cases := map[int]error{
		http.StatusNotFound:        domain.ErrNotFound,
		http.StatusUnauthorized:    domain.ErrUnauthorized,
		http.StatusForbidden:       domain.ErrUnauthorized,
		http.StatusTooManyRequests: domain.ErrRateLimited,
	}
	for code, want := range cases {
		err := checkHTTPStatus(code, []byte("nope"))
		assert.ErrorIs(t, err, want, "status %d", code)
	}
	assert.NoError(t, checkHTTPStatus(http.StatusOK, nil))
	assert.Error(t, checkHTTPStatus(http.StatusInternalServerError, []byte("boom")))
}

func TestMarketStatusResolvedWinsOverActive(t *testing.T) {
	m := apiMarket{Active: true, Resolved: true}
	assert.Equal(t, domain.MarketStatusResolved, m.toDomain().Status)

	m = apiMarket{Active: false, Resolved: false}
	assert.Equal(t, domain.MarketStatusClosed, m.toDomain().Status)
}

func TestFeedMessageDecoding(t *testing.T) {
	w := NewWSClient("ws://unused")

	var snaps []domain.OrderbookSnapshot
	var changes []domain.PriceChange
	var updates []domain.OrderUpdate
	w.OnBook(func(s domain.OrderbookSnapshot) { snaps = append(snaps, s) })
	w.OnPriceChange(func(c domain.PriceChange) { changes = append(changes, c) })
	w.OnOrderUpdate(func(u domain.OrderUpdate) { updates = append(updates, u) })

	w.handleMessage([]byte(`{"channel":"book","tokenId":"111","bids":[{"price":0.4,"size":100}],"asks":[],"timestamp":1755000000000}`))
	w.handleMessage([]byte(`{"channel":"prices","tokenId":"111","side":"BUY","price":0.41,"size":0,"timestamp":1755000000001}`))
	w.handleMessage([]byte(`{"channel":"orders","orderId":"ord-1","marketSlug":"will-it-rain","status":"matched","filledAmount":"5000000","timestamp":1755000000002}`))
	w.handleMessage([]byte(`not json at all`))
	w.handleMessage([]byte(`{"channel":"unknown"}`))

	require.Len(t, snaps, 1)
	assert.Equal(t, "111", snaps[0].TokenID)
	require.Len(t, snaps[0].Bids, 1)
	assert.Equal(t, 0.4, snaps[0].Bids[0].Price)

	require.Len(t, changes, 1)
	assert.Equal(t, 0.41, changes[0].Price)
	assert.Zero(t, changes[0].Size)

	require.Len(t, updates, 1)
	assert.Equal(t, domain.OrderStatusMatched, updates[0].Status)
	assert.Equal(t, "5000000", updates[0].FilledAmount)
}
