package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/limitbot/internal/crypto"
	"github.com/quantfold/limitbot/internal/domain"
)

const (
	testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testToken  = "21742633143463906290569050155826241533067272736897614950488156847949938836455"
)

type fakeExchange struct {
	submitted  []domain.SignedOrder
	slugs      []string
	cancelled  []string
	cancelAlls int
	submitErr  error
}

func (e *fakeExchange) SubmitOrder(_ context.Context, o domain.SignedOrder, marketSlug string) (domain.SubmitResult, error) {
	e.submitted = append(e.submitted, o)
	e.slugs = append(e.slugs, marketSlug)
	if e.submitErr != nil {
		return domain.SubmitResult{}, e.submitErr
	}
	return domain.SubmitResult{Order: domain.OrderRecord{
		ID:     "ex-1",
		Status: domain.OrderStatusLive,
	}}, nil
}

func (e *fakeExchange) CancelOrder(_ context.Context, id string) error {
	e.cancelled = append(e.cancelled, id)
	return nil
}

func (e *fakeExchange) CancelAll(context.Context) error {
	e.cancelAlls++
	return nil
}

type fakeVenues struct{ venue domain.Venue }

func (f fakeVenues) Resolve(context.Context, string) (domain.Venue, error) {
	return f.venue, nil
}

type fakeMarkets struct{ tick string }

func (f fakeMarkets) GetMarket(_ context.Context, slug string) (domain.Market, error) {
	return domain.Market{Slug: slug, Tick: f.tick}, nil
}

type memAuditStore struct {
	inserted []domain.OrderAudit
	updated  map[string]domain.OrderStatus
}

func (m *memAuditStore) Insert(_ context.Context, a domain.OrderAudit) error {
	m.inserted = append(m.inserted, a)
	return nil
}

func (m *memAuditStore) UpdateStatus(_ context.Context, id string, st domain.OrderStatus) error {
	if m.updated == nil {
		m.updated = map[string]domain.OrderStatus{}
	}
	m.updated[id] = st
	return nil
}

func (m *memAuditStore) GetByID(context.Context, string) (domain.OrderAudit, error) {
	return domain.OrderAudit{}, domain.ErrNotFound
}

func (m *memAuditStore) ListByMarket(_ context.Context, slug string, _ domain.ListOpts) ([]domain.OrderAudit, error) {
	var out []domain.OrderAudit
	for _, a := range m.inserted {
		if a.MarketSlug == slug {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAuditStore) ListBefore(context.Context, time.Time) ([]domain.OrderAudit, error) {
	return nil, nil
}

func (m *memAuditStore) DeleteBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func newTestService(t *testing.T, exchange *fakeExchange, audits domain.OrderAuditStore) *OrderService {
	t.Helper()
	signer, err := crypto.NewSigner(testKeyHex, 8453)
	require.NoError(t, err)

	return NewOrderService(
		signer,
		exchange,
		fakeVenues{venue: domain.Venue{Exchange: "0x0000000000000000000000000000000000000C0f"}},
		fakeMarkets{tick: "0.001"},
		OrderServiceConfig{Audits: audits},
		nil,
	)
}

func TestPlaceOrderPipeline(t *testing.T) {
	exchange := &fakeExchange{}
	audits := &memAuditStore{}
	svc := newTestService(t, exchange, audits)

	intent := domain.LimitIntent{
		TokenID: testToken,
		Side:    domain.SideBuy,
		Price:   "0.5",
		Size:    "10",
	}

	result, err := svc.PlaceOrder(context.Background(), "will-it-rain", intent)
	require.NoError(t, err)
	assert.Equal(t, "ex-1", result.Order.ID)

	require.Len(t, exchange.submitted, 1)
	sent := exchange.submitted[0]
	assert.Equal(t, "5000000", sent.MakerAmount.String())
	assert.Equal(t, "10000000", sent.TakerAmount.String())
	assert.NotEmpty(t, sent.Signature)
	assert.Equal(t, []string{"will-it-rain"}, exchange.slugs)

	require.Len(t, audits.inserted, 1)
	audit := audits.inserted[0]
	assert.NotEmpty(t, audit.ID)
	assert.Equal(t, "ex-1", audit.ExchangeID)
	assert.Equal(t, domain.OrderStatusLive, audit.Status)
	assert.Equal(t, sent.Salt, audit.Salt)
}

func TestPlaceOrderBuildRejectionSkipsSubmit(t *testing.T) {
	exchange := &fakeExchange{}
	svc := newTestService(t, exchange, nil)

	intent := domain.LimitIntent{
		TokenID: testToken,
		Side:    domain.SideBuy,
		Price:   "0.3805", // off-tick for 0.001
		Size:    "10",
	}

	_, err := svc.PlaceOrder(context.Background(), "will-it-rain", intent)
	require.Error(t, err)

	var tickErr *domain.TickAlignmentError
	require.ErrorAs(t, err, &tickErr)
	assert.Empty(t, exchange.submitted)
}

// Config-sourced fields bypass the intent pass, so a defective built record
// is only caught by the post-build pass. It must stop the pipeline before
// anything is signed or submitted.
func TestPlaceOrderValidatesBuiltRecord(t *testing.T) {
	exchange := &fakeExchange{}
	audits := &memAuditStore{}
	signer, err := crypto.NewSigner(testKeyHex, 8453)
	require.NoError(t, err)

	svc := NewOrderService(
		signer,
		exchange,
		fakeVenues{venue: domain.Venue{Exchange: "0x0000000000000000000000000000000000000C0f"}},
		fakeMarkets{tick: "0.001"},
		OrderServiceConfig{Audits: audits, FeeRateBps: -5},
		nil,
	)

	_, err = svc.PlaceOrder(context.Background(), "will-it-rain", domain.LimitIntent{
		TokenID: testToken,
		Side:    domain.SideBuy,
		Price:   "0.5",
		Size:    "10",
	})
	var merr *domain.MalformedFieldError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "feeRateBps", merr.Field)
	assert.Empty(t, exchange.submitted)
	assert.Empty(t, audits.inserted)
}

func TestPlaceOrderRecordsRejection(t *testing.T) {
	exchange := &fakeExchange{submitErr: errors.New("insufficient balance")}
	audits := &memAuditStore{}
	svc := newTestService(t, exchange, audits)

	intent := domain.MarketIntent{
		TokenID: testToken,
		Side:    domain.SideBuy,
		Amount:  "50",
	}

	_, err := svc.PlaceOrder(context.Background(), "will-it-rain", intent)
	require.Error(t, err)

	require.Len(t, audits.inserted, 1)
	audit := audits.inserted[0]
	assert.Equal(t, domain.OrderStatusRejected, audit.Status)
	assert.Contains(t, audit.Error, "insufficient balance")
	assert.Equal(t, "50000000", audit.MakerAmount)
	assert.Equal(t, "1", audit.TakerAmount)
}

func TestCancelOrderUpdatesAudit(t *testing.T) {
	exchange := &fakeExchange{}
	audits := &memAuditStore{}
	svc := newTestService(t, exchange, audits)

	require.NoError(t, svc.CancelOrder(context.Background(), "ex-1"))
	assert.Equal(t, []string{"ex-1"}, exchange.cancelled)
	assert.Equal(t, domain.OrderStatusCancelled, audits.updated["ex-1"])
}

func TestHistoryFiltersByMarket(t *testing.T) {
	audits := &memAuditStore{inserted: []domain.OrderAudit{
		{ID: "a1", MarketSlug: "m1"},
		{ID: "a2", MarketSlug: "m2"},
	}}
	svc := newTestService(t, &fakeExchange{}, audits)

	rows, err := svc.History(context.Background(), "m1", domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a1", rows[0].ID)
}
