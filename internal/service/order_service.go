// Package service wires the order pipeline together: validate and build an
// intent, resolve the venue, sign, submit, and record the outcome.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/quantfold/limitbot/internal/domain"
	"github.com/quantfold/limitbot/internal/order"
)

// Signer signs orders against a per-market verifying contract.
type Signer interface {
	SignOrder(ctx context.Context, o domain.UnsignedOrder, verifyingContract string) (domain.SignedOrder, error)
	Address() common.Address
}

// Exchange is the slice of the REST client the order service needs.
type Exchange interface {
	SubmitOrder(ctx context.Context, o domain.SignedOrder, marketSlug string) (domain.SubmitResult, error)
	CancelOrder(ctx context.Context, orderID string) error
	CancelAll(ctx context.Context) error
}

// VenueResolver resolves a market's verifying-contract addresses.
type VenueResolver interface {
	Resolve(ctx context.Context, marketSlug string) (domain.Venue, error)
}

// MarketLookup fetches market metadata, used for the per-market tick.
type MarketLookup interface {
	GetMarket(ctx context.Context, slug string) (domain.Market, error)
}

// Notifier is the slice of the notification dispatcher the service uses.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// OrderService handles the order lifecycle from trade intent to recorded
// submission.
type OrderService struct {
	signer   Signer
	exchange Exchange
	venues   VenueResolver
	markets  MarketLookup
	audits   domain.OrderAuditStore // optional
	limiter  domain.RateLimiter     // optional
	notifier Notifier               // optional
	logger   *slog.Logger

	feeRateBps    int64
	signatureType domain.SignatureType
	rateLimit     int
}

// OrderServiceConfig carries the optional collaborators and order defaults.
type OrderServiceConfig struct {
	Audits        domain.OrderAuditStore
	Limiter       domain.RateLimiter
	Notifier      Notifier
	FeeRateBps    int64
	SignatureType domain.SignatureType
	// RateLimit is the per-second submission cap enforced through Limiter.
	// Zero falls back to 10.
	RateLimit int
}

// NewOrderService creates an OrderService. Audits, Limiter, and Notifier in
// cfg may be nil; the corresponding steps are skipped.
func NewOrderService(
	signer Signer,
	exchange Exchange,
	venues VenueResolver,
	markets MarketLookup,
	cfg OrderServiceConfig,
	logger *slog.Logger,
) *OrderService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	return &OrderService{
		signer:        signer,
		exchange:      exchange,
		venues:        venues,
		markets:       markets,
		audits:        cfg.Audits,
		limiter:       cfg.Limiter,
		notifier:      cfg.Notifier,
		logger:        logger.With(slog.String("component", "order_service")),
		feeRateBps:    cfg.FeeRateBps,
		signatureType: cfg.SignatureType,
		rateLimit:     cfg.RateLimit,
	}
}

// PlaceOrder runs the full pipeline for a trade intent on the given market:
// build exact amounts, validate the built record, resolve the venue, sign,
// rate-limit, submit, and record the attempt. The returned SubmitResult carries the exchange's view
// of the accepted order and any immediate matches.
func (s *OrderService) PlaceOrder(ctx context.Context, marketSlug string, intent domain.Intent) (domain.SubmitResult, error) {
	market, err := s.markets.GetMarket(ctx, marketSlug)
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("order_service: market %q: %w", marketSlug, err)
	}

	maker := s.signer.Address().Hex()
	unsigned, err := order.Build(intent, order.BuildConfig{
		Maker:         maker,
		Tick:          market.Tick,
		FeeRateBps:    s.feeRateBps,
		SignatureType: s.signatureType,
	})
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("order_service: build order: %w", err)
	}
	if err := order.ValidateOrder(unsigned); err != nil {
		return domain.SubmitResult{}, fmt.Errorf("order_service: validate order: %w", err)
	}

	venue, err := s.venues.Resolve(ctx, marketSlug)
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("order_service: resolve venue: %w", err)
	}

	signed, err := s.signer.SignOrder(ctx, unsigned, venue.VerifyingContract())
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("order_service: sign order: %w", err)
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, "orders:"+maker, s.rateLimit, time.Second)
		if err != nil {
			return domain.SubmitResult{}, fmt.Errorf("order_service: rate limiter: %w", err)
		}
		if !allowed {
			return domain.SubmitResult{}, fmt.Errorf("order_service: submit %s: %w", marketSlug, domain.ErrRateLimited)
		}
	}

	auditID := uuid.New().String()
	result, submitErr := s.exchange.SubmitOrder(ctx, signed, marketSlug)

	s.recordAudit(ctx, auditID, marketSlug, signed, result, submitErr)

	if submitErr != nil {
		s.logger.ErrorContext(ctx, "order rejected",
			slog.String("market", marketSlug),
			slog.String("side", signed.Side.String()),
			slog.String("error", submitErr.Error()),
		)
		s.notify(ctx, notifyRejected(marketSlug, signed.Side, submitErr))
		return result, fmt.Errorf("order_service: submit order: %w", submitErr)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", result.Order.ID),
		slog.String("market", marketSlug),
		slog.String("side", signed.Side.String()),
		slog.String("maker_amount", signed.MakerAmount.String()),
		slog.String("taker_amount", signed.TakerAmount.String()),
		slog.Int("matches", len(result.Matches)),
	)
	s.notify(ctx, notifySubmitted(marketSlug, result))

	return result, nil
}

// CancelOrder cancels a resting order on the exchange and marks the local
// audit row when one exists.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) error {
	if err := s.exchange.CancelOrder(ctx, orderID); err != nil {
		return fmt.Errorf("order_service: cancel order %q: %w", orderID, err)
	}

	if s.audits != nil {
		if err := s.audits.UpdateStatus(ctx, orderID, domain.OrderStatusCancelled); err != nil &&
			!errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "audit update failed",
				slog.String("order_id", orderID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "order cancelled", slog.String("order_id", orderID))
	return nil
}

// CancelAll cancels every resting order for the account.
func (s *OrderService) CancelAll(ctx context.Context) error {
	if err := s.exchange.CancelAll(ctx); err != nil {
		return fmt.Errorf("order_service: cancel all: %w", err)
	}
	s.logger.InfoContext(ctx, "cancelled all open orders")
	return nil
}

// History returns the recorded submission attempts for a market.
func (s *OrderService) History(ctx context.Context, marketSlug string, opts domain.ListOpts) ([]domain.OrderAudit, error) {
	if s.audits == nil {
		return nil, nil
	}
	audits, err := s.audits.ListByMarket(ctx, marketSlug, opts)
	if err != nil {
		return nil, fmt.Errorf("order_service: history %q: %w", marketSlug, err)
	}
	return audits, nil
}

func (s *OrderService) recordAudit(ctx context.Context, id, marketSlug string, signed domain.SignedOrder, result domain.SubmitResult, submitErr error) {
	if s.audits == nil {
		return
	}

	audit := domain.OrderAudit{
		ID:          id,
		ExchangeID:  result.Order.ID,
		MarketSlug:  marketSlug,
		TokenID:     signed.TokenID,
		Maker:       signed.Maker,
		Side:        signed.Side,
		Type:        signed.Type,
		Price:       signed.Price,
		MakerAmount: signed.MakerAmount.String(),
		TakerAmount: signed.TakerAmount.String(),
		Salt:        signed.Salt,
		Signature:   signed.Signature,
		Status:      result.Order.Status,
		SubmittedAt: time.Now().UTC(),
	}
	if submitErr != nil {
		audit.Status = domain.OrderStatusRejected
		audit.Error = submitErr.Error()
	} else if audit.Status == "" {
		audit.Status = domain.OrderStatusPending
	}

	if err := s.audits.Insert(ctx, audit); err != nil {
		s.logger.WarnContext(ctx, "audit insert failed",
			slog.String("audit_id", id),
			slog.String("market", marketSlug),
			slog.String("error", err.Error()),
		)
	}
}

type notification struct {
	event, title, message string
}

func (s *OrderService) notify(ctx context.Context, n notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n.event, n.title, n.message); err != nil {
		s.logger.WarnContext(ctx, "notify failed",
			slog.String("event", n.event),
			slog.String("error", err.Error()),
		)
	}
}
