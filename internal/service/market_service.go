package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quantfold/limitbot/internal/domain"
)

// MarketReader is the slice of the REST client the market service needs.
type MarketReader interface {
	GetMarket(ctx context.Context, slug string) (domain.Market, error)
	GetMarkets(ctx context.Context, limit, offset int) ([]domain.Market, error)
	SearchMarkets(ctx context.Context, query string) ([]domain.Market, error)
	GetOrderbook(ctx context.Context, marketSlug, tokenID string) (domain.OrderbookSnapshot, error)
	GetPositions(ctx context.Context) ([]domain.Position, error)
}

// MarketService serves market metadata, orderbooks, and portfolio data,
// reading through the shared caches when they are configured.
type MarketService struct {
	client MarketReader
	cache  domain.MarketCache    // optional
	books  domain.OrderbookCache // optional
	logger *slog.Logger
}

// NewMarketService creates a MarketService. cache and books may be nil.
func NewMarketService(client MarketReader, cache domain.MarketCache, books domain.OrderbookCache, logger *slog.Logger) *MarketService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarketService{
		client: client,
		cache:  cache,
		books:  books,
		logger: logger.With(slog.String("component", "market_service")),
	}
}

// GetMarket returns a market by slug, preferring the shared cache.
func (s *MarketService) GetMarket(ctx context.Context, slug string) (domain.Market, error) {
	if s.cache != nil {
		m, err := s.cache.Get(ctx, slug)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "market cache read failed",
				slog.String("market", slug),
				slog.String("error", err.Error()),
			)
		}
	}

	m, err := s.client.GetMarket(ctx, slug)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get %q: %w", slug, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, m); err != nil {
			s.logger.WarnContext(ctx, "market cache write failed",
				slog.String("market", slug),
				slog.String("error", err.Error()),
			)
		}
	}
	return m, nil
}

// GetMarketByToken resolves a market from one of its outcome token IDs.
// Only the cache is consulted; the exchange API has no token-keyed lookup.
func (s *MarketService) GetMarketByToken(ctx context.Context, tokenID string) (domain.Market, error) {
	if s.cache == nil {
		return domain.Market{}, domain.ErrNotFound
	}
	m, err := s.cache.GetByToken(ctx, tokenID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("market_service: get by token %q: %w", tokenID, err)
	}
	return m, nil
}

// ListMarkets returns a page of active markets and primes the cache.
func (s *MarketService) ListMarkets(ctx context.Context, limit, offset int) ([]domain.Market, error) {
	markets, err := s.client.GetMarkets(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("market_service: list: %w", err)
	}
	s.primeCache(ctx, markets)
	return markets, nil
}

// Search returns markets matching the query and primes the cache.
func (s *MarketService) Search(ctx context.Context, query string) ([]domain.Market, error) {
	markets, err := s.client.SearchMarkets(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("market_service: search %q: %w", query, err)
	}
	s.primeCache(ctx, markets)
	return markets, nil
}

// GetOrderbook returns the current book for a token and refreshes the shared
// orderbook cache.
func (s *MarketService) GetOrderbook(ctx context.Context, marketSlug, tokenID string) (domain.OrderbookSnapshot, error) {
	snap, err := s.client.GetOrderbook(ctx, marketSlug, tokenID)
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("market_service: orderbook %q: %w", tokenID, err)
	}

	if s.books != nil {
		if err := s.books.SetSnapshot(ctx, tokenID, snap); err != nil {
			s.logger.WarnContext(ctx, "orderbook cache write failed",
				slog.String("token", tokenID),
				slog.String("error", err.Error()),
			)
		}
	}
	return snap, nil
}

// Positions returns the account's portfolio.
func (s *MarketService) Positions(ctx context.Context) ([]domain.Position, error) {
	positions, err := s.client.GetPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("market_service: positions: %w", err)
	}
	return positions, nil
}

func (s *MarketService) primeCache(ctx context.Context, markets []domain.Market) {
	if s.cache == nil {
		return
	}
	for i := range markets {
		if err := s.cache.Set(ctx, markets[i]); err != nil {
			s.logger.WarnContext(ctx, "market cache write failed",
				slog.String("market", markets[i].Slug),
				slog.String("error", err.Error()),
			)
			return
		}
	}
}
