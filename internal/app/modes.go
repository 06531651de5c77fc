package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantfold/limitbot/internal/domain"
)

// watchLimit caps how many active markets the feed modes subscribe to.
const watchLimit = 50

// TradeMode authenticates with the exchange, streams the market feed into the
// shared caches, tracks order lifecycle updates against the audit trail, and
// runs the audit retention sweep.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode",
		slog.String("maker", deps.Signer.Address().Hex()),
	)

	if err := deps.Exchange.SignIn(ctx); err != nil {
		return fmt.Errorf("app: sign in: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if deps.Feed != nil {
		slugs, tokens, err := a.watchlist(ctx, deps)
		if err != nil {
			a.logger.WarnContext(ctx, "failed to build watchlist, feed disabled",
				slog.String("error", err.Error()),
			)
		} else {
			a.wireFeedHandlers(ctx, deps)
			deps.Feed.OnOrderUpdate(func(u domain.OrderUpdate) {
				a.handleOrderUpdate(ctx, deps, u)
			})
			g.Go(func() error {
				defer func() { _ = deps.Feed.Close() }()
				return a.runFeed(ctx, deps, slugs, tokens, true)
			})
		}
	}

	if a.cfg.Retention.Enabled && deps.Maintenance != nil {
		retain := time.Duration(a.cfg.Retention.RetainDays) * 24 * time.Hour
		interval := a.cfg.Retention.Interval.Duration
		g.Go(func() error {
			return deps.Maintenance.RunRetentionLoop(ctx, interval, retain)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		return ctx.Err()
	})
	return g.Wait()
}

// MonitorMode streams the market feed into the shared caches without a wallet.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	if deps.Feed == nil {
		return fmt.Errorf("app: monitor mode requires limitless.ws_host")
	}

	slugs, tokens, err := a.watchlist(ctx, deps)
	if err != nil {
		return fmt.Errorf("app: build watchlist: %w", err)
	}
	a.logger.InfoContext(ctx, "watching markets",
		slog.Int("markets", len(slugs)),
		slog.Int("tokens", len(tokens)),
	)

	a.wireFeedHandlers(ctx, deps)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer func() { _ = deps.Feed.Close() }()
		return a.runFeed(ctx, deps, slugs, tokens, false)
	})
	return g.Wait()
}

// MarketsMode lists active markets and exits.
func (a *App) MarketsMode(ctx context.Context, deps *Dependencies) error {
	markets, err := deps.Markets.ListMarkets(ctx, watchLimit, 0)
	if err != nil {
		return fmt.Errorf("app: list markets: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tSTATUS\tTICK\tTITLE")
	for _, m := range markets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Slug, m.Status, m.Tick, m.Title)
	}
	return w.Flush()
}

// watchlist returns the slugs and outcome token IDs of the most recent active
// markets.
func (a *App) watchlist(ctx context.Context, deps *Dependencies) ([]string, []string, error) {
	markets, err := deps.Markets.ListMarkets(ctx, watchLimit, 0)
	if err != nil {
		return nil, nil, err
	}
	slugs := make([]string, 0, len(markets))
	tokens := make([]string, 0, 2*len(markets))
	for _, m := range markets {
		if m.Status != domain.MarketStatusActive {
			continue
		}
		slugs = append(slugs, m.Slug)
		for _, t := range m.TokenIDs {
			if t != "" {
				tokens = append(tokens, t)
			}
		}
	}
	return slugs, tokens, nil
}

// wireFeedHandlers routes book and price events from the WS feed into the
// shared caches (when Redis is enabled) and the log. Handlers run on the
// feed's read loop, so cache writes use the mode's context.
func (a *App) wireFeedHandlers(ctx context.Context, deps *Dependencies) {
	deps.Feed.OnBook(func(snap domain.OrderbookSnapshot) {
		if deps.BookCache != nil {
			if err := deps.BookCache.SetSnapshot(ctx, snap.TokenID, snap); err != nil {
				a.logger.WarnContext(ctx, "book cache write failed",
					slog.String("token_id", snap.TokenID),
					slog.String("error", err.Error()),
				)
			}
		}
		a.logger.DebugContext(ctx, "book update",
			slog.String("token_id", snap.TokenID),
			slog.Float64("best_bid", snap.BestBid),
			slog.Float64("best_ask", snap.BestAsk),
		)
	})
	deps.Feed.OnPriceChange(func(change domain.PriceChange) {
		if deps.BookCache != nil {
			if err := deps.BookCache.UpdateLevel(ctx, change.TokenID, change.Side, change.Price, change.Size); err != nil {
				a.logger.WarnContext(ctx, "book level update failed",
					slog.String("token_id", change.TokenID),
					slog.String("error", err.Error()),
				)
			}
		}
		if deps.PriceCache != nil {
			if err := deps.PriceCache.SetPrice(ctx, change.TokenID, change.Price, change.Timestamp); err != nil {
				a.logger.WarnContext(ctx, "price cache write failed",
					slog.String("token_id", change.TokenID),
					slog.String("error", err.Error()),
				)
			}
		}
	})
}

// runFeed connects the WS client, issues subscriptions, and blocks until the
// context is cancelled. The client reconnects and restores subscriptions on
// its own.
func (a *App) runFeed(ctx context.Context, deps *Dependencies, slugs, tokens []string, orders bool) error {
	if err := deps.Feed.Connect(ctx); err != nil {
		return fmt.Errorf("app: connect feed: %w", err)
	}
	if len(tokens) > 0 {
		if err := deps.Feed.SubscribeBook(ctx, tokens); err != nil {
			return fmt.Errorf("app: subscribe book: %w", err)
		}
		if err := deps.Feed.SubscribePrices(ctx, tokens); err != nil {
			return fmt.Errorf("app: subscribe prices: %w", err)
		}
	}
	if orders && len(slugs) > 0 {
		if err := deps.Feed.SubscribeOrders(ctx, slugs); err != nil {
			return fmt.Errorf("app: subscribe orders: %w", err)
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

// handleOrderUpdate reflects an exchange-side order transition into the audit
// trail.
func (a *App) handleOrderUpdate(ctx context.Context, deps *Dependencies, u domain.OrderUpdate) {
	a.logger.InfoContext(ctx, "order update",
		slog.String("order_id", u.OrderID),
		slog.String("market", u.MarketSlug),
		slog.String("status", string(u.Status)),
	)
	if deps.AuditStore == nil {
		return
	}
	if err := deps.AuditStore.UpdateStatus(ctx, u.OrderID, u.Status); err != nil {
		a.logger.WarnContext(ctx, "audit status update failed",
			slog.String("order_id", u.OrderID),
			slog.String("error", err.Error()),
		)
	}
}
