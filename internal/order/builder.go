// Package order builds and validates exchange orders from trade intents.
// All amount arithmetic goes through the decimal engine; nothing in this
// package multiplies a floating-point price by a floating-point size.
package order

import (
	"fmt"
	"math/big"

	"github.com/quantfold/limitbot/internal/decimal"
	"github.com/quantfold/limitbot/internal/domain"
)

const (
	// AmountDigits is the fractional precision of every settled amount.
	AmountDigits = 6
	// AmountScale is 10^AmountDigits, the common integer scale for prices,
	// sizes, and collateral.
	AmountScale = int64(1_000_000)

	// DefaultTick is the minimum price increment unless the market
	// overrides it.
	DefaultTick = "0.001"
)

// BuildConfig is the per-call configuration for Build. It is a plain value:
// nothing here is hidden state, and the same config with the same intent
// always yields the same amounts (only the salt differs).
type BuildConfig struct {
	// Maker is the funding wallet address.
	Maker string
	// Signer is the signing key's address. Empty means same as Maker
	// (simple EOA wallets).
	Signer string
	// Tick is the market's minimum price increment as a decimal string.
	// Empty means DefaultTick.
	Tick string
	// FeeRateBps is the maker fee rate in basis points.
	FeeRateBps int64
	// SignatureType tags the wallet's signature scheme.
	SignatureType domain.SignatureType
}

func (c BuildConfig) signer() string {
	if c.Signer != "" {
		return c.Signer
	}
	return c.Maker
}

func (c BuildConfig) tick() string {
	if c.Tick != "" {
		return c.Tick
	}
	return DefaultTick
}

// Build turns a validated trade intent into an unsigned order with exact
// scaled-integer amounts. It never returns a partial order: any precision,
// range, or alignment defect fails the whole call.
func Build(intent domain.Intent, cfg BuildConfig) (domain.UnsignedOrder, error) {
	if err := ValidateIntent(intent); err != nil {
		return domain.UnsignedOrder{}, err
	}

	switch it := intent.(type) {
	case domain.MarketIntent:
		return buildMarket(it, cfg)
	case domain.LimitIntent:
		return buildLimit(it, cfg)
	default:
		return domain.UnsignedOrder{}, fmt.Errorf("order: unknown intent type %T", intent)
	}
}

// buildMarket scales the human spend/sell amount to maker units. The taker
// amount is the integer 1, a sentinel telling the matching engine to
// determine the counter-amount at execution time.
func buildMarket(it domain.MarketIntent, cfg BuildConfig) (domain.UnsignedOrder, error) {
	amount, err := decimal.Parse(it.Amount, AmountDigits)
	if err != nil {
		return domain.UnsignedOrder{}, err
	}

	o := baseOrder(it.TokenID, it.Side, it.Opts, cfg)
	o.Type = domain.OrderTypeFOK
	o.MakerAmount = big.NewInt(amount)
	o.TakerAmount = big.NewInt(1)
	return o, nil
}

// buildLimit is the central algorithm: align the price to the tick, align
// the size to the share granularity implied by the tick, and compute the
// collateral leg as an exact scaled product with side-dependent rounding.
func buildLimit(it domain.LimitIntent, cfg BuildConfig) (domain.UnsignedOrder, error) {
	price, err := decimal.Parse(it.Price, AmountDigits)
	if err != nil {
		return domain.UnsignedOrder{}, err
	}
	tick, err := decimal.Parse(cfg.tick(), AmountDigits)
	if err != nil {
		return domain.UnsignedOrder{}, fmt.Errorf("order: bad tick %q: %w", cfg.Tick, err)
	}
	if tick <= 0 || tick >= AmountScale || AmountScale%tick != 0 {
		return domain.UnsignedOrder{}, fmt.Errorf("order: tick %q does not evenly divide the price scale", cfg.tick())
	}

	if rem := price % tick; rem != 0 {
		e := &domain.TickAlignmentError{
			Field: "price",
			Value: it.Price,
			Step:  cfg.tick(),
		}
		// Suggestions stay inside the open (0,1) price interval: never
		// propose 0 or 1, neither of which is a placeable price.
		floor := price - rem
		if floor > 0 {
			e.Floor = decimal.Format(floor, AmountDigits)
		}
		if ceil := floor + tick; ceil < AmountScale {
			e.Ceil = decimal.Format(ceil, AmountDigits)
		}
		return domain.UnsignedOrder{}, e
	}

	// sharesStep is the minimum share granularity guaranteeing that
	// price * shares is a whole collateral amount. For a 0.001 tick this is
	// 1000 scaled units, i.e. sizes must land on 0.001 shares.
	sharesStep := AmountScale / tick

	shares, err := decimal.Parse(it.Size, AmountDigits)
	if err != nil {
		return domain.UnsignedOrder{}, err
	}
	if rem := shares % sharesStep; rem != 0 {
		floor := shares - rem
		e := &domain.TickAlignmentError{
			Field: "size",
			Value: it.Size,
			Step:  decimal.Format(sharesStep, AmountDigits),
			Ceil:  decimal.Format(floor+sharesStep, AmountDigits),
		}
		// A size below one step has no valid value beneath it; 0 is not an
		// order anyone can place.
		if floor > 0 {
			e.Floor = decimal.Format(floor, AmountDigits)
		}
		return domain.UnsignedOrder{}, e
	}

	// collateral = shares * price / scale. Round up for BUY so the maker
	// never underpays; round down for SELL so the maker is never overpaid.
	// Both directions protect the exchange from owing fractional collateral;
	// the sub-unit bias always favors the exchange.
	product := new(big.Int).Mul(big.NewInt(shares), big.NewInt(price))
	scale := big.NewInt(AmountScale)

	var collateral *big.Int
	if it.Side == domain.SideBuy {
		collateral = decimal.CeilDivBig(product, scale)
	} else {
		collateral = decimal.FloorDivBig(product, scale)
	}

	o := baseOrder(it.TokenID, it.Side, it.Opts, cfg)
	o.Type = domain.OrderTypeGTC
	o.Price = it.Price
	if it.Side == domain.SideBuy {
		o.MakerAmount = collateral
		o.TakerAmount = big.NewInt(shares)
	} else {
		o.MakerAmount = big.NewInt(shares)
		o.TakerAmount = collateral
	}
	return o, nil
}

// baseOrder fills the fields shared by both intent shapes.
func baseOrder(tokenID string, side domain.Side, opts domain.IntentOpts, cfg BuildConfig) domain.UnsignedOrder {
	taker := opts.Taker
	if taker == "" {
		taker = domain.ZeroAddress
	}
	fee := cfg.FeeRateBps
	if opts.FeeRateBps > 0 {
		fee = opts.FeeRateBps
	}
	return domain.UnsignedOrder{
		Salt:          NewSalt(),
		Maker:         cfg.Maker,
		Signer:        cfg.signer(),
		Taker:         taker,
		TokenID:       tokenID,
		Expiration:    opts.Expiration,
		Nonce:         opts.Nonce,
		FeeRateBps:    fee,
		Side:          side,
		SignatureType: cfg.SignatureType,
	}
}
