package order

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/quantfold/limitbot/internal/decimal"
	"github.com/quantfold/limitbot/internal/domain"
)

// ValidateIntent is the pre-build pass: it checks a trade intent for
// structural and range defects before any amount is computed. Build runs it
// internally; callers may also run it on its own for early feedback.
func ValidateIntent(intent domain.Intent) error {
	switch it := intent.(type) {
	case domain.MarketIntent:
		if err := validateTokenID(it.TokenID); err != nil {
			return err
		}
		if err := validateSide(it.Side); err != nil {
			return err
		}
		amount, err := decimal.Parse(it.Amount, AmountDigits)
		if err != nil {
			return err
		}
		if amount <= 0 {
			return &domain.RangeError{Field: "amount", Value: it.Amount, Reason: "must be positive"}
		}
		return validateOpts(it.Opts)

	case domain.LimitIntent:
		if err := validateTokenID(it.TokenID); err != nil {
			return err
		}
		if err := validateSide(it.Side); err != nil {
			return err
		}
		price, err := decimal.Parse(it.Price, AmountDigits)
		if err != nil {
			return err
		}
		if price <= 0 || price >= AmountScale {
			return &domain.RangeError{Field: "price", Value: it.Price, Reason: "must be strictly between 0 and 1"}
		}
		size, err := decimal.Parse(it.Size, AmountDigits)
		if err != nil {
			return err
		}
		if size <= 0 {
			return &domain.RangeError{Field: "size", Value: it.Size, Reason: "must be positive"}
		}
		return validateOpts(it.Opts)

	default:
		return &domain.MalformedFieldError{Field: "intent", Value: "", Reason: "unknown intent type"}
	}
}

// ValidateOrder is the post-build pass over an unsigned order record. It is
// deliberately independent of Build so a builder defect cannot silently
// bypass validation.
func ValidateOrder(o domain.UnsignedOrder) error {
	if err := validateAddress("maker", o.Maker); err != nil {
		return err
	}
	if err := validateAddress("signer", o.Signer); err != nil {
		return err
	}
	if err := validateAddress("taker", o.Taker); err != nil {
		return err
	}
	if err := validateTokenID(o.TokenID); err != nil {
		return err
	}
	if err := validateAmount("makerAmount", o.MakerAmount); err != nil {
		return err
	}
	if err := validateAmount("takerAmount", o.TakerAmount); err != nil {
		return err
	}
	if err := validateSide(o.Side); err != nil {
		return err
	}
	if o.Salt < 0 {
		return &domain.MalformedFieldError{Field: "salt", Value: strconv.FormatInt(o.Salt, 10), Reason: "must be non-negative"}
	}
	if o.Nonce < 0 {
		return &domain.MalformedFieldError{Field: "nonce", Value: strconv.FormatInt(o.Nonce, 10), Reason: "must be non-negative"}
	}
	if o.FeeRateBps < 0 {
		return &domain.MalformedFieldError{Field: "feeRateBps", Value: strconv.FormatInt(o.FeeRateBps, 10), Reason: "must be non-negative"}
	}
	if o.Expiration < 0 {
		return &domain.MalformedFieldError{Field: "expiration", Value: strconv.FormatInt(o.Expiration, 10), Reason: "must be non-negative"}
	}
	if o.Type != domain.OrderTypeGTC && o.Type != domain.OrderTypeFOK {
		return &domain.MalformedFieldError{Field: "type", Value: string(o.Type), Reason: "must be GTC or FOK"}
	}
	return nil
}

// ValidateSigned runs the record pass plus the signature shape check: a
// well-formed fixed-length hex string decodable to a 65-byte signature.
func ValidateSigned(o domain.SignedOrder) error {
	if err := ValidateOrder(o.UnsignedOrder); err != nil {
		return err
	}
	sig := strings.TrimPrefix(o.Signature, "0x")
	raw, err := hex.DecodeString(sig)
	if err != nil {
		return &domain.MalformedFieldError{Field: "signature", Value: o.Signature, Reason: "not valid hex"}
	}
	if len(raw) != 65 {
		return &domain.MalformedFieldError{Field: "signature", Value: o.Signature, Reason: "must decode to 65 bytes"}
	}
	return nil
}

func validateSide(s domain.Side) error {
	if s != domain.SideBuy && s != domain.SideSell {
		return &domain.MalformedFieldError{Field: "side", Value: strconv.Itoa(int(s)), Reason: "must be 0 (BUY) or 1 (SELL)"}
	}
	return nil
}

func validateTokenID(id string) error {
	n, ok := new(big.Int).SetString(id, 10)
	if !ok {
		return &domain.MalformedFieldError{Field: "tokenId", Value: id, Reason: "must be a base-10 integer"}
	}
	if n.Sign() <= 0 {
		return &domain.MalformedFieldError{Field: "tokenId", Value: id, Reason: "must be non-zero"}
	}
	return nil
}

func validateAddress(field, addr string) error {
	if !common.IsHexAddress(addr) {
		return &domain.MalformedFieldError{Field: field, Value: addr, Reason: "not a valid hex address"}
	}
	return nil
}

func validateAmount(field string, n *big.Int) error {
	if n == nil || n.Sign() <= 0 {
		val := ""
		if n != nil {
			val = n.String()
		}
		return &domain.MalformedFieldError{Field: field, Value: val, Reason: "must be strictly positive"}
	}
	return nil
}

func validateOpts(opts domain.IntentOpts) error {
	if opts.Taker != "" {
		if err := validateAddress("taker", opts.Taker); err != nil {
			return err
		}
	}
	if opts.Expiration < 0 {
		return &domain.RangeError{Field: "expiration", Value: strconv.FormatInt(opts.Expiration, 10), Reason: "must be non-negative"}
	}
	if opts.Nonce < 0 {
		return &domain.RangeError{Field: "nonce", Value: strconv.FormatInt(opts.Nonce, 10), Reason: "must be non-negative"}
	}
	if opts.FeeRateBps < 0 {
		return &domain.RangeError{Field: "feeRateBps", Value: strconv.FormatInt(opts.FeeRateBps, 10), Reason: "must be non-negative"}
	}
	return nil
}
