package order

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/limitbot/internal/domain"
)

func validOrder() domain.UnsignedOrder {
	return domain.UnsignedOrder{
		Salt:        123456789,
		Maker:       testMaker,
		Signer:      testMaker,
		Taker:       domain.ZeroAddress,
		TokenID:     testToken,
		MakerAmount: big.NewInt(5_000_000),
		TakerAmount: big.NewInt(10_000_000),
		Side:        domain.SideBuy,
		Type:        domain.OrderTypeGTC,
		Price:       "0.5",
	}
}

func TestValidateIntentTokenID(t *testing.T) {
	for _, id := range []string{"", "0", "abc", "-5", "0x12"} {
		err := ValidateIntent(domain.LimitIntent{TokenID: id, Side: domain.SideBuy, Price: "0.5", Size: "1"})
		var merr *domain.MalformedFieldError
		assert.True(t, errors.As(err, &merr), "token %q", id)
	}
}

func TestValidateIntentBadTaker(t *testing.T) {
	err := ValidateIntent(domain.MarketIntent{
		TokenID: testToken,
		Side:    domain.SideBuy,
		Amount:  "5",
		Opts:    domain.IntentOpts{Taker: "not-an-address"},
	})
	var merr *domain.MalformedFieldError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, "taker", merr.Field)
}

func TestValidateIntentPricePrecision(t *testing.T) {
	// 7 fractional digits overflows the scale outright.
	err := ValidateIntent(domain.LimitIntent{TokenID: testToken, Side: domain.SideBuy, Price: "0.1234567", Size: "1"})
	assert.Error(t, err)
}

func TestValidateOrderAccepts(t *testing.T) {
	assert.NoError(t, ValidateOrder(validOrder()))
}

func TestValidateOrderRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.UnsignedOrder)
	}{
		{"bad maker", func(o *domain.UnsignedOrder) { o.Maker = "0x123" }},
		{"bad signer", func(o *domain.UnsignedOrder) { o.Signer = "" }},
		{"bad taker", func(o *domain.UnsignedOrder) { o.Taker = "zz" }},
		{"zero token", func(o *domain.UnsignedOrder) { o.TokenID = "0" }},
		{"nil maker amount", func(o *domain.UnsignedOrder) { o.MakerAmount = nil }},
		{"zero maker amount", func(o *domain.UnsignedOrder) { o.MakerAmount = big.NewInt(0) }},
		{"negative taker amount", func(o *domain.UnsignedOrder) { o.TakerAmount = big.NewInt(-1) }},
		{"bad side", func(o *domain.UnsignedOrder) { o.Side = domain.Side(2) }},
		{"negative salt", func(o *domain.UnsignedOrder) { o.Salt = -1 }},
		{"negative nonce", func(o *domain.UnsignedOrder) { o.Nonce = -1 }},
		{"negative fee", func(o *domain.UnsignedOrder) { o.FeeRateBps = -1 }},
		{"bad type", func(o *domain.UnsignedOrder) { o.Type = "GTD" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOrder()
			tt.mutate(&o)
			var merr *domain.MalformedFieldError
			err := ValidateOrder(o)
			assert.True(t, errors.As(err, &merr), "got %v", err)
		})
	}
}

func TestValidateSigned(t *testing.T) {
	good := domain.SignedOrder{
		UnsignedOrder: validOrder(),
		Signature:     "0x" + strings.Repeat("ab", 65),
	}
	assert.NoError(t, ValidateSigned(good))

	for name, sig := range map[string]string{
		"empty":     "",
		"short":     "0xabcd",
		"not hex":   "0x" + strings.Repeat("zz", 65),
		"too long":  "0x" + strings.Repeat("ab", 66),
		"64 bytes":  "0x" + strings.Repeat("ab", 64),
	} {
		t.Run(name, func(t *testing.T) {
			bad := good
			bad.Signature = sig
			var merr *domain.MalformedFieldError
			err := ValidateSigned(bad)
			require.True(t, errors.As(err, &merr), "got %v", err)
			assert.Equal(t, "signature", merr.Field)
		})
	}
}
