package crypto

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/limitbot/internal/domain"
)

// Well-known hardhat test key; never funded on any real network.
const (
	testKey   = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddr  = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	venueA    = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
	venueB    = "0xC5d563A36AE78145C45a50134d48A1215220f80a"
	testChain = int64(8453)
)

func testOrder() domain.UnsignedOrder {
	return domain.UnsignedOrder{
		Salt:        479249096354,
		Maker:       testAddr,
		Signer:      testAddr,
		Taker:       domain.ZeroAddress,
		TokenID:     "1234567890",
		MakerAmount: big.NewInt(5_000_000),
		TakerAmount: big.NewInt(10_000_000),
		Side:        domain.SideBuy,
		Type:        domain.OrderTypeGTC,
		Price:       "0.5",
	}
}

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := NewSigner(testKey, testChain)
	require.NoError(t, err)
	return s
}

func TestNewSignerDerivesAddress(t *testing.T) {
	s := newTestSigner(t)
	assert.Equal(t, common.HexToAddress(testAddr), s.Address())
	assert.Equal(t, testChain, s.ChainID())

	// 0x prefix is accepted too.
	s2, err := NewSigner("0x"+testKey, testChain)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), s2.Address())
}

func TestNewSignerRejectsBadKey(t *testing.T) {
	_, err := NewSigner("not-hex", testChain)
	assert.Error(t, err)
}

func TestSignOrderProducesValidSignature(t *testing.T) {
	s := newTestSigner(t)
	signed, err := s.SignOrder(context.Background(), testOrder(), venueA)
	require.NoError(t, err)

	raw, err := hex.DecodeString(strings.TrimPrefix(signed.Signature, "0x"))
	require.NoError(t, err)
	require.Len(t, raw, 65)
	assert.Contains(t, []byte{27, 28}, raw[64])

	// Recover the signer from the digest and check it matches.
	structHash, err := orderStructHash(testOrder())
	require.NoError(t, err)
	digest := ethcrypto.Keccak256(concat(
		[]byte{0x19, 0x01},
		domainSeparator(testChain, common.HexToAddress(venueA)),
		structHash,
	))
	raw[64] -= 27
	pub, err := ethcrypto.SigToPub(digest, raw)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), ethcrypto.PubkeyToAddress(*pub))
}

func TestSignOrderIsDeterministicPerVenue(t *testing.T) {
	s := newTestSigner(t)
	a1, err := s.SignOrder(context.Background(), testOrder(), venueA)
	require.NoError(t, err)
	a2, err := s.SignOrder(context.Background(), testOrder(), venueA)
	require.NoError(t, err)
	assert.Equal(t, a1.Signature, a2.Signature)
}

// Signing the same order against two verifying contracts must yield two
// distinct signatures; a signature for venue A verifies only against A.
func TestSignatureDomainIsolation(t *testing.T) {
	s := newTestSigner(t)
	sigA, err := s.SignOrder(context.Background(), testOrder(), venueA)
	require.NoError(t, err)
	sigB, err := s.SignOrder(context.Background(), testOrder(), venueB)
	require.NoError(t, err)

	require.NotEqual(t, sigA.Signature, sigB.Signature)

	// Recovering sigA against venue B's digest yields a different address.
	structHash, err := orderStructHash(testOrder())
	require.NoError(t, err)
	digestB := ethcrypto.Keccak256(concat(
		[]byte{0x19, 0x01},
		domainSeparator(testChain, common.HexToAddress(venueB)),
		structHash,
	))
	raw, err := hex.DecodeString(strings.TrimPrefix(sigA.Signature, "0x"))
	require.NoError(t, err)
	raw[64] -= 27
	pub, err := ethcrypto.SigToPub(digestB, raw)
	if err == nil {
		assert.NotEqual(t, s.Address(), ethcrypto.PubkeyToAddress(*pub))
	}
}

func TestSignOrderChainIsolation(t *testing.T) {
	s1 := newTestSigner(t)
	s2, err := NewSigner(testKey, 84532)
	require.NoError(t, err)

	a, err := s1.SignOrder(context.Background(), testOrder(), venueA)
	require.NoError(t, err)
	b, err := s2.SignOrder(context.Background(), testOrder(), venueA)
	require.NoError(t, err)
	assert.NotEqual(t, a.Signature, b.Signature)
}

// The display price must not influence the signature: two orders differing
// only in Price sign identically.
func TestPriceExcludedFromSignature(t *testing.T) {
	s := newTestSigner(t)
	o1 := testOrder()
	o2 := testOrder()
	o2.Price = "0.9"

	a, err := s.SignOrder(context.Background(), o1, venueA)
	require.NoError(t, err)
	b, err := s.SignOrder(context.Background(), o2, venueA)
	require.NoError(t, err)
	assert.Equal(t, a.Signature, b.Signature)
}

func TestSignOrderAddressMismatch(t *testing.T) {
	s := newTestSigner(t)
	o := testOrder()
	o.Signer = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

	_, err := s.SignOrder(context.Background(), o, venueA)
	var mErr *domain.AddressMismatchError
	require.True(t, errors.As(err, &mErr))
	assert.Contains(t, err.Error(), "0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	assert.Contains(t, err.Error(), testAddr)
}

func TestSignOrderBadVenue(t *testing.T) {
	s := newTestSigner(t)
	_, err := s.SignOrder(context.Background(), testOrder(), "")
	assert.ErrorIs(t, err, domain.ErrVenueUnknown)
}

func TestSignOrderCancelledContext(t *testing.T) {
	s := newTestSigner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.SignOrder(ctx, testOrder(), venueA)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSignMessage(t *testing.T) {
	s := newTestSigner(t)
	sig, err := s.SignMessage("Sign in to Limitless at 1700000000")
	require.NoError(t, err)
	raw, err := hex.DecodeString(strings.TrimPrefix(sig, "0x"))
	require.NoError(t, err)
	assert.Len(t, raw, 65)
}
