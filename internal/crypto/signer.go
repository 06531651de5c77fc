// Package crypto provides key resolution, EIP-712 order signing, and HMAC
// request authentication for the Limitless exchange API.
package crypto

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/quantfold/limitbot/internal/domain"
)

// EIP-712 domain parameters. Name and version are fixed by the exchange
// contract; chain id and verifying contract vary per deployment and per
// market venue.
const (
	DomainName    = "Limitless CTF Exchange"
	DomainVersion = "1"
)

var (
	// EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)
	domainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"),
	)

	// The 12 signed order fields, in contract-enforced sequence. The display
	// price is deliberately absent: including it would change the struct hash
	// and the verifying contract would reject the signature.
	orderTypeHash = ethcrypto.Keccak256(
		[]byte("Order(uint256 salt,address maker,address signer,address taker,uint256 tokenId,uint256 makerAmount,uint256 takerAmount,uint256 expiration,uint256 nonce,uint256 feeRateBps,uint8 side,uint8 signatureType)"),
	)

	nameHash    = ethcrypto.Keccak256([]byte(DomainName))
	versionHash = ethcrypto.Keccak256([]byte(DomainVersion))
)

// Signer holds the in-process signing key. It keeps no venue state: the
// verifying contract is supplied on every SignOrder call so a signature can
// never silently bind to the wrong venue.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    int64
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key and
// the target chain id (8453 for Base mainnet, 84532 for Base Sepolia).
func NewSigner(privateKeyHex string, chainID int64) (*Signer, error) {
	pk, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}
	return &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
		chainID:    chainID,
	}, nil
}

// Address returns the Ethereum address derived from the signing key.
func (s *Signer) Address() common.Address {
	return s.address
}

// ChainID returns the chain the signer binds signatures to.
func (s *Signer) ChainID() int64 {
	return s.chainID
}

// SignOrder produces the EIP-712 signature binding the order to this chain
// and the given verifying contract, and returns the signed order.
//
// The signer's own address must equal the order's declared signer field; a
// mismatch is fatal and non-retryable since re-signing with the same key can
// never produce a valid signature for someone else's order.
func (s *Signer) SignOrder(ctx context.Context, o domain.UnsignedOrder, verifyingContract string) (domain.SignedOrder, error) {
	if err := ctx.Err(); err != nil {
		return domain.SignedOrder{}, err
	}
	if !common.IsHexAddress(verifyingContract) {
		return domain.SignedOrder{}, fmt.Errorf("crypto/signer: %w: verifying contract %q", domain.ErrVenueUnknown, verifyingContract)
	}
	declared := common.HexToAddress(o.Signer)
	if declared != s.address {
		return domain.SignedOrder{}, &domain.AddressMismatchError{
			Declared: declared.Hex(),
			Actual:   s.address.Hex(),
		}
	}

	structHash, err := orderStructHash(o)
	if err != nil {
		return domain.SignedOrder{}, err
	}

	domainSep := domainSeparator(s.chainID, common.HexToAddress(verifyingContract))
	digest := ethcrypto.Keccak256(concat(
		[]byte{0x19, 0x01},
		domainSep,
		structHash,
	))

	sig, err := s.signDigest(digest)
	if err != nil {
		return domain.SignedOrder{}, err
	}
	return domain.SignedOrder{UnsignedOrder: o, Signature: sig}, nil
}

// SignMessage signs a plain-text message with the Ethereum personal-message
// prefix. Used for the session sign-in handshake.
func (s *Signer) SignMessage(message string) (string, error) {
	return s.signDigest(accounts.TextHash([]byte(message)))
}

// domainSeparator computes keccak256(abi.encode(typeHash, nameHash,
// versionHash, chainId, verifyingContract)). It is rebuilt on every call
// rather than cached: the verifying contract differs per venue.
func domainSeparator(chainID int64, verifyingContract common.Address) []byte {
	return ethcrypto.Keccak256(concat(
		domainTypeHash,
		nameHash,
		versionHash,
		uint256Bytes(big.NewInt(chainID)),
		common.LeftPadBytes(verifyingContract.Bytes(), 32),
	))
}

// orderStructHash ABI-encodes and hashes the 12 signed order fields.
func orderStructHash(o domain.UnsignedOrder) ([]byte, error) {
	tokenID, ok := new(big.Int).SetString(o.TokenID, 10)
	if !ok {
		return nil, fmt.Errorf("crypto/signer: invalid tokenId %q", o.TokenID)
	}
	if o.MakerAmount == nil || o.TakerAmount == nil {
		return nil, fmt.Errorf("crypto/signer: order amounts not set")
	}

	return ethcrypto.Keccak256(concat(
		orderTypeHash,
		uint256Bytes(big.NewInt(o.Salt)),
		common.LeftPadBytes(common.HexToAddress(o.Maker).Bytes(), 32),
		common.LeftPadBytes(common.HexToAddress(o.Signer).Bytes(), 32),
		common.LeftPadBytes(common.HexToAddress(o.Taker).Bytes(), 32),
		uint256Bytes(tokenID),
		uint256Bytes(o.MakerAmount),
		uint256Bytes(o.TakerAmount),
		uint256Bytes(big.NewInt(o.Expiration)),
		uint256Bytes(big.NewInt(o.Nonce)),
		uint256Bytes(big.NewInt(o.FeeRateBps)),
		uint256Bytes(big.NewInt(int64(o.Side))),
		uint256Bytes(big.NewInt(int64(o.SignatureType))),
	)), nil
}

// signDigest signs a 32-byte digest with secp256k1 and returns the
// hex-encoded r||s||v signature (65 bytes, v in {27,28}).
func (s *Signer) signDigest(digest []byte) (string, error) {
	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: %w: %v", domain.ErrSigningFailed, err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return "0x" + hex.EncodeToString(sig), nil
}

func uint256Bytes(n *big.Int) []byte {
	b := n.Bytes()
	if len(b) >= 32 {
		return b[:32]
	}
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return padded
}

func concat(slices ...[]byte) []byte {
	total := 0
	for _, s := range slices {
		total += len(s)
	}
	buf := make([]byte, 0, total)
	for _, s := range slices {
		buf = append(buf, s...)
	}
	return buf
}
