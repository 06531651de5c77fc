package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// kdfIterations is the OWASP-recommended minimum for PBKDF2-HMAC-SHA256.
	kdfIterations = 480_000
	kdfSaltLen    = 16
	aesKeyLen     = 32
	storeVersion  = 1
)

// keyFileJSON is the on-disk format for an encrypted private key.
type keyFileJSON struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// KeySource tells ResolveKey where to find the trading key. Private-key
// custody beyond this file format is out of scope: an operator who needs a
// hardware wallet or remote signer wraps the Signer instead.
type KeySource struct {
	// PrivateKey is a hex-encoded key (with or without 0x). Takes
	// precedence when set.
	PrivateKey string
	// EncryptedPath points to a JSON file produced by EncryptKeyFile.
	EncryptedPath string
	// Password decrypts the file at EncryptedPath.
	Password string
}

// ResolveKey returns the hex-encoded private key from the first configured
// source: raw key, then encrypted key file.
func ResolveKey(src KeySource) (string, error) {
	if src.PrivateKey != "" {
		k := strings.TrimPrefix(src.PrivateKey, "0x")
		if _, err := hex.DecodeString(k); err != nil {
			return "", fmt.Errorf("crypto/keystore: private key is not valid hex: %w", err)
		}
		return k, nil
	}
	if src.EncryptedPath != "" {
		data, err := os.ReadFile(src.EncryptedPath)
		if err != nil {
			return "", fmt.Errorf("crypto/keystore: read key file: %w", err)
		}
		return DecryptKeyFile(data, src.Password)
	}
	return "", errors.New("crypto/keystore: no key source configured (set private_key or encrypted_key_path)")
}

// EncryptKeyFile encrypts a hex private key with a password using
// PBKDF2-HMAC-SHA256 derivation and AES-256-GCM, returning the JSON blob to
// write to disk.
func EncryptKeyFile(privateKeyHex, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("crypto/keystore: password must not be empty")
	}
	keyBytes, err := hex.DecodeString(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("crypto/keystore: invalid private key hex: %w", err)
	}
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("crypto/keystore: expected 32-byte key, got %d bytes", len(keyBytes))
	}

	salt := make([]byte, kdfSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto/keystore: generate salt: %w", err)
	}
	gcm, err := gcmFor(password, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto/keystore: generate nonce: %w", err)
	}

	out := keyFileJSON{
		Version:    storeVersion,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(gcm.Seal(nil, nonce, keyBytes, nil)),
	}
	return json.MarshalIndent(out, "", "  ")
}

// DecryptKeyFile decrypts a blob produced by EncryptKeyFile and returns the
// hex-encoded private key without 0x prefix.
func DecryptKeyFile(blob []byte, password string) (string, error) {
	if password == "" {
		return "", errors.New("crypto/keystore: password must not be empty")
	}

	var stored keyFileJSON
	if err := json.Unmarshal(blob, &stored); err != nil {
		return "", fmt.Errorf("crypto/keystore: parse key file: %w", err)
	}
	if stored.Version != storeVersion {
		return "", fmt.Errorf("crypto/keystore: unsupported key file version %d", stored.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(stored.Salt)
	if err != nil {
		return "", fmt.Errorf("crypto/keystore: decode salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(stored.Nonce)
	if err != nil {
		return "", fmt.Errorf("crypto/keystore: decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(stored.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("crypto/keystore: decode ciphertext: %w", err)
	}

	gcm, err := gcmFor(password, salt)
	if err != nil {
		return "", err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("crypto/keystore: decryption failed (wrong password?): %w", err)
	}
	return hex.EncodeToString(plaintext), nil
}

// gcmFor derives the AES key from the password and salt and returns the
// ready AEAD.
func gcmFor(password string, salt []byte) (cipher.AEAD, error) {
	derived := pbkdf2.Key([]byte(password), salt, kdfIterations, aesKeyLen, sha256.New)
	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("crypto/keystore: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto/keystore: create GCM: %w", err)
	}
	return gcm, nil
}
