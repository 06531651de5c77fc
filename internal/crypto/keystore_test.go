package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptKeyFile(t *testing.T) {
	blob, err := EncryptKeyFile(testKey, "hunter2")
	require.NoError(t, err)

	got, err := DecryptKeyFile(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, testKey, got)

	_, err = DecryptKeyFile(blob, "wrong")
	assert.Error(t, err)
}

func TestEncryptKeyFileRejectsBadInput(t *testing.T) {
	_, err := EncryptKeyFile(testKey, "")
	assert.Error(t, err)

	_, err = EncryptKeyFile("abcd", "pw") // too short
	assert.Error(t, err)

	_, err = EncryptKeyFile("zz", "pw") // not hex
	assert.Error(t, err)
}

func TestResolveKeyPrecedence(t *testing.T) {
	// Raw key wins.
	k, err := ResolveKey(KeySource{PrivateKey: "0x" + testKey, EncryptedPath: "/nonexistent"})
	require.NoError(t, err)
	assert.Equal(t, testKey, k)

	// Encrypted file fallback.
	blob, err := EncryptKeyFile(testKey, "pw")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	k, err = ResolveKey(KeySource{EncryptedPath: path, Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, testKey, k)

	// Nothing configured.
	_, err = ResolveKey(KeySource{})
	assert.Error(t, err)
}

func TestSessionAuthHeaders(t *testing.T) {
	auth := &SessionAuth{Account: testAddr, OwnerID: 42, Secret: "c2VjcmV0"}
	h := auth.HeadersAt("POST", "/orders", `{"a":1}`, 1700000000)

	assert.Equal(t, testAddr, h["X-Account"])
	assert.Equal(t, "1700000000", h["X-Timestamp"])
	assert.NotEmpty(t, h["X-Signature"])

	// Same inputs, same signature; different body, different signature.
	h2 := auth.HeadersAt("POST", "/orders", `{"a":1}`, 1700000000)
	assert.Equal(t, h["X-Signature"], h2["X-Signature"])
	h3 := auth.HeadersAt("POST", "/orders", `{"a":2}`, 1700000000)
	assert.NotEqual(t, h["X-Signature"], h3["X-Signature"])
}

func TestSessionAuthStringRedacts(t *testing.T) {
	auth := &SessionAuth{Account: testAddr, Secret: "supersecretvalue"}
	s := auth.String()
	assert.NotContains(t, s, "supersecretvalue")
	assert.Contains(t, s, "supe****")
}
