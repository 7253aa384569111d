package utils

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"strings"
	"testing"

	"github.com/nimeshabuddhika/resilient-swap-go/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Amount    string            `json:"amount"`
	Token     string            `json:"token"`
	Recipient map[string]string `json:"recipient"`
}

func generateKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return key, string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func decrypt(t *testing.T, key *rsa.PrivateKey, encoded string) string {
	t.Helper()
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	plaintext, err := rsa.DecryptPKCS1v15(rand.Reader, key, ciphertext)
	require.NoError(t, err)
	return string(plaintext)
}

func TestPublicKeyEncrypt_RoundTrip(t *testing.T) {
	// Arrange
	key, publicPEM := generateKey(t)
	payload := samplePayload{
		Amount:    "100",
		Token:     "USDC",
		Recipient: map[string]string{"memo": "rent & food", "institution": "GTBINGLA"},
	}
	want, err := CanonicalJSON(payload)
	require.NoError(t, err)

	// Act
	encrypted, err := PublicKeyEncrypt(payload, publicPEM)

	// Assert
	require.NoError(t, err)
	assert.NotContains(t, encrypted, "\n")
	assert.Equal(t, string(want), decrypt(t, key, encrypted))
	assert.Equal(t, `{"amount":"100","token":"USDC","recipient":{"institution":"GTBINGLA","memo":"rent & food"}}`, string(want))
}

func TestPublicKeyEncrypt_PKCS1AndBareBase64Keys(t *testing.T) {
	key, _ := generateKey(t)
	pkcs1 := pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&key.PublicKey)})
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	bare := base64.StdEncoding.EncodeToString(der)

	for name, pub := range map[string]string{"pkcs1": string(pkcs1), "bare": bare} {
		t.Run(name, func(t *testing.T) {
			encrypted, err := PublicKeyEncrypt(map[string]int{"n": 1}, pub)
			require.NoError(t, err)
			assert.Equal(t, `{"n":1}`, decrypt(t, key, encrypted))
		})
	}
}

func TestPublicKeyEncrypt_MalformedKey(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"broken pem":   "-----BEGIN PUBLIC KEY-----\nnot base64 at all\n-----END PUBLIC KEY-----",
		"not a key":    base64.StdEncoding.EncodeToString([]byte("hello")),
		"garbage text": "definitely not a key!",
	}
	for name, pub := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := PublicKeyEncrypt(map[string]string{"a": "b"}, pub)

			require.Error(t, err)
			assert.True(t, errors.Is(err, pkg.ErrEncryptionFailure))
			var appErr pkg.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, pkg.ErrEncryptionFailureCode.Code, appErr.Code.Code)
		})
	}
}

func TestPublicKeyEncrypt_PayloadTooLarge(t *testing.T) {
	_, publicPEM := generateKey(t)

	_, err := PublicKeyEncrypt(map[string]string{"memo": strings.Repeat("x", 400)}, publicPEM)

	assert.ErrorIs(t, err, pkg.ErrEncryptionFailure)
}

func TestPublicKeyEncrypt_UnserializablePayload(t *testing.T) {
	_, publicPEM := generateKey(t)

	_, err := PublicKeyEncrypt(map[string]any{"f": func() {}}, publicPEM)

	require.Error(t, err)
	assert.False(t, errors.Is(err, pkg.ErrEncryptionFailure))
}
