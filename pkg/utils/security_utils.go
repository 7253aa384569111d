package utils

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/nimeshabuddhika/resilient-swap-go/pkg"
)

// PublicKeyEncrypt serializes payload to canonical JSON and encrypts it with the recipient's RSA public key
// (PKCS #1 v1.5). The result is standard base64 without line breaks.
// Bad key material and payloads too large for the key modulus fail with an error matching pkg.ErrEncryptionFailure.
func PublicKeyEncrypt(payload any, publicKeyPEM string) (string, error) {
	plaintext, err := CanonicalJSON(payload)
	if err != nil {
		return "", pkg.NewAppError(pkg.ErrInvalidInputCode, "payload is not serializable", err)
	}
	pub, err := ParseRSAPublicKey(publicKeyPEM)
	if err != nil {
		return "", pkg.NewEncryptionFailure("invalid public key", err)
	}
	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, pub, plaintext)
	if err != nil {
		return "", pkg.NewEncryptionFailure("failed to encrypt payload", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// CanonicalJSON is the text that gets encrypted: encoding/json output (sorted map keys, struct field order)
// without HTML escaping and without a trailing newline.
func CanonicalJSON(payload any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ParseRSAPublicKey accepts a PEM "PUBLIC KEY" (PKIX) or "RSA PUBLIC KEY" (PKCS #1) block,
// or the same DER bytes as bare base64 without armour.
func ParseRSAPublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	der, err := publicKeyDER(publicKeyPEM)
	if err != nil {
		return nil, err
	}
	if pub, err := x509.ParsePKIXPublicKey(der); err == nil {
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("public key is %T, not RSA", pub)
		}
		return rsaPub, nil
	}
	pub, err := x509.ParsePKCS1PublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return pub, nil
}

func publicKeyDER(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if IsEmpty(text) {
		return nil, errors.New("public key is empty")
	}
	if block, _ := pem.Decode([]byte(text)); block != nil {
		return block.Bytes, nil
	}
	if strings.Contains(text, "-----BEGIN") {
		return nil, errors.New("malformed PEM block")
	}
	der, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(text), ""))
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	return der, nil
}
