package handlers

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"testing"

	"github.com/nimeshabuddhika/resilient-swap-go/pkg"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/models"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rsaKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return key, string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func decryptString(t *testing.T, key *rsa.PrivateKey, encoded string) string {
	t.Helper()
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	plaintext, err := rsa.DecryptPKCS1v15(rand.Reader, key, ciphertext)
	require.NoError(t, err)
	return string(plaintext)
}

func fillForm(t *testing.T, s *testServer) string {
	t.Helper()
	base := "/api/v1/forms/" + createForm(t, s).ID
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, base+"/selection", map[string]string{"currency": "NGN"}).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, base+"/amounts", map[string]string{"field": "sent", "value": "100"}).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, base+"/recipient", map[string]string{
		"institution": "GTBINGLA", "accountIdentifier": "0123456789", "accountName": "Ada Obi", "memo": "rent",
	}).Code)
	return base
}

func TestSubmissionHandler_Submit(t *testing.T) {
	// Arrange
	key, publicKey := rsaKey(t)
	s := newTestServer(t, serverOptions{})
	base := fillForm(t, s)

	// Act
	rec := s.do(t, http.MethodPost, base+"/submit", map[string]string{"publicKey": publicKey})

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeSuccess[views.SubmissionView](t, rec.Body).Data
	assert.Equal(t, "100", out.Payload.Amount)
	assert.Equal(t, "150000", out.Payload.AmountReceived)
	assert.Equal(t, "GTBINGLA", out.Payload.Recipient.Institution)

	var decrypted models.SubmissionPayload
	require.NoError(t, json.Unmarshal([]byte(decryptString(t, key, out.EncryptedPayload)), &decrypted))
	assert.Equal(t, out.Payload, decrypted)

	assert.False(t, out.Form.Dirty)
	assert.Empty(t, out.Form.Sent.Value)
	assert.Empty(t, out.Form.Currency)
	assert.Equal(t, "USDC", out.Form.Token)
}

func TestSubmissionHandler_SubmitWithAggregatorKey(t *testing.T) {
	key, publicKey := rsaKey(t)
	s := newTestServer(t, serverOptions{aggregatorPK: publicKey})
	base := fillForm(t, s)

	rec := s.do(t, http.MethodPost, base+"/submit", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeSuccess[views.SubmissionView](t, rec.Body).Data
	assert.Contains(t, decryptString(t, key, out.EncryptedPayload), `"accountName":"Ada Obi"`)
}

func TestSubmissionHandler_SubmitRejected(t *testing.T) {
	_, publicKey := rsaKey(t)
	s := newTestServer(t, serverOptions{})
	base := "/api/v1/forms/" + createForm(t, s).ID

	rec := s.do(t, http.MethodPost, base+"/submit", map[string]string{"publicKey": publicKey})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, pkg.ErrValidationCode.Code, decodeError(t, rec.Body).Code)
}

func TestSubmissionHandler_SubmitMalformedKey(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	base := fillForm(t, s)

	rec := s.do(t, http.MethodPost, base+"/submit", map[string]string{"publicKey": "-----BEGIN PUBLIC KEY-----\nbm9wZQ==\n-----END PUBLIC KEY-----"})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, pkg.ErrEncryptionFailureCode.Code, decodeError(t, rec.Body).Code)

	form := s.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, form.Code)
	assert.Equal(t, "100", decodeSuccess[views.FormView](t, form.Body).Data.Sent.Value)
}

func TestSubmissionHandler_Encrypt(t *testing.T) {
	// Arrange
	key, publicKey := rsaKey(t)
	s := newTestServer(t, serverOptions{})
	body := map[string]any{
		"publicKey": publicKey,
		"payload":   json.RawMessage(`{"token":"USDC","amount":12.50,"recipient":{"memo":"a & b"}}`),
	}

	// Act
	rec := s.do(t, http.MethodPost, "/api/v1/encrypt", body)

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeSuccess[views.EncryptView](t, rec.Body).Data
	assert.Equal(t, `{"amount":12.50,"recipient":{"memo":"a & b"},"token":"USDC"}`, decryptString(t, key, out.EncryptedPayload))
}

func TestSubmissionHandler_EncryptRequiresKey(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	rec := s.do(t, http.MethodPost, "/api/v1/encrypt", map[string]any{"payload": map[string]string{"a": "b"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, pkg.ErrInvalidInputCode.Code, decodeError(t, rec.Body).Code)
}

func TestSubmissionHandler_History(t *testing.T) {
	_, publicKey := rsaKey(t)
	s := newTestServer(t, serverOptions{})
	base := fillForm(t, s)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, base+"/submit", map[string]string{"publicKey": publicKey}).Code)

	rec := s.do(t, http.MethodGet, base+"/submissions?limit=5", nil)
	bad := s.do(t, http.MethodGet, base+"/submissions?limit=many", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	history := decodeSuccess[[]models.SubmissionRecord](t, rec.Body).Data
	require.Len(t, history, 1)
	assert.Equal(t, pkg.SubmissionStatusEncrypted, history[0].Status)
	assert.Equal(t, "NGN", history[0].Currency)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}
