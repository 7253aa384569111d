package handlers

import (
	"net/http"
	"testing"

	"github.com/nimeshabuddhika/resilient-swap-go/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogHandler_GetTokens(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	rec := s.do(t, http.MethodGet, "/api/v1/networks/base/tokens", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	tokens := decodeSuccess[[]catalog.Token](t, rec.Body).Data
	require.NotEmpty(t, tokens)
	assert.Equal(t, "USDC", tokens[0].Symbol)
	assert.EqualValues(t, 6, tokens[0].Decimals)
}

func TestCatalogHandler_UnknownNetwork(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	rec := s.do(t, http.MethodGet, "/api/v1/networks/solana/tokens", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogHandler_Currencies(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	rec := s.do(t, http.MethodGet, "/api/v1/currencies", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	currencies := decodeSuccess[[]catalog.Currency](t, rec.Body).Data
	require.NotEmpty(t, currencies)
	for _, c := range currencies {
		assert.Empty(t, c.Institutions, c.Code)
	}
}

func TestCatalogHandler_Institutions(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	ok := s.do(t, http.MethodGet, "/api/v1/currencies/ngn/institutions", nil)
	unknown := s.do(t, http.MethodGet, "/api/v1/currencies/EUR/institutions", nil)

	require.Equal(t, http.StatusOK, ok.Code)
	institutions := decodeSuccess[[]catalog.Institution](t, ok.Body).Data
	name, found := catalog.InstitutionNameByCode("GTBINGLA", institutions)
	assert.True(t, found)
	assert.Equal(t, "Guaranty Trust Bank", name)
	assert.Equal(t, http.StatusNotFound, unknown.Code)
}

func TestBaseHandler_Health(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	rec := s.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
