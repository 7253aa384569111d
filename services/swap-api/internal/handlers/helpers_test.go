package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/catalog"
	middleware "github.com/nimeshabuddhika/resilient-swap-go/pkg/middlewares"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/repositories"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/swap"
	"github.com/nimeshabuddhika/resilient-swap-go/services/swap-api/internal/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type apiResponse[T any] struct {
	TraceID string `json:"traceId"`
	Data    T      `json:"data"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func decodeSuccess[T any](t *testing.T, r io.Reader) apiResponse[T] {
	t.Helper()
	var out apiResponse[T]
	require.NoError(t, json.NewDecoder(r).Decode(&out))
	return out
}

func decodeError(t *testing.T, r io.Reader) errorResponse {
	t.Helper()
	var out errorResponse
	require.NoError(t, json.NewDecoder(r).Decode(&out))
	return out
}

type fixedRates struct {
	rate swap.Rate
}

func (f *fixedRates) Observe(context.Context, string, string, decimal.Decimal) swap.Rate {
	return f.rate
}

type fixedBalances struct {
	balances swap.BalanceMap
}

func (f fixedBalances) Balances(context.Context, string, string) (swap.BalanceMap, error) {
	return f.balances, nil
}

type keyAggregator struct {
	publicKey string
}

func (k keyAggregator) FetchRate(context.Context, string, string, decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Zero, pkg.ErrUpstream
}

func (k keyAggregator) FetchPublicKey(context.Context) (string, error) {
	return k.publicKey, nil
}

type testServer struct {
	router *gin.Engine
	rates  *fixedRates
}

type serverOptions struct {
	balances     swap.BalanceMap
	aggregatorPK string
}

// newTestServer wires the real services over an in-memory form store.
func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	cat, err := catalog.Load()
	require.NoError(t, err)
	repo := repositories.NewFormRepositoryMemory(time.Hour)
	rates := &fixedRates{rate: swap.UsableRate(decimal.NewFromInt(1500))}

	formSvc := services.NewFormService(services.FormServiceConfig{
		Logger:         logger,
		Repo:           repo,
		Catalog:        cat,
		Rates:          rates,
		Balances:       fixedBalances{balances: opts.balances},
		DefaultNetwork: "base",
	})
	submitSvc := services.NewSubmissionService(services.SubmissionServiceConfig{
		Logger:     logger,
		Repo:       repo,
		Aggregator: keyAggregator{publicKey: opts.aggregatorPK},
	})
	presenter := NewFormPresenter(cat)

	r := gin.New()
	NewBaseHandler(logger).RegisterRoutes(r)
	api := r.Group("/api/v1", middleware.TraceID())
	NewCatalogHandler(logger, cat).RegisterRoutes(api)
	NewFormHandler(logger, formSvc, presenter).RegisterRoutes(api)
	NewSubmissionHandler(logger, submitSvc, presenter).RegisterRoutes(api)
	return &testServer{router: r, rates: rates}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}
