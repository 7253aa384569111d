package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxAggregatorBody = 1 << 20

// AggregatorClient talks to the payment aggregator: conversion quotes and the public key
// submissions are encrypted with.
type AggregatorClient interface {
	FetchRate(ctx context.Context, token, currency string, amount decimal.Decimal) (decimal.Decimal, error)
	FetchPublicKey(ctx context.Context) (string, error)
}

type AggregatorClientConfig struct {
	Logger     *zap.Logger
	BaseURL    string
	HTTPClient *http.Client
	Limiter    *pkg.DistributedLimiter
	MaxRetries int
	// InitialInterval is the first retry delay; zero uses 100ms.
	InitialInterval time.Duration
}

type AggregatorClientImpl struct {
	logger          *zap.Logger
	baseURL         string
	httpClient      *http.Client
	limiter         *pkg.DistributedLimiter
	maxRetries      int
	initialInterval time.Duration
}

func NewAggregatorClient(cfg AggregatorClientConfig) AggregatorClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = utils.NewHTTPClient()
	}
	interval := cfg.InitialInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &AggregatorClientImpl{
		logger:          cfg.Logger,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:      httpClient,
		limiter:         cfg.Limiter,
		maxRetries:      cfg.MaxRetries,
		initialInterval: interval,
	}
}

// aggregatorResponse is the aggregator's envelope: {"status":"success","message":"...","data":...}.
type aggregatorResponse[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func (a *AggregatorClientImpl) FetchRate(ctx context.Context, token, currency string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		amount = decimal.NewFromInt(1)
	}
	path := fmt.Sprintf("/rates/%s/%s/%s",
		url.PathEscape(strings.ToUpper(token)), url.PathEscape(amount.String()), url.PathEscape(strings.ToUpper(currency)))

	var resp aggregatorResponse[decimal.Decimal]
	if err := a.get(ctx, path, &resp); err != nil {
		return decimal.Zero, err
	}
	if !resp.Data.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: aggregator returned non-positive rate %s", pkg.ErrUpstream, resp.Data)
	}
	return resp.Data, nil
}

func (a *AggregatorClientImpl) FetchPublicKey(ctx context.Context) (string, error) {
	var resp aggregatorResponse[string]
	if err := a.get(ctx, "/pubkey", &resp); err != nil {
		return "", err
	}
	if utils.IsEmpty(strings.TrimSpace(resp.Data)) {
		return "", fmt.Errorf("%w: aggregator returned an empty public key", pkg.ErrUpstream)
	}
	return resp.Data, nil
}

// get performs one logical request with retries on transport errors and 5xx/429 responses.
func (a *AggregatorClientImpl) get(ctx context.Context, path string, out any) error {
	if a.limiter != nil && !a.limiter.Allow(ctx) {
		return fmt.Errorf("%w: %w", pkg.ErrUpstream, pkg.ErrRateLimitExceeded)
	}

	attempt := 0
	operation := func() error {
		attempt++
		return a.do(ctx, a.baseURL+path, out)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.initialInterval
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(a.maxRetries, 0))), ctx)

	notify := func(err error, wait time.Duration) {
		a.logger.Warn("aggregator request failed, retrying",
			zap.String("path", path), zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return fmt.Errorf("%w: %w", pkg.ErrUpstream, err)
	}
	return nil
}

func (a *AggregatorClientImpl) do(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAggregatorBody))
	if err != nil {
		return err
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("aggregator returned status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return backoff.Permanent(fmt.Errorf("aggregator returned status %d: %s", resp.StatusCode, truncate(body, 200)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode aggregator response: %w", err))
	}
	if s, ok := out.(interface{ status() string }); ok && !strings.EqualFold(s.status(), "success") {
		return backoff.Permanent(errors.New("aggregator reported status " + s.status()))
	}
	return nil
}

func (r *aggregatorResponse[T]) status() string { return r.Status }

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
