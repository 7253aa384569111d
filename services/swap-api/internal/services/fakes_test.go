package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nimeshabuddhika/resilient-swap-go/pkg/swap"
	"github.com/shopspring/decimal"
)

type fakeAggregator struct {
	calls     atomic.Int32
	rate      func(ctx context.Context) (decimal.Decimal, error)
	publicKey string
	keyErr    error
}

func (f *fakeAggregator) FetchRate(ctx context.Context, _, _ string, _ decimal.Decimal) (decimal.Decimal, error) {
	f.calls.Add(1)
	return f.rate(ctx)
}

func (f *fakeAggregator) FetchPublicKey(context.Context) (string, error) {
	return f.publicKey, f.keyErr
}

func fixedRate(v string) func(context.Context) (decimal.Decimal, error) {
	return func(context.Context) (decimal.Decimal, error) {
		return decimal.RequireFromString(v), nil
	}
}

type stubRates struct {
	rate swap.Rate
}

func (s stubRates) Observe(context.Context, string, string, decimal.Decimal) swap.Rate {
	return s.rate
}

type stubBalances struct {
	balances swap.BalanceMap
	err      error
}

func (s stubBalances) Balances(context.Context, string, string) (swap.BalanceMap, error) {
	return s.balances, s.err
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
