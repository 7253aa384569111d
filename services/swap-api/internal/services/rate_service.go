package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nimeshabuddhika/resilient-swap-go/pkg"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/swap"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/utils"
	"github.com/nimeshabuddhika/resilient-swap-go/services/swap-api/internal/observability"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// staleFactor bounds how long a value outlives its TTL while refreshes keep failing.
	staleFactor       = 4
	fetchTimeout      = 10 * time.Second
	failureBackoffMin = time.Second
)

// RateService hands out rate snapshots for a (token, currency, amount) quote. It never fails: an
// unavailable rate is reported as Unknown or Pending.
type RateService interface {
	Observe(ctx context.Context, token, currency string, amount decimal.Decimal) swap.Rate
}

type RateServiceConfig struct {
	Logger *zap.Logger
	Client AggregatorClient
	// TTL is how long a fetched rate is served without refreshing.
	TTL time.Duration
	// Wait is how long Observe blocks on an in-flight fetch before reporting it as pending.
	Wait time.Duration
	Now  func() time.Time
}

type rateEntry struct {
	value     decimal.Decimal
	fetchedAt time.Time
	inflight  chan struct{}
	failures  int
	retryAt   time.Time
}

type RateServiceImpl struct {
	logger *zap.Logger
	client AggregatorClient
	ttl    time.Duration
	wait   time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*rateEntry
}

func NewRateService(cfg RateServiceConfig) RateService {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &RateServiceImpl{
		logger:  cfg.Logger,
		client:  cfg.Client,
		ttl:     cfg.TTL,
		wait:    cfg.Wait,
		now:     now,
		entries: make(map[string]*rateEntry),
	}
}

// rateKey identifies a quote. The aggregator prices by size, so the amount is part of the key.
func rateKey(token, currency string, amount decimal.Decimal) string {
	return strings.ToUpper(token) + "/" + strings.ToUpper(currency) + "/" + amount.String()
}

// Observe returns the current snapshot, starting a refresh when the cached value is missing or expired.
// Concurrent callers share one in-flight fetch per quote.
func (r *RateServiceImpl) Observe(ctx context.Context, token, currency string, amount decimal.Decimal) swap.Rate {
	token, currency = strings.TrimSpace(token), strings.TrimSpace(currency)
	if utils.IsEmpty(token) || utils.IsEmpty(currency) {
		return swap.UnknownRate()
	}
	key := rateKey(token, currency, amount)

	r.mu.Lock()
	now := r.now()
	e, ok := r.entries[key]
	if !ok {
		r.prune(now)
		e = &rateEntry{}
		r.entries[key] = e
	}
	if r.fresh(e, now) {
		rate := swap.NewRate(e.value, e.inflight != nil)
		r.mu.Unlock()
		return r.observed(rate)
	}
	if e.inflight == nil && !now.Before(e.retryAt) {
		e.inflight = make(chan struct{})
		go r.fetch(key, e, token, currency, amount, e.inflight)
	}
	inflight := e.inflight
	r.mu.Unlock()

	if inflight != nil && r.wait > 0 {
		timer := time.NewTimer(r.wait)
		select {
		case <-inflight:
		case <-timer.C:
		case <-ctx.Done():
		}
		timer.Stop()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.observed(r.snapshot(e, r.now()))
}

func (r *RateServiceImpl) fresh(e *rateEntry, now time.Time) bool {
	return e.value.IsPositive() && now.Sub(e.fetchedAt) < r.ttl
}

// prune drops idle quotes that can no longer be served, stale ones included. Must be called with mu held.
func (r *RateServiceImpl) prune(now time.Time) {
	for key, e := range r.entries {
		if e.inflight != nil || now.Before(e.retryAt) {
			continue
		}
		if e.value.IsPositive() && now.Sub(e.fetchedAt) < staleFactor*r.ttl {
			continue
		}
		delete(r.entries, key)
	}
}

// snapshot must be called with mu held.
func (r *RateServiceImpl) snapshot(e *rateEntry, now time.Time) swap.Rate {
	fetching := e.inflight != nil
	if e.value.IsPositive() && now.Sub(e.fetchedAt) < staleFactor*r.ttl {
		return swap.NewRate(e.value, fetching)
	}
	if fetching {
		return swap.PendingRate()
	}
	return swap.UnknownRate()
}

func (r *RateServiceImpl) observed(rate swap.Rate) swap.Rate {
	observability.RateObservations.WithLabelValues(rate.State.String()).Inc()
	return rate
}

// fetch runs detached from the request that triggered it so an abandoned edit does not cancel
// the refresh other forms are waiting on.
func (r *RateServiceImpl) fetch(key string, e *rateEntry, token, currency string, amount decimal.Decimal, done chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	start := time.Now()
	value, err := r.client.FetchRate(ctx, token, currency, amount)
	observability.RateFetchLatency.Observe(time.Since(start).Seconds())

	r.mu.Lock()
	defer r.mu.Unlock()
	defer close(done)
	e.inflight = nil

	if err != nil {
		e.failures++
		e.retryAt = r.now().Add(utils.CalculateExponentialBackoffWithJitter(e.failures, failureBackoffMin, r.ttl))
		observability.RateFetches.WithLabelValues("failure").Inc()
		r.logger.Warn("rate fetch failed",
			zap.String(pkg.Token, token), zap.String(pkg.Currency, currency),
			zap.Int("failures", e.failures), zap.Time("retry_at", e.retryAt), zap.Error(err))
		return
	}

	e.value = value
	e.fetchedAt = r.now()
	e.failures = 0
	e.retryAt = time.Time{}
	observability.RateFetches.WithLabelValues("success").Inc()
	r.logger.Debug("rate refreshed", zap.String("pair", key), zap.String("rate", value.String()))
}
