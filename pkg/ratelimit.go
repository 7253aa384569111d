package pkg

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// DistributedLimiter guards calls to the rate aggregator. A local token bucket answers first;
// when a Redis client is configured, a shared per-window counter enforces the budget across replicas.
type DistributedLimiter struct {
	localLimiter *rate.Limiter
	redisClient  *redis.Client
	key          string        // e.g: "swap:aggregator_rate"
	ttl          time.Duration // counter window
	logger       *zap.Logger
}

// NewDistributedLimiter creates a limiter; perSecond=0 disables limiting and a nil redisClient keeps it process-local.
func NewDistributedLimiter(redisClient *redis.Client, key string, perSecond, burst int, ttl time.Duration, logger *zap.Logger) *DistributedLimiter {
	var local *rate.Limiter
	if perSecond > 0 {
		if burst <= 0 {
			burst = perSecond
		}
		local = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return &DistributedLimiter{
		localLimiter: local,
		redisClient:  redisClient,
		key:          key,
		ttl:          ttl,
		logger:       logger,
	}
}

// Allow reports whether one more upstream call fits in the budget.
func (d *DistributedLimiter) Allow(ctx context.Context) bool {
	if d.localLimiter == nil {
		return true
	}
	if !d.localLimiter.Allow() {
		return false
	}
	if d.redisClient == nil {
		return true
	}

	pipe := d.redisClient.Pipeline()
	incr := pipe.Incr(ctx, d.key)
	pipe.Expire(ctx, d.key, d.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		d.logger.Warn("redis rate limit error; falling back to local", zap.Error(err))
		return true
	}

	count := incr.Val()
	if count > int64(d.localLimiter.Burst()) {
		d.logger.Warn("global rate limit exceeded", zap.String("key", d.key), zap.Int64("count", count))
		return false
	}
	return true
}
