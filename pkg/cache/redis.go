package cache

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures the Redis connection shared by the form store and the aggregator limiter.
type Options struct {
	Addr         string
	Password     string
	DB           int
	UseTLS       bool
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// Connect dials Redis and verifies it with PING. The returned closer releases the pool.
func Connect(ctx context.Context, o Options) (*redis.Client, func(), error) {
	opts := &redis.Options{
		Addr:            o.Addr,
		Password:        o.Password,
		DB:              o.DB,
		DialTimeout:     orDuration(o.DialTimeout, 3*time.Second),
		ReadTimeout:     orDuration(o.ReadTimeout, time.Second),
		WriteTimeout:    orDuration(o.WriteTimeout, time.Second),
		PoolSize:        orInt(o.PoolSize, 10),
		MinIdleConns:    2,
		MaxRetries:      3,
		MinRetryBackoff: 50 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
	}
	if o.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", o.Addr, err)
	}
	return client, func() { _ = client.Close() }, nil
}

func orDuration(v, d time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return d
}

func orInt(v, d int) int {
	if v > 0 {
		return v
	}
	return d
}
