package utils

import (
	"net"
	"net/http"
	"time"
)

const (
	defaultClientTimeout         = 3 * time.Second // whole request, retries excluded
	defaultResponseHeaderTimeout = 2 * time.Second
	defaultIdleConnTimeout       = 90 * time.Second
	defaultTLSHandshakeTimeout   = 5 * time.Second
	defaultMaxIdleConnsPerHost   = 32
	defaultDialerTimeout         = 1 * time.Second
	defaultDialerKeepAlive       = 30 * time.Second
)

// ClientConfig captures the tunables of the HTTP client used for upstream collaborators.
// Zero values are replaced by defaults.
type ClientConfig struct {
	ClientTimeout         time.Duration
	ResponseHeaderTimeout time.Duration
	IdleConnTimeout       time.Duration
	TLSHandshakeTimeout   time.Duration
	MaxIdleConnsPerHost   int
	DialerTimeout         time.Duration
	DialerKeepAlive       time.Duration
}

type ClientOption func(*ClientConfig)

func WithClientTimeout(d time.Duration) ClientOption {
	return func(c *ClientConfig) { c.ClientTimeout = d }
}
func WithResponseHeaderTimeout(d time.Duration) ClientOption {
	return func(c *ClientConfig) { c.ResponseHeaderTimeout = d }
}
func WithMaxIdleConnsPerHost(n int) ClientOption {
	return func(c *ClientConfig) { c.MaxIdleConnsPerHost = n }
}

// NewHTTPClient builds an *http.Client whose every stage is bounded, so a stuck upstream cannot hang a form edit.
func NewHTTPClient(opts ...ClientOption) *http.Client {
	cfg := ClientConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	sanitizeClientConfig(&cfg)

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialerTimeout,
			KeepAlive: cfg.DialerKeepAlive,
		}).DialContext,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: tr, Timeout: cfg.ClientTimeout}
}

func sanitizeClientConfig(c *ClientConfig) {
	c.ClientTimeout = durationOr(c.ClientTimeout, defaultClientTimeout)
	c.ResponseHeaderTimeout = durationOr(c.ResponseHeaderTimeout, defaultResponseHeaderTimeout)
	c.IdleConnTimeout = durationOr(c.IdleConnTimeout, defaultIdleConnTimeout)
	c.TLSHandshakeTimeout = durationOr(c.TLSHandshakeTimeout, defaultTLSHandshakeTimeout)
	c.DialerTimeout = durationOr(c.DialerTimeout, defaultDialerTimeout)
	c.DialerKeepAlive = durationOr(c.DialerKeepAlive, defaultDialerKeepAlive)
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}
}

func durationOr(v, d time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return d
}
