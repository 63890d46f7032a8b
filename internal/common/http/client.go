// internal/common/http/client.go
package http

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client is the outbound HTTP client shared by the search, crawl and
// enrichment adapters. It stamps a User-Agent and, when configured, waits
// on a token bucket before each request.
type Client struct {
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
}

type Option func(*Client)

// WithUserAgent sets the User-Agent header on requests that lack one.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithRateLimit throttles outbound requests to reqPerSec with the given burst.
func WithRateLimit(reqPerSec float64, burst int) Option {
	return func(c *Client) {
		if reqPerSec <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(reqPerSec), burst)
	}
}

// WithTransport replaces the underlying transport (tests, proxies).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient.Transport = rt }
}

func NewClient(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.httpClient.Do(req)
}
