package fetch

import (
	"context"
	"net/http"
	"time"

	"github.com/caymran/eventfeeds/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithStore attaches the persisted cache store used for conditional GETs.
func WithStore(store CacheStore) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithUserAgent sets the default User-Agent for requests.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithPoliteness sets the randomized delay window applied after each fresh
// response.
func WithPoliteness(min, max time.Duration) Option {
	return func(c *Client) {
		if min >= 0 && max >= min {
			c.politenessMin = min
			c.politenessMax = max
		}
	}
}

// WithMaxAttempts caps retries for retryable failures.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithHTTPClient swaps the underlying HTTP client; tests use this with
// httptest servers.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithSleep overrides the sleep function; tests use this to skip real
// backoff and politeness waits.
func WithSleep(sleep func(ctx context.Context, d time.Duration) bool) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}
