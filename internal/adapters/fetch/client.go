// Package fetch implements the polite, cached, retrying HTTP access layer
// shared by all source adapters.
package fetch

import (
	"context"
	"encoding/base64"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/caymran/eventfeeds/internal/adapters/cachestore"
	"github.com/caymran/eventfeeds/pkg/logger"
	"github.com/caymran/eventfeeds/pkg/metrics"
)

// StatusClass partitions fetch outcomes for callers. Adapters branch on
// the class, never on raw status codes.
type StatusClass int

const (
	// ClassFresh is a 200/201 with a newly cached body.
	ClassFresh StatusClass = iota
	// ClassNotModified is a 304 answered from the cache, with no
	// politeness delay.
	ClassNotModified
	// ClassClientError is a non-retryable 4xx; body is empty.
	ClassClientError
	// ClassServerError is a retryable failure that exhausted its attempts.
	ClassServerError
	// ClassDenied means the robots policy gate refused the fetch.
	ClassDenied
	// ClassMalformed covers undecodable embedded-data URLs.
	ClassMalformed
)

func (c StatusClass) String() string {
	switch c {
	case ClassFresh:
		return "fresh"
	case ClassNotModified:
		return "not_modified"
	case ClassClientError:
		return "client_error"
	case ClassServerError:
		return "server_error"
	case ClassDenied:
		return "denied"
	case ClassMalformed:
		return "malformed"
	}
	return "unknown"
}

// Result is the outcome of one Fetch. OK is true when Body is usable.
type Result struct {
	Class        StatusClass
	StatusCode   int
	Body         string
	ETag         string
	LastModified string
}

// OK reports whether the fetch produced a usable body.
func (r Result) OK() bool {
	return (r.Class == ClassFresh || r.Class == ClassNotModified) && r.Body != ""
}

// CacheStore is the slice of the persisted cache the client needs.
type CacheStore interface {
	Get(ctx context.Context, key string) (cachestore.Entry, bool, error)
	Put(ctx context.Context, key string, e cachestore.Entry) error
}

// Client performs conditional GETs with retry, backoff, politeness delay,
// and a robots gate. Requests to the same host are serialized.
type Client struct {
	http      *http.Client
	store     CacheStore
	gate      *Gate
	userAgent string

	politenessMin time.Duration
	politenessMax time.Duration
	maxAttempts   int
	backoffInit   time.Duration
	backoffCap    time.Duration

	// sleep is swappable for tests; returns false when ctx expired.
	sleep func(ctx context.Context, d time.Duration) bool

	rngMu sync.Mutex
	rng   *rand.Rand

	hostMuMu sync.Mutex
	hostMu   map[string]*sync.Mutex

	log logger.Logger
}

// New creates a Client. A CacheStore is required for conditional fetching;
// without one every fetch is unconditional.
func New(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
		gate:          NewGate(),
		userAgent:     "fxbg-event-bot/1.0",
		politenessMin: 2 * time.Second,
		politenessMax: 5 * time.Second,
		maxAttempts:   3,
		backoffInit:   time.Second,
		backoffCap:    30 * time.Second,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		hostMu:        make(map[string]*sync.Mutex),
		log:           logger.Named("fetch"),
	}
	c.sleep = func(ctx context.Context, d time.Duration) bool {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return true
		case <-ctx.Done():
			return false
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch performs one cached, polite, retrying GET. It never returns an
// error: every failure mode is a status class with an empty body.
func (c *Client) Fetch(ctx context.Context, rawURL string, headers map[string]string) Result {
	if strings.HasPrefix(rawURL, "data:") {
		res := decodeDataURL(rawURL)
		metrics.RecordFetch(res.Class.String())
		return res
	}

	ua := c.userAgent
	if headers != nil && headers["User-Agent"] != "" {
		ua = headers["User-Agent"]
	}

	if !c.gate.Allowed(ctx, rawURL, ua) {
		c.log.Debug(ctx, "robots policy denied fetch", logger.String("url", rawURL))
		metrics.RecordRobotsDenied()
		metrics.RecordFetch(ClassDenied.String())
		return Result{Class: ClassDenied}
	}

	// Same-host requests are serialized, politeness delay included, so a
	// multi-page crawl cannot hammer one server from several goroutines.
	unlock := c.lockHost(rawURL)
	defer unlock()

	res := c.fetchWithRetry(ctx, rawURL, ua, headers)
	metrics.RecordFetch(res.Class.String())
	return res
}

func (c *Client) fetchWithRetry(ctx context.Context, rawURL, ua string, headers map[string]string) Result {
	key := cachestore.Key(rawURL, headerValue(headers, "Authorization"), ua)

	var cached cachestore.Entry
	var haveCached bool
	if c.store != nil {
		var err error
		cached, haveCached, err = c.store.Get(ctx, key)
		if err != nil {
			c.log.Warn(ctx, "cache read failed", logger.String("url", rawURL), logger.Error(err))
		}
	}

	backoff := c.backoffInit
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			metrics.RecordFetchRetry()
			if !c.sleep(ctx, backoff) {
				return Result{Class: ClassServerError}
			}
			backoff *= 2
			if backoff > c.backoffCap {
				backoff = c.backoffCap
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return Result{Class: ClassClientError}
		}
		req.Header.Set("User-Agent", ua)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		if haveCached {
			if cached.ETag != "" {
				req.Header.Set("If-None-Match", cached.ETag)
			}
			if cached.LastModified != "" {
				req.Header.Set("If-Modified-Since", cached.LastModified)
			}
		}

		resp, err := c.http.Do(req)
		if err != nil {
			c.log.Warn(ctx, "fetch transport error",
				logger.String("url", rawURL), logger.Error(err),
				logger.Duration("backoff", backoff))
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotModified:
			resp.Body.Close()
			metrics.RecordCacheHit()
			// Cached body, no politeness delay.
			return Result{
				Class:        ClassNotModified,
				StatusCode:   resp.StatusCode,
				Body:         cached.Body,
				ETag:         cached.ETag,
				LastModified: cached.LastModified,
			}

		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				c.log.Warn(ctx, "fetch body read error", logger.String("url", rawURL), logger.Error(readErr))
				continue
			}
			etag := resp.Header.Get("ETag")
			lastMod := resp.Header.Get("Last-Modified")
			if c.store != nil {
				err := c.store.Put(ctx, key, cachestore.Entry{
					URL:          rawURL,
					ETag:         etag,
					LastModified: lastMod,
					FetchedAt:    time.Now(),
					Body:         string(body),
				})
				if err != nil {
					c.log.Warn(ctx, "cache write failed", logger.String("url", rawURL), logger.Error(err))
				}
			}
			c.politenessDelay(ctx)
			return Result{
				Class:        ClassFresh,
				StatusCode:   resp.StatusCode,
				Body:         string(body),
				ETag:         etag,
				LastModified: lastMod,
			}

		case isRetryable(resp.StatusCode):
			resp.Body.Close()
			c.log.Warn(ctx, "fetch retryable status",
				logger.String("url", rawURL), logger.Int("status", resp.StatusCode),
				logger.Duration("backoff", backoff))
			continue

		default:
			resp.Body.Close()
			return Result{Class: ClassClientError, StatusCode: resp.StatusCode}
		}
	}

	c.log.Error(ctx, "fetch failed after all attempts",
		logger.String("url", rawURL), logger.Int("attempts", c.maxAttempts))
	return Result{Class: ClassServerError}
}

func isRetryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// politenessDelay sleeps a random duration inside the configured window.
func (c *Client) politenessDelay(ctx context.Context) {
	if c.politenessMax <= 0 {
		return
	}
	span := c.politenessMax - c.politenessMin
	d := c.politenessMin
	if span > 0 {
		c.rngMu.Lock()
		d += time.Duration(c.rng.Int63n(int64(span)))
		c.rngMu.Unlock()
	}
	metrics.RecordPolitenessSleep(d.Seconds())
	c.sleep(ctx, d)
}

func (c *Client) lockHost(rawURL string) func() {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = strings.ToLower(u.Host)
	}
	c.hostMuMu.Lock()
	mu, ok := c.hostMu[host]
	if !ok {
		mu = &sync.Mutex{}
		c.hostMu[host] = mu
	}
	c.hostMuMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

func headerValue(headers map[string]string, key string) string {
	if headers == nil {
		return ""
	}
	return headers[key]
}

// decodeDataURL resolves an RFC 2397 data: URL without touching the
// network. Decode failures yield ClassMalformed, never a panic.
func decodeDataURL(rawURL string) Result {
	meta, dataPart, ok := strings.Cut(rawURL, ",")
	if !ok {
		return Result{Class: ClassMalformed}
	}
	unescaped, err := url.PathUnescape(dataPart)
	if err != nil {
		return Result{Class: ClassMalformed}
	}
	if strings.Contains(strings.ToLower(meta), ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(unescaped)
		if err != nil {
			return Result{Class: ClassMalformed}
		}
		return Result{Class: ClassFresh, StatusCode: http.StatusOK, Body: string(decoded)}
	}
	return Result{Class: ClassFresh, StatusCode: http.StatusOK, Body: unescaped}
}
