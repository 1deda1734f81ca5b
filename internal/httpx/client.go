// Package httpx is the HTTP client used for all upstream traffic. It wraps
// net/http with request throttling, retry with capped exponential backoff,
// and the byte-range helpers the ZIP reader is built on.
package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/kosarica/price-archive/internal/metrics"
)

// Config holds client tuning. The defaults keep upstream load predictable.
type Config struct {
	Timeout           time.Duration
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        30 * time.Second,
		RequestsPerSecond: 10,
		Burst:             10,
		UserAgent:         "kosarica-price-archive/1.0",
	}
}

// Client is a throttled, retrying HTTP client.
type Client struct {
	hc      *http.Client
	limiter *rate.Limiter
	cfg     Config
}

// NewClient creates a client with the given configuration.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultConfig().RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultConfig().Burst
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig().UserAgent
	}
	return &Client{
		hc:      &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		cfg:     cfg,
	}
}

// NewClientDefault creates a client with default configuration.
func NewClientDefault() *Client {
	return NewClient(DefaultConfig())
}

// do performs one request with throttling and retry. On return the response
// has a 2xx status; the caller owns the body.
func (c *Client) do(ctx context.Context, method, url string, header http.Header) (*http.Response, error) {
	var lastStatus int
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		req.Header.Set("Accept", "*/*")
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Set(k, v)
			}
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt < c.cfg.MaxRetries {
				if err := sleep(ctx, backoff(attempt, c.cfg.InitialBackoff, c.cfg.MaxBackoff)); err != nil {
					return nil, err
				}
				continue
			}
			break
		}

		lastStatus = resp.StatusCode
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		if !isRetryableStatus(resp.StatusCode) || attempt == c.cfg.MaxRetries {
			resp.Body.Close()
			return nil, &FetchRetryError{URL: url, Attempts: attempt + 1, LastStatus: resp.StatusCode}
		}

		var delay time.Duration
		if resp.StatusCode == http.StatusTooManyRequests {
			delay = retryAfterBackoff(attempt, c.cfg.InitialBackoff, c.cfg.MaxBackoff, resp.Header.Get("Retry-After"))
		} else {
			delay = backoff(attempt, c.cfg.InitialBackoff, c.cfg.MaxBackoff)
		}
		resp.Body.Close()
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, &FetchRetryError{URL: url, Attempts: c.cfg.MaxRetries + 1, LastStatus: lastStatus, LastError: lastErr}
}

// Head probes a URL and returns its Content-Length.
func (c *Client) Head(ctx context.Context, url string) (int64, error) {
	metrics.UpstreamRequests.WithLabelValues("head").Inc()
	resp, err := c.do(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	size, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("probe %s: missing or invalid Content-Length", url)
	}
	return size, nil
}

// GetRange fetches the inclusive byte interval [start, end] of url. Servers
// answering 200 instead of 206 are tolerated: the first end-start+1 bytes of
// the body are treated as the range.
func (c *Client) GetRange(ctx context.Context, url string, start, end int64) ([]byte, error) {
	if end < start {
		return nil, fmt.Errorf("range request %s: invalid interval %d-%d", url, start, end)
	}
	metrics.UpstreamRequests.WithLabelValues("range").Inc()

	header := http.Header{}
	header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))

	resp, err := c.do(ctx, http.MethodGet, url, header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	want := end - start + 1
	switch resp.StatusCode {
	case http.StatusPartialContent:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		metrics.UpstreamBytes.Add(float64(len(body)))
		return body, nil
	case http.StatusOK:
		// Server ignored the Range header; take the prefix.
		body, err := io.ReadAll(io.LimitReader(resp.Body, want))
		if err != nil {
			return nil, err
		}
		metrics.UpstreamBytes.Add(float64(len(body)))
		return body, nil
	default:
		return nil, &RangeError{URL: url, Status: resp.StatusCode}
	}
}

// GetJSON fetches url and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	metrics.UpstreamRequests.WithLabelValues("list").Inc()
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
