// Package fetch provides the single HTTP-GET-with-retry primitive shared by
// every source adapter. It is the only retry boundary in the system: callers
// treat any error it returns as final for that request.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/jobsift/jobsift/internal/model"
)

// Identify the bot honestly, plus rotate realistic browser UAs for resilience.
var userAgents = []string{
	"Mozilla/5.0 (compatible; JobsiftBot/1.0; +https://jobsift.example.com/bot)",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

const maxBodySize = 4 << 20

// Pacer suspends the caller between requests. Satisfied by politeness.Pacer.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Client issues GET requests with pacing, rotating user agents, and bounded
// exponential backoff on transient failures.
type Client struct {
	http        *http.Client
	pacer       Pacer
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// NewClient creates a fetch client. maxAttempts bounds hard (transport)
// failures; baseDelay is the unit for the exponential backoff (production
// uses one second, matching a 2^attempt-seconds schedule).
func NewClient(httpClient *http.Client, pacer Pacer, maxAttempts int, baseDelay time.Duration, logger *slog.Logger) *Client {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Client{
		http:        httpClient,
		pacer:       pacer,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      logger,
	}
}

// Get fetches url and returns the response body. Throttling responses
// (429/503) and transport errors are retried with exponential backoff plus
// jitter; throttle retries do not consume a hard-failure attempt but have
// their own equal budget so a permanently throttled host cannot loop forever.
// Any other non-2xx status is returned immediately as a *model.HTTPError.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	attempt := 0 // total retries so far, drives the backoff exponent
	hard := 0
	throttled := 0

	for {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.once(ctx, url)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		var httpErr *model.HTTPError
		if errors.As(err, &httpErr) {
			if !httpErr.Throttled() {
				// Not-found and friends: raise immediately, no retry.
				return nil, err
			}
			throttled++
			lastErr = err
			if throttled > c.maxAttempts {
				return nil, lastErr
			}
			c.logger.Warn("fetch throttled, backing off",
				"status", httpErr.StatusCode,
				"url", truncate(url, 100),
				"attempt", attempt,
			)
		} else {
			hard++
			lastErr = err
			if hard >= c.maxAttempts {
				return nil, lastErr
			}
			c.logger.Warn("fetch failed, retrying",
				"url", truncate(url, 100),
				"attempt", attempt,
				"error", err,
			)
		}

		delay := c.backoff(attempt, httpErr)
		attempt++

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("fetch retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
}

func (c *Client) once(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", truncate(url, 100), err)
	}
	req.Header.Set("User-Agent", userAgents[rand.IntN(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", truncate(url, 100), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			URL:        url,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body from %s: %w", truncate(url, 100), err)
	}
	return body, nil
}

// backoff computes baseDelay * 2^attempt plus up to one baseDelay of jitter.
// A Retry-After duration from the server takes precedence.
func (c *Client) backoff(attempt int, httpErr *model.HTTPError) time.Duration {
	if httpErr != nil && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}
	delay := c.baseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	if c.baseDelay > 0 {
		delay += time.Duration(rand.Int64N(int64(c.baseDelay)))
	}
	return delay
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
