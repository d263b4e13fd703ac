package politeness

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsCache answers "may we fetch this URL?" from each domain's robots.txt.
// Entries are memoized per domain for the lifetime of the process; policies
// are assumed stable for a run's duration, so there is no TTL. A domain whose
// robots.txt cannot be fetched or parsed is cached as fail-open: a scraper
// must not halt because a policy file is unreachable, but it must honor
// policies it can read.
type RobotsCache struct {
	mu      sync.Mutex
	entries map[string]*robotstxt.RobotsData // nil value = fail-open
	client  *http.Client
	logger  *slog.Logger
}

// NewRobotsCache creates an empty cache using client for robots.txt fetches.
func NewRobotsCache(client *http.Client, logger *slog.Logger) *RobotsCache {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RobotsCache{
		entries: make(map[string]*robotstxt.RobotsData),
		client:  client,
		logger:  logger,
	}
}

// Allowed reports whether robots.txt permits fetching rawURL for the wildcard
// agent. Browser-like UAs are used for requests, but paths blocked for all
// agents are still respected. Returns true on any policy-lookup failure.
func (c *RobotsCache) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	data := c.lookup(u)
	if data == nil {
		return true
	}
	return data.TestAgent(u.Path, "*")
}

func (c *RobotsCache) lookup(u *url.URL) *robotstxt.RobotsData {
	c.mu.Lock()
	data, ok := c.entries[u.Host]
	c.mu.Unlock()
	if ok {
		return data
	}

	data = c.fetch(u)
	c.mu.Lock()
	c.entries[u.Host] = data
	c.mu.Unlock()
	return data
}

// fetch retrieves and parses robots.txt for the URL's host. Returns nil (the
// fail-open marker) when the file is unreachable or unparseable.
func (c *RobotsCache) fetch(u *url.URL) *robotstxt.RobotsData {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)

	resp, err := c.client.Get(robotsURL)
	if err != nil {
		c.logger.Warn("could not fetch robots.txt", "url", robotsURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		c.logger.Warn("could not read robots.txt", "url", robotsURL, "error", err)
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		c.logger.Warn("could not parse robots.txt", "url", robotsURL, "error", err)
		return nil
	}
	return data
}
