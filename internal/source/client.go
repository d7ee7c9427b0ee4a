package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

// Client performs paced, identity-rotating page fetches for the site
// adapters. One client is shared by all adapters so pacing applies
// per site no matter how many workers fetch concurrently.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger

	userAgents []string
	nextAgent  atomic.Uint64

	delay time.Duration
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new fetch client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:     slog.Default(),
		userAgents: []string{"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"},
		delay:      2 * time.Second,
		burst:      1,
		limiters:   make(map[string]*rate.Limiter),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the per-fetch deadline.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithUserAgents sets the identity pool rotated across requests.
func WithUserAgents(agents []string) ClientOption {
	return func(c *Client) {
		if len(agents) > 0 {
			c.userAgents = agents
		}
	}
}

// WithDelay sets the per-site request pacing.
func WithDelay(delay time.Duration, burst int) ClientOption {
	return func(c *Client) {
		c.delay = delay
		if burst > 0 {
			c.burst = burst
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// limiter returns the pacing limiter for a site, creating it on first use.
func (c *Client) limiter(site string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	lim, ok := c.limiters[site]
	if !ok {
		if c.delay <= 0 {
			lim = rate.NewLimiter(rate.Inf, 1)
		} else {
			lim = rate.NewLimiter(rate.Every(c.delay), c.burst)
		}
		c.limiters[site] = lim
	}
	return lim
}

// nextUserAgent returns the next identity in round-robin order.
func (c *Client) nextUserAgent() string {
	n := c.nextAgent.Add(1)
	return c.userAgents[int(n-1)%len(c.userAgents)]
}

// FetchDocument GETs a listing page and parses it. The returned duration
// is the HTTP round trip including the body read, not the limiter wait.
// Errors are *FetchError.
func (c *Client) FetchDocument(ctx context.Context, site, rawURL string) (*goquery.Document, time.Duration, error) {
	if err := c.limiter(site).Wait(ctx); err != nil {
		return nil, 0, &FetchError{Kind: KindNetworkUnavailable, Site: site, URL: rawURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, &FetchError{Kind: KindNetworkUnavailable, Site: site, URL: rawURL, Err: err}
	}

	req.Header.Set("User-Agent", c.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, time.Since(start), &FetchError{Kind: KindNetworkUnavailable, Site: site, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		return nil, elapsed, &FetchError{Kind: KindNetworkUnavailable, Site: site, URL: rawURL, Err: err}
	}

	if resp.StatusCode >= 400 {
		c.logger.Debug("fetch rejected",
			"site", site,
			"status", resp.StatusCode,
			"url", rawURL,
		)
		return nil, elapsed, &FetchError{
			Kind: statusKind(resp.StatusCode),
			Site: site,
			URL:  rawURL,
			Err:  fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, elapsed, &FetchError{Kind: KindSiteStructureChanged, Site: site, URL: rawURL, Err: err}
	}

	return doc, elapsed, nil
}
