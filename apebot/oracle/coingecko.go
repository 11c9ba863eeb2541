// Package oracle resolves fiat conversion rates for sale announcements.
// Oracle failures are reported to callers but must never take down the
// component asking for a price.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// Client fetches spot prices from a CoinGecko-compatible endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// Option configures a Client.
type Option func(*Client)

// NewClient creates a price oracle client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   2,
		retryBackoff: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRetries sets the retry budget.
func WithRetries(max int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Price returns the spot price of base in quote units, e.g.
// Price(ctx, "ethereum", "usd").
func (c *Client) Price(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	query := url.Values{
		"ids":           {base},
		"vs_currencies": {quote},
	}
	fullURL := c.baseURL + "/simple/price?" + query.Encode()

	var lastErr error
	backoff := c.retryBackoff
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			jitter := backoff/2 + time.Duration(rand.Int63n(int64(backoff)))
			select {
			case <-ctx.Done():
				return decimal.Zero, ctx.Err()
			case <-time.After(jitter):
			}
			backoff *= 2
		}

		price, err := c.fetch(ctx, fullURL, base, quote)
		if err == nil {
			return price, nil
		}
		lastErr = err
	}

	return decimal.Zero, fmt.Errorf("oracle price %s/%s: %w", base, quote, lastErr)
}

// ETHUSD is the conversion every ETH/WETH sale needs.
func (c *Client) ETHUSD(ctx context.Context) (decimal.Decimal, error) {
	return c.Price(ctx, "ethereum", "usd")
}

func (c *Client) fetch(ctx context.Context, fullURL, base, quote string) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return decimal.Zero, fmt.Errorf("oracle status %d", resp.StatusCode)
	}

	// {"ethereum":{"usd":1234.56}}
	var payload map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Zero, fmt.Errorf("unmarshal response: %w", err)
	}

	price, ok := payload[base][quote]
	if !ok {
		return decimal.Zero, fmt.Errorf("no %s/%s price in response", base, quote)
	}
	return price, nil
}
