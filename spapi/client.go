// Package spapi implements a resilient Selling Partner API client for
// catalog and pricing lookups. Every outbound request first acquires a
// token from the quota limiter for its category; transient upstream
// faults are retried with exponential backoff and jitter, permanent
// ones surface immediately.
package spapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ecomlab/go-buybox/config"
	"github.com/ecomlab/go-buybox/ratelimit"
)

// Client fetches catalog and pricing data for one identifier at a time,
// masking transient upstream instability from callers.
type Client struct {
	cfg         *config.Config
	httpClient  *http.Client
	limiter     *ratelimit.Limiter
	credentials CredentialProvider
	nameCache   *lru.Cache[string, string]
	Metrics     *Metrics
}

// NewClient builds a client around the given credential provider and
// quota limiter. The limiter must be configured with the catalog and
// pricing categories.
func NewClient(cfg *config.Config, credentials CredentialProvider, limiter *ratelimit.Limiter) (*Client, error) {
	if credentials == nil {
		return nil, fmt.Errorf("spapi: credential provider is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("spapi: rate limiter is required")
	}

	nameCache, err := lru.New[string, string](cfg.NameCacheSize)
	if err != nil {
		return nil, fmt.Errorf("spapi: name cache: %w", err)
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   cfg.Timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		limiter:     limiter,
		credentials: credentials,
		nameCache:   nameCache,
		Metrics:     NewMetrics(),
	}, nil
}

// WithTransport swaps the underlying HTTP transport, mainly for tests.
func (c *Client) WithTransport(rt http.RoundTripper) {
	c.httpClient.Transport = rt
}

// Verify checks the credential precondition before a run starts.
func (c *Client) Verify(ctx context.Context) error {
	token, err := c.credentials.AccessToken(ctx)
	if err != nil {
		return ErrUnauthorized{Err: err}
	}
	if token == "" {
		return ErrUnauthorized{Err: fmt.Errorf("empty access token")}
	}
	return nil
}

// FetchOffers returns the competing-offer payload for an identifier,
// using the pricing quota category.
func (c *Client) FetchOffers(ctx context.Context, asin string) (*OffersPayload, error) {
	path := fmt.Sprintf("/products/pricing/v0/items/%s/offers", url.PathEscape(asin))
	query := url.Values{
		"MarketplaceId": {c.cfg.Marketplace.ID},
		"ItemCondition": {"New"},
	}

	body, err := c.doJSON(ctx, ratelimit.CategoryPricing, path, query)
	if err != nil {
		return nil, err
	}

	var decoded offersResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode offers response: %w", err)
	}
	return &decoded.Payload, nil
}

// FetchProductName returns the catalog title for an identifier, using
// the catalog quota category. Unknown identifiers yield an empty name
// rather than a failure; repeated identifiers hit an LRU cache and
// spend no catalog token.
func (c *Client) FetchProductName(ctx context.Context, asin string) (string, error) {
	if name, ok := c.nameCache.Get(asin); ok {
		return name, nil
	}

	path := fmt.Sprintf("/catalog/2022-04-01/items/%s", url.PathEscape(asin))
	query := url.Values{
		"marketplaceIds": {c.cfg.Marketplace.ID},
		"includedData":   {"summaries"},
	}

	body, err := c.doJSON(ctx, ratelimit.CategoryCatalog, path, query)
	if err != nil {
		var notFound ErrNotFound
		if errors.As(err, &notFound) {
			slog.Warn("product not found in catalog", slog.String("asin", asin))
			return "", nil
		}
		return "", err
	}

	var decoded catalogItemResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode catalog response: %w", err)
	}

	name := ""
	for _, summary := range decoded.Summaries {
		if summary.MarketplaceID == c.cfg.Marketplace.ID {
			name = summary.ItemName
			break
		}
	}
	if name == "" && len(decoded.Summaries) > 0 {
		name = decoded.Summaries[0].ItemName
	}

	c.nameCache.Add(asin, name)
	return name, nil
}

// doJSON runs the acquire-request-classify-retry loop for one lookup.
// A token spent on a failed attempt is not refunded; every retry
// acquires a fresh one.
func (c *Client) doJSON(ctx context.Context, category ratelimit.Category, path string, query url.Values) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			c.Metrics.IncRetries()
			if err := c.sleepBackoff(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		if err := c.limiter.Acquire(ctx, category); err != nil {
			return nil, err
		}

		body, err := c.request(ctx, category, path, query)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		c.Metrics.IncError(errorTypeLabel(err))
		if !isTransient(err) {
			return nil, err
		}

		lastErr = err
		slog.Warn("transient API failure",
			slog.String("category", string(category)),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
	}

	err := ErrExhausted{Attempts: c.cfg.MaxAttempts, Err: lastErr}
	c.Metrics.IncError(errorTypeLabel(err))
	return nil, err
}

func (c *Client) request(ctx context.Context, category ratelimit.Category, path string, query url.Values) ([]byte, error) {
	token, err := c.credentials.AccessToken(ctx)
	if err != nil {
		return nil, ErrUnauthorized{Err: err}
	}

	endpoint := c.cfg.Marketplace.Endpoint + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-amz-access-token", token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.Metrics.ObserveDuration(string(category), time.Since(start))
	if err != nil {
		c.Metrics.IncRequest(string(category), "error")
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.Metrics.IncRequest(string(category), "error")
		return nil, ErrConnection{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		c.Metrics.IncRequest(string(category), "error")
		return nil, classifyStatus(resp.StatusCode, body)
	}

	c.Metrics.IncRequest(string(category), "ok")
	return body, nil
}

func (c *Client) sleepBackoff(ctx context.Context, retry int) error {
	base := c.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(retry-1))
	if max := c.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	// Up to 25% jitter so parallel workers do not retry in lockstep.
	delay += time.Duration(rand.Int63n(int64(delay)/4 + 1))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	return ErrConnection{Err: err}
}

func classifyStatus(status int, body []byte) error {
	base := fmt.Errorf("http status %d", status)
	var decoded apiErrorResponse
	if err := json.Unmarshal(body, &decoded); err == nil && len(decoded.Errors) > 0 {
		base = fmt.Errorf("http status %d: %s (%s)", status, decoded.Errors[0].Message, decoded.Errors[0].Code)
	}

	switch {
	case status == http.StatusBadRequest:
		return ErrInvalidInput{Err: base}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized{Err: base}
	case status == http.StatusNotFound:
		return ErrNotFound{Err: base}
	case status == http.StatusTooManyRequests:
		return ErrRateLimited{Err: base}
	case status >= 500:
		return ErrServer{Err: base}
	default:
		return base
	}
}
