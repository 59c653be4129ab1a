// Package polymarket is the read-only client for the two Polymarket
// REST APIs the scanner needs: Gamma for market discovery and the CLOB
// for midpoints, quotes and order books.
package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"polyarb/internal/domain"
)

// Config configures the API client.
type Config struct {
	GammaURL     string        // Gamma API root, e.g. "https://gamma-api.polymarket.com"
	ClobURL      string        // CLOB API root, e.g. "https://clob.polymarket.com"
	Timeout      time.Duration // per-request timeout
	MaxRetries   int           // attempts per request, including the first
	RetryBackoff time.Duration // base backoff, doubled per retry
	PageSize     int           // markets per Gamma page
}

// Client talks to both Polymarket APIs. It performs no authentication
// and never mutates anything upstream.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

var _ domain.PriceSource = (*Client)(nil)

// NewClient creates a client with the given endpoints and retry policy.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With(slog.String("component", "polymarket")),
	}
}

// getJSON sends a GET with retries and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, rawURL string, params url.Values, out any) error {
	return c.sendJSON(ctx, http.MethodGet, rawURL, params, nil, out)
}

// postJSON sends a POST with a JSON body, with retries, and decodes the
// response into out.
func (c *Client) postJSON(ctx context.Context, rawURL string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("polymarket: marshal request body: %w", err)
	}
	return c.sendJSON(ctx, http.MethodPost, rawURL, nil, payload, out)
}

// sendJSON runs the request with exponential backoff. Transport errors
// and 5xx responses retry; anything below 500 fails immediately since
// repeating the same bad request cannot help.
func (c *Client) sendJSON(ctx context.Context, method, rawURL string, params url.Values, payload []byte, out any) error {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := c.cfg.RetryBackoff * time.Duration(1<<(attempt-1))
			c.logger.Warn("request failed, retrying",
				slog.String("url", rawURL),
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		body, err := c.send(ctx, method, rawURL, params, payload)
		if err == nil {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("polymarket: decode %s: %w", rawURL, err)
			}
			return nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrUpstream) {
			return err
		}
	}
	return fmt.Errorf("polymarket: %s failed after %d attempts: %w", rawURL, c.cfg.MaxRetries, lastErr)
}

func (c *Client) send(ctx context.Context, method, rawURL string, params url.Values, payload []byte) ([]byte, error) {
	if len(params) > 0 {
		rawURL += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("polymarket: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polymarket: http request: %w: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("polymarket: read response: %w: %w", domain.ErrUpstream, err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors. Only 5xx
// carries ErrUpstream, the retryable class.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch {
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	case statusCode >= 500:
		return fmt.Errorf("HTTP %d: %w: %s", statusCode, domain.ErrUpstream, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
