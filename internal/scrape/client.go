package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// defaultUserAgent matches a desktop Chrome build; the TSA site serves an
	// access-denied page to clients that identify as bots.
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	fetchTimeout   = 30 * time.Second
	retryCount     = 2 // total attempts = retryCount + 1
	baseRetryDelay = 1 * time.Second
	backoffFactor  = 2.0
	maxRetryDelay  = 30 * time.Second
)

// Client fetches pages with browser-like headers and retries transient
// failures with exponential backoff.
type Client struct {
	httpClient *http.Client
	source     string
	userAgent  string
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewClient creates a scraping client. The source name is used in error
// reporting and logging; an empty userAgent selects the default.
func NewClient(source, userAgent string) *Client {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: fetchTimeout,
		},
		source:     source,
		userAgent:  userAgent,
		retryDelay: baseRetryDelay,
		logger:     slog.Default().With("component", source+"_scraping"),
	}
}

// FetchPage retrieves a web page, retrying rate limits, server errors, and
// network failures. Anti-bot rejections (403) are returned immediately so
// the caller can fall back to a headless browser.
func (c *Client) FetchPage(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= retryCount; attempt++ {
		if attempt > 0 {
			delay := c.backoffDelay(attempt)
			c.logger.Warn("retrying fetch",
				"url", url,
				"attempt", attempt+1,
				"delay", delay,
				"error", lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		html, err := c.fetchOnce(ctx, url)
		if err == nil {
			return html, nil
		}
		lastErr = err
		if !isRetryable(err) {
			break
		}
	}
	return "", lastErr
}

func (c *Client) fetchOnce(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers to mimic a real browser
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	// NOTE: Don't set Accept-Encoding manually - let Go handle gzip automatically
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &ScrapeError{
			Source:    c.source,
			Code:      CodeHTTPError,
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: true,
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return "", &ScrapeError{
			Source:  c.source,
			Code:    CodeBlocked,
			Message: "request blocked by anti-bot protection (HTTP 403)",
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &ScrapeError{
			Source:    c.source,
			Code:      CodeRateLimit,
			Message:   "rate limited by website",
			Retryable: true,
			RateLimit: true,
		}
	case resp.StatusCode >= 500:
		return "", &ScrapeError{
			Source:    c.source,
			Code:      CodeHTTPError,
			Message:   fmt.Sprintf("server error: %d %s", resp.StatusCode, resp.Status),
			Retryable: true,
		}
	case resp.StatusCode != http.StatusOK:
		return "", &ScrapeError{
			Source:  c.source,
			Code:    CodeHTTPError,
			Message: fmt.Sprintf("HTTP error: %d %s", resp.StatusCode, resp.Status),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ScrapeError{
			Source:    c.source,
			Code:      CodeHTTPError,
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true,
		}
	}
	return string(body), nil
}

func isRetryable(err error) bool {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.retryDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * backoffFactor)
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}
