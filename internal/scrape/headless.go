package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

const headlessTimeout = 45 * time.Second

// HeadlessFetcher renders pages in headless Chrome for the cases where the
// site rejects plain HTTP clients. Each fetch launches a fresh browser; a
// run touches at most a handful of pages, so pooling would buy nothing.
type HeadlessFetcher struct {
	source    string
	userAgent string
	timeout   time.Duration
	logger    *slog.Logger
}

// NewHeadlessFetcher creates a headless fetcher. An empty userAgent selects
// the default.
func NewHeadlessFetcher(source, userAgent string) *HeadlessFetcher {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &HeadlessFetcher{
		source:    source,
		userAgent: userAgent,
		timeout:   headlessTimeout,
		logger:    slog.Default().With("component", source+"_headless"),
	}
}

// ValidateChromeAvailable checks if Chrome/Chromium is available and working
func ValidateChromeAvailable() error {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(),
		chromedp.Headless,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	defer allocCancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	testCtx, testCancel := context.WithTimeout(ctx, 10*time.Second)
	defer testCancel()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		return fmt.Errorf("Chrome/Chromium not available or not working: %w", err)
	}
	return nil
}

// FetchPage loads the page in a browser and returns its HTML once a table
// element becomes visible.
func (h *HeadlessFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	h.logger.Info("fetching page with headless browser", "url", url)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, h.allocatorOptions()...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	runCtx, runCancel := context.WithTimeout(browserCtx, h.timeout)
	defer runCancel()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible("table", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &ScrapeError{
			Source:    h.source,
			Code:      CodeHeadlessError,
			Message:   fmt.Sprintf("headless fetch failed: %v", err),
			Retryable: true,
		}
	}
	return html, nil
}

func (h *HeadlessFetcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	return []chromedp.ExecAllocatorOption{
		chromedp.UserAgent(h.userAgent),
		chromedp.WindowSize(1920, 1080),
		chromedp.Headless,
		chromedp.NoSandbox, // Often needed in containerized environments
		chromedp.DisableGPU,
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		// Images are dead weight when all we want is the table markup.
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	}
}
