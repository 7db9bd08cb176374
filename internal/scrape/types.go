package scrape

import "context"

// Row is one raw table row as found in the page, before normalization.
type Row struct {
	DateText   string
	VolumeText string
}

// Error codes used by ScrapeError.
const (
	CodeHTTPError     = "HTTP_ERROR"
	CodeBlocked       = "BLOCKED"
	CodeRateLimit     = "RATE_LIMIT"
	CodeNoTable       = "NO_TABLE"
	CodeEmptyTable    = "EMPTY_TABLE"
	CodeHeadlessError = "HEADLESS_ERROR"
)

// ScrapeError represents a failure while fetching or parsing a year page.
type ScrapeError struct {
	Source    string `json:"source"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	RateLimit bool   `json:"rate_limit"`
}

func (e *ScrapeError) Error() string {
	return e.Source + ": " + e.Message
}

// IsBlocked reports whether err is a ScrapeError for an anti-bot rejection.
func IsBlocked(err error) bool {
	se, ok := err.(*ScrapeError)
	return ok && se.Code == CodeBlocked
}

// PageFetcher retrieves the HTML for one year's checkpoint-volume page.
type PageFetcher interface {
	FetchYearHTML(ctx context.Context, year int) (string, error)
}

// pageSource fetches a single URL's HTML. Both the plain client and the
// headless fetcher satisfy it.
type pageSource interface {
	FetchPage(ctx context.Context, url string) (string, error)
}
