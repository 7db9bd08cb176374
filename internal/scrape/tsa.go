package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tsa-volume-tracker/internal/series"
)

const (
	// DefaultBaseURL serves the current year's table; earlier years live
	// under a /{year} suffix.
	DefaultBaseURL = "https://www.tsa.gov/travel/passenger-volumes"

	sourceName        = "tsa"
	defaultFetchDelay = 1 * time.Second
)

// Config controls Scraper construction.
type Config struct {
	BaseURL     string        // defaults to DefaultBaseURL
	UserAgent   string        // defaults to the standard desktop UA
	FetchDelay  time.Duration // pause between year fetches, defaults to 1s
	UseHeadless bool          // fall back to headless Chrome when blocked
}

// Scraper fetches and parses the TSA checkpoint-volume year pages.
type Scraper struct {
	client   *Client
	headless pageSource // nil when the fallback is disabled
	baseURL  string
	delay    time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewScraper creates a scraper from config, filling in defaults.
func NewScraper(cfg Config) *Scraper {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.FetchDelay <= 0 {
		cfg.FetchDelay = defaultFetchDelay
	}

	s := &Scraper{
		client:  NewClient(sourceName, cfg.UserAgent),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		delay:   cfg.FetchDelay,
		logger:  slog.Default().With("component", "tsa_scraper"),
		now:     time.Now,
	}
	if cfg.UseHeadless {
		s.headless = NewHeadlessFetcher(sourceName, cfg.UserAgent)
	}
	return s
}

// YearRange returns the years to scrape, oldest first: the current year and
// the yearsBack years before it.
func YearRange(currentYear, yearsBack int) []int {
	if yearsBack < 0 {
		yearsBack = 0
	}
	years := make([]int, 0, yearsBack+1)
	for y := currentYear - yearsBack; y <= currentYear; y++ {
		years = append(years, y)
	}
	return years
}

// YearURL returns the page URL for a year. The current year is published at
// the bare endpoint; archived years get a path suffix.
func (s *Scraper) YearURL(year int) string {
	if year == s.now().Year() {
		return s.baseURL
	}
	return fmt.Sprintf("%s/%d", s.baseURL, year)
}

// FetchYearHTML retrieves the raw HTML for one year, falling back to the
// headless browser when the plain client is blocked.
func (s *Scraper) FetchYearHTML(ctx context.Context, year int) (string, error) {
	url := s.YearURL(year)
	s.logger.Info("fetching year page", "year", year, "url", url)

	html, err := s.client.FetchPage(ctx, url)
	if err == nil {
		return html, nil
	}
	if s.headless != nil && IsBlocked(err) {
		s.logger.Warn("plain fetch blocked, falling back to headless browser", "year", year)
		return s.headless.FetchPage(ctx, url)
	}
	return "", err
}

// ParseYear extracts validated observations from one year page's HTML.
func (s *Scraper) ParseYear(html string, year int) ([]series.Observation, error) {
	rows, err := ParseTable(sourceName, html)
	if err != nil {
		return nil, fmt.Errorf("year %d: %w", year, err)
	}

	obs := Normalize(rows, year, s.logger)
	if len(obs) == 0 {
		return nil, &ScrapeError{
			Source:  sourceName,
			Code:    CodeEmptyTable,
			Message: fmt.Sprintf("no valid rows for year %d", year),
		}
	}
	s.logger.Info("scraped year", "year", year, "records", len(obs))
	return obs, nil
}

// ScrapeYear fetches and parses a single year.
func (s *Scraper) ScrapeYear(ctx context.Context, year int) ([]series.Observation, error) {
	html, err := s.FetchYearHTML(ctx, year)
	if err != nil {
		return nil, err
	}
	return s.ParseYear(html, year)
}

// ScrapeYears fetches the given years in order, pausing briefly between
// pages to be polite to the server. Years that fail are logged and skipped;
// the returned map reports their errors.
func (s *Scraper) ScrapeYears(ctx context.Context, years []int) ([][]series.Observation, map[int]error) {
	var batches [][]series.Observation
	errs := make(map[int]error)

	for i, year := range years {
		if i > 0 {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				errs[year] = ctx.Err()
				return batches, errs
			}
		}

		obs, err := s.ScrapeYear(ctx, year)
		if err != nil {
			s.logger.Error("failed to scrape year", "year", year, "error", err)
			errs[year] = err
			continue
		}
		batches = append(batches, obs)
	}
	return batches, errs
}
