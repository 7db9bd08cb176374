package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testScraper(baseURL string) *Scraper {
	s := NewScraper(Config{BaseURL: baseURL, FetchDelay: time.Millisecond})
	s.client.retryDelay = time.Millisecond
	s.now = func() time.Time {
		return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	}
	return s
}

func TestYearRange(t *testing.T) {
	tests := []struct {
		name        string
		currentYear int
		yearsBack   int
		want        []int
	}{
		{
			name:        "three years back",
			currentYear: 2025,
			yearsBack:   3,
			want:        []int{2022, 2023, 2024, 2025},
		},
		{
			name:        "current year only",
			currentYear: 2025,
			yearsBack:   0,
			want:        []int{2025},
		},
		{
			name:        "negative treated as zero",
			currentYear: 2025,
			yearsBack:   -2,
			want:        []int{2025},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := YearRange(tt.currentYear, tt.yearsBack)
			if len(got) != len(tt.want) {
				t.Fatalf("YearRange() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("YearRange()[%d] = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestScraper_YearURL(t *testing.T) {
	s := testScraper("https://example.gov/travel/passenger-volumes")

	if got := s.YearURL(2025); got != "https://example.gov/travel/passenger-volumes" {
		t.Errorf("current year URL = %q, want bare endpoint", got)
	}
	if got := s.YearURL(2023); got != "https://example.gov/travel/passenger-volumes/2023" {
		t.Errorf("past year URL = %q, want /2023 suffix", got)
	}
}

func TestScraper_ScrapeYear(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2024" {
			t.Errorf("path = %q, want /2024", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>
			<table>
				<tr><th>Date</th><th>Numbers</th></tr>
				<tr><td>12/31/2024</td><td>2,500,000</td></tr>
				<tr><td>12/30/2024</td><td>2,400,000</td></tr>
			</table>
		</body></html>`)
	}))
	defer server.Close()

	s := testScraper(server.URL)
	obs, err := s.ScrapeYear(context.Background(), 2024)
	if err != nil {
		t.Fatalf("ScrapeYear() error = %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("ScrapeYear() returned %d observations, want 2", len(obs))
	}
	if obs[0].Volume != 2500000 {
		t.Errorf("first volume = %d, want 2500000", obs[0].Volume)
	}
	if obs[0].SourceYear != 2024 {
		t.Errorf("SourceYear = %d, want 2024", obs[0].SourceYear)
	}
}

func TestScraper_ScrapeYears_SkipsFailedYear(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/2023" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		year := "2024"
		if r.URL.Path == "/" {
			year = "2025"
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body>
			<table>
				<tr><th>Date</th><th>Numbers</th></tr>
				<tr><td>1/2/%[1]s</td><td>2,000,000</td></tr>
				<tr><td>1/1/%[1]s</td><td>1,900,000</td></tr>
			</table>
		</body></html>`, year)
	}))
	defer server.Close()

	s := testScraper(server.URL)
	batches, errs := s.ScrapeYears(context.Background(), []int{2023, 2024, 2025})

	if len(batches) != 2 {
		t.Fatalf("ScrapeYears() returned %d batches, want 2", len(batches))
	}
	if len(errs) != 1 {
		t.Fatalf("ScrapeYears() errors = %v, want exactly one", errs)
	}
	if _, ok := errs[2023]; !ok {
		t.Errorf("expected 2023 in error map, got %v", errs)
	}
}

func TestScraper_ScrapeYears_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>
			<table>
				<tr><th>Date</th><th>Numbers</th></tr>
				<tr><td>1/1/2024</td><td>1,900,000</td></tr>
			</table>
		</body></html>`)
	}))
	defer server.Close()

	s := testScraper(server.URL)
	s.delay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var gotBatches int

	go func() {
		defer close(done)
		batches, errs := s.ScrapeYears(ctx, []int{2024, 2023})
		gotBatches = len(batches)
		if _, ok := errs[2023]; !ok {
			t.Errorf("expected cancellation error for second year, got %v", errs)
		}
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ScrapeYears() did not return after cancellation")
	}

	if gotBatches != 1 {
		t.Errorf("got %d batches before cancellation, want 1", gotBatches)
	}
}

type stubPageSource struct {
	html  string
	err   error
	calls int
}

func (s *stubPageSource) FetchPage(ctx context.Context, url string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.html, nil
}

func TestScraper_FetchYearHTML_HeadlessFallbackOnBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	stub := &stubPageSource{html: "<html>rendered</html>"}
	s := testScraper(server.URL)
	s.headless = stub

	html, err := s.FetchYearHTML(context.Background(), 2024)
	if err != nil {
		t.Fatalf("FetchYearHTML() error = %v", err)
	}
	if html != "<html>rendered</html>" {
		t.Errorf("FetchYearHTML() = %q, want headless result", html)
	}
	if stub.calls != 1 {
		t.Errorf("headless fetcher called %d times, want 1", stub.calls)
	}
}

func TestScraper_FetchYearHTML_NoFallbackWithoutHeadless(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	s := testScraper(server.URL)
	_, err := s.FetchYearHTML(context.Background(), 2024)
	if !IsBlocked(err) {
		t.Errorf("FetchYearHTML() error = %v, want blocked error", err)
	}
}
