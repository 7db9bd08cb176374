package workers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"tsa-volume-tracker/internal/cache"
	"tsa-volume-tracker/internal/config"
	"tsa-volume-tracker/internal/database"
	"tsa-volume-tracker/internal/email"
	"tsa-volume-tracker/internal/scrape"
	"tsa-volume-tracker/internal/series"

	_ "github.com/mattn/go-sqlite3"
)

// Test configuration with a temp artifact dir and email fully configured
func getTestConfig(t *testing.T) *config.Config {
	return &config.Config{
		ServerPort:     "8080",
		ServerHost:     "localhost",
		DBPath:         "unused",
		BaseURL:        "https://example.com/volumes",
		YearsBack:      1,
		FetchDelay:     time.Millisecond,
		DataDir:        t.TempDir(),
		Schedule:       "5 9 * * 1-5",
		Timezone:       "America/New_York",
		SMTPHost:       "smtp.example.com",
		SMTPPort:       587,
		SenderEmail:    "reports@example.com",
		AppPassword:    "secret",
		RecipientEmail: "team@example.com",
		CurrentYearTTL: time.Hour,
		PastYearTTL:    time.Hour,
		LogLevel:       "info",
	}
}

// setupTestDB creates a temp-file database with the full schema
func setupTestDB(t *testing.T) (*database.DB, func()) {
	tmpfile, err := os.CreateTemp("", "test_*.db")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	tmpfile.Close()

	db, err := database.Open(tmpfile.Name())
	if err != nil {
		os.Remove(tmpfile.Name())
		t.Fatalf("Failed to open test database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(tmpfile.Name())
	}
	return db, cleanup
}

// stubFetcher serves canned year pages in place of live HTTP
type stubFetcher struct {
	pages map[int]string
	errs  map[int]error
	calls []int
}

func (s *stubFetcher) FetchYearHTML(_ context.Context, year int) (string, error) {
	s.calls = append(s.calls, year)
	if err, ok := s.errs[year]; ok {
		return "", err
	}
	if page, ok := s.pages[year]; ok {
		return page, nil
	}
	return "", fmt.Errorf("no page for year %d", year)
}

// fakeSender records messages instead of dialing SMTP
type fakeSender struct {
	sent []*email.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg *email.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

// yearPageHTML builds a minimal year page whose table the parser accepts
func yearPageHTML(year, days int, base int64) string {
	var b strings.Builder
	b.WriteString(`<html><body><table><thead><tr><th>Date</th><th>Total Traveler Throughput</th></tr></thead><tbody>`)
	for d := 1; d <= days; d++ {
		fmt.Fprintf(&b, `<tr><td>1/%d/%d</td><td>%d</td></tr>`, d, year, base+int64(d)*1000)
	}
	b.WriteString(`</tbody></table></body></html>`)
	return b.String()
}

func newTestRunner(t *testing.T, cfg *config.Config, fetcher *stubFetcher, sender email.Sender) (*Runner, *database.DB, func()) {
	db, dbCleanup := setupTestDB(t)

	scraper := scrape.NewScraper(scrape.Config{BaseURL: cfg.BaseURL, FetchDelay: cfg.FetchDelay})
	cacheManager := cache.NewManager(db.PageCache, fetcher, false, cfg.CurrentYearTTL, cfg.PastYearTTL)

	runner := NewRunner(cfg, scraper, cacheManager, db, sender)
	// Fixed clock: mid-March 2025, so the run covers 2024 and 2025
	runner.now = func() time.Time {
		return time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	}

	cleanup := func() {
		cacheManager.Close()
		dbCleanup()
	}
	return runner, db, cleanup
}

func TestRunner_RunOnce_Success(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]string{
		2024: yearPageHTML(2024, 10, 2_000_000),
		2025: yearPageHTML(2025, 10, 2_200_000),
	}}
	sender := &fakeSender{}

	runner, db, cleanup := newTestRunner(t, getTestConfig(t), fetcher, sender)
	defer cleanup()

	result := runner.RunOnce(context.Background(), RunOptions{})

	if !result.Success {
		t.Fatalf("Expected success, got %d: %s", result.StatusCode, result.Message)
	}
	if result.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", result.StatusCode)
	}
	if result.RowsScraped != 20 {
		t.Errorf("Expected 20 rows scraped, got %d", result.RowsScraped)
	}
	if !result.Emailed {
		t.Error("Expected the report to be emailed")
	}
	if result.LatestDataDate == nil || !result.LatestDataDate.Equal(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected latest data date 2025-01-10, got %v", result.LatestDataDate)
	}

	// Chart artifact must exist on disk
	if result.ChartPath == "" {
		t.Fatal("Expected a chart path")
	}
	if _, err := os.Stat(result.ChartPath); err != nil {
		t.Errorf("Expected chart file at %s: %v", result.ChartPath, err)
	}

	// Message delivered with subject and the artifact trio attached
	if len(sender.sent) != 1 {
		t.Fatalf("Expected 1 message sent, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if !strings.Contains(msg.Subject, "Jan 10, 2025") {
		t.Errorf("Expected subject to carry the latest data date, got %q", msg.Subject)
	}
	if len(msg.Attachments) != 3 {
		t.Errorf("Expected 3 attachments, got %d", len(msg.Attachments))
	}

	// Volumes stored and the run recorded
	count, err := db.Volumes.Count()
	if err != nil {
		t.Fatalf("Failed to count volumes: %v", err)
	}
	if count != 20 {
		t.Errorf("Expected 20 stored volumes, got %d", count)
	}

	run, err := db.Reports.GetLatest()
	if err != nil {
		t.Fatalf("Failed to load latest run: %v", err)
	}
	if run == nil {
		t.Fatal("Expected a recorded run")
	}
	if run.TriggeredBy != database.TriggerManual {
		t.Errorf("Expected manual trigger by default, got %s", run.TriggeredBy)
	}
	if !run.Success || !run.Emailed {
		t.Errorf("Expected recorded run success+emailed, got %+v", run)
	}
}

func TestRunner_RunOnce_DryRun(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]string{
		2024: yearPageHTML(2024, 5, 2_000_000),
		2025: yearPageHTML(2025, 5, 2_200_000),
	}}
	sender := &fakeSender{}

	runner, db, cleanup := newTestRunner(t, getTestConfig(t), fetcher, sender)
	defer cleanup()

	result := runner.RunOnce(context.Background(), RunOptions{DryRun: true, Trigger: database.TriggerCLI})

	if !result.Success {
		t.Fatalf("Expected success, got %d: %s", result.StatusCode, result.Message)
	}
	if result.Emailed {
		t.Error("Expected no email on a dry run")
	}
	if len(sender.sent) != 0 {
		t.Errorf("Expected sender untouched, got %d messages", len(sender.sent))
	}
	if result.Message != "report generated (dry run, email skipped)" {
		t.Errorf("Unexpected message: %q", result.Message)
	}

	run, err := db.Reports.GetLatest()
	if err != nil || run == nil {
		t.Fatalf("Expected a recorded run, got %v, %v", run, err)
	}
	if run.TriggeredBy != database.TriggerCLI {
		t.Errorf("Expected cli trigger, got %s", run.TriggeredBy)
	}
}

func TestRunner_RunOnce_AllYearsFail(t *testing.T) {
	fetcher := &stubFetcher{errs: map[int]error{
		2024: errors.New("blocked"),
		2025: errors.New("blocked"),
	}}

	runner, db, cleanup := newTestRunner(t, getTestConfig(t), fetcher, &fakeSender{})
	defer cleanup()

	result := runner.RunOnce(context.Background(), RunOptions{})

	if result.Success {
		t.Fatal("Expected failure when every year fails")
	}
	if result.StatusCode != 502 {
		t.Errorf("Expected status 502, got %d", result.StatusCode)
	}

	// Failed runs are recorded too
	run, err := db.Reports.GetLatest()
	if err != nil || run == nil {
		t.Fatalf("Expected a recorded run, got %v, %v", run, err)
	}
	if run.Success {
		t.Error("Expected recorded run to be a failure")
	}
}

func TestRunner_RunOnce_PartialYearFailure(t *testing.T) {
	fetcher := &stubFetcher{
		pages: map[int]string{2025: yearPageHTML(2025, 10, 2_200_000)},
		errs:  map[int]error{2024: errors.New("blocked")},
	}

	runner, _, cleanup := newTestRunner(t, getTestConfig(t), fetcher, &fakeSender{})
	defer cleanup()

	result := runner.RunOnce(context.Background(), RunOptions{})

	if !result.Success {
		t.Fatalf("Expected success with one good year, got %d: %s", result.StatusCode, result.Message)
	}
	if result.RowsScraped != 10 {
		t.Errorf("Expected 10 rows from the surviving year, got %d", result.RowsScraped)
	}
}

func TestRunner_RunOnce_EmailFailure(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]string{
		2024: yearPageHTML(2024, 5, 2_000_000),
		2025: yearPageHTML(2025, 5, 2_200_000),
	}}
	sender := &fakeSender{err: errors.New("smtp down")}

	runner, db, cleanup := newTestRunner(t, getTestConfig(t), fetcher, sender)
	defer cleanup()

	result := runner.RunOnce(context.Background(), RunOptions{})

	if result.Success {
		t.Fatal("Expected failure when email delivery fails")
	}
	if result.StatusCode != 500 {
		t.Errorf("Expected status 500, got %d", result.StatusCode)
	}
	if !strings.Contains(result.Message, "email failed") {
		t.Errorf("Expected email failure message, got %q", result.Message)
	}
	if result.Emailed {
		t.Error("Expected emailed=false")
	}

	// Artifacts still exist: the report was generated before delivery
	if result.ChartPath == "" {
		t.Error("Expected chart path even when email fails")
	}
	if result.LatestDataDate == nil {
		t.Error("Expected latest data date even when email fails")
	}

	run, err := db.Reports.GetLatest()
	if err != nil || run == nil {
		t.Fatalf("Expected a recorded run, got %v, %v", run, err)
	}
	if run.Success {
		t.Error("Expected recorded run to be a failure")
	}
}

func TestRunner_RunOnce_Busy(t *testing.T) {
	runner, db, cleanup := newTestRunner(t, getTestConfig(t), &stubFetcher{}, &fakeSender{})
	defer cleanup()

	runner.running.Store(true)
	defer runner.running.Store(false)

	result := runner.RunOnce(context.Background(), RunOptions{})

	if result.StatusCode != 409 {
		t.Errorf("Expected status 409, got %d", result.StatusCode)
	}

	// A rejected run is not a pipeline execution; nothing is recorded
	run, err := db.Reports.GetLatest()
	if err != nil {
		t.Fatalf("Failed to load latest run: %v", err)
	}
	if run != nil {
		t.Errorf("Expected no recorded run, got %+v", run)
	}
}

func TestRunner_RunOnce_ReportsOverStoredHistory(t *testing.T) {
	cfg := getTestConfig(t)
	cfg.YearsBack = 0 // scrape the current year only

	fetcher := &stubFetcher{pages: map[int]string{
		2025: yearPageHTML(2025, 10, 2_200_000),
	}}
	sender := &fakeSender{}

	runner, db, cleanup := newTestRunner(t, cfg, fetcher, sender)
	defer cleanup()

	// Rows from an earlier scrape that this run will not touch
	seed := make([]series.Observation, 5)
	for i := range seed {
		seed[i] = series.Observation{
			Date:       time.Date(2023, time.January, i+1, 0, 0, 0, 0, time.UTC),
			Volume:     1_900_000,
			SourceYear: 2023,
		}
	}
	if _, err := db.Volumes.UpsertBatch(seed); err != nil {
		t.Fatalf("Failed to seed volumes: %v", err)
	}

	result := runner.RunOnce(context.Background(), RunOptions{})
	if !result.Success {
		t.Fatalf("Expected success, got %d: %s", result.StatusCode, result.Message)
	}
	if result.RowsScraped != 10 {
		t.Errorf("Expected 10 rows scraped, got %d", result.RowsScraped)
	}

	// The emailed summary covers the whole stored history, seed included
	if len(sender.sent) != 1 {
		t.Fatalf("Expected 1 message sent, got %d", len(sender.sent))
	}
	if !strings.Contains(sender.sent[0].HTMLBody, ">15<") {
		t.Error("Expected the summary to count all 15 stored days")
	}
}

func TestRunner_RunOnce_CachedSecondRun(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]string{
		2024: yearPageHTML(2024, 5, 2_000_000),
		2025: yearPageHTML(2025, 5, 2_200_000),
	}}

	runner, _, cleanup := newTestRunner(t, getTestConfig(t), fetcher, &fakeSender{})
	defer cleanup()

	if res := runner.RunOnce(context.Background(), RunOptions{DryRun: true}); !res.Success {
		t.Fatalf("First run failed: %s", res.Message)
	}
	firstCalls := len(fetcher.calls)

	if res := runner.RunOnce(context.Background(), RunOptions{DryRun: true}); !res.Success {
		t.Fatalf("Second run failed: %s", res.Message)
	}

	// Second run inside the TTL must be served from the page cache
	if len(fetcher.calls) != firstCalls {
		t.Errorf("Expected no live fetches on the cached run, got %d extra", len(fetcher.calls)-firstCalls)
	}
}
