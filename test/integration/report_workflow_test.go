package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"tsa-volume-tracker/internal/cache"
	"tsa-volume-tracker/internal/config"
	"tsa-volume-tracker/internal/database"
	"tsa-volume-tracker/internal/email"
	"tsa-volume-tracker/internal/scrape"
	"tsa-volume-tracker/internal/workers"
)

// fakeSender records messages instead of talking to an SMTP server.
type fakeSender struct {
	mu       sync.Mutex
	messages []*email.Message
}

func (f *fakeSender) Send(ctx context.Context, msg *email.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeSender) sent() []*email.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages
}

// yearPage renders a year page the way tsa.gov does: one table, dates as
// M/D/YYYY, volumes comma-grouped.
func yearPage(rows [][2]string) string {
	var b strings.Builder
	b.WriteString("<html><body><table>\n")
	b.WriteString("<tr><th>Date</th><th>Numbers</th></tr>\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td></tr>\n", row[0], row[1])
	}
	b.WriteString("</table></body></html>")
	return b.String()
}

// fixtureRows builds six January days for the given year, newest first.
// Volumes grow with the year so the YoY numbers come out positive.
// January keeps the dates in the past no matter when the test runs, and
// the 365-day lookback's 3-day probe absorbs any leap-year drift.
func fixtureRows(year int) [][2]string {
	rows := make([][2]string, 0, 6)
	for day := 15; day >= 10; day-- {
		volume := int64(2_000_000) + int64(year%100)*10_000 + int64(day)*1_000
		rows = append(rows, [2]string{
			fmt.Sprintf("1/%d/%d", day, year),
			formatGrouped(volume),
		})
	}
	return rows
}

func formatGrouped(n int64) string {
	s := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// pipeline wires a runner against a mock TSA site and a throwaway
// database, returning everything a test needs to poke at afterwards.
type pipeline struct {
	runner *workers.Runner
	db     *database.DB
	sender *fakeSender
	cfg    *config.Config
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()

	currentYear := time.Now().Year()
	priorYear := currentYear - 1

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, yearPage(fixtureRows(currentYear)))
		case "/" + strconv.Itoa(priorYear):
			fmt.Fprint(w, yearPage(fixtureRows(priorYear)))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(site.Close)

	dir := t.TempDir()
	cfg := &config.Config{
		DBPath:         filepath.Join(dir, "tsa.db"),
		BaseURL:        site.URL,
		YearsBack:      1,
		FetchDelay:     time.Millisecond,
		DataDir:        filepath.Join(dir, "reports"),
		SenderEmail:    "reports@example.com",
		AppPassword:    "test-password",
		RecipientEmail: "team@example.com",
		Timezone:       "America/New_York",
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	scraper := scrape.NewScraper(scrape.Config{
		BaseURL:    cfg.BaseURL,
		FetchDelay: cfg.FetchDelay,
	})
	manager := cache.NewManager(db.PageCache, scraper, false, cfg.CurrentYearTTL, cfg.PastYearTTL)
	t.Cleanup(manager.Close)

	sender := &fakeSender{}
	return &pipeline{
		runner: workers.NewRunner(cfg, scraper, manager, db, sender),
		db:     db,
		sender: sender,
		cfg:    cfg,
	}
}

func TestReportWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	p := newPipeline(t)
	currentYear := time.Now().Year()

	result := p.runner.RunOnce(context.Background(), workers.RunOptions{Trigger: database.TriggerManual})

	if !result.Success {
		t.Fatalf("RunOnce() failed: %s", result.Message)
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want %d", result.StatusCode, http.StatusOK)
	}
	if result.Message != "report generated and emailed" {
		t.Errorf("Message = %q", result.Message)
	}
	if result.RowsScraped != 12 {
		t.Errorf("RowsScraped = %d, want 12", result.RowsScraped)
	}
	if !result.Emailed {
		t.Error("Emailed = false, want true")
	}
	wantLatest := fmt.Sprintf("%d-01-15", currentYear)
	if result.LatestDataDate == nil {
		t.Fatal("LatestDataDate = nil")
	}
	if got := result.LatestDataDate.Format("2006-01-02"); got != wantLatest {
		t.Errorf("LatestDataDate = %s, want %s", got, wantLatest)
	}

	// Artifacts land on disk under DataDir.
	if result.ChartPath == "" {
		t.Fatal("ChartPath is empty")
	}
	if _, err := os.Stat(result.ChartPath); err != nil {
		t.Errorf("chart file missing: %v", err)
	}
	volumesCSV, err := filepath.Glob(filepath.Join(p.cfg.DataDir, "tsa_volumes_*.csv"))
	if err != nil || len(volumesCSV) != 1 {
		t.Fatalf("volumes CSV glob = %v, err = %v, want exactly one file", volumesCSV, err)
	}
	growthCSV, err := filepath.Glob(filepath.Join(p.cfg.DataDir, "tsa_yoy_*.csv"))
	if err != nil || len(growthCSV) != 1 {
		t.Fatalf("growth CSV glob = %v, err = %v, want exactly one file", growthCSV, err)
	}

	// Each current-year day has a prior-year counterpart, so the growth
	// export carries a header plus six rows.
	growthData, err := os.ReadFile(growthCSV[0])
	if err != nil {
		t.Fatalf("reading growth CSV: %v", err)
	}
	lines := nonEmptyLines(string(growthData))
	if len(lines) != 7 {
		t.Errorf("growth CSV has %d lines, want 7:\n%s", len(lines), growthData)
	}

	// Volumes persisted and the run recorded.
	count, err := p.db.Volumes.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 12 {
		t.Errorf("stored volumes = %d, want 12", count)
	}
	run, err := p.db.Reports.GetLatest()
	if err != nil {
		t.Fatalf("Reports.GetLatest() error = %v", err)
	}
	if run == nil {
		t.Fatal("no report run recorded")
	}
	if !run.Success || run.TriggeredBy != database.TriggerManual || !run.Emailed {
		t.Errorf("recorded run = %+v, want successful manual emailed run", run)
	}
	if run.RowsScraped != 12 {
		t.Errorf("recorded RowsScraped = %d, want 12", run.RowsScraped)
	}

	// The email carries both bodies and all three attachments.
	sent := p.sender.sent()
	if len(sent) != 1 {
		t.Fatalf("sender received %d messages, want 1", len(sent))
	}
	msg := sent[0]
	if !strings.Contains(msg.Subject, "TSA Passenger Volumes") {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if msg.HTMLBody == "" || msg.TextBody == "" {
		t.Error("message missing HTML or text body")
	}
	if len(msg.Attachments) != 3 {
		t.Errorf("attachments = %v, want chart plus two CSVs", msg.Attachments)
	}
}

func TestReportWorkflow_DryRunSkipsEmail(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	p := newPipeline(t)

	result := p.runner.RunOnce(context.Background(), workers.RunOptions{
		DryRun:  true,
		Trigger: database.TriggerManual,
	})

	if !result.Success {
		t.Fatalf("RunOnce() failed: %s", result.Message)
	}
	if result.Message != "report generated (dry run, email skipped)" {
		t.Errorf("Message = %q", result.Message)
	}
	if result.Emailed {
		t.Error("Emailed = true on a dry run")
	}
	if len(p.sender.sent()) != 0 {
		t.Errorf("sender received %d messages on a dry run", len(p.sender.sent()))
	}
	// The artifacts are still produced; only delivery is skipped.
	if result.ChartPath == "" {
		t.Error("ChartPath is empty on a dry run")
	}
	if _, err := os.Stat(result.ChartPath); err != nil {
		t.Errorf("chart file missing: %v", err)
	}
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
