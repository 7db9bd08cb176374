package workers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"tsa-volume-tracker/internal/cache"
	"tsa-volume-tracker/internal/config"
	"tsa-volume-tracker/internal/database"
	"tsa-volume-tracker/internal/email"
	"tsa-volume-tracker/internal/report"
	"tsa-volume-tracker/internal/scrape"
	"tsa-volume-tracker/internal/series"
)

// RunOptions controls a single pipeline execution.
type RunOptions struct {
	// Force bypasses the page cache so every year is fetched live.
	Force bool
	// DryRun generates artifacts but skips email delivery.
	DryRun bool
	// Trigger is recorded with the run (scheduled, manual, cli).
	Trigger string
}

// RunResult is the outcome envelope of one pipeline execution. It is
// returned to API callers and recorded in the report_runs table.
type RunResult struct {
	StatusCode     int        `json:"statusCode"`
	Success        bool       `json:"success"`
	Message        string     `json:"message"`
	LatestDataDate *time.Time `json:"latest_data_date,omitempty"`
	RowsScraped    int        `json:"rows_scraped"`
	ChartPath      string     `json:"chart_path,omitempty"`
	Emailed        bool       `json:"emailed"`
}

// Runner executes the scrape → store → report → email pipeline.
type Runner struct {
	config    *config.Config
	scraper   *scrape.Scraper
	cache     *cache.Manager
	db        *database.DB
	generator *report.Generator
	sender    email.Sender
	logger    *slog.Logger
	running   atomic.Bool
	now       func() time.Time
}

// NewRunner creates a pipeline runner. The sender may be nil when email
// delivery is not configured.
func NewRunner(cfg *config.Config, scraper *scrape.Scraper, cacheManager *cache.Manager, db *database.DB, sender email.Sender) *Runner {
	return &Runner{
		config:    cfg,
		scraper:   scraper,
		cache:     cacheManager,
		db:        db,
		generator: report.NewGenerator(cfg.DataDir),
		sender:    sender,
		logger:    slog.Default().With("component", "report_runner"),
		now:       time.Now,
	}
}

// IsRunning reports whether a pipeline execution is in flight.
func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// RunOnce executes the full pipeline. Only one execution runs at a time;
// concurrent callers get a 409 result without touching the database.
// Every real execution is recorded in report_runs, success or not.
func (r *Runner) RunOnce(ctx context.Context, opts RunOptions) *RunResult {
	if opts.Trigger == "" {
		opts.Trigger = database.TriggerManual
	}

	if !r.running.CompareAndSwap(false, true) {
		return &RunResult{
			StatusCode: http.StatusConflict,
			Message:    "a report run is already in progress",
		}
	}
	defer r.running.Store(false)

	startedAt := r.now()
	r.logger.Info("Starting report run", "trigger", opts.Trigger, "force", opts.Force, "dry_run", opts.DryRun)

	result := r.execute(ctx, opts)

	run := &database.ReportRun{
		RunAt:          startedAt.UTC(),
		TriggeredBy:    opts.Trigger,
		StatusCode:     result.StatusCode,
		Success:        result.Success,
		Message:        result.Message,
		LatestDataDate: result.LatestDataDate,
		RowsScraped:    result.RowsScraped,
		ChartPath:      result.ChartPath,
		Emailed:        result.Emailed,
	}
	if err := r.db.Reports.Create(run); err != nil {
		r.logger.Error("Failed to record report run", "error", err)
	}

	r.logger.Info("Report run finished",
		"status", result.StatusCode,
		"success", result.Success,
		"rows", result.RowsScraped,
		"emailed", result.Emailed,
		"duration", time.Since(startedAt))
	return result
}

func (r *Runner) execute(ctx context.Context, opts RunOptions) *RunResult {
	runDate := r.runDate()

	merged, rowsScraped, err := r.collect(ctx, runDate, opts.Force)
	if err != nil {
		return failure(http.StatusBadGateway, err.Error())
	}

	written, err := r.db.Volumes.UpsertBatch(merged.Points())
	if err != nil {
		res := failure(http.StatusInternalServerError, fmt.Sprintf("failed to store volumes: %v", err))
		res.RowsScraped = rowsScraped
		return res
	}
	r.logger.Info("stored volumes", "rows", written)

	// Report over the full stored history, not just the years scraped
	// this run.
	stored, err := r.db.Volumes.GetAll()
	if err != nil {
		res := failure(http.StatusInternalServerError, fmt.Sprintf("failed to load volume history: %v", err))
		res.RowsScraped = rowsScraped
		return res
	}
	full := series.FromObservations(database.AsObservations(stored))

	summary, err := full.Summarize()
	if err != nil {
		res := failure(http.StatusInternalServerError, fmt.Sprintf("failed to summarize series: %v", err))
		res.RowsScraped = rowsScraped
		return res
	}
	growth := full.YearOverYear()

	artifacts, err := r.generator.Generate(full, growth, runDate)
	if err != nil {
		res := failure(http.StatusInternalServerError, fmt.Sprintf("failed to generate report: %v", err))
		res.RowsScraped = rowsScraped
		latest := summary.LatestDate
		res.LatestDataDate = &latest
		return res
	}

	latest := summary.LatestDate
	result := &RunResult{
		StatusCode:     http.StatusOK,
		Success:        true,
		LatestDataDate: &latest,
		RowsScraped:    rowsScraped,
		ChartPath:      artifacts.ChartPath,
	}

	if opts.DryRun {
		result.Message = "report generated (dry run, email skipped)"
		return result
	}
	if r.sender == nil || !r.config.EmailEnabled() {
		result.Message = "report generated (email not configured)"
		return result
	}

	if err := r.sendReport(ctx, summary, artifacts, runDate); err != nil {
		result.StatusCode = http.StatusInternalServerError
		result.Success = false
		result.Message = fmt.Sprintf("report generated but email failed: %v", err)
		return result
	}

	result.Emailed = true
	result.Message = "report generated and emailed"
	return result
}

// collect fetches and parses each configured year, merging the batches
// into one series. Years that fail are logged and skipped; the run only
// fails when no year yields data.
func (r *Runner) collect(ctx context.Context, runDate time.Time, force bool) (*series.Series, int, error) {
	years := scrape.YearRange(runDate.Year(), r.config.YearsBack)

	var batches [][]series.Observation
	var failures []int
	needDelay := false

	for _, year := range years {
		if needDelay {
			// Pause between live fetches only; cache hits cost the
			// server nothing.
			select {
			case <-time.After(r.config.FetchDelay):
			case <-ctx.Done():
				return nil, 0, fmt.Errorf("run canceled: %v", ctx.Err())
			}
			needDelay = false
		}

		html, fromCache, err := r.cache.GetPage(ctx, year, force)
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, fmt.Errorf("run canceled: %v", ctx.Err())
			}
			r.logger.Error("failed to fetch year page", "year", year, "error", err)
			failures = append(failures, year)
			needDelay = !fromCache
			continue
		}
		needDelay = !fromCache

		obs, err := r.scraper.ParseYear(html, year)
		if err != nil {
			r.logger.Error("failed to parse year page", "year", year, "error", err)
			failures = append(failures, year)
			continue
		}
		batches = append(batches, obs)
	}

	merged, rejected := series.Merge(batches...)
	if len(rejected) > 0 {
		r.logger.Warn("dropped invalid observations during merge", "count", len(rejected))
	}
	if merged.Len() == 0 {
		return nil, 0, fmt.Errorf("scrape produced no data for years %v", years)
	}
	if len(failures) > 0 {
		r.logger.Warn("some years failed to scrape", "years", failures)
	}

	rows := 0
	for _, b := range batches {
		rows += len(b)
	}
	return merged, rows, nil
}

func (r *Runner) sendReport(ctx context.Context, summary *series.Summary, artifacts *report.Artifacts, runDate time.Time) error {
	data := report.EmailData{
		Summary:     summary,
		GeneratedAt: runDate,
		SourceURL:   r.config.BaseURL,
	}

	htmlBody, err := report.RenderEmailHTML(data)
	if err != nil {
		return fmt.Errorf("render html body: %w", err)
	}
	textBody, err := report.RenderEmailText(data)
	if err != nil {
		return fmt.Errorf("render text body: %w", err)
	}

	msg := &email.Message{
		Subject:  email.Subject(summary.LatestDate),
		HTMLBody: htmlBody,
		TextBody: textBody,
		Attachments: []string{
			artifacts.ChartPath,
			artifacts.VolumesCSVPath,
			artifacts.GrowthCSVPath,
		},
	}
	return r.sender.Send(ctx, msg)
}

// runDate is the wall-clock date of the run in the report timezone;
// artifact names and the daily-run guard both key off it.
func (r *Runner) runDate() time.Time {
	loc, err := r.config.Location()
	if err != nil {
		return r.now().UTC()
	}
	return r.now().In(loc)
}

func failure(status int, message string) *RunResult {
	return &RunResult{
		StatusCode: status,
		Success:    false,
		Message:    message,
	}
}
