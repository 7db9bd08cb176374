package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"tsa-volume-tracker/internal/database"
	"tsa-volume-tracker/internal/ratelimit"
	"tsa-volume-tracker/internal/workers"
)

const defaultRunListLimit = 20

// ReportHandler handles HTTP requests for report runs
type ReportHandler struct {
	db     *database.DB
	runner *workers.Runner
	config ratelimit.Config
}

// NewReportHandler creates a new report handler
func NewReportHandler(db *database.DB, runner *workers.Runner, config ratelimit.Config) *ReportHandler {
	return &ReportHandler{
		db:     db,
		runner: runner,
		config: config,
	}
}

// ListReports handles GET /api/reports
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.db.Reports.List(limit)
	if err != nil {
		log.Printf("ERROR: Failed to list report runs: %v", err)
		http.Error(w, fmt.Sprintf("Failed to list report runs: %v", err), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []database.ReportRun{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(runs)
}

// GetLatestReport handles GET /api/reports/latest
func (h *ReportHandler) GetLatestReport(w http.ResponseWriter, r *http.Request) {
	run, err := h.db.Reports.GetLatest()
	if err != nil {
		log.Printf("ERROR: Failed to get latest report run: %v", err)
		http.Error(w, fmt.Sprintf("Failed to get latest report run: %v", err), http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "No report runs recorded", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(run)
}

// GetLatestChart handles GET /api/reports/latest/chart.png
//
// The chart is a filesystem artifact recorded on the run row, so the
// endpoint serves whatever the most recent run produced.
func (h *ReportHandler) GetLatestChart(w http.ResponseWriter, r *http.Request) {
	run, err := h.db.Reports.GetLatest()
	if err != nil {
		log.Printf("ERROR: Failed to get latest report run: %v", err)
		http.Error(w, fmt.Sprintf("Failed to get latest report run: %v", err), http.StatusInternalServerError)
		return
	}
	if run == nil || run.ChartPath == "" {
		http.Error(w, "No chart available", http.StatusNotFound)
		return
	}

	file, err := os.Open(run.ChartPath)
	if err != nil {
		// The run row outlives the artifact when the data dir is cleaned
		http.Error(w, "Chart artifact not found", http.StatusNotFound)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	http.ServeContent(w, r, stat.Name(), stat.ModTime(), file)
}

// TriggerRun handles POST /api/reports/run
//
// Query parameters force (bypass cache and rate limit) and dry_run
// (skip email delivery). The response body is always the RunResult
// envelope with statusCode mirroring the HTTP status.
func (h *ReportHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	force, err := parseBoolParam(r.URL.Query().Get("force"))
	if err != nil {
		http.Error(w, "Invalid force parameter", http.StatusBadRequest)
		return
	}
	dryRun, err := parseBoolParam(r.URL.Query().Get("dry_run"))
	if err != nil {
		http.Error(w, "Invalid dry_run parameter", http.StatusBadRequest)
		return
	}

	// Rate limiting - minimum interval between unforced runs
	var lastRunAt *time.Time
	if latest, err := h.db.Reports.GetLatest(); err != nil {
		log.Printf("ERROR: Failed to check last run for rate limiting: %v", err)
		http.Error(w, fmt.Sprintf("Failed to check last run: %v", err), http.StatusInternalServerError)
		return
	} else if latest != nil {
		lastRunAt = &latest.RunAt
	}

	if check := ratelimit.CheckRunRateLimit(h.config, lastRunAt, force); check.ShouldBlock {
		writeRunResult(w, &workers.RunResult{
			StatusCode: http.StatusTooManyRequests,
			Success:    false,
			Message: fmt.Sprintf("Rate limit exceeded. Please wait %v before running again",
				check.RemainingTime.Truncate(time.Second)),
		})
		return
	}

	result := h.runner.RunOnce(r.Context(), workers.RunOptions{
		Force:   force,
		DryRun:  dryRun,
		Trigger: database.TriggerManual,
	})
	writeRunResult(w, result)
}

func writeRunResult(w http.ResponseWriter, result *workers.RunResult) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.StatusCode)
	json.NewEncoder(w).Encode(result)
}

// parseBoolParam treats an absent query value as false
func parseBoolParam(value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	return strconv.ParseBool(value)
}
