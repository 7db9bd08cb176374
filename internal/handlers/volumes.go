package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"tsa-volume-tracker/internal/database"
	"tsa-volume-tracker/internal/series"
)

const queryDateLayout = "2006-01-02"

// VolumeHandler handles HTTP requests for stored daily volumes
type VolumeHandler struct {
	db *database.DB
}

// NewVolumeHandler creates a new volume handler
func NewVolumeHandler(db *database.DB) *VolumeHandler {
	return &VolumeHandler{db: db}
}

// GetVolumes handles GET /api/volumes
//
// Supported query parameters: year (calendar year), start/end
// (YYYY-MM-DD, inclusive), and limit (keep only the newest N rows).
// year cannot be combined with a date range.
func (h *VolumeHandler) GetVolumes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if limitStr := q.Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = n
	}

	var volumes []database.DailyVolume
	var err error

	yearStr := q.Get("year")
	startStr := q.Get("start")
	endStr := q.Get("end")

	switch {
	case yearStr != "" && (startStr != "" || endStr != ""):
		http.Error(w, "year cannot be combined with start/end", http.StatusBadRequest)
		return

	case yearStr != "":
		year, convErr := strconv.Atoi(yearStr)
		if convErr != nil {
			http.Error(w, "Invalid year parameter", http.StatusBadRequest)
			return
		}
		volumes, err = h.db.Volumes.GetByYear(year)

	case startStr != "" || endStr != "":
		start, end, rangeErr := parseDateRange(startStr, endStr)
		if rangeErr != nil {
			http.Error(w, rangeErr.Error(), http.StatusBadRequest)
			return
		}
		volumes, err = h.db.Volumes.GetRange(start, end)

	default:
		volumes, err = h.db.Volumes.GetAll()
	}

	if err != nil {
		log.Printf("ERROR: Failed to get volumes: %v", err)
		http.Error(w, fmt.Sprintf("Failed to get volumes: %v", err), http.StatusInternalServerError)
		return
	}

	// Rows come back ascending by date; limit keeps the newest ones
	if limit > 0 && len(volumes) > limit {
		volumes = volumes[len(volumes)-limit:]
	}
	if volumes == nil {
		volumes = []database.DailyVolume{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(volumes)
}

// YoYResponse is the year-over-year comparison attached to the latest
// observation when a comparable prior-year day exists.
type YoYResponse struct {
	PriorDate   time.Time `json:"prior_date"`
	PriorVolume int64     `json:"prior_volume"`
	Ratio       float64   `json:"ratio"`
	Pct         float64   `json:"pct"`
}

// LatestVolumeResponse represents the latest observation with growth
type LatestVolumeResponse struct {
	database.DailyVolume
	YoY *YoYResponse `json:"yoy,omitempty"`
}

// GetLatestVolume handles GET /api/volumes/latest
func (h *VolumeHandler) GetLatestVolume(w http.ResponseWriter, r *http.Request) {
	latest, err := h.db.Volumes.GetLatest()
	if err != nil {
		log.Printf("ERROR: Failed to get latest volume: %v", err)
		http.Error(w, fmt.Sprintf("Failed to get latest volume: %v", err), http.StatusInternalServerError)
		return
	}
	if latest == nil {
		http.Error(w, "No volume data available", http.StatusNotFound)
		return
	}

	response := LatestVolumeResponse{DailyVolume: *latest}

	// The comparison needs the prior year loaded, so build the full series
	rows, err := h.db.Volumes.GetAll()
	if err != nil {
		log.Printf("ERROR: Failed to load volume history: %v", err)
		http.Error(w, fmt.Sprintf("Failed to load volume history: %v", err), http.StatusInternalServerError)
		return
	}
	s := series.FromObservations(database.AsObservations(rows))
	if point, ok := s.GrowthOn(latest.Date); ok {
		response.YoY = &YoYResponse{
			PriorDate:   point.PriorDate,
			PriorVolume: point.PriorVolume,
			Ratio:       point.Ratio,
			Pct:         point.Pct,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// GetStats handles GET /api/stats
func (h *VolumeHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Volumes.GetAll()
	if err != nil {
		log.Printf("ERROR: Failed to load volume history: %v", err)
		http.Error(w, fmt.Sprintf("Failed to load volume history: %v", err), http.StatusInternalServerError)
		return
	}

	summary, err := series.FromObservations(database.AsObservations(rows)).Summarize()
	if err != nil {
		if errors.Is(err, series.ErrEmptySeries) {
			http.Error(w, "No volume data available", http.StatusNotFound)
			return
		}
		log.Printf("ERROR: Failed to summarize volumes: %v", err)
		http.Error(w, fmt.Sprintf("Failed to summarize volumes: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(summary)
}

// parseDateRange interprets optional start/end query values, filling
// the missing bound with an open one.
func parseDateRange(startStr, endStr string) (time.Time, time.Time, error) {
	start := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2100, time.December, 31, 0, 0, 0, 0, time.UTC)

	if startStr != "" {
		parsed, err := time.Parse(queryDateLayout, startStr)
		if err != nil {
			return start, end, fmt.Errorf("invalid start date %q, expected YYYY-MM-DD", startStr)
		}
		start = parsed
	}
	if endStr != "" {
		parsed, err := time.Parse(queryDateLayout, endStr)
		if err != nil {
			return start, end, fmt.Errorf("invalid end date %q, expected YYYY-MM-DD", endStr)
		}
		end = parsed
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("end date %s is before start date %s",
			end.Format(queryDateLayout), start.Format(queryDateLayout))
	}
	return start, end, nil
}
