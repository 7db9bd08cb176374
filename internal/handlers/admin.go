package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"tsa-volume-tracker/internal/workers"
)

// AdminHandler handles administrative operations
type AdminHandler struct {
	scheduler *workers.Scheduler
	logger    *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(scheduler *workers.Scheduler, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// GetSchedulerStatus handles GET /api/admin/scheduler
func (h *AdminHandler) GetSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	status := h.scheduler.Status()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}

// PauseScheduler handles POST /api/admin/scheduler/pause
func (h *AdminHandler) PauseScheduler(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Pause()
	h.logger.Info("Report scheduler paused via API")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "paused",
		"message": "Report scheduler has been paused",
	})
}

// ResumeScheduler handles POST /api/admin/scheduler/resume
func (h *AdminHandler) ResumeScheduler(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Resume()
	h.logger.Info("Report scheduler resumed via API")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "resumed",
		"message": "Report scheduler has been resumed",
	})
}
